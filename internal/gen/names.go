package gen

import (
	"strings"
	"unicode"
)

// initialisms are rendered fully upper-cased in exported Go identifiers.
var initialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"uuid": "UUID",
	"api":  "API",
	"html": "HTML",
	"ip":   "IP",
}

// goKeywords guards generated parameter and variable names.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"for": true, "func": true, "go": true, "goto": true, "if": true,
	"import": true, "interface": true, "map": true, "package": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,
}

// words splits a camelCase, kebab-case, or snake_case name into lower-cased
// words.
func words(name string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range name {
		switch {
		case r == '-' || r == '_' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// exportedName converts a wire-level name into an exported Go identifier.
func exportedName(name string) string {
	var b strings.Builder
	for _, w := range words(name) {
		if up, ok := initialisms[w]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

// localName converts a wire-level name into an unexported Go identifier
// usable as a parameter or local variable.
func localName(name string) string {
	ws := words(name)
	var b strings.Builder
	for i, w := range ws {
		if i == 0 {
			b.WriteString(w)
			continue
		}
		if up, ok := initialisms[w]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	out := b.String()
	if goKeywords[out] {
		out += "_"
	}
	return out
}

// schemaVar names the generated schema variable of a structure or
// operations group.
func schemaVar(name string) string {
	return exportedName(name) + "Schema"
}

// arraySchemaVar names the array-wrapping schema variable.
func arraySchemaVar(name string) string {
	return exportedName(name) + "ArraySchema"
}
