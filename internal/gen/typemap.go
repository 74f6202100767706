package gen

import (
	"fmt"
	"strings"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

// goTypes is the closed table mapping the scalar type vocabulary to Go
// types. "any" is absent on purpose: fields of that type are skipped.
var goTypes = map[string]string{
	"String":        "string",
	"String[]":      "[]string",
	"int":           "int",
	"float":         "float64",
	"boolean":       "bool",
	"timestamp":     "Timestamp",
	"byte[]":        "[]byte",
	"UUID":          "string",
	"String -> int": "map[string]int",
}

// goType resolves a scalar type name to its Go representation. An unknown
// name aborts generation.
func goType(apiType, location string) (string, error) {
	t, ok := goTypes[apiType]
	if !ok {
		return "", &apispec.SpecError{
			Code:     apispec.UnrecognizedFieldType,
			Message:  fmt.Sprintf("unrecognized field type %q", apiType),
			Location: location,
		}
	}
	return t, nil
}

// scalarSchema describes the JSON Schema rendering of one scalar type.
// Schemas validate the wire encoding, so byte[] is a plain string and
// String[] forces an array of strings.
type scalarSchema struct {
	typ          string
	array        bool
	mapStringInt bool
}

var schemaTypes = map[string]scalarSchema{
	"String":        {typ: "string"},
	"String[]":      {typ: "string", array: true},
	"int":           {typ: "integer"},
	"float":         {typ: "number"},
	"boolean":       {typ: "boolean"},
	"timestamp":     {typ: "integer"},
	"byte[]":        {typ: "string"},
	"UUID":          {typ: "string"},
	"String -> int": {mapStringInt: true},
}

func ind(n int) string {
	return strings.Repeat("\t", n)
}

// goLiteral renders a default value loaded from YAML as a Go literal.
func goLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func numLiteral(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%v", v)
}

// numeric constraints attached to a scalar schema fragment.
type schemaBounds struct {
	def      any
	min, max *float64
}

// writeSchemaType renders a scalar schema fragment as a Go map literal. For
// struct references it renders the named schema variable instead, widened to
// a nullable inline clone when the field is optional.
func writeSchemaType(b *strings.Builder, indent int, typ string, structRef, nullable bool, bounds schemaBounds) {
	if structRef {
		if nullable {
			fmt.Fprintf(b, "nodeclient.NullableObjectSchema(%s)", schemaVar(typ))
		} else {
			fmt.Fprintf(b, "%s.Doc()", schemaVar(typ))
		}
		return
	}

	b.WriteString("map[string]any{\n")
	if nullable {
		fmt.Fprintf(b, "%s\"type\": []string{%q, \"null\"},\n", ind(indent+1), typ)
	} else {
		fmt.Fprintf(b, "%s\"type\": %q,\n", ind(indent+1), typ)
	}
	if bounds.def != nil {
		fmt.Fprintf(b, "%s\"default\": %s,\n", ind(indent+1), goLiteral(bounds.def))
	}
	if bounds.min != nil {
		fmt.Fprintf(b, "%s\"minimum\": %s,\n", ind(indent+1), numLiteral(*bounds.min))
	}
	if bounds.max != nil {
		fmt.Fprintf(b, "%s\"maximum\": %s,\n", ind(indent+1), numLiteral(*bounds.max))
	}
	fmt.Fprintf(b, "%s}", ind(indent))
}

// writeSchemaArray wraps an element fragment into an array schema.
func writeSchemaArray(b *strings.Builder, indent int, typ string, structRef, nullable bool, bounds schemaBounds, minItems, maxItems *int) {
	b.WriteString("map[string]any{\n")
	if nullable {
		fmt.Fprintf(b, "%s\"type\": []string{\"array\", \"null\"},\n", ind(indent+1))
	} else {
		fmt.Fprintf(b, "%s\"type\": \"array\",\n", ind(indent+1))
	}
	fmt.Fprintf(b, "%s\"items\": ", ind(indent+1))
	writeSchemaType(b, indent+1, typ, structRef, false, schemaBounds{min: bounds.min, max: bounds.max})
	b.WriteString(",\n")
	if bounds.def != nil {
		fmt.Fprintf(b, "%s\"default\": %s,\n", ind(indent+1), goLiteral(bounds.def))
	}
	if minItems != nil {
		fmt.Fprintf(b, "%s\"minItems\": %d,\n", ind(indent+1), *minItems)
	}
	if maxItems != nil {
		fmt.Fprintf(b, "%s\"maxItems\": %d,\n", ind(indent+1), *maxItems)
	}
	fmt.Fprintf(b, "%s}", ind(indent))
}

// writeSchemaMapStringInt renders the wildcard object schema of the
// "String -> int" map type.
func writeSchemaMapStringInt(b *strings.Builder, indent int, nullable bool) {
	b.WriteString("map[string]any{\n")
	if nullable {
		fmt.Fprintf(b, "%s\"type\": []string{\"object\", \"null\"},\n", ind(indent+1))
	} else {
		fmt.Fprintf(b, "%s\"type\": \"object\",\n", ind(indent+1))
	}
	fmt.Fprintf(b, "%s\"patternProperties\": map[string]any{\n", ind(indent+1))
	fmt.Fprintf(b, "%s\"^.*$\": map[string]any{\n", ind(indent+2))
	fmt.Fprintf(b, "%s\"type\": \"integer\",\n", ind(indent+3))
	fmt.Fprintf(b, "%s},\n", ind(indent+2))
	fmt.Fprintf(b, "%s},\n", ind(indent+1))
	fmt.Fprintf(b, "%s}", ind(indent))
}
