package gen

import (
	"fmt"
	"strings"

	"github.com/MoeraOrg/moera-tools/internal/analyze"
	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

// fieldGoType resolves the Go type of a structure field. Inside a generic
// structure the body representation is the type parameter B; generic
// dependencies pass the parameter through. Non-generic structures always use
// the decoded forms.
func fieldGoType(s *apispec.Structure, f *apispec.Field, u *analyze.Usage) (string, error) {
	var t string
	switch {
	case f.Struct == apispec.BodyStruct:
		if u.Generic(s.Name) {
			t = "B"
		} else {
			t = "Body"
		}
	case f.Struct != "":
		if u.Generic(f.Struct) {
			if u.Generic(s.Name) {
				t = exportedName(f.Struct) + "[B]"
			} else {
				t = "Decoded" + exportedName(f.Struct)
			}
		} else {
			t = exportedName(f.Struct)
		}
	case f.Enum != "":
		t = exportedName(f.Enum)
	default:
		var err error
		t, err = goType(f.Type, fmt.Sprintf("structure %s, field %s", s.Name, f.Name))
		if err != nil {
			return "", err
		}
	}
	if f.Array {
		t = "[]" + t
	}
	if f.Optional && f.Default == nil && !strings.HasPrefix(t, "[]") && !strings.HasPrefix(t, "map[") {
		t = "*" + t
	}
	return t, nil
}

// emitStructureType renders the typed definition of one structure. A generic
// structure (transitive Body usage and output-reachable) is emitted once,
// parameterized over the body representation, with the encoded and decoded
// instantiations as aliases.
func emitStructureType(b *strings.Builder, s *apispec.Structure, u *analyze.Usage) error {
	name := exportedName(s.Name)
	generic := u.Generic(s.Name)
	if generic {
		fmt.Fprintf(b, "\ntype %s[B any] struct {\n", name)
	} else {
		fmt.Fprintf(b, "\ntype %s struct {\n", name)
	}
	for _, f := range s.Fields {
		if f.Type == "any" {
			continue
		}
		t, err := fieldGoType(s, f, u)
		if err != nil {
			return err
		}
		tag := f.Name
		if f.Optional && f.Default == nil {
			tag += ",omitempty"
		}
		fmt.Fprintf(b, "\t%s %s `json:%q`\n", exportedName(f.Name), t, tag)
	}
	b.WriteString("}\n")
	if generic {
		fmt.Fprintf(b, "\ntype Encoded%s = %s[string]\n", name, name)
		fmt.Fprintf(b, "\ntype Decoded%s = %s[Body]\n", name, name)
	}
	return nil
}

// writeFieldSchema renders the schema fragment of one field at the given
// indentation. The wire shape is identical for encoded and decoded body
// representations, so Body fields validate as plain strings.
func writeFieldSchema(b *strings.Builder, indent int, s *apispec.Structure, f *apispec.Field) error {
	nullable := f.Optional && f.Default == nil
	array := f.Array
	bounds := schemaBounds{def: f.Default, min: f.Min, max: f.Max}

	var typ string
	structRef := false
	switch {
	case f.Struct == apispec.BodyStruct:
		typ = "string"
	case f.Struct != "":
		typ = f.Struct
		structRef = true
	case f.Enum != "":
		typ = "string"
	default:
		st, ok := schemaTypes[f.Type]
		if !ok {
			return &apispec.SpecError{
				Code:     apispec.UnrecognizedFieldType,
				Message:  fmt.Sprintf("unrecognized field type %q", f.Type),
				Location: fmt.Sprintf("structure %s, field %s", s.Name, f.Name),
			}
		}
		if st.mapStringInt {
			writeSchemaMapStringInt(b, indent, nullable)
			return nil
		}
		typ = st.typ
		array = array || st.array
	}

	if array {
		writeSchemaArray(b, indent, typ, structRef, nullable, bounds, f.MinItems, f.MaxItems)
	} else {
		writeSchemaType(b, indent, typ, structRef, nullable, bounds)
	}
	return nil
}

// emitStructureSchema renders the JSON Schema literal of one
// output-reachable structure. A field is required iff it is not optional; a
// default keeps the field non-nullable but never makes it required. Every
// object schema is closed so unexpected server properties fail validation.
func emitStructureSchema(b *strings.Builder, s *apispec.Structure, u *analyze.Usage) error {
	fmt.Fprintf(b, "\nvar %s = nodeclient.MustSchema(%q, map[string]any{\n", schemaVar(s.Name), s.Name)
	b.WriteString("\t\"type\": \"object\",\n")
	b.WriteString("\t\"properties\": map[string]any{\n")
	var required []string
	for _, f := range s.Fields {
		if f.Type == "any" {
			continue
		}
		if !f.Optional {
			required = append(required, f.Name)
		}
		fmt.Fprintf(b, "\t\t%q: ", f.Name)
		if err := writeFieldSchema(b, 2, s, f); err != nil {
			return err
		}
		b.WriteString(",\n")
	}
	b.WriteString("\t},\n")
	if len(required) > 0 {
		b.WriteString("\t\"required\": []string{\n")
		for _, name := range required {
			fmt.Fprintf(b, "\t\t%q,\n", name)
		}
		b.WriteString("\t},\n")
	}
	b.WriteString("\t\"additionalProperties\": false,\n")
	b.WriteString("})\n")

	if u.OutputArray[s.Name] {
		fmt.Fprintf(b, "\nvar %s = nodeclient.ArraySchema(%s)\n", arraySchemaVar(s.Name), schemaVar(s.Name))
	}
	return nil
}
