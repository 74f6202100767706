package gen

import (
	"fmt"
	"strings"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

// emitOperationsType renders a permission bag: one optional principal field
// per declared name.
func emitOperationsType(b *strings.Builder, ops *apispec.Operations) {
	fmt.Fprintf(b, "\ntype %s struct {\n", exportedName(ops.Name))
	for _, f := range ops.Fields {
		fmt.Fprintf(b, "\t%s *PrincipalValue `json:\"%s,omitempty\"`\n", exportedName(f), f)
	}
	b.WriteString("}\n")
}

// emitOperationsSchema renders the schema of a permission bag: no field is
// required, unknown fields are rejected.
func emitOperationsSchema(b *strings.Builder, ops *apispec.Operations) {
	fmt.Fprintf(b, "\nvar %s = nodeclient.MustSchema(%q, map[string]any{\n", schemaVar(ops.Name), ops.Name)
	b.WriteString("\t\"type\": \"object\",\n")
	b.WriteString("\t\"properties\": map[string]any{\n")
	for _, f := range ops.Fields {
		fmt.Fprintf(b, "\t\t%q: map[string]any{\n", f)
		b.WriteString("\t\t\t\"type\": []string{\"string\", \"null\"},\n")
		b.WriteString("\t\t},\n")
	}
	b.WriteString("\t},\n")
	b.WriteString("\t\"additionalProperties\": false,\n")
	b.WriteString("})\n")
}
