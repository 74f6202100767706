package gen

import (
	"fmt"
	"strings"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

// emitEnum renders a closed string type with one constant per literal value.
// Enums need no schema beyond validating as strings.
func emitEnum(b *strings.Builder, e *apispec.Enum) {
	name := exportedName(e.Name)
	fmt.Fprintf(b, "\ntype %s string\n", name)
	if len(e.Values) == 0 {
		return
	}
	b.WriteString("\nconst (\n")
	for _, v := range e.Values {
		fmt.Fprintf(b, "\t%s%s %s = %q\n", name, exportedName(v), name, v)
	}
	b.WriteString(")\n")
}
