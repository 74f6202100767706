package nodeclient

import "strings"

// Flag is one member of a flag bundle parameter.
type Flag struct {
	Name string
	Set  bool
}

// CommaSeparatedFlags joins the names of the set flags with commas, keeping
// declaration order. An empty result means the whole parameter must be
// omitted from the query.
func CommaSeparatedFlags(flags []Flag) string {
	var names []string
	for _, f := range flags {
		if f.Set {
			names = append(names, f.Name)
		}
	}
	return strings.Join(names, ",")
}
