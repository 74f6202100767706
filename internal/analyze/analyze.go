// Package analyze derives per-structure usage flags and a valid emission
// order from the structure dependency graph.
package analyze

import (
	"strings"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

// ResultStruct is the default response type of endpoints that declare no
// output, and the shape of every error response.
const ResultStruct = "Result"

// Usage holds the flags derived from the dependency graph. All maps are
// keyed by structure name and are read-only after Scan returns.
type Usage struct {
	// UsesBody marks structures that transitively contain a Body-typed
	// field.
	UsesBody map[string]bool
	// Output marks structures transitively required to represent some
	// endpoint's response.
	Output map[string]bool
	// OutputArray marks structures returned somewhere as a list.
	OutputArray map[string]bool
}

// Generic reports whether the structure needs two instantiations (encoded
// and decoded body representation) sharing one schema.
func (u *Usage) Generic(name string) bool {
	return u.UsesBody[name] && u.Output[name]
}

// Graph builds the structure dependency adjacency lists: an edge A->B exists
// iff A has a field whose struct reference is B. Declaration order is kept;
// the graph is never mutated after construction.
func Graph(spec *apispec.Spec) map[string][]string {
	deps := make(map[string][]string, len(spec.Structures))
	for _, s := range spec.Structures {
		deps[s.Name] = s.Depends()
	}
	return deps
}

// Scan computes the usage flags for all structures of the spec.
func Scan(spec *apispec.Spec) *Usage {
	deps := Graph(spec)
	u := &Usage{
		UsesBody:    PropagateBodyUsage(deps),
		Output:      make(map[string]bool, len(deps)),
		OutputArray: make(map[string]bool, len(deps)),
	}

	// Seed output from endpoint responses. Endpoints without a declared
	// output return a Result, so Result is output-reachable as soon as any
	// such endpoint exists.
	for _, obj := range spec.Objects {
		for _, req := range obj.Requests {
			switch {
			case req.Out == nil:
				if _, ok := deps[ResultStruct]; ok {
					u.Output[ResultStruct] = true
				}
			case req.Out.Struct != "":
				if _, ok := deps[req.Out.Struct]; ok {
					u.Output[req.Out.Struct] = true
					if req.Out.Array {
						u.OutputArray[req.Out.Struct] = true
					}
				}
			}
		}
	}
	u.Output = PropagateOutput(deps, u.Output)
	return u
}

// PropagateBodyUsage computes the least fixed point of body usage: a
// structure with a direct Body field starts true, and the flag flows from a
// dependency to its dependents. Flags only ever go from false to true, so
// the pass terminates even on cyclic graphs.
func PropagateBodyUsage(deps map[string][]string) map[string]bool {
	usesBody := make(map[string]bool, len(deps))
	for name, nameDeps := range deps {
		for _, dep := range nameDeps {
			if dep == apispec.BodyStruct {
				usesBody[name] = true
			}
		}
	}

	for modified := true; modified; {
		modified = false
		for name, nameDeps := range deps {
			if usesBody[name] {
				continue
			}
			for _, dep := range nameDeps {
				if usesBody[dep] {
					usesBody[name] = true
					modified = true
					break
				}
			}
		}
	}
	return usesBody
}

// PropagateOutput computes the least fixed point of output reachability from
// the given seed set. The flag flows from a dependent to its dependencies:
// describing an output structure requires describing every structure it
// references.
func PropagateOutput(deps map[string][]string, seed map[string]bool) map[string]bool {
	output := make(map[string]bool, len(deps))
	for name, on := range seed {
		if on {
			output[name] = true
		}
	}

	for modified := true; modified; {
		modified = false
		for name, nameDeps := range deps {
			if !output[name] {
				continue
			}
			for _, dep := range nameDeps {
				if _, ok := deps[dep]; !ok {
					continue
				}
				if !output[dep] {
					output[dep] = true
					modified = true
				}
			}
		}
	}
	return output
}

// EmissionOrder returns a total order over the spec's structures in which
// every structure appears after all structures it references. Scanning is
// done in declaration order on every pass, so the result is a pure function
// of the document. When some structures can never be emitted, the error
// names the complete stuck set.
func EmissionOrder(spec *apispec.Spec) ([]*apispec.Structure, error) {
	emitted := make(map[string]bool, len(spec.Structures))
	known := make(map[string]bool, len(spec.Structures))
	for _, s := range spec.Structures {
		known[s.Name] = true
	}

	order := make([]*apispec.Structure, 0, len(spec.Structures))
	for progress := true; progress; {
		progress = false
		for _, s := range spec.Structures {
			if emitted[s.Name] {
				continue
			}
			ready := true
			for _, dep := range s.Depends() {
				if known[dep] && !emitted[dep] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			order = append(order, s)
			emitted[s.Name] = true
			progress = true
		}
	}

	if len(order) < len(spec.Structures) {
		var stuck []string
		for _, s := range spec.Structures {
			if !emitted[s.Name] {
				stuck = append(stuck, s.Name)
			}
		}
		return nil, &apispec.SpecError{
			Code:     apispec.DependencyCycle,
			Message:  "dependency loop in structures",
			Location: strings.Join(stuck, ", "),
		}
	}
	return order, nil
}
