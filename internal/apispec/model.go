package apispec

import (
	"fmt"
	"sort"
	"strings"
)

// BodyStruct is the sentinel structure name whose concrete representation
// differs between the wire encoding (a string) and the decoded form.
const BodyStruct = "Body"

// scalarTypes is the closed vocabulary of scalar field types. "any" is
// accepted by the model but skipped entirely during emission.
var scalarTypes = map[string]struct{}{
	"String":        {},
	"String[]":      {},
	"int":           {},
	"float":         {},
	"boolean":       {},
	"timestamp":     {},
	"byte[]":        {},
	"UUID":          {},
	"String -> int": {},
	"any":           {},
}

// ScalarTypes returns the scalar type vocabulary in sorted order.
func ScalarTypes() []string {
	names := make([]string, 0, len(scalarTypes))
	for name := range scalarTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec is the root of the loaded API description. It is immutable once
// loaded; its lifetime is a single generator run.
type Spec struct {
	Enums      []*Enum
	Operations []*Operations
	Structures []*Structure
	Objects    []*Object
}

// Structure returns the named structure, or nil.
func (s *Spec) Structure(name string) *Structure {
	for _, st := range s.Structures {
		if st.Name == name {
			return st
		}
	}
	return nil
}

// Enum is a name plus an ordered set of literal string values.
type Enum struct {
	Name   string
	Values []string
}

// Operations is a flat bag of permission fields. Operations groups never
// reference structures and need no dependency analysis.
type Operations struct {
	Name   string
	Fields []string
}

// Structure is a named record type with an ordered field list, the primary
// unit of code and schema generation.
type Structure struct {
	Name   string
	Fields []*Field
}

// Depends returns the names of all structures referenced by struct-valued
// fields, in declaration order (duplicates preserved).
func (s *Structure) Depends() []string {
	var deps []string
	for _, f := range s.Fields {
		if f.Struct != "" {
			deps = append(deps, f.Struct)
		}
	}
	return deps
}

// Field describes one structure member. Exactly one of Type, Struct, and
// Enum is set.
type Field struct {
	Name     string
	Type     string // scalar type from the closed vocabulary
	Struct   string // reference to another structure (or BodyStruct)
	Enum     string // reference to an enum
	Array    bool
	Optional bool
	Default  any // optional default embedded into the schema
	Min      *float64
	Max      *float64
	MinItems *int
	MaxItems *int
}

func newField(raw rawField, owner string) (*Field, error) {
	if raw.Name == "" {
		return nil, &SpecError{
			Code:     InputError,
			Message:  "missing field name",
			Location: "structure " + owner,
		}
	}
	if raw.Struct == "" && raw.Enum == "" {
		if _, ok := scalarTypes[raw.Type]; !ok {
			return nil, &SpecError{
				Code:     UnrecognizedFieldType,
				Message:  fmt.Sprintf("unrecognized field type %q", raw.Type),
				Location: fmt.Sprintf("structure %s, field %s", owner, raw.Name),
			}
		}
	}
	return &Field{
		Name:     raw.Name,
		Type:     raw.Type,
		Struct:   raw.Struct,
		Enum:     raw.Enum,
		Array:    raw.Array,
		Optional: raw.Optional,
		Default:  raw.Default,
		Min:      raw.Min,
		Max:      raw.Max,
		MinItems: raw.MinItems,
		MaxItems: raw.MaxItems,
	}, nil
}

// Object groups the requests of one API object.
type Object struct {
	Requests []*Request
}

// Request describes one endpoint: an HTTP method, a URL template with
// {param} placeholders, declared parameters, optional request and response
// bodies, and an authentication requirement.
type Request struct {
	Function string
	Type     string // HTTP method
	URL      string
	Params   []*Param
	In       *BodySpec
	Out      *BodySpec
	Auth     string
}

// Endpoint renders the "METHOD /url" pair used in diagnostics.
func (r *Request) Endpoint() string {
	return strings.ToUpper(r.Type) + " " + r.URL
}

// NoAuth reports whether the endpoint requires no caller-supplied
// credentials: the declared requirement is exactly "none" or exactly
// "signature".
func (r *Request) NoAuth() bool {
	auth := r.Auth
	if auth == "" {
		auth = "none"
	}
	return auth == "none" || auth == "signature"
}

// Param is a declared endpoint parameter: either a plain typed/enum
// parameter or a bundle of boolean flags collapsed into one comma-separated
// string value at call time.
type Param struct {
	Name     string
	Type     string
	Enum     string
	Optional bool
	Flags    []string
}

func newParam(raw rawParam, req *Request) (*Param, error) {
	if raw.Name == "" {
		return nil, &SpecError{
			Code:     MissingParameterName,
			Message:  "missing name of request parameter",
			Location: req.Endpoint(),
		}
	}
	if len(raw.Flags) == 0 && raw.Enum == "" {
		if _, ok := scalarTypes[raw.Type]; !ok {
			return nil, &SpecError{
				Code:     UnrecognizedFieldType,
				Message:  fmt.Sprintf("unrecognized type %q of parameter %q", raw.Type, raw.Name),
				Location: req.Endpoint(),
			}
		}
	}
	p := &Param{
		Name:     raw.Name,
		Type:     raw.Type,
		Enum:     raw.Enum,
		Optional: raw.Optional,
	}
	for _, f := range raw.Flags {
		p.Flags = append(p.Flags, f.Name)
	}
	return p, nil
}

// BodySpec declares a request or response body: a structure reference, an
// array of a structure, or an opaque blob.
type BodySpec struct {
	Name   string
	Struct string
	Array  bool
	Blob   bool
}

func newBodySpec(raw *rawBody, req *Request, in bool) (*BodySpec, error) {
	if raw == nil {
		return nil, nil
	}
	direction := "output"
	if in {
		direction = "input"
	}
	if raw.Type != "" {
		if raw.Type != "blob" {
			return nil, &SpecError{
				Code:     UnrecognizedBodyType,
				Message:  fmt.Sprintf("unrecognized type %q of the %s body", raw.Type, direction),
				Location: req.Endpoint(),
			}
		}
		return &BodySpec{Blob: true}, nil
	}
	if in && raw.Name == "" {
		return nil, &SpecError{
			Code:     MissingBodyName,
			Message:  "missing name of the input body",
			Location: req.Endpoint(),
		}
	}
	return &BodySpec{Name: raw.Name, Struct: raw.Struct, Array: raw.Array}, nil
}
