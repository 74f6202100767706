package apispec

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Raw YAML shapes. The dynamic attribute bags of the source document are
// turned into explicit records by the constructors in model.go, so malformed
// entries fail during loading rather than mid-emission.

type rawSpec struct {
	Enums      []rawEnum       `yaml:"enums"`
	Operations []rawOperations `yaml:"operations"`
	Structures []rawStructure  `yaml:"structures"`
	Objects    []rawObject     `yaml:"objects"`
}

type rawNamed struct {
	Name string `yaml:"name"`
}

type rawEnum struct {
	Name   string     `yaml:"name"`
	Values []rawNamed `yaml:"values"`
}

type rawOperations struct {
	Name   string     `yaml:"name"`
	Fields []rawNamed `yaml:"fields"`
}

type rawStructure struct {
	Name   string     `yaml:"name"`
	Fields []rawField `yaml:"fields"`
}

type rawField struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Struct   string   `yaml:"struct"`
	Enum     string   `yaml:"enum"`
	Array    bool     `yaml:"array"`
	Optional bool     `yaml:"optional"`
	Default  any      `yaml:"default"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	MinItems *int     `yaml:"min-items"`
	MaxItems *int     `yaml:"max-items"`
}

type rawObject struct {
	Requests []rawRequest `yaml:"requests"`
}

type rawRequest struct {
	Function string     `yaml:"function"`
	Type     string     `yaml:"type"`
	URL      string     `yaml:"url"`
	Params   []rawParam `yaml:"params"`
	In       *rawBody   `yaml:"in"`
	Out      *rawBody   `yaml:"out"`
	Auth     string     `yaml:"auth"`
}

type rawParam struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type"`
	Enum     string     `yaml:"enum"`
	Optional bool       `yaml:"optional"`
	Flags    []rawNamed `yaml:"flags"`
}

type rawBody struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Struct string `yaml:"struct"`
	Array  bool   `yaml:"array"`
}

// Load reads and validates an API description document.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SpecError{
			Code:     InputError,
			Message:  fmt.Sprintf("read api description: %v", err),
			Location: path,
			Cause:    err,
		}
	}
	spec, err := Parse(data)
	if err != nil {
		var se *SpecError
		if errors.As(err, &se) && se.Code == ParseError {
			se.Location = path
		}
		return nil, err
	}
	return spec, nil
}

// Parse builds the validated object graph from raw YAML bytes.
func Parse(data []byte) (*Spec, error) {
	var raw rawSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &SpecError{
			Code:    ParseError,
			Message: fmt.Sprintf("parse api description: %v", err),
			Cause:   err,
		}
	}

	spec := &Spec{}
	for _, e := range raw.Enums {
		enum := &Enum{Name: e.Name}
		for _, v := range e.Values {
			enum.Values = append(enum.Values, v.Name)
		}
		spec.Enums = append(spec.Enums, enum)
	}
	for _, o := range raw.Operations {
		ops := &Operations{Name: o.Name}
		for _, f := range o.Fields {
			ops.Fields = append(ops.Fields, f.Name)
		}
		spec.Operations = append(spec.Operations, ops)
	}
	for _, s := range raw.Structures {
		structure := &Structure{Name: s.Name}
		for _, f := range s.Fields {
			field, err := newField(f, s.Name)
			if err != nil {
				return nil, err
			}
			structure.Fields = append(structure.Fields, field)
		}
		spec.Structures = append(spec.Structures, structure)
	}
	for _, o := range raw.Objects {
		obj := &Object{}
		for _, r := range o.Requests {
			req := &Request{
				Function: r.Function,
				Type:     r.Type,
				URL:      r.URL,
				Auth:     r.Auth,
			}
			for _, p := range r.Params {
				param, err := newParam(p, req)
				if err != nil {
					return nil, err
				}
				req.Params = append(req.Params, param)
			}
			var err error
			if req.In, err = newBodySpec(r.In, req, true); err != nil {
				return nil, err
			}
			if req.Out, err = newBodySpec(r.Out, req, false); err != nil {
				return nil, err
			}
			obj.Requests = append(obj.Requests, req)
		}
		spec.Objects = append(spec.Objects, obj)
	}
	return spec, nil
}
