// Package openapiexport renders the API description as an OpenAPI 3
// document, so the node API can be consumed by standard tooling.
package openapiexport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

// scalar maps the field type vocabulary to OpenAPI type/format pairs.
var scalar = map[string]struct {
	typ    string
	format string
	array  bool
}{
	"String":    {typ: "string"},
	"String[]":  {typ: "string", array: true},
	"int":       {typ: "integer"},
	"float":     {typ: "number"},
	"boolean":   {typ: "boolean"},
	"timestamp": {typ: "integer", format: "int64"},
	"byte[]":    {typ: "string", format: "byte"},
	"UUID":      {typ: "string", format: "uuid"},
}

// Export builds, validates, and marshals the OpenAPI document.
func Export(ctx context.Context, spec *apispec.Spec, title, version string) ([]byte, error) {
	doc, err := Build(spec, title, version)
	if err != nil {
		return nil, err
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal document: %w", err)
	}
	// Round-trip through the loader so $ref entries are resolved before
	// validation.
	loader := openapi3.NewLoader()
	resolved, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: reload document: %w", err)
	}
	if err := resolved.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	var pretty json.RawMessage = data
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pretty); err != nil {
		return nil, fmt.Errorf("openapi: indent document: %w", err)
	}
	return []byte(buf.String()), nil
}

// Build maps the spec onto an OpenAPI document: component schemas from
// enums, operations groups, and structures; paths from endpoints.
func Build(spec *apispec.Spec, title, version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}

	for _, e := range spec.Enums {
		values := make([]any, 0, len(e.Values))
		for _, v := range e.Values {
			values = append(values, v)
		}
		doc.Components.Schemas[e.Name] = &openapi3.SchemaRef{
			Value: &openapi3.Schema{Type: "string", Enum: values},
		}
	}
	for _, ops := range spec.Operations {
		schema := &openapi3.Schema{
			Type:                 "object",
			Properties:           openapi3.Schemas{},
			AdditionalProperties: openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)},
		}
		for _, f := range ops.Fields {
			schema.Properties[f] = &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: "string", Nullable: true},
			}
		}
		doc.Components.Schemas[ops.Name] = &openapi3.SchemaRef{Value: schema}
	}
	for _, s := range spec.Structures {
		ref, err := structureSchema(s)
		if err != nil {
			return nil, err
		}
		doc.Components.Schemas[s.Name] = ref
	}

	for _, obj := range spec.Objects {
		for _, req := range obj.Requests {
			if req.Function == "" {
				continue
			}
			if err := addRequest(doc, spec, req); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

func structureSchema(s *apispec.Structure) (*openapi3.SchemaRef, error) {
	schema := &openapi3.Schema{
		Type:                 "object",
		Properties:           openapi3.Schemas{},
		AdditionalProperties: openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)},
	}
	for _, f := range s.Fields {
		if f.Type == "any" {
			continue
		}
		ref, err := fieldSchema(s, f)
		if err != nil {
			return nil, err
		}
		schema.Properties[f.Name] = ref
		if !f.Optional {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return &openapi3.SchemaRef{Value: schema}, nil
}

func fieldSchema(s *apispec.Structure, f *apispec.Field) (*openapi3.SchemaRef, error) {
	var elem *openapi3.SchemaRef
	array := f.Array
	switch {
	case f.Struct == apispec.BodyStruct:
		elem = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: "string"}}
	case f.Struct != "":
		elem = schemaRef(f.Struct)
	case f.Enum != "":
		elem = schemaRef(f.Enum)
	case f.Type == "String -> int":
		elem = &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: "object",
			AdditionalProperties: openapi3.AdditionalProperties{
				Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: "integer"}},
			},
		}}
	default:
		sc, ok := scalar[f.Type]
		if !ok {
			return nil, &apispec.SpecError{
				Code:     apispec.UnrecognizedFieldType,
				Message:  fmt.Sprintf("unrecognized field type %q", f.Type),
				Location: fmt.Sprintf("structure %s, field %s", s.Name, f.Name),
			}
		}
		value := &openapi3.Schema{Type: sc.typ, Format: sc.format}
		if f.Min != nil {
			value.Min = f.Min
		}
		if f.Max != nil {
			value.Max = f.Max
		}
		elem = &openapi3.SchemaRef{Value: value}
		array = array || sc.array
	}

	if array {
		wrap := &openapi3.Schema{Type: "array", Items: elem}
		if f.MinItems != nil {
			wrap.MinItems = uint64(*f.MinItems)
		}
		if f.MaxItems != nil {
			m := uint64(*f.MaxItems)
			wrap.MaxItems = &m
		}
		if f.Optional && f.Default == nil {
			wrap.Nullable = true
		}
		return &openapi3.SchemaRef{Value: wrap}, nil
	}
	if f.Optional && f.Default == nil && elem.Value != nil && elem.Ref == "" {
		elem.Value.Nullable = true
	}
	if f.Default != nil && elem.Value != nil {
		elem.Value.Default = f.Default
	}
	return elem, nil
}

func schemaRef(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

func addRequest(doc *openapi3.T, spec *apispec.Spec, req *apispec.Request) error {
	op := &openapi3.Operation{
		OperationID: req.Function,
		Responses:   openapi3.Responses{},
	}

	placeholders := map[string]bool{}
	for _, part := range strings.Split(req.URL, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			placeholders[strings.Trim(part, "{}")] = true
		}
	}

	for _, p := range req.Params {
		in := "query"
		required := !p.Optional
		if placeholders[p.Name] {
			in = "path"
			required = true
		}
		var schema *openapi3.SchemaRef
		switch {
		case len(p.Flags) > 0:
			schema = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: "string"}}
			required = false
		case p.Enum != "":
			schema = schemaRef(p.Enum)
		default:
			sc, ok := scalar[p.Type]
			if !ok {
				return &apispec.SpecError{
					Code:     apispec.UnrecognizedFieldType,
					Message:  fmt.Sprintf("unrecognized type %q of parameter %q", p.Type, p.Name),
					Location: req.Endpoint(),
				}
			}
			schema = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: sc.typ, Format: sc.format}}
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     p.Name,
				In:       in,
				Required: required,
				Schema:   schema,
			},
		})
	}

	if req.In != nil {
		var content openapi3.Content
		if req.In.Blob {
			content = openapi3.NewContentWithSchemaRef(
				&openapi3.SchemaRef{Value: &openapi3.Schema{Type: "string", Format: "binary"}},
				[]string{"application/octet-stream"},
			)
		} else {
			content = openapi3.NewContentWithJSONSchemaRef(bodyRef(req.In))
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{Required: true, Content: content},
		}
	}

	desc := "Successful operation"
	var content openapi3.Content
	switch {
	case req.Out != nil && req.Out.Blob:
		content = openapi3.NewContentWithSchemaRef(
			&openapi3.SchemaRef{Value: &openapi3.Schema{Type: "string", Format: "binary"}},
			[]string{"application/octet-stream"},
		)
	case req.Out != nil:
		content = openapi3.NewContentWithJSONSchemaRef(bodyRef(req.Out))
	case spec.Structure("Result") != nil:
		content = openapi3.NewContentWithJSONSchemaRef(schemaRef("Result"))
	}
	response := &openapi3.Response{Description: &desc}
	if content != nil {
		response.Content = content
	}
	op.Responses["200"] = &openapi3.ResponseRef{Value: response}

	item := doc.Paths[req.URL]
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths[req.URL] = item
	}
	item.SetOperation(strings.ToUpper(req.Type), op)
	return nil
}

func bodyRef(body *apispec.BodySpec) *openapi3.SchemaRef {
	ref := schemaRef(body.Struct)
	if body.Array {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: "array", Items: ref}}
	}
	return ref
}
