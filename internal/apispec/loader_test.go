package apispec

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseBuildsModel(t *testing.T) {
	t.Parallel()

	doc := `
enums:
  - name: SourceFormat
    values:
      - name: plain-text
      - name: markdown
operations:
  - name: PostingOperations
    fields:
      - name: view
      - name: edit
structures:
  - name: Body
    fields:
      - name: text
        type: String
  - name: PostingInfo
    fields:
      - name: id
        type: String
      - name: body
        struct: Body
      - name: bodyFormat
        enum: SourceFormat
        optional: true
      - name: tags
        type: String
        array: true
        optional: true
        min-items: 1
        max-items: 5
objects:
  - requests:
      - function: getPosting
        type: GET
        url: /postings/{id}
        params:
          - name: id
            type: String
          - name: include
            flags:
              - name: source
        out:
          name: posting
          struct: PostingInfo
        auth: optional
`
	spec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(spec.Enums) != 1 || spec.Enums[0].Name != "SourceFormat" {
		t.Fatalf("unexpected enums: %+v", spec.Enums)
	}
	if got := spec.Enums[0].Values; len(got) != 2 || got[0] != "plain-text" {
		t.Fatalf("unexpected enum values: %v", got)
	}
	if len(spec.Operations) != 1 || len(spec.Operations[0].Fields) != 2 {
		t.Fatalf("unexpected operations: %+v", spec.Operations)
	}

	info := spec.Structure("PostingInfo")
	if info == nil {
		t.Fatal("PostingInfo not found")
	}
	if got := info.Depends(); len(got) != 1 || got[0] != "Body" {
		t.Fatalf("unexpected dependencies: %v", got)
	}
	tags := info.Fields[3]
	if !tags.Array || !tags.Optional || tags.MinItems == nil || *tags.MinItems != 1 || tags.MaxItems == nil || *tags.MaxItems != 5 {
		t.Fatalf("unexpected tags field: %+v", tags)
	}

	req := spec.Objects[0].Requests[0]
	if req.Endpoint() != "GET /postings/{id}" {
		t.Fatalf("unexpected endpoint: %q", req.Endpoint())
	}
	if req.NoAuth() {
		t.Fatal("auth 'optional' must require credentials")
	}
	if len(req.Params) != 2 || len(req.Params[1].Flags) != 1 || req.Params[1].Flags[0] != "source" {
		t.Fatalf("unexpected params: %+v", req.Params)
	}
	if req.Out == nil || req.Out.Struct != "PostingInfo" || req.Out.Blob {
		t.Fatalf("unexpected out body: %+v", req.Out)
	}
}

func TestParseIgnoresDescriptiveKeys(t *testing.T) {
	t.Parallel()

	// The source document carries descriptive attributes the generator does
	// not consume; they must not break loading.
	doc := `
structures:
  - name: Result
    description: Request result
    fields:
      - name: errorCode
        type: String
        description: error code
objects:
  - requests:
      - function: whoAmI
        description: Returns identity
        type: GET
        url: /whoami
`
	spec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Structure("Result") == nil || len(spec.Objects) != 1 {
		t.Fatalf("unexpected model: %+v", spec)
	}
}

func TestParseDefaultAuthIsNone(t *testing.T) {
	t.Parallel()

	doc := `
objects:
  - requests:
      - function: whoAmI
        type: GET
        url: /whoami
`
	spec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !spec.Objects[0].Requests[0].NoAuth() {
		t.Fatal("missing auth must default to none")
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		code ErrorCode
		loc  string
	}{
		{
			name: "unrecognized field type",
			doc: `
structures:
  - name: Result
    fields:
      - name: errorCode
        type: Text
`,
			code: UnrecognizedFieldType,
			loc:  "structure Result, field errorCode",
		},
		{
			name: "missing field name",
			doc: `
structures:
  - name: Result
    fields:
      - type: String
`,
			code: InputError,
			loc:  "structure Result",
		},
		{
			name: "missing parameter name",
			doc: `
objects:
  - requests:
      - function: getPosting
        type: GET
        url: /postings
        params:
          - type: String
`,
			code: MissingParameterName,
			loc:  "GET /postings",
		},
		{
			name: "unrecognized parameter type",
			doc: `
objects:
  - requests:
      - function: getPosting
        type: GET
        url: /postings
        params:
          - name: id
            type: Text
`,
			code: UnrecognizedFieldType,
			loc:  "GET /postings",
		},
		{
			name: "missing input body name",
			doc: `
objects:
  - requests:
      - function: createPosting
        type: POST
        url: /postings
        in:
          struct: PostingText
`,
			code: MissingBodyName,
			loc:  "POST /postings",
		},
		{
			name: "unrecognized body type",
			doc: `
objects:
  - requests:
      - function: getPosting
        type: GET
        url: /postings
        out:
          type: stream
`,
			code: UnrecognizedBodyType,
			loc:  "GET /postings",
		},
		{
			name: "malformed yaml",
			doc:  "structures: [",
			code: ParseError,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.doc))
			var se *SpecError
			if !errors.As(err, &se) {
				t.Fatalf("expected SpecError, got %v", err)
			}
			if se.Code != tc.code {
				t.Fatalf("expected code %s, got %s (%v)", tc.code, se.Code, se)
			}
			if tc.loc != "" && se.Location != tc.loc {
				t.Fatalf("expected location %q, got %q", tc.loc, se.Location)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.yml")
	_, err := Load(path)
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %v", err)
	}
	if se.Code != InputError {
		t.Fatalf("expected InputError, got %s", se.Code)
	}
	if se.Location != path {
		t.Fatalf("expected location %q, got %q", path, se.Location)
	}
}

func TestSpecErrorMessage(t *testing.T) {
	t.Parallel()

	err := &SpecError{Code: UnknownUrlParameter, Message: "unknown parameter", Location: "GET /x"}
	if got := err.Error(); !strings.Contains(got, "(GET /x)") {
		t.Fatalf("location missing from message: %q", got)
	}
}
