package gen

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

func loadTestSpec(t *testing.T) *apispec.Spec {
	t.Helper()
	spec, err := apispec.Load(filepath.Join("..", "..", "testdata", "node_api.yml"))
	if err != nil {
		t.Fatalf("load test description: %v", err)
	}
	return spec
}

func emitTestSpec(t *testing.T) map[string]string {
	t.Helper()
	spec := loadTestSpec(t)
	dir := t.TempDir()
	res, err := Emit(spec, Options{OutDir: dir})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if res.PackageName != "node" {
		t.Fatalf("unexpected package name %q", res.PackageName)
	}
	out := make(map[string]string, len(res.Planned))
	for _, p := range res.Planned {
		data, err := os.ReadFile(filepath.Join(dir, p.RelPath))
		if err != nil {
			t.Fatalf("read %s: %v", p.RelPath, err)
		}
		out[p.RelPath] = string(data)
	}
	return out
}

// flatten collapses all whitespace runs so assertions survive gofmt's
// column alignment.
func flatten(src string) string {
	return strings.Join(strings.Fields(src), " ")
}

func TestEmitTypes(t *testing.T) {
	t.Parallel()

	types := emitTestSpec(t)["types.go"]
	flat := flatten(types)

	for _, want := range []string{
		"// Code generated by moera-api-gen. DO NOT EDIT.",
		"package node",
		"type Timestamp = int64",
		"type PrincipalValue = string",
		"type SourceFormat string",
		`SourceFormatPlainText SourceFormat = "plain-text"`,
		`SourceFormatMarkdown SourceFormat = "markdown"`,
		"type PostingOperations struct {",
		"type Result struct {",
		"type Body struct {",
	} {
		if !strings.Contains(flat, want) {
			t.Errorf("types.go missing %q", want)
		}
	}

	// Structures on the output path that carry a body are emitted once,
	// parameterized over the body representation.
	for _, want := range []string{
		"type PostingInfo[B any] struct {",
		"type EncodedPostingInfo = PostingInfo[string]",
		"type DecodedPostingInfo = PostingInfo[Body]",
		"type StoryInfo[B any] struct {",
		"type FeedSliceInfo[B any] struct {",
		`Stories []StoryInfo[B] `,
	} {
		if !strings.Contains(flat, want) {
			t.Errorf("types.go missing %q", want)
		}
	}

	// Input-only structures stay plain even though they carry a body.
	if !strings.Contains(flat, "type PostingText struct {") {
		t.Error("PostingText must not be generic")
	}
	if strings.Contains(flat, "EncodedPostingText") {
		t.Error("PostingText must not get instantiation aliases")
	}

	// Optional fields without defaults become pointers with omitempty;
	// a default keeps the plain representation.
	for _, want := range []string{
		"View *PrincipalValue `json:\"view,omitempty\"`",
		"Width *int `json:\"width,omitempty\"`",
		"Shape string `json:\"shape\"`",
		"Viewed bool `json:\"viewed\"`",
		"CreatedAt Timestamp `json:\"createdAt\"`",
	} {
		if !strings.Contains(flat, want) {
			t.Errorf("types.go missing %q", want)
		}
	}
}

func TestEmitSchemas(t *testing.T) {
	t.Parallel()

	schemas := emitTestSpec(t)["schemas.go"]
	flat := flatten(schemas)

	for _, want := range []string{
		`var PostingOperationsSchema = nodeclient.MustSchema("PostingOperations", map[string]any{`,
		`var ResultSchema = nodeclient.MustSchema("Result", map[string]any{`,
		`var BodySchema = nodeclient.MustSchema("Body", map[string]any{`,
		`var PostingInfoSchema = nodeclient.MustSchema("PostingInfo", map[string]any{`,
		`var FeedSliceInfoSchema = nodeclient.MustSchema("FeedSliceInfo", map[string]any{`,
		`"additionalProperties": false,`,
		`"type": []string{"string", "null"},`,
		`"default": "circle",`,
		`"minimum": 0,`,
		`nodeclient.NullableObjectSchema(AvatarImageSchema)`,
		`"items": StoryInfoSchema.Doc(),`,
	} {
		if !strings.Contains(flat, want) {
			t.Errorf("schemas.go missing %q", want)
		}
	}

	// Input-only structures get no schema.
	if strings.Contains(flat, "PostingTextSchema") {
		t.Error("input-only structure must not get a schema")
	}

	// Required lists fields that are not optional; defaults never make a
	// field required.
	if !strings.Contains(flat, `"required": []string{ "errorCode", "message", },`) {
		t.Error("Result schema must require both fields")
	}
	if strings.Contains(flat, `"shape",`) {
		t.Error("optional field with a default must not be required")
	}
}

func TestEmitCalls(t *testing.T) {
	t.Parallel()

	calls := emitTestSpec(t)["node.go"]
	flat := flatten(calls)

	for _, want := range []string{
		"type Node struct { nodeclient.Caller }",
		"func NewNode(nodeURL string) *Node {",
		"n.SetNodeURL(nodeURL)",
		"n.SetBodySchema(BodySchema)",
		// Flag bundles expand into booleans and collapse into one value.
		"func (n *Node) GetPosting(ctx context.Context, id string, withSource bool, withTotalReactions bool) (*DecodedPostingInfo, error) {",
		"include := nodeclient.CommaSeparatedFlags([]nodeclient.Flag{",
		`{Name: "total-reactions", Set: withTotalReactions},`,
		`if include != "" { params.Set("include", include) }`,
		"DecodeBodies: true,",
		// Structured input bodies pass as pointers.
		"func (n *Node) CreatePosting(ctx context.Context, posting *PostingText) (*DecodedPostingInfo, error) {",
		// Endpoints without a declared output return a Result.
		"func (n *Node) DeletePosting(ctx context.Context, id string) (*Result, error) {",
		// Optional parameters trail the signature as pointers.
		"func (n *Node) GetFeedSlice(ctx context.Context, feedName string, before *Timestamp, after *Timestamp, limit *int) (*DecodedFeedSliceInfo, error) {",
		`if before != nil { params.Set("before", strconv.FormatInt(*before, 10)) }`,
		// Blob bodies bypass serialization in both directions.
		"func (n *Node) UploadPublicMedia(ctx context.Context, file io.Reader, fileType string) (*PublicMediaFileInfo, error) {",
		"BodyStream: file,",
		"func (n *Node) GetPublicMedia(ctx context.Context, id string) (io.ReadCloser, error) {",
		"return n.CallBlob(ctx,",
		"func (n *Node) WhoAmI(ctx context.Context) (*WhoAmI, error) {",
		// URL placeholders substitute declared parameters.
		`location := fmt.Sprintf("/postings/%s", url.PathEscape(id))`,
		`location := fmt.Sprintf("/feeds/%s/stories", url.PathEscape(feedName))`,
	} {
		if !strings.Contains(flat, want) {
			t.Errorf("node.go missing %q", want)
		}
	}

	if !strings.Contains(flat, "Auth: false,") {
		t.Error("unauthenticated endpoints must not send credentials")
	}
	if !strings.Contains(flat, "Auth: true,") {
		t.Error("authenticated endpoints must send credentials")
	}
}

func TestEmitIsIdempotent(t *testing.T) {
	t.Parallel()

	spec := loadTestSpec(t)
	dir := t.TempDir()
	if _, err := Emit(spec, Options{OutDir: dir}); err != nil {
		t.Fatalf("first Emit: %v", err)
	}
	first := readAll(t, dir)
	if _, err := Emit(spec, Options{OutDir: dir}); err != nil {
		t.Fatalf("second Emit: %v", err)
	}
	second := readAll(t, dir)

	for name, data := range first {
		if !bytes.Equal(data, second[name]) {
			t.Errorf("%s changed between runs", name)
		}
	}
}

func readAll(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		out[e.Name()] = data
	}
	return out
}

func TestEmitDryRun(t *testing.T) {
	t.Parallel()

	spec := loadTestSpec(t)
	dir := t.TempDir()
	res, err := Emit(spec, Options{OutDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	want := []string{"node.go", "schemas.go", "types.go"}
	if len(res.Planned) != len(want) {
		t.Fatalf("expected %d planned files, got %d", len(want), len(res.Planned))
	}
	for i, p := range res.Planned {
		if p.RelPath != want[i] {
			t.Errorf("planned[%d] = %q, want %q", i, p.RelPath, want[i])
		}
		if p.Size == 0 {
			t.Errorf("planned[%d] has zero size", i)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run wrote %d files", len(entries))
	}
}

func TestEmitUnknownURLParameter(t *testing.T) {
	t.Parallel()

	doc := `
objects:
  - requests:
      - function: getPosting
        type: GET
        url: /postings/{postingId}
        params:
          - name: id
            type: String
`
	spec, err := apispec.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Emit(spec, Options{OutDir: t.TempDir()})
	var se *apispec.SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %v", err)
	}
	if se.Code != apispec.UnknownUrlParameter {
		t.Fatalf("expected UnknownUrlParameter, got %s", se.Code)
	}
	if se.Location != "GET /postings/{postingId}" {
		t.Fatalf("unexpected location %q", se.Location)
	}
}

func TestEmitListQueryParameters(t *testing.T) {
	t.Parallel()

	doc := `
structures:
  - name: Result
    fields:
      - name: errorCode
        type: String
      - name: message
        type: String
objects:
  - requests:
      - function: searchPostings
        type: GET
        url: /postings/search
        params:
          - name: tags
            type: String[]
          - name: exclude
            type: String[]
            optional: true
`
	spec, err := apispec.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dir := t.TempDir()
	if _, err := Emit(spec, Options{OutDir: dir}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "node.go"))
	if err != nil {
		t.Fatalf("read node.go: %v", err)
	}
	flat := flatten(string(data))

	for _, want := range []string{
		"func (n *Node) SearchPostings(ctx context.Context, tags []string, exclude []string) (*Result, error) {",
		`params["tags"] = tags`,
		`if exclude != nil { params["exclude"] = exclude }`,
	} {
		if !strings.Contains(flat, want) {
			t.Errorf("node.go missing %q", want)
		}
	}
	// Repeated-value assignment, never a single Set of a slice.
	if strings.Contains(flat, `params.Set("tags"`) {
		t.Error("list parameter rendered as a scalar query value")
	}
}

func TestEmitRejectsUnsupportedParameterType(t *testing.T) {
	t.Parallel()

	doc := `
objects:
  - requests:
      - function: getThings
        type: GET
        url: /things
        params:
          - name: digest
            type: byte[]
`
	spec, err := apispec.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Emit(spec, Options{OutDir: t.TempDir()})
	var se *apispec.SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %v", err)
	}
	if se.Code != apispec.UnrecognizedFieldType {
		t.Fatalf("expected UnrecognizedFieldType, got %s", se.Code)
	}
	if se.Location != "GET /things" {
		t.Fatalf("unexpected location %q", se.Location)
	}
}

func TestEmitRejectsBadPathParameters(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		code apispec.ErrorCode
	}{
		{
			name: "optional parameter in placeholder",
			doc: `
objects:
  - requests:
      - function: getPosting
        type: GET
        url: /postings/{id}
        params:
          - name: id
            type: String
            optional: true
`,
			code: apispec.InputError,
		},
		{
			name: "float parameter in placeholder",
			doc: `
objects:
  - requests:
      - function: getSlice
        type: GET
        url: /slices/{offset}
        params:
          - name: offset
            type: float
`,
			code: apispec.UnrecognizedFieldType,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			spec, err := apispec.Parse([]byte(tc.doc))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			_, err = Emit(spec, Options{OutDir: t.TempDir()})
			var se *apispec.SpecError
			if !errors.As(err, &se) {
				t.Fatalf("expected SpecError, got %v", err)
			}
			if se.Code != tc.code {
				t.Fatalf("expected %s, got %s (%v)", tc.code, se.Code, se)
			}
		})
	}
}

func TestEmitRequiresOutDir(t *testing.T) {
	t.Parallel()

	if _, err := Emit(&apispec.Spec{}, Options{}); err == nil {
		t.Fatal("expected an error for a missing output directory")
	}
}
