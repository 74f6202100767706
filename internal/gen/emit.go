// Package gen transforms a loaded API description into the three generated
// artifacts: typed definitions, JSON Schema validators, and client call
// stubs.
package gen

import (
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MoeraOrg/moera-tools/internal/analyze"
	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

const runtimeImport = "github.com/MoeraOrg/moera-tools/pkg/nodeclient"

const generatedHeader = "// Code generated by moera-api-gen. DO NOT EDIT.\n"

// Options controls how the generator renders the artifacts.
type Options struct {
	OutDir      string // required; target directory to write into
	PackageName string // generated package name; defaults to "node"
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the generator intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
}

// Result returns the planned files and the resolved package name.
type Result struct {
	PackageName string
	Planned     []PlannedFile
}

// Emit runs the whole pipeline over one spec: usage analysis, emission
// ordering, and rendering of types.go, schemas.go, and node.go. The output
// is a pure function of the input document, so re-running over an unchanged
// spec produces byte-identical artifacts.
func Emit(spec *apispec.Spec, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("gen: OutDir is required")
	}
	pkg := strings.TrimSpace(opts.PackageName)
	if pkg == "" {
		pkg = "node"
	}

	usage := analyze.Scan(spec)
	order, err := analyze.EmissionOrder(spec)
	if err != nil {
		return nil, err
	}

	typesSrc, schemasSrc, err := renderDefinitions(spec, order, usage, pkg)
	if err != nil {
		return nil, err
	}
	callsSrc, err := renderCalls(spec, usage, pkg)
	if err != nil {
		return nil, err
	}

	files := map[string][]byte{}
	for name, src := range map[string]string{
		"types.go":   typesSrc,
		"schemas.go": schemasSrc,
		"node.go":    callsSrc,
	} {
		formatted, err := format.Source([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("gen: format %s: %w", name, err)
		}
		files[name] = formatted
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel])})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files); err != nil {
			return nil, err
		}
	}
	return &Result{PackageName: pkg, Planned: planned}, nil
}

// renderDefinitions produces types.go and schemas.go: enums, operations
// groups, and structures in emission order. Schemas exist only for
// operations groups and output-reachable structures.
func renderDefinitions(spec *apispec.Spec, order []*apispec.Structure, usage *analyze.Usage, pkg string) (string, string, error) {
	var types strings.Builder
	types.WriteString(generatedHeader)
	fmt.Fprintf(&types, "\npackage %s\n", pkg)
	types.WriteString("\ntype Timestamp = int64\n")
	types.WriteString("\ntype PrincipalValue = string\n")

	var schemas strings.Builder
	schemas.WriteString(generatedHeader)
	fmt.Fprintf(&schemas, "\npackage %s\n", pkg)
	hasSchemas := len(spec.Operations) > 0
	for _, s := range order {
		if usage.Output[s.Name] {
			hasSchemas = true
		}
	}
	if hasSchemas {
		fmt.Fprintf(&schemas, "\nimport \"%s\"\n", runtimeImport)
	}

	for _, e := range spec.Enums {
		emitEnum(&types, e)
	}
	for _, ops := range spec.Operations {
		emitOperationsType(&types, ops)
		emitOperationsSchema(&schemas, ops)
	}
	for _, s := range order {
		if err := emitStructureType(&types, s, usage); err != nil {
			return "", "", err
		}
		if usage.Output[s.Name] {
			if err := emitStructureSchema(&schemas, s, usage); err != nil {
				return "", "", err
			}
		}
	}
	return types.String(), schemas.String(), nil
}

// renderCalls produces node.go: the Node type and one call stub per
// endpoint.
func renderCalls(spec *apispec.Spec, usage *analyze.Usage, pkg string) (string, error) {
	body, imports, err := emitCalls(spec, usage)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "\npackage %s\n", pkg)

	std := make([]string, 0, len(imports))
	for path := range imports {
		std = append(std, path)
	}
	sort.Strings(std)
	b.WriteString("\nimport (\n")
	for _, path := range std {
		fmt.Fprintf(&b, "\t%q\n", path)
	}
	fmt.Fprintf(&b, "\n\t%q\n", runtimeImport)
	b.WriteString(")\n")

	b.WriteString("\ntype Node struct {\n\tnodeclient.Caller\n}\n")
	b.WriteString("\nfunc NewNode(nodeURL string) *Node {\n")
	b.WriteString("\tn := &Node{}\n")
	b.WriteString("\tn.SetNodeURL(nodeURL)\n")
	if bodyStruct := spec.Structure(apispec.BodyStruct); bodyStruct != nil && usage.Output[apispec.BodyStruct] {
		fmt.Fprintf(&b, "\tn.SetBodySchema(%s)\n", schemaVar(apispec.BodyStruct))
	}
	b.WriteString("\treturn n\n}\n")
	b.WriteString(body)
	return b.String(), nil
}

// writeFiles writes the artifacts atomically (temp file + rename) so a
// failed run never leaves partial output behind.
func writeFiles(outDir string, files map[string][]byte) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("gen: resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("gen: create output directory: %w", err)
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		tmp, err := os.CreateTemp(abs, ".tmp-gen-*")
		if err != nil {
			return fmt.Errorf("gen: create temp file for %s: %w", rel, err)
		}
		tmpPath := tmp.Name()
		if _, err := tmp.Write(content); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("gen: write %s: %w", rel, err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("gen: close %s: %w", rel, err)
		}
		if err := os.Rename(tmpPath, p); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("gen: rename %s: %w", rel, err)
		}
	}
	return nil
}
