package gen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MoeraOrg/moera-tools/internal/analyze"
	"github.com/MoeraOrg/moera-tools/internal/apispec"
)

var urlParamRe = regexp.MustCompile(`\{(\w+)\}`)

// importSet accumulates the imports the emitted call stubs need.
type importSet map[string]bool

func (s importSet) add(path string) { s[path] = true }

// paramTypes is the subset of the scalar vocabulary usable as a request
// parameter. The remaining scalars (byte[], String -> int, any) have no
// query-string encoding and abort generation.
var paramTypes = map[string]bool{
	"String":    true,
	"String[]":  true,
	"int":       true,
	"float":     true,
	"boolean":   true,
	"timestamp": true,
	"UUID":      true,
}

// paramType resolves the Go type of a declared endpoint parameter.
func paramType(p *apispec.Param, req *apispec.Request) (string, error) {
	if p.Enum != "" {
		return exportedName(p.Enum), nil
	}
	if !paramTypes[p.Type] {
		return "", &apispec.SpecError{
			Code:     apispec.UnrecognizedFieldType,
			Message:  fmt.Sprintf("type %q of parameter %q is not usable as a request parameter", p.Type, p.Name),
			Location: req.Endpoint(),
		}
	}
	return goType(p.Type, req.Endpoint())
}

// pathExpr renders the expression substituting one parameter into a URL
// placeholder. Callers reject optional, float, and list parameters in path
// positions before getting here.
func pathExpr(p *apispec.Param, varName string, imports importSet) string {
	switch {
	case p.Enum != "":
		imports.add("net/url")
		return fmt.Sprintf("url.PathEscape(string(%s))", varName)
	case p.Type == "int":
		imports.add("strconv")
		return fmt.Sprintf("strconv.Itoa(%s)", varName)
	case p.Type == "timestamp":
		imports.add("strconv")
		return fmt.Sprintf("strconv.FormatInt(%s, 10)", varName)
	case p.Type == "boolean":
		imports.add("strconv")
		return fmt.Sprintf("strconv.FormatBool(%s)", varName)
	default:
		imports.add("net/url")
		return fmt.Sprintf("url.PathEscape(%s)", varName)
	}
}

// queryExpr renders the expression converting one parameter into its query
// string value.
func queryExpr(p *apispec.Param, varName string, imports importSet) string {
	switch {
	case p.Enum != "":
		return fmt.Sprintf("string(%s)", varName)
	case p.Type == "int":
		imports.add("strconv")
		return fmt.Sprintf("strconv.Itoa(%s)", varName)
	case p.Type == "timestamp":
		imports.add("strconv")
		return fmt.Sprintf("strconv.FormatInt(%s, 10)", varName)
	case p.Type == "float":
		imports.add("strconv")
		return fmt.Sprintf("strconv.FormatFloat(%s, 'f', -1, 64)", varName)
	case p.Type == "boolean":
		imports.add("strconv")
		return fmt.Sprintf("strconv.FormatBool(%s)", varName)
	default:
		return varName
	}
}

// emitCalls renders one method per endpoint. The returned body excludes the
// file preamble; the import set reflects what the methods actually use.
func emitCalls(spec *apispec.Spec, u *analyze.Usage) (string, importSet, error) {
	var b strings.Builder
	imports := importSet{}

	for _, obj := range spec.Objects {
		for _, req := range obj.Requests {
			if req.Function == "" {
				continue
			}
			if err := emitCall(&b, req, u, imports); err != nil {
				return "", nil, err
			}
		}
	}
	return b.String(), imports, nil
}

func emitCall(b *strings.Builder, req *apispec.Request, u *analyze.Usage, imports importSet) error {
	imports.add("context")
	type flagBundle struct {
		param *apispec.Param
		local string
	}

	// Split declared parameters into signature groups: required parameters
	// and expanded flag bundles in declaration order, then the body, then
	// optional parameters.
	var sigParams []string
	var tailParams []string
	var bundles []flagBundle
	locals := make(map[string]string, len(req.Params))
	for _, p := range req.Params {
		local := localName(p.Name)
		locals[p.Name] = local
		if len(p.Flags) > 0 {
			bundles = append(bundles, flagBundle{param: p, local: local})
			for _, f := range p.Flags {
				sigParams = append(sigParams, fmt.Sprintf("with%s bool", exportedName(f)))
			}
			continue
		}
		t, err := paramType(p, req)
		if err != nil {
			return err
		}
		switch {
		case p.Optional && strings.HasPrefix(t, "[]"):
			// A nil slice already means "absent"; no pointer needed.
			tailParams = append(tailParams, fmt.Sprintf("%s %s", local, t))
		case p.Optional:
			tailParams = append(tailParams, fmt.Sprintf("%s *%s", local, t))
		default:
			sigParams = append(sigParams, fmt.Sprintf("%s %s", local, t))
		}
	}

	// Request body parameter.
	bodyArg := ""
	if req.In != nil {
		if req.In.Blob {
			imports.add("io")
			sigParams = append(sigParams, "file io.Reader", "fileType string")
		} else {
			bodyArg = localName(req.In.Name)
			t := exportedName(req.In.Struct)
			if u.Generic(req.In.Struct) {
				t = "Encoded" + t
			}
			if req.In.Array {
				sigParams = append(sigParams, fmt.Sprintf("%s []%s", bodyArg, t))
			} else {
				sigParams = append(sigParams, fmt.Sprintf("%s *%s", bodyArg, t))
			}
		}
	}

	// Response shape.
	resultType := "*Result"
	resultElem := "Result"
	resultSchema := schemaVar(analyze.ResultStruct)
	resultArray := false
	resultBlob := false
	decodeBodies := false
	if req.Out != nil {
		switch {
		case req.Out.Blob:
			resultBlob = true
			resultType = "io.ReadCloser"
			imports.add("io")
		default:
			name := exportedName(req.Out.Struct)
			resultElem = name
			if u.Generic(req.Out.Struct) {
				resultElem = "Decoded" + name
			}
			decodeBodies = u.UsesBody[req.Out.Struct]
			if req.Out.Array {
				resultType = "[]" + resultElem
				resultArray = true
				resultSchema = arraySchemaVar(req.Out.Struct)
			} else {
				resultType = "*" + resultElem
				resultSchema = schemaVar(req.Out.Struct)
			}
		}
	}

	// URL template substitution. Placeholders consume declared parameters;
	// the remainder become query parameters.
	location := req.URL
	consumed := make(map[string]bool, len(req.Params))
	var pathArgs []string
	for _, m := range urlParamRe.FindAllStringSubmatch(req.URL, -1) {
		name := m[1]
		if _, ok := locals[name]; !ok {
			return &apispec.SpecError{
				Code:     apispec.UnknownUrlParameter,
				Message:  fmt.Sprintf("unknown parameter %q referenced in location %q", name, req.URL),
				Location: req.Endpoint(),
			}
		}
		var param *apispec.Param
		for _, p := range req.Params {
			if p.Name == name {
				param = p
				break
			}
		}
		if param.Optional {
			return &apispec.SpecError{
				Code:     apispec.InputError,
				Message:  fmt.Sprintf("optional parameter %q cannot fill a placeholder in location %q", name, req.URL),
				Location: req.Endpoint(),
			}
		}
		if param.Type == "float" || param.Type == "String[]" {
			return &apispec.SpecError{
				Code:     apispec.UnrecognizedFieldType,
				Message:  fmt.Sprintf("parameter %q of type %q cannot fill a placeholder in location %q", name, param.Type, req.URL),
				Location: req.Endpoint(),
			}
		}
		location = strings.Replace(location, "{"+name+"}", "%s", 1)
		pathArgs = append(pathArgs, pathExpr(param, locals[name], imports))
		consumed[name] = true
	}

	var queries []*apispec.Param
	for _, p := range req.Params {
		if !consumed[p.Name] {
			queries = append(queries, p)
		}
	}

	// Signature.
	args := append([]string{"ctx context.Context"}, sigParams...)
	args = append(args, tailParams...)
	fmt.Fprintf(b, "\nfunc (n *Node) %s(%s) (%s, error) {\n",
		exportedName(req.Function), strings.Join(args, ", "), resultType)

	// Location.
	if len(pathArgs) > 0 {
		imports.add("fmt")
		fmt.Fprintf(b, "\tlocation := fmt.Sprintf(%q, %s)\n", location, strings.Join(pathArgs, ", "))
	} else {
		fmt.Fprintf(b, "\tlocation := %q\n", location)
	}

	// Flag bundles combine into one comma-separated value each, in
	// declaration order.
	for _, fb := range bundles {
		fmt.Fprintf(b, "\t%s := nodeclient.CommaSeparatedFlags([]nodeclient.Flag{\n", fb.local)
		for _, f := range fb.param.Flags {
			fmt.Fprintf(b, "\t\t{Name: %q, Set: with%s},\n", f, exportedName(f))
		}
		b.WriteString("\t})\n")
	}

	// Query parameters.
	if len(queries) > 0 {
		imports.add("net/url")
		b.WriteString("\tparams := url.Values{}\n")
		for _, p := range queries {
			local := locals[p.Name]
			switch {
			case len(p.Flags) > 0:
				// An empty flag set omits the parameter entirely.
				fmt.Fprintf(b, "\tif %s != \"\" {\n\t\tparams.Set(%q, %s)\n\t}\n", local, p.Name, local)
			case p.Type == "String[]":
				// List parameters encode as repeated query values.
				if p.Optional {
					fmt.Fprintf(b, "\tif %s != nil {\n\t\tparams[%q] = %s\n\t}\n", local, p.Name, local)
				} else {
					fmt.Fprintf(b, "\tparams[%q] = %s\n", p.Name, local)
				}
			case p.Optional:
				fmt.Fprintf(b, "\tif %s != nil {\n\t\tparams.Set(%q, %s)\n\t}\n",
					local, p.Name, queryExpr(p, "*"+local, imports))
			default:
				fmt.Fprintf(b, "\tparams.Set(%q, %s)\n", p.Name, queryExpr(p, local, imports))
			}
		}
	}

	// Call options.
	var opts strings.Builder
	fmt.Fprintf(&opts, "nodeclient.CallOptions{\n")
	fmt.Fprintf(&opts, "\t\tName:     %q,\n", req.Function)
	fmt.Fprintf(&opts, "\t\tMethod:   %q,\n", strings.ToUpper(req.Type))
	fmt.Fprintf(&opts, "\t\tLocation: location,\n")
	if len(queries) > 0 {
		fmt.Fprintf(&opts, "\t\tParams:   params,\n")
	}
	if req.In != nil {
		if req.In.Blob {
			fmt.Fprintf(&opts, "\t\tBodyStream: file,\n")
			fmt.Fprintf(&opts, "\t\tBodyStreamType: fileType,\n")
		} else {
			fmt.Fprintf(&opts, "\t\tBody:     %s,\n", bodyArg)
		}
	}
	fmt.Fprintf(&opts, "\t\tAuth:     %v,\n", !req.NoAuth())
	if !resultBlob {
		fmt.Fprintf(&opts, "\t\tSchema:   %s,\n", resultSchema)
	}
	if decodeBodies {
		fmt.Fprintf(&opts, "\t\tDecodeBodies: true,\n")
	}
	fmt.Fprintf(&opts, "\t}")

	if resultBlob {
		fmt.Fprintf(b, "\treturn n.CallBlob(ctx, %s)\n", opts.String())
		b.WriteString("}\n")
		return nil
	}

	imports.add("encoding/json")
	imports.add("fmt")
	fmt.Fprintf(b, "\tdata, err := n.Call(ctx, %s)\n", opts.String())
	b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	if resultArray {
		fmt.Fprintf(b, "\tvar res []%s\n", resultElem)
	} else {
		fmt.Fprintf(b, "\tvar res %s\n", resultElem)
	}
	fmt.Fprintf(b, "\tif err := json.Unmarshal(data, &res); err != nil {\n")
	fmt.Fprintf(b, "\t\treturn nil, fmt.Errorf(\"%s: decode response: %%w\", err)\n", req.Function)
	b.WriteString("\t}\n")
	if resultArray {
		b.WriteString("\treturn res, nil\n")
	} else {
		b.WriteString("\treturn &res, nil\n")
	}
	b.WriteString("}\n")
	return nil
}
