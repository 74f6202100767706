package nodeclient

import (
	"encoding/json"
	"strings"
)

// Container fields whose contents may hold further body payloads.
var bodyListContainers = []string{"stories", "comments"}
var bodyObjectContainers = []string{"comment", "posting"}

// DecodeBodies walks a decoded response value and replaces every encoded
// body payload with its parsed representation, recursing into list results
// and the known container fields. bodySchema, when non-nil, validates each
// decoded payload.
func DecodeBodies(name string, v any, bodySchema *Schema) (any, error) {
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			decoded, err := DecodeBodies(name, item, bodySchema)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	out := make(map[string]any, len(obj))
	for k, val := range obj {
		out[k] = val
	}

	for _, key := range bodyListContainers {
		if list, ok := out[key].([]any); ok {
			decoded, err := DecodeBodies(name, list, bodySchema)
			if err != nil {
				return nil, err
			}
			out[key] = decoded
		}
	}
	for _, key := range bodyObjectContainers {
		if child, ok := out[key].(map[string]any); ok {
			decoded, err := DecodeBodies(name, child, bodySchema)
			if err != nil {
				return nil, err
			}
			out[key] = decoded
		}
	}

	format, _ := out["bodyFormat"].(string)
	for _, key := range []string{"body", "bodyPreview"} {
		if encoded, ok := out[key].(string); ok {
			decoded, err := decodeBody(name, encoded, format, bodySchema)
			if err != nil {
				return nil, err
			}
			out[key] = decoded
		}
	}
	if encoded, ok := out["bodySrc"].(string); ok {
		srcFormat, _ := out["bodySrcFormat"].(string)
		decoded, err := decodeBody(name, encoded, srcFormat, bodySchema)
		if err != nil {
			return nil, err
		}
		out["bodySrc"] = decoded
	}
	return out, nil
}

// decodeBody parses one encoded body payload. Payloads in "application"
// format carry no parseable text and decode to an empty body.
func decodeBody(name, encoded, format string, bodySchema *Schema) (map[string]any, error) {
	if strings.EqualFold(format, "application") {
		return map[string]any{"text": ""}, nil
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(encoded), &body); err != nil {
		return nil, &NodeError{Name: name, Message: "invalid body encoding", Cause: err}
	}
	if bodySchema != nil {
		if err := bodySchema.Validate(body); err != nil {
			return nil, &NodeError{Name: name, Message: "invalid body: " + err.Error(), Cause: err}
		}
	}
	return body, nil
}
