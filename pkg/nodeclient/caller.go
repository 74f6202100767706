// Package nodeclient is the runtime the generated API bindings link
// against: schema validation, flag bundling, body decoding, and the HTTP
// caller with credential plumbing.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// AuthMethod selects which established credential a call presents.
type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthPeer
	AuthAdmin
	AuthRootAdmin
)

// Result is the wire shape of a node error response.
type Result struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// Caller sends requests to a single node. Generated Node types embed it;
// credentials and the target URL are configured through the setters before
// the first call.
type Caller struct {
	root       string
	rootSecret string
	token      string
	carte      string
	authMethod AuthMethod
	client     *http.Client
	bodySchema *Schema
}

// SetNodeURL sets the node's base URL. A trailing slash is dropped; the
// "/api" prefix is appended per call.
func (c *Caller) SetNodeURL(u string) {
	c.root = strings.TrimSuffix(u, "/")
}

// SetRootSecret stores the root admin secret.
func (c *Caller) SetRootSecret(secret string) { c.rootSecret = secret }

// SetToken stores the admin bearer token.
func (c *Caller) SetToken(token string) { c.token = token }

// SetCarte stores the short-lived peer capability token.
func (c *Caller) SetCarte(carte string) { c.carte = carte }

// SetAuthMethod selects the credential presented by authenticated calls.
func (c *Caller) SetAuthMethod(m AuthMethod) { c.authMethod = m }

// SetHTTPClient overrides the HTTP client (used by tests).
func (c *Caller) SetHTTPClient(client *http.Client) { c.client = client }

// SetBodySchema configures the schema decoded body payloads are validated
// against.
func (c *Caller) SetBodySchema(s *Schema) { c.bodySchema = s }

func (c *Caller) httpClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	return http.DefaultClient
}

// CallOptions describes one request built by a generated stub.
type CallOptions struct {
	Name           string // API function name, used in diagnostics
	Method         string
	Location       string // location under /api, with substitutions applied
	Params         url.Values
	Body           any       // structured request body, marshaled as JSON
	BodyStream     io.Reader // opaque request payload, bypasses serialization
	BodyStreamType string    // content type of BodyStream
	Auth           bool
	Schema         *Schema // response schema; nil skips validation
	DecodeBodies   bool    // run the body-decoding pass over the response
}

func (c *Caller) bearer(name string) (string, error) {
	switch c.authMethod {
	case AuthPeer:
		if c.carte == "" {
			return "", &NodeError{Name: name, Message: "carte is not set"}
		}
		return "carte:" + c.carte, nil
	case AuthAdmin:
		if c.token == "" {
			return "", &NodeError{Name: name, Message: "token is not set"}
		}
		return "token:" + c.token, nil
	case AuthRootAdmin:
		if c.rootSecret == "" {
			return "", &NodeError{Name: name, Message: "root secret is not set"}
		}
		return "secret:" + c.rootSecret, nil
	default:
		return "", nil
	}
}

func (c *Caller) newRequest(ctx context.Context, opts CallOptions) (*http.Request, error) {
	if c.root == "" {
		return nil, &NodeError{Name: opts.Name, Message: "node URL is not set"}
	}

	target := c.root + "/api" + opts.Location
	if len(opts.Params) > 0 {
		target += "?" + opts.Params.Encode()
	}

	var body io.Reader
	contentType := "application/json"
	switch {
	case opts.BodyStream != nil:
		body = opts.BodyStream
		if opts.BodyStreamType != "" {
			contentType = opts.BodyStreamType
		}
	case opts.Body != nil:
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, &NodeError{Name: opts.Name, Message: "encode request body: " + err.Error(), Cause: err}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", opts.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if opts.Auth {
		bearer, err := c.bearer(opts.Name)
		if err != nil {
			return nil, err
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
	}
	return req, nil
}

// Call performs one API request and returns the validated response body.
func (c *Caller) Call(ctx context.Context, opts CallOptions) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &ConnectionError{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Cause: err}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError(opts.Name, data)
	}

	if opts.Schema != nil {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, &NodeError{Name: opts.Name, Message: "invalid server response", Cause: err}
		}
		if err := opts.Schema.Validate(v); err != nil {
			return nil, &NodeError{Name: opts.Name, Message: "invalid server response: " + err.Error(), Cause: err}
		}
		if opts.DecodeBodies {
			decoded, err := DecodeBodies(opts.Name, v, c.bodySchema)
			if err != nil {
				return nil, err
			}
			if data, err = json.Marshal(decoded); err != nil {
				return nil, &NodeError{Name: opts.Name, Message: "re-encode decoded response", Cause: err}
			}
		}
	}
	return data, nil
}

// CallBlob performs one API request and returns the raw response stream
// without schema validation. The caller owns the stream and must close it.
func (c *Caller) CallBlob(ctx context.Context, opts CallOptions) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &ConnectionError{Cause: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ConnectionError{Cause: err}
		}
		return nil, apiError(opts.Name, data)
	}
	return resp.Body, nil
}

func apiError(name string, data []byte) error {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return &NodeError{Name: name, Message: "invalid server response", Cause: err}
	}
	return &APIError{
		NodeError: NodeError{Name: name, Message: result.Message},
		ErrorCode: result.ErrorCode,
	}
}

// IsAPIError reports whether err is a node-reported error with the given
// error code.
func IsAPIError(err error, errorCode string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.ErrorCode == errorCode
}
