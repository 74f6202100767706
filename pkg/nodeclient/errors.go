package nodeclient

// NodeError reports a malformed or invalid node response.
type NodeError struct {
	Name    string // the API call that failed
	Message string
	Cause   error
}

func (e *NodeError) Error() string {
	return e.Name + ": node error: " + e.Message
}

func (e *NodeError) Unwrap() error { return e.Cause }

// APIError reports an error result returned by the node itself.
type APIError struct {
	NodeError
	ErrorCode string
}

// ConnectionError reports a transport-level failure.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return "node connection error: " + e.Cause.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Cause }
