package apispec

// ErrorCode categorizes generator errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError            ErrorCode = "InputError"
	ParseError            ErrorCode = "ParseError"
	UnrecognizedFieldType ErrorCode = "UnrecognizedFieldType"
	MissingParameterName  ErrorCode = "MissingParameterName"
	MissingBodyName       ErrorCode = "MissingBodyName"
	UnrecognizedBodyType  ErrorCode = "UnrecognizedBodyType"
	UnknownUrlParameter   ErrorCode = "UnknownUrlParameter"
	DependencyCycle       ErrorCode = "DependencyCycle"
)

// SpecError is a structured error with enough context to locate the faulty
// entry in the API description. Every generator failure is fatal; the
// document has to be corrected and the generator re-run.
type SpecError struct {
	Code     ErrorCode
	Message  string
	Location string // file path, "METHOD /url", or offending structure names
	Cause    error
}

func (e *SpecError) Error() string {
	if e.Location != "" {
		return e.Message + " (" + e.Location + ")"
	}
	return e.Message
}

func (e *SpecError) Unwrap() error { return e.Cause }
