package spec

// ErrorCode categorizes generation errors for clearer handling and messaging.
type ErrorCode string

const (
	ConfigError     ErrorCode = "ConfigError"
	DiscoveryError  ErrorCode = "DiscoveryError"
	AnalysisError   ErrorCode = "AnalysisError"
	ConversionError ErrorCode = "ConversionError"
	WriteError      ErrorCode = "WriteError"
)

// GenError is a structured error with the offending key where known.
type GenError struct {
	Code    ErrorCode
	Message string
	Key     string // config key, project name, or file path
	Cause   error
}

func (e *GenError) Error() string { return e.Message }
func (e *GenError) Unwrap() error { return e.Cause }

// Warning is a non-fatal finding collected during conversion or enhancement.
// Warnings are surfaced to the caller after generation completes.
type Warning struct {
	Message string
	Subject string // path, scheme name, or construct that triggered it
}

func (w Warning) String() string {
	if w.Subject == "" {
		return w.Message
	}
	return w.Message + ": " + w.Subject
}
