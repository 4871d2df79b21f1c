package dto

// Envelope is the uniform wrapper around every API response body. Status is
// either "Success" or "Error"; the payload is the operation result or an
// APIError respectively.
type Envelope struct {
	Status  string `json:"status"`
	Payload any    `json:"payload"`
}

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// Success wraps a payload in a success envelope.
func Success(payload any) Envelope {
	return Envelope{Status: StatusSuccess, Payload: payload}
}

// Error wraps an APIError in an error envelope.
func Error(apiErr APIError) Envelope {
	return Envelope{Status: StatusError, Payload: apiErr}
}

// APIError is the structured failure payload. The trace/span pair correlates
// the failure with server-side logs.
type APIError struct {
	UnderlyingError string `json:"underlying_error"`
	Report          string `json:"report"`
	TraceID         string `json:"trace_id"`
	SpanID          string `json:"span_id"`
}
