package models

// ErrorResponse is the error payload returned by every endpoint. Error is
// always the human-readable message; Code and RequestID add machine context.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
