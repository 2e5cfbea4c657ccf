// Package response holds the JSON envelopes returned by the API.
package response

// APIResponse wraps successful payloads. Warnings carries non-fatal notes,
// such as an audit entry that could not be written.
type APIResponse[T any] struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Data     T        `json:"data,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ErrorResponse is written for every failed request. Kind is the error class
// clients can branch on (InputMalformed, NotFound, Busy, ...).
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
