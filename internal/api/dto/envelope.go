package dto

// Envelope wraps successful payloads on most routes.
type Envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// Success wraps data in the success envelope.
func Success(data any) Envelope {
	return Envelope{Status: "success", Data: data}
}

// ErrorResponse is the error body. Detail carries the message clients show.
type ErrorResponse struct {
	Status  string         `json:"status"`
	Detail  string         `json:"detail"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}
