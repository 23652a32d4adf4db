package models

// Envelope is the response body shape shared by every HTTP endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}
