package types

const (
	ResponseStatusSuccess = "success"
	ResponseStatusError   = "error"
)

// SuccessEnvelope is the wire shape of every successful API response.
type SuccessEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorEnvelope is the wire shape of every failed API response. Code is a
// stable machine-readable identifier; Message is safe to show to callers.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
