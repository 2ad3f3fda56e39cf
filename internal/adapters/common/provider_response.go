package common

import "unicode/utf8"

// DefaultRawBodyLimit defines the maximum number of characters retained from a
// provider response body when attaching it to an Outcome.
const DefaultRawBodyLimit = 1024

// Outcome is the normalised result of one gateway call.
type Outcome struct {
	Success        bool   `json:"success"`
	CorrelationID  string `json:"correlationId,omitempty"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
	ProviderStatus int    `json:"providerStatus,omitempty"`
	Raw            string `json:"raw,omitempty"`

	// Cause is the classified provider error, wrapped with ErrTransient or
	// ErrPermanent.
	Cause error `json:"-"`
}

// Delivered builds a successful outcome.
func Delivered(correlationID string) Outcome {
	return Outcome{Success: true, CorrelationID: correlationID}
}

// Failed builds a failed outcome.
func Failed(code, message string, cause error) Outcome {
	return Outcome{Code: code, Message: message, Cause: cause}
}

// Transient reports whether a failed outcome may succeed on another attempt.
func (o Outcome) Transient() bool {
	return !o.Success && IsTransient(o.Cause)
}

// TruncateRaw trims the supplied string to the specified rune limit. If limit
// is zero or negative it returns an empty string.
func TruncateRaw(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}
