package apperr

import (
	"errors"
	"fmt"
)

// Wire codes carried on response envelopes and HTTP error bodies.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeBlacklisted       = "PHONE_NUMBER_BLACKLISTED"
	CodeProcessingError   = "PROCESSING_ERROR"
	CodeProviderError     = "PROVIDER_ERROR"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeNotFound          = "REQUEST_NOT_FOUND"
	CodeQueueError        = "QUEUE_ERROR"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

// Sentinel errors for the dispatch taxonomy. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrBlacklisted       = errors.New("phone number is blacklisted")
	ErrGateway           = errors.New("gateway error")
	ErrProcessing        = errors.New("processing error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Coded pairs a sentinel with the wire code and a human readable message.
type Coded struct {
	Kind    error
	Code    string
	Message string
}

func (e *Coded) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *Coded) Unwrap() error { return e.Kind }

// Validation builds an ErrValidation with the INVALID_REQUEST code.
func Validation(format string, args ...any) error {
	return &Coded{Kind: ErrValidation, Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound for the supplied entity description.
func NotFound(format string, args ...any) error {
	return &Coded{Kind: ErrNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Gateway builds an ErrGateway carrying the provider code.
func Gateway(code, message string) error {
	if code == "" {
		code = CodeProviderError
	}
	return &Coded{Kind: ErrGateway, Code: code, Message: message}
}

// CodeOf extracts the wire code from err, falling back to a code derived from
// the sentinel it wraps.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var coded *Coded
	if errors.As(err, &coded) && coded.Code != "" {
		return coded.Code
	}
	switch {
	case errors.Is(err, ErrValidation):
		return CodeInvalidRequest
	case errors.Is(err, ErrBlacklisted):
		return CodeBlacklisted
	case errors.Is(err, ErrGateway):
		return CodeProviderError
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidRequest
	default:
		return CodeProcessingError
	}
}

// MessageOf returns the human readable part of a Coded error, or err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var coded *Coded
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return err.Error()
}
