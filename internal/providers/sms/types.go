package sms

import (
	"context"
	"fmt"
	"time"
)

// Payload is what a provider needs to deliver one SMS.
type Payload struct {
	RequestID   string
	PhoneNumber string
	Text        string
	Meta        map[string]string
}

// RawResponse describes the low-level provider response.
type RawResponse struct {
	ID        string
	Code      int
	Status    string
	Body      string
	Timestamp time.Time
}

// Provider represents an outbound SMS provider.
type Provider interface {
	Send(ctx context.Context, payload *Payload) (*RawResponse, error)
}

// StatusError reports a provider answer outside the 2xx range.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Non-2xx response: %d", e.Code)
}

// StatusCode exposes the HTTP status for error classification.
func (e *StatusError) StatusCode() int { return e.Code }
