package models

import (
	"encoding/json"
	"errors"
)

// RequestMessage is the payload published on the request topic.
type RequestMessage struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
	RequestID   string `json:"requestId"`
}

// SuccessData is the success branch of a response envelope.
type SuccessData struct {
	RequestID   string `json:"requestId"`
	Comments    string `json:"comments"`
	PhoneNumber string `json:"phoneNumber"`
	ID          *uint  `json:"id,omitempty"`
}

// ErrorData is the error branch of a response envelope.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseEnvelope is the payload published on the response topic. Exactly one
// of the success or error branches is populated; construct it with
// SuccessEnvelope or ErrorEnvelope.
type ResponseEnvelope struct {
	data *SuccessData
	err  *ErrorData
}

// ErrEnvelopeShape is returned when a decoded envelope does not carry exactly
// one branch.
var ErrEnvelopeShape = errors.New("response envelope must carry exactly one of data or error")

// SuccessEnvelope wraps d as a success response.
func SuccessEnvelope(d SuccessData) ResponseEnvelope {
	return ResponseEnvelope{data: &d}
}

// ErrorEnvelope wraps code and message as an error response.
func ErrorEnvelope(code, message string) ResponseEnvelope {
	return ResponseEnvelope{err: &ErrorData{Code: code, Message: message}}
}

// Success returns the success branch.
func (e ResponseEnvelope) Success() (SuccessData, bool) {
	if e.data == nil {
		return SuccessData{}, false
	}
	return *e.data, true
}

// Failure returns the error branch.
func (e ResponseEnvelope) Failure() (ErrorData, bool) {
	if e.err == nil {
		return ErrorData{}, false
	}
	return *e.err, true
}

// PartitionKey is the request id for success envelopes and nil for errors.
func (e ResponseEnvelope) PartitionKey() []byte {
	if e.data == nil || e.data.RequestID == "" {
		return nil
	}
	return []byte(e.data.RequestID)
}

type envelopeWire struct {
	Data  *SuccessData `json:"data,omitempty"`
	Error *ErrorData   `json:"error,omitempty"`
}

// MarshalJSON renders {"data":{...}} or {"error":{...}}.
func (e ResponseEnvelope) MarshalJSON() ([]byte, error) {
	if (e.data == nil) == (e.err == nil) {
		return nil, ErrEnvelopeShape
	}
	return json.Marshal(envelopeWire{Data: e.data, Error: e.err})
}

// UnmarshalJSON rejects payloads carrying both or neither branch.
func (e *ResponseEnvelope) UnmarshalJSON(b []byte) error {
	var wire envelopeWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if (wire.Data == nil) == (wire.Error == nil) {
		return ErrEnvelopeShape
	}
	e.data, e.err = wire.Data, wire.Error
	return nil
}
