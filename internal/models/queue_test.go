package models_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ajayykmr/sms-dispatch-service/internal/models"
)

func TestSuccessEnvelopeShape(t *testing.T) {
	id := uint(7)
	env := models.SuccessEnvelope(models.SuccessData{RequestID: "req-1", Comments: "SMS sent successfully", PhoneNumber: "+911234567890", ID: &id})

	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), `"error"`) {
		t.Fatalf("success envelope leaked error branch: %s", b)
	}
	if string(env.PartitionKey()) != "req-1" {
		t.Fatalf("expected request id key, got %q", env.PartitionKey())
	}

	var decoded models.ResponseEnvelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data, ok := decoded.Success()
	if !ok || data.ID == nil || *data.ID != 7 {
		t.Fatalf("unexpected decoded data %+v", data)
	}
	if _, ok := decoded.Failure(); ok {
		t.Fatalf("decoded success envelope reports failure branch")
	}
}

func TestErrorEnvelopeIsUnkeyed(t *testing.T) {
	env := models.ErrorEnvelope("PHONE_NUMBER_BLACKLISTED", "Phone number is blacklisted")
	if env.PartitionKey() != nil {
		t.Fatalf("error envelopes must be unkeyed")
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"error":{"code":"PHONE_NUMBER_BLACKLISTED","message":"Phone number is blacklisted"}}` {
		t.Fatalf("unexpected wire form %s", b)
	}
}

func TestEnvelopeRejectsAmbiguousPayloads(t *testing.T) {
	for _, raw := range []string{`{}`, `{"data":{"requestId":"a"},"error":{"code":"X"}}`} {
		var env models.ResponseEnvelope
		if err := json.Unmarshal([]byte(raw), &env); !errors.Is(err, models.ErrEnvelopeShape) {
			t.Fatalf("payload %s: expected shape error, got %v", raw, err)
		}
	}
	if _, err := json.Marshal(models.ResponseEnvelope{}); err == nil {
		t.Fatalf("expected zero envelope to fail marshalling")
	}
}

func TestStatusTransitions(t *testing.T) {
	if !models.StatusPending.CanTransition(models.StatusSent) || !models.StatusPending.CanTransition(models.StatusFailed) {
		t.Fatalf("pending must move to sent or failed")
	}
	if models.StatusSent.CanTransition(models.StatusFailed) {
		t.Fatalf("sent is terminal")
	}
	if models.StatusPending.CanTransition(models.StatusDelivered) {
		t.Fatalf("delivered is never set by the pipeline")
	}
	if !models.StatusSent.CanTransition(models.StatusSent) {
		t.Fatalf("re-applying the same status must be accepted")
	}
}
