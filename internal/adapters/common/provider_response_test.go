package common_test

import (
	"errors"
	"testing"

	common "github.com/ajayykmr/sms-dispatch-service/internal/adapters/common"
)

func TestTruncateRaw(t *testing.T) {
	raw := "こんにちは世界" // 7 runes

	if got := common.TruncateRaw(raw, 10); got != raw {
		t.Fatalf("expected raw string unchanged when under limit, got %q", got)
	}

	if got := common.TruncateRaw(raw, 3); got != "こんに" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}

	if got := common.TruncateRaw(raw, 0); got != "" {
		t.Fatalf("expected empty string for non-positive limit, got %q", got)
	}
}

func TestOutcomeTransient(t *testing.T) {
	if common.Delivered("req-1").Transient() {
		t.Fatalf("successful outcome must not be transient")
	}
	if !common.Failed("PROVIDER_ERROR", "Non-2xx response: 503", common.WrapTransient(errors.New("503"))).Transient() {
		t.Fatalf("expected 5xx failure to be transient")
	}
	if common.Failed("PROVIDER_ERROR", "Non-2xx response: 400", common.WrapPermanent(errors.New("400"))).Transient() {
		t.Fatalf("expected 4xx failure to be permanent")
	}
	if common.Failed("PROVIDER_ERROR", "boom", nil).Transient() {
		t.Fatalf("unclassified failure must not be retried")
	}
}
