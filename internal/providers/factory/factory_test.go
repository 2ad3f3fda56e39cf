package factory_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/providers/factory"
	smsprovider "github.com/ajayykmr/sms-dispatch-service/internal/providers/sms"
)

func TestSMSDefaultsToMock(t *testing.T) {
	p, err := factory.SMS(config.ProviderConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*smsprovider.MockProvider); !ok {
		t.Fatalf("expected mock provider, got %T", p)
	}
}

func TestSMSBuildsHTTPProvider(t *testing.T) {
	p, err := factory.SMS(config.ProviderConfig{Backend: " HTTP ", URL: "http://localhost:9999/send"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*smsprovider.HTTPProvider); !ok {
		t.Fatalf("expected http provider, got %T", p)
	}
}

func TestSMSRejectsUnknownBackend(t *testing.T) {
	if _, err := factory.SMS(config.ProviderConfig{Backend: "twilio"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
	if _, err := factory.SMS(config.ProviderConfig{Backend: "http"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for http backend without url")
	}
}
