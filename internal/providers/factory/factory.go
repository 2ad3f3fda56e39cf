package factory

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	smsprovider "github.com/ajayykmr/sms-dispatch-service/internal/providers/sms"
)

// SMS constructs the configured SMS provider. Supports mock and http backends.
func SMS(cfg config.ProviderConfig, logger zerolog.Logger) (smsprovider.Provider, error) {
	backend := normalize(cfg.Backend, "mock")
	switch backend {
	case "http":
		provider, err := smsprovider.NewHTTPProvider(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: http sms provider init: %w", err)
		}
		logger.Info().
			Str("backend", "http").
			Str("url", cfg.URL).
			Msg("sms provider initialised")
		return provider, nil
	case "mock":
		provider := smsprovider.NewMockProvider(logger)
		logger.Info().
			Str("backend", "mock").
			Msg("sms provider initialised")
		return provider, nil
	default:
		return nil, fmt.Errorf("factory: unsupported sms provider backend %q", cfg.Backend)
	}
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
