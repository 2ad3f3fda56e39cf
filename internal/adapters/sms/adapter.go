package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	common "github.com/ajayykmr/sms-dispatch-service/internal/adapters/common"
	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/metrics"
	"github.com/ajayykmr/sms-dispatch-service/internal/observability"
	smsprovider "github.com/ajayykmr/sms-dispatch-service/internal/providers/sms"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

// ErrMissingRequestID is returned when Send is called without a correlation id.
var ErrMissingRequestID = errors.New("sms adapter: request id is required")

// Option modifies adapter behaviour.
type Option func(*Adapter)

// WithRawBodyLimit overrides how much of the provider body to keep in outcomes.
func WithRawBodyLimit(limit int) Option {
	return func(a *Adapter) {
		if limit > 0 {
			a.maxRawChars = limit
		}
	}
}

// WithTimeout overrides the per-call provider timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// Adapter implements common.Gateway on top of a provider.
type Adapter struct {
	logger      zerolog.Logger
	provider    smsprovider.Provider
	timeout     time.Duration
	maxRawChars int
	tracer      trace.Tracer
}

// NewAdapter constructs an SMS adapter using the supplied provider.
func NewAdapter(provider smsprovider.Provider, log zerolog.Logger, opts ...Option) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("sms adapter: provider dependency is required")
	}

	a := &Adapter{
		logger:      logger.Component(log, "sms_adapter"),
		provider:    provider,
		timeout:     DefaultTimeout,
		maxRawChars: common.DefaultRawBodyLimit,
		tracer:      otel.Tracer(observability.TracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Send makes exactly one provider attempt bounded by the adapter timeout.
func (a *Adapter) Send(ctx context.Context, phone, message, requestID string) (common.Outcome, error) {
	if strings.TrimSpace(requestID) == "" {
		return common.Outcome{}, ErrMissingRequestID
	}
	if strings.TrimSpace(message) == "" {
		return common.Outcome{}, apperr.Validation("message is required")
	}

	ctx, span := a.tracer.Start(ctx, "gateway.Send", trace.WithAttributes(attribute.String("sms.request_id", requestID)))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.provider.Send(callCtx, &smsprovider.Payload{
		RequestID:   requestID,
		PhoneNumber: phone,
		Text:        message,
	})
	elapsed := time.Since(start)

	if err != nil {
		out := a.buildFailure(raw, err)
		metrics.GatewayRequestDuration.WithLabelValues("failure").Observe(elapsed.Seconds())
		span.SetStatus(codes.Error, out.Message)
		a.logger.Warn().
			Str("request_id", requestID).
			Str("phone_number", logger.MaskPhone(phone)).
			Int("provider_status", out.ProviderStatus).
			Bool("transient", out.Transient()).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("sms adapter send failed")
		return out, nil
	}

	metrics.GatewayRequestDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	out := common.Delivered(requestID)
	if raw != nil {
		out.ProviderStatus = raw.Code
		out.Raw = common.TruncateRaw(raw.Body, a.maxRawChars)
	}
	a.logger.Debug().
		Str("request_id", requestID).
		Int("provider_status", out.ProviderStatus).
		Dur("elapsed", elapsed).
		Msg("sms adapter send succeeded")
	return out, nil
}

func (a *Adapter) buildFailure(raw *smsprovider.RawResponse, err error) common.Outcome {
	message := err.Error()
	var statusErr *smsprovider.StatusError
	switch {
	case errors.As(err, &statusErr):
		message = statusErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		message = fmt.Sprintf("Provider timeout after %s", a.timeout)
	}

	out := common.Failed(apperr.CodeProviderError, message, classify(raw, err))
	if raw != nil {
		out.ProviderStatus = raw.Code
		out.Raw = common.TruncateRaw(raw.Body, a.maxRawChars)
	}
	return out
}

// classify marks 429, 5xx, timeouts and transport failures as transient and
// every other provider answer as permanent.
func classify(raw *smsprovider.RawResponse, err error) error {
	code := 0
	if raw != nil {
		code = raw.Code
	}
	var httpErr interface{ StatusCode() int }
	if errors.As(err, &httpErr) {
		code = httpErr.StatusCode()
	}

	switch {
	case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return common.WrapTransient(err)
	case code >= http.StatusBadRequest:
		return common.WrapPermanent(err)
	case errors.Is(err, context.Canceled):
		return common.WrapPermanent(err)
	default:
		return common.WrapTransient(err)
	}
}
