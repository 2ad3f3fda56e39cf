package sms

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
)

// Scenario enumerates the mock behaviours supported by the SMS provider.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioTransient Scenario = "transient"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"
)

// Option customises the mock provider.
type Option func(*MockProvider)

// WithScenario sets the scenario used when no per-number override matches.
func WithScenario(s Scenario) Option {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithPhoneScenario forces a scenario for one destination number.
func WithPhoneScenario(phone string, s Scenario) Option {
	return func(p *MockProvider) {
		p.overrides[phone] = s
	}
}

// WithLatency configures the artificial latency injected before answering.
func WithLatency(d time.Duration) Option {
	return func(p *MockProvider) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithClock overrides the clock used to timestamp responses.
func WithClock(now func() time.Time) Option {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MockProvider is a deterministic SMS provider for local runs and tests.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	overrides       map[string]Scenario
	latency         time.Duration
	now             func() time.Time

	mu    sync.Mutex
	calls int
}

// NewMockProvider constructs a mock SMS provider.
func NewMockProvider(log zerolog.Logger, opts ...Option) *MockProvider {
	p := &MockProvider{
		logger:          logger.Component(log, "sms_mock_provider"),
		defaultScenario: ScenarioSuccess,
		overrides:       make(map[string]Scenario),
		latency:         25 * time.Millisecond,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Calls reports how many payloads reached the provider.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Send answers according to the scenario configured for the destination.
func (p *MockProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("sms mock: payload is required")
	}
	if strings.TrimSpace(payload.PhoneNumber) == "" {
		return nil, errors.New("sms mock: recipient is required")
	}

	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	scenario := p.defaultScenario
	if s, ok := p.overrides[payload.PhoneNumber]; ok {
		scenario = s
	}

	if scenario == ScenarioTimeout {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	resp := &RawResponse{
		ID:        payload.RequestID,
		Code:      http.StatusOK,
		Status:    "accepted",
		Body:      "mock: message accepted",
		Timestamp: p.now(),
	}

	switch scenario {
	case ScenarioSuccess:
		p.logger.Debug().Str("request_id", payload.RequestID).Msg("mock provider accepted message")
		return resp, nil
	case ScenarioTransient:
		resp.Code = http.StatusTooManyRequests
		resp.Status = "transient_failure"
		resp.Body = "mock: rate limited"
	case ScenarioPermanent:
		resp.Code = http.StatusBadRequest
		resp.Status = "permanent_failure"
		resp.Body = "mock: invalid recipient"
	default:
		resp.Code = http.StatusInternalServerError
		resp.Status = "unknown"
		resp.Body = "mock: unknown scenario " + string(scenario)
	}
	return resp, &StatusError{Code: resp.Code, Body: resp.Body}
}
