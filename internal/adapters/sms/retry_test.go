package sms_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/sms-dispatch-service/internal/adapters/common"
	smsadapter "github.com/ajayykmr/sms-dispatch-service/internal/adapters/sms"
	"github.com/ajayykmr/sms-dispatch-service/internal/config"
)

type scriptedGateway struct {
	mu       sync.Mutex
	outcomes []common.Outcome
	err      error
	calls    int
}

func (g *scriptedGateway) Send(context.Context, string, string, string) (common.Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return common.Outcome{}, g.err
	}
	idx := g.calls - 1
	if idx >= len(g.outcomes) {
		idx = len(g.outcomes) - 1
	}
	return g.outcomes[idx], nil
}

func (g *scriptedGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var (
	transient = common.Failed("PROVIDER_ERROR", "Non-2xx response: 503", common.WrapTransient(errors.New("503")))
	permanent = common.Failed("PROVIDER_ERROR", "Non-2xx response: 400", common.WrapPermanent(errors.New("400")))
)

func retryConfig(attempts int) config.RetryConfig {
	return config.RetryConfig{Enabled: true, MaxAttempts: attempts, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetryingGatewayRetriesTransientFailures(t *testing.T) {
	next := &scriptedGateway{outcomes: []common.Outcome{transient, transient, common.Delivered(testRequestID)}}
	gw, err := smsadapter.NewRetryingGateway(next, retryConfig(3), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	out, err := gw.Send(context.Background(), testPhone, "hello", testRequestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected eventual success, got %+v", out)
	}
	if next.count() != 3 {
		t.Fatalf("expected 3 attempts, got %d", next.count())
	}
}

func TestRetryingGatewayStopsAtMaxAttempts(t *testing.T) {
	next := &scriptedGateway{outcomes: []common.Outcome{transient}}
	gw, _ := smsadapter.NewRetryingGateway(next, retryConfig(2), zerolog.Nop())

	out, err := gw.Send(context.Background(), testPhone, "hello", testRequestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Success || next.count() != 2 {
		t.Fatalf("expected 2 failed attempts, got success=%v calls=%d", out.Success, next.count())
	}
}

func TestRetryingGatewayDoesNotRetryPermanentFailures(t *testing.T) {
	next := &scriptedGateway{outcomes: []common.Outcome{permanent}}
	gw, _ := smsadapter.NewRetryingGateway(next, retryConfig(3), zerolog.Nop())

	if _, err := gw.Send(context.Background(), testPhone, "hello", testRequestID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.count() != 1 {
		t.Fatalf("expected a single attempt, got %d", next.count())
	}
}

func TestRetryingGatewayPassesErrorsThrough(t *testing.T) {
	next := &scriptedGateway{err: smsadapter.ErrMissingRequestID}
	gw, _ := smsadapter.NewRetryingGateway(next, retryConfig(3), zerolog.Nop())

	if _, err := gw.Send(context.Background(), testPhone, "hello", ""); !errors.Is(err, smsadapter.ErrMissingRequestID) {
		t.Fatalf("expected error to pass through, got %v", err)
	}
	if next.count() != 1 {
		t.Fatalf("errors must not be retried, got %d calls", next.count())
	}
}

func TestRetryingGatewayStopsWhenContextEnds(t *testing.T) {
	next := &scriptedGateway{outcomes: []common.Outcome{transient}}
	gw, _ := smsadapter.NewRetryingGateway(next, config.RetryConfig{MaxAttempts: 5, BaseBackoff: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	out, err := gw.Send(ctx, testPhone, "hello", testRequestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Success || next.count() != 1 {
		t.Fatalf("expected the last failure after one attempt, got success=%v calls=%d", out.Success, next.count())
	}
}
