package sms

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/sms-dispatch-service/internal/adapters/common"
	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/metrics"
)

// RetryingGateway re-sends transient failures with full-jitter exponential
// backoff. Permanent failures and errors are returned immediately.
type RetryingGateway struct {
	next        common.Gateway
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	logger      zerolog.Logger

	randMu sync.Mutex
	rnd    *rand.Rand
}

// NewRetryingGateway wraps next using the attempt and backoff limits in cfg.
func NewRetryingGateway(next common.Gateway, cfg config.RetryConfig, log zerolog.Logger) (*RetryingGateway, error) {
	if next == nil {
		return nil, errors.New("sms retry: gateway dependency is required")
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingGateway{
		next:        next,
		maxAttempts: attempts,
		baseBackoff: cfg.BaseBackoff,
		maxBackoff:  cfg.MaxBackoff,
		logger:      logger.Component(log, "sms_retry"),
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only.
	}, nil
}

func (g *RetryingGateway) Send(ctx context.Context, phone, message, requestID string) (common.Outcome, error) {
	attempt := 1
	for {
		out, err := g.next.Send(ctx, phone, message, requestID)
		if err != nil || out.Success || !out.Transient() || attempt >= g.maxAttempts {
			return out, err
		}

		backoff := g.computeBackoff(attempt)
		g.logger.Info().
			Str("request_id", requestID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("scheduling gateway retry after transient failure")
		if !wait(ctx, backoff) {
			return out, nil
		}
		metrics.GatewayRetries.Inc()
		attempt++
	}
}

func (g *RetryingGateway) computeBackoff(attempt int) time.Duration {
	if g.baseBackoff <= 0 {
		return 0
	}

	multiplier := math.Pow(2, float64(attempt-1))
	raw := time.Duration(float64(g.baseBackoff) * multiplier)
	if g.maxBackoff > 0 && raw > g.maxBackoff {
		raw = g.maxBackoff
	}
	return g.fullJitter(raw)
}

func (g *RetryingGateway) fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	g.randMu.Lock()
	defer g.randMu.Unlock()
	return time.Duration(g.rnd.Int63n(int64(max) + 1))
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
