package blacklist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/cache"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/metrics"
)

const (
	keyPrefix = "blacklist:"
	keyAll    = "blacklist:all"

	// DefaultTTL applies to both per-number entries and the full list.
	DefaultTTL = 24 * time.Hour
)

// Verdict is the result of a membership check. Degraded is set when the
// store could not be consulted and the gate failed open.
type Verdict struct {
	Blocked  bool
	Degraded bool
}

// Gate is a cache-aside membership check over the blacklist store.
type Gate struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewGate wires the gate. A non-positive ttl falls back to DefaultTTL.
func NewGate(store Store, c cache.Cache, ttl time.Duration, log zerolog.Logger) (*Gate, error) {
	if store == nil {
		return nil, errors.New("blacklist: store dependency is required")
	}
	if c == nil {
		return nil, errors.New("blacklist: cache dependency is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{store: store, cache: c, ttl: ttl, log: logger.Component(log, "blacklist_gate")}, nil
}

// IsBlocked never fails: any cache or store error yields false.
func (g *Gate) IsBlocked(ctx context.Context, phone string) bool {
	return g.Check(ctx, phone).Blocked
}

// Check resolves membership through the cache, falling back to the store.
func (g *Gate) Check(ctx context.Context, phone string) Verdict {
	key := keyPrefix + phone

	cacheUsable := true
	val, err := g.cache.Get(ctx, key)
	switch {
	case err == nil:
		return Verdict{Blocked: val == "true"}
	case errors.Is(err, cache.ErrMiss):
	default:
		cacheUsable = false
		metrics.BlacklistDegraded.WithLabelValues("cache").Inc()
		g.log.Warn().Err(err).Str("phone_number", logger.MaskPhone(phone)).Msg("blacklist cache read failed; consulting store")
	}

	blocked, err := g.store.Exists(ctx, phone)
	if err != nil {
		metrics.BlacklistDegraded.WithLabelValues("store").Inc()
		g.log.Error().Err(err).Str("phone_number", logger.MaskPhone(phone)).Msg("blacklist store check failed; failing open")
		return Verdict{Blocked: false, Degraded: true}
	}

	if cacheUsable {
		if err := g.cache.Set(ctx, key, fmt.Sprintf("%t", blocked), g.ttl); err != nil {
			g.log.Warn().Err(err).Msg("blacklist cache populate failed")
		}
	}
	return Verdict{Blocked: blocked}
}

// Add blocks phones. Already blocked numbers are left as they are.
func (g *Gate) Add(ctx context.Context, phones []string) error {
	list, err := normalize(phones)
	if err != nil {
		return err
	}
	if err := g.store.Insert(ctx, list); err != nil {
		return fmt.Errorf("blacklist: add: %w", err)
	}
	g.invalidate(ctx, list)
	g.log.Info().Int("count", len(list)).Msg("phone numbers blacklisted")
	return nil
}

// Remove unblocks phones. Numbers that were not blocked are ignored.
func (g *Gate) Remove(ctx context.Context, phones []string) error {
	list, err := normalize(phones)
	if err != nil {
		return err
	}
	if err := g.store.Delete(ctx, list); err != nil {
		return fmt.Errorf("blacklist: remove: %w", err)
	}
	g.invalidate(ctx, list)
	g.log.Info().Int("count", len(list)).Msg("phone numbers removed from blacklist")
	return nil
}

// ListAll returns every blocked number, served from the cached list when
// present. An empty result is not cached.
func (g *Gate) ListAll(ctx context.Context) ([]string, error) {
	cached, err := g.cache.GetList(ctx, keyAll)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, cache.ErrMiss):
	default:
		metrics.BlacklistDegraded.WithLabelValues("cache").Inc()
		g.log.Warn().Err(err).Msg("blacklist list cache read failed; consulting store")
	}

	phones, err := g.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("blacklist: list: %w", err)
	}
	if len(phones) > 0 {
		if err := g.cache.SetList(ctx, keyAll, phones, g.ttl); err != nil {
			g.log.Warn().Err(err).Msg("blacklist list cache populate failed")
		}
	}
	if phones == nil {
		phones = []string{}
	}
	return phones, nil
}

func (g *Gate) invalidate(ctx context.Context, phones []string) {
	keys := make([]string, 0, len(phones)+1)
	for _, p := range phones {
		keys = append(keys, keyPrefix+p)
	}
	keys = append(keys, keyAll)
	if err := g.cache.Delete(ctx, keys...); err != nil {
		metrics.BlacklistDegraded.WithLabelValues("cache").Inc()
		g.log.Error().Err(err).Int("count", len(phones)).Msg("blacklist cache invalidation failed")
	}
}

func normalize(phones []string) ([]string, error) {
	seen := make(map[string]struct{}, len(phones))
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, apperr.Validation("phone numbers list cannot be empty")
	}
	return out, nil
}
