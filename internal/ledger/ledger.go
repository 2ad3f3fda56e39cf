package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/cache"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/metrics"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/observability"
)

const (
	keyPrefix = "sms:"

	DefaultTTL = 24 * time.Hour
)

// Projector receives every committed ledger write.
type Projector interface {
	Project(ctx context.Context, r *models.DispatchRequest) error
}

// StatusUpdate carries the fields UpdateStatus may change. Empty strings
// leave the stored value untouched.
type StatusUpdate struct {
	Status            models.DispatchStatus
	ExternalMessageID string
	FailureCode       string
	FailureComments   string
}

// Ledger is the system of record for dispatch requests with a read-through
// cache in front of the store.
type Ledger struct {
	store     Store
	cache     cache.Cache
	projector Projector
	ttl       time.Duration
	log       zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New wires the ledger. A non-positive ttl falls back to DefaultTTL.
func New(store Store, c cache.Cache, projector Projector, ttl time.Duration, log zerolog.Logger, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: store dependency is required")
	}
	if c == nil {
		return nil, errors.New("ledger: cache dependency is required")
	}
	if projector == nil {
		return nil, errors.New("ledger: projector dependency is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l := &Ledger{
		store:     store,
		cache:     c,
		projector: projector,
		ttl:       ttl,
		log:       logger.Component(log, "ledger"),
		tracer:    otel.Tracer(observability.TracerName),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Create persists a PENDING row and projects it.
func (l *Ledger) Create(ctx context.Context, phone, message, requestID string) (*models.DispatchRequest, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.Create")
	defer span.End()

	now := l.now()
	r := &models.DispatchRequest{
		RequestID:   requestID,
		PhoneNumber: phone,
		Message:     message,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.Create(ctx, r); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ledger: create: %w", err)
	}
	span.SetAttributes(attribute.Int64("ledger.id", int64(r.ID)))

	l.project(ctx, r)
	l.log.Debug().Uint("ledger_id", r.ID).Str("request_id", requestID).Msg("ledger row created")
	return r, nil
}

// GetByID reads through the cache.
func (l *Ledger) GetByID(ctx context.Context, id uint) (*models.DispatchRequest, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.GetByID", trace.WithAttributes(attribute.Int64("ledger.id", int64(id))))
	defer span.End()

	key := cacheKey(id)
	cacheUsable := true
	raw, err := l.cache.Get(ctx, key)
	switch {
	case err == nil:
		var r models.DispatchRequest
		if jerr := json.Unmarshal([]byte(raw), &r); jerr == nil {
			metrics.LedgerCache.WithLabelValues("hit").Inc()
			return &r, nil
		}
		l.log.Warn().Uint("ledger_id", id).Msg("discarding undecodable cache entry")
		_ = l.cache.Delete(ctx, key)
		metrics.LedgerCache.WithLabelValues("miss").Inc()
	case errors.Is(err, cache.ErrMiss):
		metrics.LedgerCache.WithLabelValues("miss").Inc()
	default:
		cacheUsable = false
		metrics.LedgerCache.WithLabelValues("error").Inc()
		l.log.Warn().Err(err).Uint("ledger_id", id).Msg("ledger cache read failed; using store")
	}

	r, err := l.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if cacheUsable {
		if payload, jerr := json.Marshal(r); jerr == nil {
			if err := l.cache.Set(ctx, key, string(payload), l.ttl); err != nil {
				l.log.Warn().Err(err).Uint("ledger_id", id).Msg("ledger cache populate failed")
			}
		}
	}
	return r, nil
}

// UpdateStatus moves a row to a new status. Only PENDING -> SENT|FAILED is
// accepted; re-applying the current status rewrites the same values.
func (l *Ledger) UpdateStatus(ctx context.Context, id uint, upd StatusUpdate) (*models.DispatchRequest, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.UpdateStatus", trace.WithAttributes(
		attribute.Int64("ledger.id", int64(id)),
		attribute.String("ledger.status", string(upd.Status)),
	))
	defer span.End()

	if !upd.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", upd.Status)
	}

	r, err := l.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransition(upd.Status) {
		return nil, fmt.Errorf("ledger: %s -> %s on %d: %w", r.Status, upd.Status, id, apperr.ErrInvalidTransition)
	}

	r.Status = upd.Status
	if upd.ExternalMessageID != "" {
		r.ExternalMessageID = models.StringPtr(upd.ExternalMessageID)
	}
	if upd.FailureCode != "" {
		r.FailureCode = models.StringPtr(upd.FailureCode)
	}
	if upd.FailureComments != "" {
		r.FailureComments = models.StringPtr(upd.FailureComments)
	}
	r.UpdatedAt = l.now()

	if err := l.store.Save(ctx, r); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ledger: update %d: %w", id, err)
	}
	if err := l.cache.Delete(ctx, cacheKey(id)); err != nil {
		l.log.Warn().Err(err).Uint("ledger_id", id).Msg("ledger cache invalidation failed")
	}

	l.project(ctx, r)
	return r, nil
}

// FindLatestByPhoneNumber bypasses the cache.
func (l *Ledger) FindLatestByPhoneNumber(ctx context.Context, phone string) (*models.DispatchRequest, error) {
	return l.store.FindLatestByPhone(ctx, phone)
}

// FindByRequestID bypasses the cache.
func (l *Ledger) FindByRequestID(ctx context.Context, requestID string) (*models.DispatchRequest, error) {
	if requestID == "" {
		return nil, apperr.NotFound("sms request with empty request id")
	}
	return l.store.FindByRequestID(ctx, requestID)
}

func (l *Ledger) project(ctx context.Context, r *models.DispatchRequest) {
	if err := l.projector.Project(ctx, r); err != nil {
		metrics.ProjectionFailures.Inc()
		l.log.Warn().Err(err).Uint("ledger_id", r.ID).Msg("search projection failed")
	}
}

func cacheKey(id uint) string {
	return keyPrefix + strconv.FormatUint(uint64(id), 10)
}
