// Package notification is the ingress core: it accepts send requests, records
// them in the ledger and queues them for the worker. It also fronts the
// status, search and blacklist operations exposed over HTTP.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/ledger"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/metrics"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/observability"
	"github.com/ajayykmr/sms-dispatch-service/internal/search"
	"github.com/ajayykmr/sms-dispatch-service/internal/util"
)

const (
	// MaxMessageRunes bounds the SMS body accepted at ingress.
	MaxMessageRunes = 1600
	// MaxBlacklistBatch bounds one blacklist add or remove call.
	MaxBlacklistBatch = 1000

	queueFailureComments = "Failed to queue SMS request"
)

// Ledger is the part of the request ledger the service uses.
type Ledger interface {
	Create(ctx context.Context, phone, message, requestID string) (*models.DispatchRequest, error)
	GetByID(ctx context.Context, id uint) (*models.DispatchRequest, error)
	UpdateStatus(ctx context.Context, id uint, upd ledger.StatusUpdate) (*models.DispatchRequest, error)
}

// RequestPublisher queues request messages for the worker.
type RequestPublisher interface {
	PublishRequest(ctx context.Context, msg models.RequestMessage) error
}

// Searcher answers search queries over projected documents.
type Searcher interface {
	Search(ctx context.Context, c search.Criteria, page, pageSize int) (search.Page, error)
}

// Blacklist manages blocked numbers.
type Blacklist interface {
	Add(ctx context.Context, phones []string) error
	Remove(ctx context.Context, phones []string) error
	ListAll(ctx context.Context) ([]string, error)
}

// SubmitCommand is a send request as received at ingress.
type SubmitCommand struct {
	PhoneNumber string
	Message     string
	RequestID   string
}

// SubmitResult identifies the queued request.
type SubmitResult struct {
	LedgerID  uint
	RequestID string
	Status    models.DispatchStatus
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for generated request ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSuffix overrides the random suffix of generated request ids.
func WithIDSuffix(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.suffix = fn
		}
	}
}

// Service wires ingress to the ledger, queue, search and blacklist.
type Service struct {
	ledger    Ledger
	publisher RequestPublisher
	searcher  Searcher
	blacklist Blacklist
	log       zerolog.Logger
	tracer    trace.Tracer

	now    func() time.Time
	suffix func() string
}

// NewService validates its collaborators and builds a Service.
func NewService(l Ledger, pub RequestPublisher, s Searcher, b Blacklist, log zerolog.Logger, opts ...Option) (*Service, error) {
	if l == nil {
		return nil, errors.New("notification: ledger dependency is required")
	}
	if pub == nil {
		return nil, errors.New("notification: request publisher dependency is required")
	}
	if s == nil {
		return nil, errors.New("notification: searcher dependency is required")
	}
	if b == nil {
		return nil, errors.New("notification: blacklist dependency is required")
	}
	svc := &Service{
		ledger:    l,
		publisher: pub,
		searcher:  s,
		blacklist: b,
		log:       logger.Component(log, "notification_service"),
		tracer:    otel.Tracer(observability.TracerName),
		now:       time.Now,
		suffix:    randomSuffix,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Submit validates cmd, records a PENDING ledger row and queues the request.
// When the queue write fails the row is marked FAILED with QUEUE_ERROR and
// the error is returned.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "notification.Submit")
	defer span.End()

	phone, err := util.NormalizePhone(cmd.PhoneNumber)
	if err != nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return SubmitResult{}, apperr.Validation("invalid phone number format: %s", strings.TrimSpace(cmd.PhoneNumber))
	}
	if err := util.EnsureNotBlank("message", cmd.Message); err != nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return SubmitResult{}, apperr.Validation("%s", err.Error())
	}
	if err := util.EnsureMaxRunes("message", cmd.Message, MaxMessageRunes); err != nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return SubmitResult{}, apperr.Validation("%s", err.Error())
	}

	requestID := strings.TrimSpace(cmd.RequestID)
	if requestID == "" {
		requestID = s.newRequestID()
	}
	span.SetAttributes(attribute.String("sms.request_id", requestID))

	row, err := s.ledger.Create(ctx, phone, cmd.Message, requestID)
	if err != nil {
		span.RecordError(err)
		metrics.Submissions.WithLabelValues("error").Inc()
		return SubmitResult{}, fmt.Errorf("notification: submit: %w", err)
	}

	msg := models.RequestMessage{PhoneNumber: phone, Message: cmd.Message, RequestID: requestID}
	if err := s.publisher.PublishRequest(ctx, msg); err != nil {
		span.RecordError(err)
		metrics.Submissions.WithLabelValues("queue_error").Inc()
		s.log.Error().
			Err(err).
			Uint("ledger_id", row.ID).
			Str("request_id", requestID).
			Str("phone_number", logger.MaskPhone(phone)).
			Msg("failed to queue sms request")
		upd := ledger.StatusUpdate{Status: models.StatusFailed, FailureCode: apperr.CodeQueueError, FailureComments: queueFailureComments}
		if _, uerr := s.ledger.UpdateStatus(ctx, row.ID, upd); uerr != nil {
			metrics.LedgerUpdateFailures.Inc()
			s.log.Warn().Err(uerr).Uint("ledger_id", row.ID).Msg("failed to mark unqueued request as failed")
		}
		return SubmitResult{}, &apperr.Coded{Kind: apperr.ErrProcessing, Code: apperr.CodeQueueError, Message: queueFailureComments + ": " + err.Error()}
	}

	metrics.Submissions.WithLabelValues("queued").Inc()
	s.log.Info().
		Uint("ledger_id", row.ID).
		Str("request_id", requestID).
		Str("phone_number", logger.MaskPhone(phone)).
		Msg("sms request queued")
	return SubmitResult{LedgerID: row.ID, RequestID: requestID, Status: row.Status}, nil
}

// Lookup returns the ledger row for id.
func (s *Service) Lookup(ctx context.Context, id uint) (*models.DispatchRequest, error) {
	if id == 0 {
		return nil, apperr.Validation("id must be a positive integer")
	}
	return s.ledger.GetByID(ctx, id)
}

// Search queries the search projection only; it never touches the ledger.
func (s *Service) Search(ctx context.Context, c search.Criteria, page, pageSize int) (search.Page, error) {
	if c.PhoneNumber != "" {
		phone, err := util.NormalizePhone(c.PhoneNumber)
		if err != nil {
			return search.Page{}, apperr.Validation("invalid phone number format: %s", c.PhoneNumber)
		}
		c.PhoneNumber = phone
	}
	return s.searcher.Search(ctx, c, page, pageSize)
}

// AddToBlacklist blocks phones and returns how many distinct numbers were
// submitted.
func (s *Service) AddToBlacklist(ctx context.Context, phones []string) (int, error) {
	list, err := normalizeBatch(phones)
	if err != nil {
		return 0, err
	}
	if err := s.blacklist.Add(ctx, list); err != nil {
		return 0, err
	}
	return len(list), nil
}

// RemoveFromBlacklist unblocks phones and returns how many distinct numbers
// were submitted.
func (s *Service) RemoveFromBlacklist(ctx context.Context, phones []string) (int, error) {
	list, err := normalizeBatch(phones)
	if err != nil {
		return 0, err
	}
	if err := s.blacklist.Remove(ctx, list); err != nil {
		return 0, err
	}
	return len(list), nil
}

// ListBlacklist returns every blocked number.
func (s *Service) ListBlacklist(ctx context.Context) ([]string, error) {
	return s.blacklist.ListAll(ctx)
}

// newRequestID renders req-<unixMillis>-<8 hex>.
func (s *Service) newRequestID() string {
	return fmt.Sprintf("req-%d-%s", s.now().UnixMilli(), s.suffix())
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func normalizeBatch(phones []string) ([]string, error) {
	if len(phones) == 0 {
		return nil, apperr.Validation("phone numbers list cannot be empty")
	}
	list, err := util.NormalizePhones(phones, 1, MaxBlacklistBatch)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	return list, nil
}
