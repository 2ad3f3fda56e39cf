package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	common "github.com/ajayykmr/sms-dispatch-service/internal/adapters/common"
	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/blacklist"
	"github.com/ajayykmr/sms-dispatch-service/internal/kafka/publisher"
	"github.com/ajayykmr/sms-dispatch-service/internal/ledger"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/metrics"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/observability"
)

const (
	commentsSent        = "SMS sent successfully"
	msgMissingRequestID = "Request ID cannot be null or empty"
	msgInvalidPayload   = "Invalid SMS request payload"
	msgBlacklisted      = "Phone number is blacklisted"
	msgRateLimited      = "Rate limit exceeded for phone number"
	processingPrefix    = "Error processing SMS request: "

	// settleTimeout bounds each ledger write, publish and commit. Those run
	// detached from the consumer session context.
	settleTimeout = 5 * time.Second
)

// Config holds the engine's runtime limits.
type Config struct {
	MsgMaxBytes int
	Concurrency int
}

// Gate answers blacklist membership.
type Gate interface {
	Check(ctx context.Context, phone string) blacklist.Verdict
}

// Ledger is the part of the request ledger the engine writes to.
type Ledger interface {
	FindByRequestID(ctx context.Context, requestID string) (*models.DispatchRequest, error)
	FindLatestByPhoneNumber(ctx context.Context, phone string) (*models.DispatchRequest, error)
	UpdateStatus(ctx context.Context, id uint, upd ledger.StatusUpdate) (*models.DispatchRequest, error)
}

// ResponsePublisher emits response envelopes.
type ResponsePublisher interface {
	PublishResponse(ctx context.Context, env models.ResponseEnvelope) error
}

// Limiter throttles dispatches per phone number.
type Limiter interface {
	Allow(phone string) bool
}

// Committer acknowledges a record to the queue.
type Committer interface {
	Commit(ctx context.Context, record *Record) error
}

// Dependencies collects the engine's collaborators. Limiter is optional.
type Dependencies struct {
	Gate      Gate
	Gateway   common.Gateway
	Ledger    Ledger
	Publisher ResponsePublisher
	Limiter   Limiter
	Committer Committer
	Logger    zerolog.Logger
}

// Engine runs every request record through
// RECEIVED -> VALIDATED -> GATED -> DISPATCHED -> RECORDED -> ACKNOWLEDGED.
// Every record is acknowledged once handling completes, whatever the outcome.
type Engine struct {
	cfg       Config
	gate      Gate
	gateway   common.Gateway
	ledger    Ledger
	publisher ResponsePublisher
	limiter   Limiter
	committer Committer
	logger    zerolog.Logger
	tracer    trace.Tracer

	semaphore *semaphore.Weighted
}

// NewEngine validates cfg and deps and builds an engine.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.Concurrency < 1 {
		return nil, errors.New("worker: concurrency must be >= 1")
	}
	if cfg.MsgMaxBytes < 0 {
		return nil, errors.New("worker: msg max bytes cannot be negative")
	}
	if deps.Gate == nil {
		return nil, errors.New("worker: blacklist gate dependency is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("worker: gateway dependency is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("worker: ledger dependency is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("worker: response publisher dependency is required")
	}
	if deps.Committer == nil {
		return nil, errors.New("worker: committer dependency is required")
	}

	return &Engine{
		cfg:       cfg,
		gate:      deps.Gate,
		gateway:   deps.Gateway,
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		limiter:   deps.Limiter,
		committer: deps.Committer,
		logger:    logger.Component(deps.Logger, "worker_engine"),
		tracer:    otel.Tracer(observability.TracerName),
		semaphore: semaphore.NewWeighted(int64(cfg.Concurrency)),
	}, nil
}

// HandleRecord processes one record synchronously and acknowledges it. The
// caller's partition loop is blocked for the duration, which keeps records of
// one partition in order; the semaphore bounds work across partitions.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) Outcome {
	if record == nil {
		return Outcome{Kind: KindErrored, Stage: StageReceived, Code: apperr.CodeProcessingError, Reason: "nil record"}
	}

	if err := e.semaphore.Acquire(ctx, 1); err != nil {
		// shutting down: leave the offset uncommitted so the record is redelivered
		e.logger.Warn().
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: context cancelled before processing; record left for redelivery")
		return Outcome{Kind: KindErrored, Stage: StageReceived, Code: apperr.CodeProcessingError, Reason: err.Error()}
	}
	defer e.semaphore.Release(1)

	ctx = publisher.ExtractContext(ctx, record.Headers)
	ctx, span := e.tracer.Start(ctx, "worker.HandleRecord", trace.WithAttributes(
		attribute.String("messaging.destination", record.Topic),
		attribute.Int("messaging.partition", int(record.Partition)),
		attribute.Int64("messaging.offset", record.Offset),
	))
	defer span.End()

	start := time.Now()
	out := e.process(ctx, record)
	out.Stage = StageAcknowledged
	e.commitRecord(ctx, record)

	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	metrics.MessagesProcessed.WithLabelValues(out.Kind.String(), out.Code).Inc()
	span.SetAttributes(attribute.String("sms.outcome", out.Kind.String()), attribute.String("sms.code", out.Code))

	e.logger.Info().
		Str("request_id", out.RequestID).
		Str("outcome", out.Kind.String()).
		Str("code", out.Code).
		Int32("partition", record.Partition).
		Int64("offset", record.Offset).
		Dur("elapsed", time.Since(start)).
		Msg("worker: record handled")
	return out
}

func (e *Engine) process(ctx context.Context, record *Record) (out Outcome) {
	stage := StageReceived
	var req models.RequestMessage

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprint(r)
			e.logger.Error().
				Str("request_id", req.RequestID).
				Str("stage", stage.String()).
				Interface("panic", r).
				Msg("worker: recovered from panic while processing record")
			e.markFailed(ctx, req, apperr.CodeProcessingError, processingPrefix+reason)
			e.publish(ctx, models.ErrorEnvelope(apperr.CodeProcessingError, processingPrefix+reason))
			out = errored(stage, req.RequestID, apperr.CodeProcessingError, reason)
		}
	}()

	if e.cfg.MsgMaxBytes > 0 && len(record.Value) > e.cfg.MsgMaxBytes {
		reason := fmt.Sprintf("payload exceeds maximum size: got %d bytes, limit %d bytes", len(record.Value), e.cfg.MsgMaxBytes)
		e.publish(ctx, models.ErrorEnvelope(apperr.CodeInvalidRequest, msgInvalidPayload))
		return rejected(stage, "", apperr.CodeInvalidRequest, reason)
	}
	if err := json.Unmarshal(record.Value, &req); err != nil {
		e.logger.Warn().Err(err).Int64("offset", record.Offset).Msg("worker: undecodable request payload")
		e.publish(ctx, models.ErrorEnvelope(apperr.CodeInvalidRequest, msgInvalidPayload))
		return rejected(stage, "", apperr.CodeInvalidRequest, err.Error())
	}
	if strings.TrimSpace(req.RequestID) == "" {
		e.publish(ctx, models.ErrorEnvelope(apperr.CodeInvalidRequest, msgMissingRequestID))
		return rejected(stage, "", apperr.CodeInvalidRequest, msgMissingRequestID)
	}
	stage = StageValidated
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("sms.request_id", req.RequestID))

	verdict := e.gate.Check(ctx, req.PhoneNumber)
	if verdict.Degraded {
		e.logger.Warn().
			Str("request_id", req.RequestID).
			Str("phone_number", logger.MaskPhone(req.PhoneNumber)).
			Msg("worker: blacklist unavailable; dispatching without gate")
	}
	if verdict.Blocked {
		e.logger.Warn().
			Str("request_id", req.RequestID).
			Str("phone_number", logger.MaskPhone(req.PhoneNumber)).
			Msg("worker: sms request rejected, phone number is blacklisted")
		e.markFailed(ctx, req, apperr.CodeBlacklisted, msgBlacklisted)
		e.publish(ctx, models.ErrorEnvelope(apperr.CodeBlacklisted, msgBlacklisted))
		return rejected(stage, req.RequestID, apperr.CodeBlacklisted, msgBlacklisted)
	}
	if e.limiter != nil && !e.limiter.Allow(req.PhoneNumber) {
		metrics.RateLimited.Inc()
		e.markFailed(ctx, req, apperr.CodeRateLimitExceeded, msgRateLimited)
		e.publish(ctx, models.ErrorEnvelope(apperr.CodeRateLimitExceeded, msgRateLimited))
		return rejected(stage, req.RequestID, apperr.CodeRateLimitExceeded, msgRateLimited)
	}
	stage = StageGated

	result, err := e.gateway.Send(ctx, req.PhoneNumber, req.Message, req.RequestID)
	stage = StageDispatched
	if err != nil {
		message := processingPrefix + err.Error()
		e.logger.Error().
			Err(err).
			Str("request_id", req.RequestID).
			Str("phone_number", logger.MaskPhone(req.PhoneNumber)).
			Msg("worker: error processing sms request")
		e.markFailed(ctx, req, apperr.CodeProcessingError, message)
		e.publish(ctx, models.ErrorEnvelope(apperr.CodeProcessingError, message))
		return errored(stage, req.RequestID, apperr.CodeProcessingError, err.Error())
	}

	if !result.Success {
		code := result.Code
		if code == "" {
			code = apperr.CodeProviderError
		}
		e.markFailed(ctx, req, code, result.Message)
		stage = StageRecorded
		e.publish(ctx, models.ErrorEnvelope(code, result.Message))
		return errored(stage, req.RequestID, code, result.Message)
	}

	row := e.record(ctx, req, ledger.StatusUpdate{Status: models.StatusSent, ExternalMessageID: req.RequestID})
	stage = StageRecorded
	data := models.SuccessData{RequestID: req.RequestID, Comments: commentsSent, PhoneNumber: req.PhoneNumber}
	if row != nil {
		id := row.ID
		data.ID = &id
	}
	e.publish(ctx, models.SuccessEnvelope(data))
	return Outcome{Kind: KindDelivered, Stage: stage, RequestID: req.RequestID, LedgerID: data.ID}
}

func (e *Engine) markFailed(ctx context.Context, req models.RequestMessage, code, comments string) {
	if req.RequestID == "" && req.PhoneNumber == "" {
		return
	}
	e.record(ctx, req, ledger.StatusUpdate{Status: models.StatusFailed, FailureCode: code, FailureComments: comments})
}

// record correlates req with its ledger row and applies upd. Failures,
// panics included, are logged and counted; the returned row is nil when no
// row was found.
func (e *Engine) record(ctx context.Context, req models.RequestMessage, upd ledger.StatusUpdate) (row *models.DispatchRequest) {
	ctx, cancel := settle(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			metrics.LedgerUpdateFailures.Inc()
			e.logger.Error().
				Interface("panic", r).
				Str("request_id", req.RequestID).
				Str("status", string(upd.Status)).
				Msg("worker: recovered from panic during ledger update")
		}
	}()

	row = e.correlate(ctx, req)
	if row == nil {
		return nil
	}
	if _, err := e.ledger.UpdateStatus(ctx, row.ID, upd); err != nil {
		metrics.LedgerUpdateFailures.Inc()
		e.logger.Warn().
			Err(err).
			Uint("ledger_id", row.ID).
			Str("request_id", req.RequestID).
			Str("status", string(upd.Status)).
			Msg("worker: ledger status update failed")
	}
	return row
}

func (e *Engine) correlate(ctx context.Context, req models.RequestMessage) *models.DispatchRequest {
	if req.RequestID != "" {
		row, err := e.ledger.FindByRequestID(ctx, req.RequestID)
		if err == nil {
			return row
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			metrics.LedgerUpdateFailures.Inc()
			e.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("worker: ledger lookup by request id failed")
			return nil
		}
	}
	if req.PhoneNumber == "" {
		return nil
	}
	row, err := e.ledger.FindLatestByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			metrics.LedgerUpdateFailures.Inc()
			e.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("worker: ledger lookup by phone failed")
		}
		return nil
	}
	return row
}

func (e *Engine) publish(ctx context.Context, env models.ResponseEnvelope) {
	ctx, cancel := settle(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("worker: recovered from panic while publishing response envelope")
		}
	}()
	if err := e.publisher.PublishResponse(ctx, env); err != nil {
		e.logger.Error().Err(err).Msg("worker: failed to publish response envelope")
	}
}

func (e *Engine) commitRecord(ctx context.Context, record *Record) {
	ctx, cancel := settle(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Int64("offset", record.Offset).Msg("worker: recovered from panic while committing record")
		}
	}()
	if err := e.committer.Commit(ctx, record); err != nil {
		e.logger.Error().
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: failed to commit record offset")
	}
}

// settle detaches ctx from cancellation, keeping its values and trace, and
// bounds it with settleTimeout.
func settle(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}
