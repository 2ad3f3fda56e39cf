package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour the publishers need.
type SyncProducer interface {
	PublishSync(ctx context.Context, topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// ErrProducerNotInitialised exposes the sentinel error for callers and tests.
func ErrProducerNotInitialised() error {
	return errProducerNotInitialised
}

// RequestPublisher writes dispatch requests keyed by phone number, so every
// request for one number lands on the same partition.
type RequestPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewRequestPublisher requires a producer and a topic.
func NewRequestPublisher(prod SyncProducer, topic string, log zerolog.Logger) (*RequestPublisher, error) {
	if err := checkTarget(prod, topic); err != nil {
		return nil, err
	}
	return &RequestPublisher{
		producer: prod,
		topic:    topic,
		logger:   logger.Component(log, "request_publisher"),
	}, nil
}

// PublishRequest writes msg to the request topic synchronously.
func (p *RequestPublisher) PublishRequest(ctx context.Context, msg models.RequestMessage) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal request: %w", err)
	}

	if err := p.producer.PublishSync(ctx, p.topic, []byte(msg.PhoneNumber), headers(ctx), payload); err != nil {
		return fmt.Errorf("kafka publisher: publish request %s: %w", msg.RequestID, err)
	}
	p.logger.Debug().
		Str("request_id", msg.RequestID).
		Str("phone_number", logger.MaskPhone(msg.PhoneNumber)).
		Msg("sms request queued")
	return nil
}

// ResponsePublisher writes response envelopes. Success envelopes are keyed by
// request id; error envelopes are unkeyed.
type ResponsePublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewResponsePublisher requires a producer and a topic.
func NewResponsePublisher(prod SyncProducer, topic string, log zerolog.Logger) (*ResponsePublisher, error) {
	if err := checkTarget(prod, topic); err != nil {
		return nil, err
	}
	return &ResponsePublisher{
		producer: prod,
		topic:    topic,
		logger:   logger.Component(log, "response_publisher"),
	}, nil
}

// PublishResponse writes env to the response topic synchronously.
func (p *ResponsePublisher) PublishResponse(ctx context.Context, env models.ResponseEnvelope) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal response: %w", err)
	}

	if err := p.producer.PublishSync(ctx, p.topic, env.PartitionKey(), headers(ctx), payload); err != nil {
		return fmt.Errorf("kafka publisher: publish response: %w", err)
	}
	return nil
}

func checkTarget(prod SyncProducer, topic string) error {
	if prod == nil {
		return errProducerNotInitialised
	}
	if strings.TrimSpace(topic) == "" {
		return errors.New("kafka publisher: topic is required")
	}
	return nil
}

// headers carries the content type plus the active trace context.
func headers(ctx context.Context) map[string][]byte {
	out := map[string][]byte{
		"content-type": []byte("application/json"),
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		out[k] = []byte(v)
	}
	return out
}

// ExtractContext restores a trace context injected by the publishers.
func ExtractContext(ctx context.Context, recordHeaders map[string][]byte) context.Context {
	if len(recordHeaders) == 0 {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	for k, v := range recordHeaders {
		carrier[k] = string(v)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
