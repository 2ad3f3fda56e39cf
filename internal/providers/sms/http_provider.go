package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
)

const maxResponseBody = 64 << 10

// HTTPClient is the subset of *http.Client the provider uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOption customises the HTTP provider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(c HTTPClient) HTTPOption {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// HTTPProvider posts messages to the aggregator's JSON endpoint.
type HTTPProvider struct {
	url    string
	apiKey string
	client HTTPClient
	now    func() time.Time
	logger zerolog.Logger
}

// NewHTTPProvider builds a provider from cfg. Call timeouts are owned by the
// adapter through the request context.
func NewHTTPProvider(cfg config.ProviderConfig, log zerolog.Logger, opts ...HTTPOption) (*HTTPProvider, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("sms http provider: url is required")
	}
	p := &HTTPProvider{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{},
		now:    time.Now,
		logger: logger.Component(log, "sms_http_provider"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

type wireText struct {
	Text string `json:"text"`
}

type wireChannels struct {
	SMS wireText `json:"sms"`
}

type wireDestination struct {
	MSISDN        []string `json:"msisdn"`
	CorrelationID string   `json:"correlationId"`
}

type wireMessage struct {
	DeliveryChannel string            `json:"deliverychannel"`
	Channels        wireChannels      `json:"channels"`
	Destination     []wireDestination `json:"destination"`
}

// Send performs exactly one POST. Non-2xx answers return the response together
// with a *StatusError.
func (p *HTTPProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("sms http provider: payload is required")
	}

	body, err := json.Marshal([]wireMessage{{
		DeliveryChannel: "sms",
		Channels:        wireChannels{SMS: wireText{Text: payload.Text}},
		Destination: []wireDestination{{
			MSISDN:        []string{payload.PhoneNumber},
			CorrelationID: payload.RequestID,
		}},
	}})
	if err != nil {
		return nil, fmt.Errorf("sms http provider: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sms http provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("key", p.apiKey)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms http provider: post: %w", err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	resp := &RawResponse{
		ID:        payload.RequestID,
		Code:      res.StatusCode,
		Status:    http.StatusText(res.StatusCode),
		Body:      string(raw),
		Timestamp: p.now(),
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		p.logger.Debug().Int("status", res.StatusCode).Str("request_id", payload.RequestID).Msg("provider rejected message")
		return resp, &StatusError{Code: res.StatusCode, Body: resp.Body}
	}
	return resp, nil
}
