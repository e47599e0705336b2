package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"settlement-ledger/internal/core/domain"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/hkdf"
)

// webhookRetryIntervals is the default backoff between delivery attempts.
var webhookRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// Webhook headers.
const (
	HeaderWebhookSignature = "X-Ledger-Signature"
	HeaderWebhookEvent     = "X-Ledger-Event"
	HeaderWebhookSequence  = "X-Ledger-Sequence"
)

// WebhookPayload is the JSON body POSTed to every endpoint.
type WebhookPayload struct {
	EventType domain.EventType        `json:"event_type"`
	EventID   string                  `json:"event_id"`
	Sequence  uint64                  `json:"sequence"`
	Data      domain.PaymentCompleted `json:"data"`
	CreatedAt time.Time               `json:"created_at"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type webhookEndpoint struct {
	url string
	key []byte
}

// WebhookPublisher implements ports.EventPublisher by POSTing events to
// the configured endpoints. Each endpoint gets its own signing key,
// derived from the shared secret, so one leaked key does not expose the
// others.
type WebhookPublisher struct {
	endpoints  []webhookEndpoint
	signer     HMACSigner
	httpClient HTTPClient
	retries    []time.Duration
	log        zerolog.Logger
	wg         sync.WaitGroup
}

// NewWebhookPublisher creates a publisher for urls signed with keys
// derived from secret.
func NewWebhookPublisher(urls []string, secret string, httpClient HTTPClient, log zerolog.Logger) (*WebhookPublisher, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	p := &WebhookPublisher{
		httpClient: httpClient,
		retries:    webhookRetryIntervals,
		log:        log,
	}
	for _, u := range urls {
		key, err := DeriveWebhookKey(secret, u)
		if err != nil {
			return nil, err
		}
		p.endpoints = append(p.endpoints, webhookEndpoint{url: u, key: key})
	}
	return p, nil
}

// WithRetryIntervals overrides the backoff schedule.
func (p *WebhookPublisher) WithRetryIntervals(intervals []time.Duration) *WebhookPublisher {
	p.retries = intervals
	return p
}

// DeriveWebhookKey returns the HMAC key an endpoint verifies signatures with.
func DeriveWebhookKey(secret, url string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("webhook:"+url))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive webhook key: %w", err)
	}
	return key, nil
}

// Name implements ports.EventPublisher.
func (p *WebhookPublisher) Name() string { return "webhook" }

// Publish queues ev for delivery to every endpoint and returns at once.
func (p *WebhookPublisher) Publish(_ context.Context, ev *domain.Event) error {
	body, err := json.Marshal(WebhookPayload{
		EventType: ev.Type,
		EventID:   ev.ID.String(),
		Sequence:  ev.Sequence,
		Data:      ev.Payload,
		CreatedAt: ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	for _, ep := range p.endpoints {
		sig := p.signer.Sign(ep.key, body)
		p.wg.Add(1)
		go func(ep webhookEndpoint) {
			defer p.wg.Done()
			p.deliverWithRetries(ep.url, body, sig, ev)
		}(ep)
	}
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (p *WebhookPublisher) Wait() {
	p.wg.Wait()
}

// deliverWithRetries attempts to deliver the webhook, backing off between
// attempts.
func (p *WebhookPublisher) deliverWithRetries(url string, body []byte, signature string, ev *domain.Event) {
	evID := ev.ID.String()
	for attempt := 0; attempt <= len(p.retries); attempt++ {
		if attempt > 0 {
			time.Sleep(p.retries[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			p.log.Error().Err(err).Str("event_id", evID).Str("url", url).Msg("webhook: failed to create request")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderWebhookSignature, signature)
		req.Header.Set(HeaderWebhookEvent, string(ev.Type))
		req.Header.Set(HeaderWebhookSequence, strconv.FormatUint(ev.Sequence, 10))

		resp, err := p.httpClient.Do(req)
		if err != nil {
			p.log.Warn().Err(err).Str("event_id", evID).Int("attempt", attempt+1).Msg("webhook: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.log.Info().Str("event_id", evID).Str("url", url).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("webhook: delivered successfully")
			return
		}

		p.log.Warn().Str("event_id", evID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("webhook: non-2xx response, retrying")
	}

	p.log.Error().Str("event_id", evID).Str("url", url).Msg("webhook: all retry attempts exhausted")
}
