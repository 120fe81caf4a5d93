// Package webhook delivers benchmark completion events by HTTP POST.
//
// Each request carries the run id as an Idempotency-Key so receivers can
// drop duplicates produced by retries. Timeouts, 429 and 5xx responses are
// retried; any other non-2xx status ends delivery.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pithecene-io/benchwatch/adapter"
	"github.com/pithecene-io/benchwatch/iox"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Headers set on every delivery, after any configured headers.
const (
	HeaderIdempotencyKey  = "Idempotency-Key"
	HeaderOutcome         = "X-Benchwatch-Outcome"
	HeaderContractVersion = "X-Benchwatch-Contract-Version"
)

// Config configures the webhook adapter.
type Config struct {
	// URL is the http or https endpoint to POST to (required).
	URL string
	// Headers are extra request headers, such as an auth token.
	Headers map[string]string
	// Timeout bounds each request (default 10s).
	Timeout time.Duration
	// Retries is the number of attempts after the first.
	Retries int
	// Encoding of the request body (default json).
	Encoding adapter.Encoding
}

// Adapter posts run completion events to one URL.
type Adapter struct {
	target   string
	headers  map[string]string
	retries  int
	encoding adapter.Encoding
	client   *http.Client
}

// New validates cfg and returns an adapter.
func New(cfg Config) (*Adapter, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || cfg.URL == "" {
		return nil, fmt.Errorf("webhook adapter requires a URL, got %q", cfg.URL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("webhook URL %q must be http or https with a host", cfg.URL)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	enc, err := adapter.ParseEncoding(string(cfg.Encoding))
	if err != nil {
		return nil, fmt.Errorf("webhook adapter: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Adapter{
		target:   u.String(),
		headers:  cfg.Headers,
		retries:  cfg.Retries,
		encoding: enc,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Publish POSTs the encoded event.
func (a *Adapter) Publish(ctx context.Context, event *adapter.RunCompletedEvent) error {
	return adapter.Deliver(ctx, "webhook", event, a.encoding, a.retries, func(ctx context.Context, body []byte) error {
		return a.post(ctx, event, body)
	})
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retriable reports whether the receiver may accept the same event later.
func (e *StatusError) Retriable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

func (a *Adapter) contentType() string {
	if a.encoding == adapter.EncodingMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// post makes one request. Non-retriable statuses come back permanent.
func (a *Adapter) post(ctx context.Context, event *adapter.RunCompletedEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.target, bytes.NewReader(body))
	if err != nil {
		return adapter.Permanent(fmt.Errorf("create request: %w", err))
	}

	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", a.contentType())
	req.Header.Set(HeaderIdempotencyKey, event.RunID)
	req.Header.Set(HeaderOutcome, event.Outcome)
	req.Header.Set(HeaderContractVersion, event.ContractVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := &StatusError{Code: resp.StatusCode}
	if statusErr.Retriable() {
		return statusErr
	}
	return adapter.Permanent(statusErr)
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// IsStatus reports whether err carries an HTTP status error with code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

var _ adapter.Adapter = (*Adapter)(nil)
