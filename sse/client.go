package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pithecene-io/benchwatch/iox"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// ClientConfig configures a stream client.
type ClientConfig struct {
	// URL is the event stream endpoint (required).
	URL string
	// Headers are added to the subscription request.
	Headers map[string]string
	// HTTPClient overrides the default instrumented client.
	// It must not set a Timeout, which would cut long streams.
	HTTPClient *http.Client
}

// Client opens event stream subscriptions against one endpoint.
type Client struct {
	config ClientConfig
	http   *http.Client
}

// NewClient creates a client for the given endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("sse client requires a URL")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return operation + " " + r.URL.Path
			}),
		)}
	}

	return &Client{config: cfg, http: httpClient}, nil
}

// URL returns the endpoint this client subscribes to.
func (c *Client) URL() string {
	return c.config.URL
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// ContentTypeError is returned when the endpoint does not serve an event stream.
type ContentTypeError struct {
	Got string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unexpected content type %q, want %s", e.Got, ContentType)
}

// Open subscribes to the endpoint and returns the open stream.
// Cancelling ctx aborts the request and any pending read.
func (c *Client) Open(ctx context.Context) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", ContentType)
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		iox.DiscardClose(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != ContentType {
		iox.DiscardClose(resp.Body)
		return nil, &ContentTypeError{Got: resp.Header.Get("Content-Type")}
	}

	return NewStream(resp.Body), nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
