// Package redis publishes benchmark completion events on a Redis pub/sub
// channel.
//
// The channel name may contain an {outcome} placeholder, which expands to
// "completed" or "error" so subscribers can listen for failures alone.
// Connection failures are retried; error replies from the server are not.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/benchwatch/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "benchwatch:run_completed"

// OutcomePlaceholder in a channel name is replaced with the event outcome.
const OutcomePlaceholder = "{outcome}"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel, optionally with {outcome}
	// (default: benchwatch:run_completed).
	Channel string
	// Timeout bounds each PUBLISH (default 5s).
	Timeout time.Duration
	// Retries is the number of attempts after the first.
	Retries int
	// Encoding of the published message (default json).
	Encoding adapter.Encoding
}

// Adapter publishes run completion events via Redis PUBLISH.
type Adapter struct {
	channel  string
	timeout  time.Duration
	retries  int
	encoding adapter.Encoding
	client   *goredis.Client
}

// New validates cfg and connects lazily to the server.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	enc, err := adapter.ParseEncoding(string(cfg.Encoding))
	if err != nil {
		return nil, fmt.Errorf("redis adapter: %w", err)
	}

	a := &Adapter{
		channel:  cfg.Channel,
		timeout:  cfg.Timeout,
		retries:  cfg.Retries,
		encoding: enc,
		client:   goredis.NewClient(opts),
	}
	if a.channel == "" {
		a.channel = DefaultChannel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	return a, nil
}

// ChannelFor returns the channel an event is published on.
func (a *Adapter) ChannelFor(event *adapter.RunCompletedEvent) string {
	return strings.ReplaceAll(a.channel, OutcomePlaceholder, event.Outcome)
}

// Publish sends the encoded event to its channel.
func (a *Adapter) Publish(ctx context.Context, event *adapter.RunCompletedEvent) error {
	return adapter.Deliver(ctx, "redis", event, a.encoding, a.retries, func(ctx context.Context, body []byte) error {
		return a.publishOnce(ctx, a.ChannelFor(event), body)
	})
}

func (a *Adapter) publishOnce(ctx context.Context, channel string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.client.Publish(ctx, channel, body).Err()
	if err == nil {
		return nil
	}
	// The server answered; resending the same command gets the same reply.
	var reply goredis.Error
	if errors.As(err, &reply) || errors.Is(err, goredis.ErrClosed) {
		return adapter.Permanent(err)
	}
	return err
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
