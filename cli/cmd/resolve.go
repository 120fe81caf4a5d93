package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchwatch/adapter"
	"github.com/pithecene-io/benchwatch/adapter/redis"
	"github.com/pithecene-io/benchwatch/adapter/webhook"
	"github.com/pithecene-io/benchwatch/cli/config"
	"github.com/pithecene-io/benchwatch/cli/render"
	"github.com/pithecene-io/benchwatch/iox"
	"github.com/pithecene-io/benchwatch/log"
)

// runOptions is the resolved configuration of one run or replay.
// Precedence: CLI flag, then config file, then environment, then default.
type runOptions struct {
	backendURL  string
	headers     map[string]string
	idleTimeout time.Duration
	tui         bool
	quiet       bool
	logLevel    log.Level
	logFile     string
	adapter     *adapterChoice
}

// adapterChoice holds the resolved adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
	encoding    string
}

func resolveOptions(c *cli.Context) (*runOptions, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	headers, err := parseHeaders(c.StringSlice("header"))
	if err != nil {
		return nil, fmt.Errorf("invalid --header: %w", err)
	}

	level, err := log.ParseLevel(resolveString(c, "log-level", configVal(cfg, func(f *config.Config) string { return f.Log.Level })))
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}

	opts := &runOptions{
		backendURL:  resolveBackendURL(c, cfg),
		headers:     mergeHeaders(configVal(cfg, func(f *config.Config) map[string]string { return f.Headers }), headers),
		idleTimeout: resolveDuration(c, "idle-timeout", configVal(cfg, func(f *config.Config) time.Duration { return f.IdleTimeout.Duration })),
		tui:         c.Bool("tui"),
		quiet:       c.Bool("quiet"),
		logLevel:    level,
		logFile:     resolveString(c, "log-file", configVal(cfg, func(f *config.Config) string { return f.Log.File })),
	}
	if opts.idleTimeout < 0 {
		return nil, fmt.Errorf("--idle-timeout must not be negative, got %s", opts.idleTimeout)
	}

	adapterType := resolveString(c, "adapter", configVal(cfg, func(f *config.Config) string { return f.Adapter.Type }))
	if adapterType != "" {
		ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
		if err != nil {
			return nil, err
		}
		opts.adapter = ac
	}

	return opts, nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	return config.Load(path)
}

// configVal reads a field from an optional config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag if explicitly set, else the config value,
// else the flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

// resolveInt returns the flag if explicitly set, else the config value if
// present, else the flag default.
func resolveInt(c *cli.Context, name string, cfgVal *int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != nil {
		return *cfgVal
	}
	return c.Int(name)
}

// resolveDuration returns the flag if explicitly set, else a positive config
// value, else the flag default.
func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal > 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// resolveBackendURL applies flag, config, BENCHWATCH_BACKEND_URL, default.
func resolveBackendURL(c *cli.Context, cfg *config.Config) string {
	if c.IsSet("backend-url") {
		return c.String("backend-url")
	}
	if v := configVal(cfg, func(f *config.Config) string { return f.BackendURL }); v != "" {
		return v
	}
	if v := os.Getenv(config.BackendURLEnv); v != "" {
		return v
	}
	return config.DefaultBackendURL
}

// parseHeaders parses repeatable key=value flags.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, kv := range values {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not key=value", kv)
		}
		headers[k] = v
	}
	return headers, nil
}

// mergeHeaders overlays override onto base without modifying either.
func mergeHeaders(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// parseAdapterConfigWithPrecedence resolves adapter settings from flags and
// the config file and validates them for the given type.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (*adapterChoice, error) {
	var fileCfg config.AdapterConfig
	if cfg != nil {
		fileCfg = cfg.Adapter
	}

	flagHeaders, err := parseHeaders(c.StringSlice("adapter-header"))
	if err != nil {
		return nil, fmt.Errorf("invalid --adapter-header: %w", err)
	}

	ac := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", fileCfg.URL),
		channel:     resolveString(c, "adapter-channel", fileCfg.Channel),
		headers:     mergeHeaders(fileCfg.Headers, flagHeaders),
		timeout:     resolveDuration(c, "adapter-timeout", fileCfg.Timeout.Duration),
		retries:     resolveInt(c, "adapter-retries", fileCfg.Retries),
		encoding:    resolveString(c, "adapter-encoding", fileCfg.Encoding),
	}

	switch adapterType {
	case "webhook", "redis":
		if ac.url == "" {
			return nil, fmt.Errorf("--adapter-url is required when --adapter=%s", adapterType)
		}
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", adapterType)
	}
	if ac.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}
	if _, err := adapter.ParseEncoding(ac.encoding); err != nil {
		return nil, fmt.Errorf("invalid --adapter-encoding: %w", err)
	}

	return ac, nil
}

// buildAdapter creates the adapter for a resolved choice. A nil choice
// yields a nil adapter.
func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	if ac == nil {
		return nil, nil
	}
	enc := adapter.Encoding(ac.encoding)
	switch ac.adapterType {
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:      ac.url,
			Headers:  ac.headers,
			Timeout:  ac.timeout,
			Retries:  ac.retries,
			Encoding: enc,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		a, err := redis.New(redis.Config{
			URL:      ac.url,
			Channel:  ac.channel,
			Timeout:  ac.timeout,
			Retries:  ac.retries,
			Encoding: enc,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.adapterType)
	}
}

// buildLogger returns the logger for a run and a func releasing it.
// The TUI owns the terminal, so without a log file its logs are dropped.
func buildLogger(opts *runOptions, stderr io.Writer) (*log.Logger, func(), error) {
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		logger := log.NewLoggerWithWriter(opts.logLevel, f)
		return logger, func() {
			iox.DiscardErr(logger.Sync)
			iox.DiscardClose(f)
		}, nil
	}
	if opts.tui {
		return log.Nop(), func() {}, nil
	}
	logger := log.NewLoggerWithWriter(opts.logLevel, stderr)
	return logger, func() { iox.DiscardErr(logger.Sync) }, nil
}

// newRenderer honors the app writer so output can be captured.
func newRenderer(c *cli.Context) (*render.Renderer, error) {
	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, err
	}
	if w := c.App.Writer; w != nil && w != os.Stdout {
		return render.NewRendererWithWriter(r.Format(), c.Bool("no-color"), w), nil
	}
	return r, nil
}
