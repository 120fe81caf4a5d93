package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultBackendURL is used when neither flags, config nor environment set one.
const DefaultBackendURL = "http://localhost:8000"

// BackendURLEnv is consulted when no backend URL is configured.
const BackendURLEnv = "BENCHWATCH_BACKEND_URL"

// SearchPath is the benchmark stream endpoint relative to the backend URL.
const SearchPath = "/performance/search"

// Config represents a benchwatch.yaml configuration file.
// All values are optional and act as defaults for benchwatch run flags.
// CLI flags always override config values.
type Config struct {
	BackendURL  string            `yaml:"backend_url"`
	IdleTimeout Duration          `yaml:"idle_timeout"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Log         LogConfig         `yaml:"log"`
	Adapter     AdapterConfig     `yaml:"adapter"`
}

// LogConfig holds logging defaults from the config file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AdapterConfig holds run-completion adapter defaults from the config file.
type AdapterConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
	Encoding string            `yaml:"encoding,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}

// StreamURL joins a backend base URL with SearchPath.
// The base must be an absolute http or https URL.
func StreamURL(backendURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(backendURL))
	if err != nil {
		return "", fmt.Errorf("invalid backend URL %q: %w", backendURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid backend URL %q: scheme must be http or https", backendURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend URL %q: missing host", backendURL)
	}
	return u.JoinPath(SearchPath).String(), nil
}
