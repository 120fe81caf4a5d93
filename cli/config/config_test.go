package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `backend_url: http://bench.internal:9000
idle_timeout: 30s
headers:
  X-Token: abc

log:
  level: debug
  file: /tmp/benchwatch.log

adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: bench:done
  timeout: 2s
  retries: 3
  encoding: msgpack
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "backend_url", cfg.BackendURL, "http://bench.internal:9000")
	if cfg.IdleTimeout.Duration != 30*time.Second {
		t.Errorf("idle_timeout: got %v, want 30s", cfg.IdleTimeout.Duration)
	}
	assertEqual(t, "headers.X-Token", cfg.Headers["X-Token"], "abc")

	assertEqual(t, "log.level", cfg.Log.Level, "debug")
	assertEqual(t, "log.file", cfg.Log.File, "/tmp/benchwatch.log")

	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "redis://localhost:6379/0")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "bench:done")
	assertEqual(t, "adapter.encoding", cfg.Adapter.Encoding, "msgpack")
	if cfg.Adapter.Timeout.Duration != 2*time.Second {
		t.Errorf("adapter.timeout: got %v, want 2s", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("adapter.retries: got %v, want 3", cfg.Adapter.Retries)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for empty config: %v", err)
	}
	if cfg.BackendURL != "" || cfg.IdleTimeout.Duration != 0 {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/benchwatch.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error should say not found, got: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "backend_url: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BENCH_HOST", "bench.example.com")
	path := writeTemp(t, "backend_url: https://${BENCH_HOST}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "backend_url", cfg.BackendURL, "https://bench.example.com")
}

func TestLoad_EnvDefault(t *testing.T) {
	path := writeTemp(t, "backend_url: ${UNSET_BENCH_URL_12345:-http://localhost:8000}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "backend_url", cfg.BackendURL, DefaultBackendURL)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeTemp(t, "backend_url: http://x\nbogus_key: should_fail\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://example.com
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
	if cfg.BackendURL != "" {
		t.Errorf("expected empty backend_url, got %q", cfg.BackendURL)
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	path := writeTemp(t, "adapter:\n  type: webhook\n  url: https://example.com\n  retries: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("retries: 0 should not be nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Adapter.Retries)
	}
}

func TestLoad_RetriesOmittedIsNil(t *testing.T) {
	path := writeTemp(t, "adapter:\n  type: webhook\n  url: https://example.com\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries != nil {
		t.Errorf("omitted retries should be nil, got %d", *cfg.Adapter.Retries)
	}
}

func TestDuration_Invalid(t *testing.T) {
	tests := []string{"idle_timeout: not-a-duration\n", "idle_timeout: -5s\n"}
	for _, yaml := range tests {
		if _, err := Load(writeTemp(t, yaml)); err == nil {
			t.Errorf("expected error for %q", yaml)
		}
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	cfg, err := Load(writeTemp(t, "idle_timeout: \"\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IdleTimeout.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.IdleTimeout.Duration)
	}
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:8000", "http://localhost:8000/performance/search", false},
		{"http://localhost:8000/", "http://localhost:8000/performance/search", false},
		{"https://bench.example.com/api", "https://bench.example.com/api/performance/search", false},
		{" http://h:1 ", "http://h:1/performance/search", false},
		{"localhost:8000", "", true},
		{"ftp://host", "", true},
		{"http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := StreamURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StreamURL(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StreamURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "benchwatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
