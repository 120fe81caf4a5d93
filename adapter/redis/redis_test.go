package redis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/benchwatch/adapter"
	"github.com/pithecene-io/benchwatch/iox"
	"github.com/pithecene-io/benchwatch/types"
)

var finishedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func completedRun() *adapter.RunCompletedEvent {
	return adapter.NewRunCompletedEvent("run-001", "http://localhost:8000/performance/search",
		types.Completed(&types.FinalResult{
			Phase:                types.PhaseCompleted,
			TotalExecutionTimeMs: 1500,
			P50Ms:                10,
			P95Ms:                45,
			P99Ms:                80,
			UnitsExecuted:        10,
			ResultsCount:         1000000,
		}), 1500*time.Millisecond, finishedAt)
}

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))
	return a
}

// subscribe listens on channel and returns the first message it receives.
// miniredis delivers synchronously, so the reader must run before Publish.
func subscribe(mr *miniredis.Miniredis, channel string) <-chan miniredis.PubsubMessage {
	sub := mr.NewSubscriber()
	sub.Subscribe(channel)
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestPublish_CompletedRunCarriesPercentiles(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newAdapter(t, Config{URL: "redis://" + mr.Addr()})
	ch := subscribe(mr, DefaultChannel)

	if err := a.Publish(t.Context(), completedRun()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	var payload map[string]any
	if err := json.Unmarshal([]byte(msg.Message), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["event_type"] != adapter.EventType || payload["run_id"] != "run-001" {
		t.Errorf("event = %v", payload)
	}
	for field, want := range map[string]float64{"p50_ms": 10, "p95_ms": 45, "p99_ms": 80, "results_count": 1000000} {
		if payload[field] != want {
			t.Errorf("%s = %v, want %v", field, payload[field], want)
		}
	}
}

func TestPublish_OutcomeChannels(t *testing.T) {
	tests := []struct {
		name    string
		state   types.RunState
		channel string
		cause   string
	}{
		{"decode failure", types.Failed(types.CauseDecode), "bench:error", "decode"},
		{"stalled", types.Failed(types.CauseStalled), "bench:error", "stalled"},
		{"completed", types.Completed(&types.FinalResult{Phase: types.PhaseCompleted, UnitsExecuted: 1}), "bench:completed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			a := newAdapter(t, Config{URL: "redis://" + mr.Addr(), Channel: "bench:" + OutcomePlaceholder})
			ch := subscribe(mr, tt.channel)

			ev := adapter.NewRunCompletedEvent("run-9", "e", tt.state, time.Second, finishedAt)
			if err := a.Publish(t.Context(), ev); err != nil {
				t.Fatalf("publish: %v", err)
			}

			msg := waitMessage(t, ch)
			if msg.Channel != tt.channel {
				t.Errorf("channel = %q, want %q", msg.Channel, tt.channel)
			}
			var got adapter.RunCompletedEvent
			if err := json.Unmarshal([]byte(msg.Message), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.ErrorCause != tt.cause {
				t.Errorf("error_cause = %q, want %q", got.ErrorCause, tt.cause)
			}
			if tt.cause != "" && got.P50Ms != nil {
				t.Error("failed run carries p50")
			}
		})
	}
}

func TestPublish_MsgpackBody(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newAdapter(t, Config{URL: "redis://" + mr.Addr(), Encoding: adapter.EncodingMsgpack})
	ch := subscribe(mr, DefaultChannel)

	if err := a.Publish(t.Context(), completedRun()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var ev adapter.RunCompletedEvent
	if err := msgpack.Unmarshal([]byte(waitMessage(t, ch).Message), &ev); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	if ev.P95Ms == nil || *ev.P95Ms != 45 || ev.Outcome != "completed" {
		t.Errorf("decoded = %+v", ev)
	}
}

func TestPublish_ServerErrorReplyIsPermanent(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.SetError("NOPERM this user has no permissions to access the channel")
	a := newAdapter(t, Config{URL: "redis://" + mr.Addr(), Retries: 3})

	start := time.Now()
	err := a.Publish(t.Context(), completedRun())
	if !adapter.IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
	if elapsed := time.Since(start); elapsed > adapter.Backoff(1) {
		t.Errorf("server error reply was retried (took %v)", elapsed)
	}
}

func TestPublish_UnreachableServerRetried(t *testing.T) {
	a := newAdapter(t, Config{URL: "redis://127.0.0.1:1", Retries: 1, Timeout: 100 * time.Millisecond})

	err := a.Publish(t.Context(), completedRun())
	if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("error = %v", err)
	}
	if adapter.IsPermanent(err) {
		t.Error("connection failure reported permanent")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	a := newAdapter(t, Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, completedRun()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestPublish_AfterCloseIsPermanent(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := a.Publish(t.Context(), completedRun()); !adapter.IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
}

func TestPublish_InvalidEventRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newAdapter(t, Config{URL: "redis://" + mr.Addr()})

	ev := completedRun()
	ev.Outcome = "error"
	if err := a.Publish(t.Context(), ev); !adapter.IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{"missing url", Config{}, "requires a URL"},
		{"invalid url", Config{URL: "not-a-redis-url"}, "invalid URL"},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -1}, "retries must be >= 0"},
		{"unknown encoding", Config{URL: "redis://localhost:6379", Encoding: "xml"}, "invalid encoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Fatalf("error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	a := newAdapter(t, Config{URL: "redis://localhost:6379"})
	if a.channel != DefaultChannel || a.timeout != DefaultTimeout {
		t.Errorf("channel/timeout = %q/%v", a.channel, a.timeout)
	}
	if got := a.ChannelFor(completedRun()); got != DefaultChannel {
		t.Errorf("ChannelFor = %q, want %q", got, DefaultChannel)
	}
}
