// Package metrics provides per-process counters for benchmark sessions.
//
// The Collector accumulates counters across the runs of one process. It is a
// leaf package with no internal dependencies; failure causes are passed as
// plain strings to keep it free of the types package.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64            `json:"runs_started" yaml:"runs_started"`
	RunsCompleted int64            `json:"runs_completed" yaml:"runs_completed"`
	RunsFailed    int64            `json:"runs_failed" yaml:"runs_failed"`
	FailedByCause map[string]int64 `json:"failed_by_cause,omitempty" yaml:"failed_by_cause,omitempty"`

	// Stream
	SnapshotsReceived int64 `json:"snapshots_received" yaml:"snapshots_received"`
	MessagesIgnored   int64 `json:"messages_ignored" yaml:"messages_ignored"`
	DecodeErrors      int64 `json:"decode_errors" yaml:"decode_errors"`

	// Adapter
	PublishSuccess int64 `json:"publish_success" yaml:"publish_success"`
	PublishFailure int64 `json:"publish_failure" yaml:"publish_failure"`

	// Dimensions (informational, set at construction)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// Collector accumulates counters across runs.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsCompleted int64
	runsFailed    int64
	failedByCause map[string]int64

	snapshotsReceived int64
	messagesIgnored   int64
	decodeErrors      int64

	publishSuccess int64
	publishFailure int64

	endpoint string
}

// NewCollector creates a Collector labelled with the stream endpoint.
func NewCollector(endpoint string) *Collector {
	return &Collector{
		failedByCause: make(map[string]int64),
		endpoint:      endpoint,
	}
}

// --- Run lifecycle ---

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunCompleted records a run that reached its terminal result.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCompleted++
	c.mu.Unlock()
}

// IncRunFailed records a run that ended in error with the given cause.
func (c *Collector) IncRunFailed(cause string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsFailed++
	c.failedByCause[cause]++
	c.mu.Unlock()
}

// --- Stream ---

// IncSnapshotReceived records an accepted progress snapshot.
func (c *Collector) IncSnapshotReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.snapshotsReceived++
	c.mu.Unlock()
}

// IncMessageIgnored records a named event that was not a message.
func (c *Collector) IncMessageIgnored() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesIgnored++
	c.mu.Unlock()
}

// IncDecodeError records a payload that failed to decode.
func (c *Collector) IncDecodeError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
}

// --- Adapter ---
// Publish counters are per-call; webhook retries within one call count once.

// IncPublishSuccess records a successful completion publish.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishSuccess++
	c.mu.Unlock()
}

// IncPublishFailure records a failed completion publish.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byCause := make(map[string]int64, len(c.failedByCause))
	for k, v := range c.failedByCause {
		byCause[k] = v
	}

	return Snapshot{
		RunsStarted:   c.runsStarted,
		RunsCompleted: c.runsCompleted,
		RunsFailed:    c.runsFailed,
		FailedByCause: byCause,

		SnapshotsReceived: c.snapshotsReceived,
		MessagesIgnored:   c.messagesIgnored,
		DecodeErrors:      c.decodeErrors,

		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		Endpoint: c.endpoint,
	}
}
