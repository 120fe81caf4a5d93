package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pithecene-io/benchwatch/decode"
	"github.com/pithecene-io/benchwatch/iox"
	"github.com/pithecene-io/benchwatch/log"
	"github.com/pithecene-io/benchwatch/metrics"
	"github.com/pithecene-io/benchwatch/sse"
	"github.com/pithecene-io/benchwatch/types"
)

// Observer is notified with the new state after every transition.
//
// Observers are called one at a time, in transition order, and never
// concurrently. They must not call Start or Close synchronously.
type Observer func(types.RunState)

// Config configures a Controller.
type Config struct {
	// Dialer opens the stream for each run (required).
	Dialer Dialer
	// Endpoint labels log entries. Optional.
	Endpoint string
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// Collector is optional; a nil collector records nothing.
	Collector *metrics.Collector
	// IdleTimeout fails a run with a stalled error when no message arrives
	// for that long. Zero disables it.
	IdleTimeout time.Duration
}

// Controller owns at most one run at a time and its state.
type Controller struct {
	dialer      Dialer
	logger      *log.Logger
	collector   *metrics.Collector
	idleTimeout time.Duration

	mu        sync.Mutex
	state     types.RunState
	run       *run
	observers []observerEntry
	nextObsID int
	pending   []types.RunState

	// notifyMu serializes observer delivery. It is never acquired while
	// holding mu.
	notifyMu sync.Mutex
}

type observerEntry struct {
	id int
	fn Observer
}

// run is the bookkeeping for one stream subscription.
// All fields except id, done, cancel and span are guarded by Controller.mu.
type run struct {
	id       string
	cancel   context.CancelFunc
	done     chan struct{}
	span     trace.Span
	stream   EventStream
	timer    *time.Timer
	timerGen uint64
	finished bool
}

// NewController creates an idle controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Dialer == nil {
		return nil, ErrNoDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.Endpoint != "" {
		logger = logger.WithEndpoint(cfg.Endpoint)
	}
	return &Controller{
		dialer:      cfg.Dialer,
		logger:      logger,
		collector:   cfg.Collector,
		idleTimeout: cfg.IdleTimeout,
		state:       types.Idle(),
	}, nil
}

// State returns the current state.
func (c *Controller) State() types.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RunID returns the id of the current or most recent run, or "" when the
// session is idle.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return ""
	}
	return c.run.id
}

// Subscribe registers an observer and returns a function removing it.
func (c *Controller) Subscribe(o Observer) func() {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers = append(c.observers, observerEntry{id: id, fn: o})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, e := range c.observers {
				if e.id == id {
					c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Start begins a new run and returns true, or returns false without side
// effects when a run is already active.
//
// The state moves to running with a zeroed snapshot and observers are
// notified before Start returns. The stream is opened asynchronously;
// cancelling ctx tears the run down as a transport failure.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	next, ok := Transition(c.state, Started{})
	if !ok {
		active := c.run.id
		c.mu.Unlock()
		c.logger.Debug("start ignored, run already active", map[string]any{"active_run_id": active})
		return false
	}

	if prev := c.run; prev != nil {
		c.finishLocked(prev)
	}

	id := uuid.NewString()
	runCtx, span := tracer.Start(ctx, "benchmark run", trace.WithAttributes(attribute.String("run.id", id)))
	runCtx, cancel := context.WithCancel(runCtx)
	r := &run{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
		span:   span,
	}
	c.run = r
	c.armTimerLocked(r)
	c.collector.IncRunStarted()
	c.commitLocked(next)

	c.logger.WithRun(r.id).Info("run started", nil)
	go c.pump(runCtx, r)
	return true
}

// Close tears the session down: any open stream is closed and the state
// resets to idle. Observers are notified only if the state changed. Close
// waits for the run's reader to exit and is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	r := c.run
	c.run = nil
	if r != nil {
		c.finishLocked(r)
	}

	next, ok := Transition(c.state, Reset{})
	if ok {
		c.commitLocked(next)
	} else {
		c.mu.Unlock()
	}

	if r != nil {
		<-r.done
		c.logger.WithRun(r.id).Debug("session closed", nil)
	}
}

// Wait blocks until the current run's reader has exited, then returns the
// state. With no run it returns immediately.
func (c *Controller) Wait(ctx context.Context) (types.RunState, error) {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()

	if r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
	return c.State(), nil
}

// pump owns the stream of one run until the run ends.
func (c *Controller) pump(ctx context.Context, r *run) {
	defer close(r.done)
	logger := c.logger.WithRun(r.id)

	stream, err := c.dialer.Dial(ctx)
	if err != nil {
		op := OpDial
		var statusErr *sse.StatusError
		var ctErr *sse.ContentTypeError
		if errors.As(err, &statusErr) || errors.As(err, &ctErr) {
			op = OpStatus
		}
		c.apply(r, TransportFailed{Err: &TransportError{Op: op, Err: err}})
		return
	}
	if !c.attach(r, stream) {
		iox.DiscardClose(stream)
		return
	}
	stop := context.AfterFunc(ctx, func() { iox.DiscardClose(stream) })
	defer stop()
	logger.Debug("stream open", nil)

	for {
		ev, err := stream.Next()
		if err != nil {
			op := OpRead
			if errors.Is(err, io.EOF) {
				op = OpEOF
			}
			c.apply(r, TransportFailed{Err: &TransportError{Op: op, Err: err}})
			return
		}
		if !c.touch(r) {
			return
		}

		if !ev.IsMessage() {
			c.collector.IncMessageIgnored()
			logger.Debug("ignoring named event", map[string]any{"event": ev.Type})
			continue
		}

		decoded, err := decode.Decode(ev.Data)
		if err != nil {
			c.apply(r, DecodeFailed{Err: err})
			return
		}
		if !c.apply(r, Received{Event: decoded}) || decoded.Kind == decode.KindTerminal {
			return
		}
	}
}

// apply runs one input for run r. Inputs from a run that is no longer
// current are discarded. Returns true if the state changed.
func (c *Controller) apply(r *run, in Input) bool {
	c.mu.Lock()
	return c.applyLocked(r, in)
}

// applyLocked is apply with mu already held. It releases mu.
func (c *Controller) applyLocked(r *run, in Input) bool {
	if c.run != r || r.finished {
		c.mu.Unlock()
		return false
	}
	next, ok := Transition(c.state, in)
	if !ok {
		c.mu.Unlock()
		return false
	}
	annotateSpan(r.span, next)
	if next.Status.IsTerminal() {
		c.finishLocked(r)
	}
	c.record(in, next)
	c.commitLocked(next)

	c.logTransition(r, in, next)
	return true
}

func (c *Controller) record(in Input, next types.RunState) {
	switch next.Status {
	case types.StatusRunning:
		c.collector.IncSnapshotReceived()
	case types.StatusCompleted:
		c.collector.IncRunCompleted()
	case types.StatusError:
		if _, ok := in.(DecodeFailed); ok {
			c.collector.IncDecodeError()
		}
		c.collector.IncRunFailed(string(next.Err.Cause))
	}
}

func (c *Controller) logTransition(r *run, in Input, next types.RunState) {
	logger := c.logger.WithRun(r.id)
	switch in := in.(type) {
	case Received:
		if next.Status == types.StatusCompleted {
			logger.Info("run completed", map[string]any{
				"units_executed": next.Result.UnitsExecuted,
				"results_count":  next.Result.ResultsCount,
			})
			return
		}
		logger.Debug("progress", map[string]any{
			"completed_units": next.Progress.CompletedUnits,
			"total_units":     next.Progress.TotalUnits,
		})
	case DecodeFailed:
		logger.Error("decode failed", map[string]any{"error": in.Err.Error()})
	case TransportFailed:
		logger.Error("transport failed", map[string]any{"error": in.Err.Error()})
	case Stalled:
		logger.Warn("stream stalled", map[string]any{"idle_timeout": c.idleTimeout.String()})
	}
}

// attach records the open stream on r. Returns false if r ended while
// dialing; the caller then owns closing the stream.
func (c *Controller) attach(r *run, stream EventStream) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.finished {
		return false
	}
	r.stream = stream
	return true
}

// touch restarts the idle timer. Returns false if r has ended.
func (c *Controller) touch(r *run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.finished {
		return false
	}
	if r.timer != nil {
		r.timer.Stop()
		c.armTimerLocked(r)
	}
	return true
}

// armTimerLocked starts a fresh idle timer for r. A timer that already fired
// is superseded by bumping r.timerGen.
func (c *Controller) armTimerLocked(r *run) {
	if c.idleTimeout <= 0 {
		return
	}
	r.timerGen++
	gen := r.timerGen
	r.timer = time.AfterFunc(c.idleTimeout, func() {
		c.stall(r, gen)
	})
}

// stall fails r as stalled unless its idle timer was re-armed after the
// timer for gen fired.
func (c *Controller) stall(r *run, gen uint64) {
	c.mu.Lock()
	if r.timerGen != gen {
		c.mu.Unlock()
		return
	}
	c.applyLocked(r, Stalled{})
}

// finishLocked releases everything held by r. Idempotent.
func (c *Controller) finishLocked(r *run) {
	if r.finished {
		return
	}
	r.finished = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.cancel()
	if r.stream != nil {
		iox.DiscardClose(r.stream)
	}
	r.span.End()
}

// commitLocked stores next, queues it for observers, releases mu and
// delivers every queued state in order.
func (c *Controller) commitLocked(next types.RunState) {
	c.state = next
	c.pending = append(c.pending, next)
	c.mu.Unlock()
	c.deliver()
}

// deliver drains the notification queue. Whichever caller holds notifyMu
// delivers states queued by others, so each state is delivered once and
// in commit order.
func (c *Controller) deliver() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		st := c.pending[0]
		c.pending = c.pending[1:]
		observers := make([]Observer, len(c.observers))
		for i, e := range c.observers {
			observers[i] = e.fn
		}
		c.mu.Unlock()

		for _, o := range observers {
			o(st)
		}
	}
}
