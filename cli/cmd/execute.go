package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchwatch/adapter"
	"github.com/pithecene-io/benchwatch/cli/render"
	"github.com/pithecene-io/benchwatch/cli/tui"
	"github.com/pithecene-io/benchwatch/iox"
	"github.com/pithecene-io/benchwatch/log"
	"github.com/pithecene-io/benchwatch/metrics"
	"github.com/pithecene-io/benchwatch/session"
	"github.com/pithecene-io/benchwatch/types"
)

// Exit codes of run and replay.
const (
	exitSuccess   = 0
	exitDecode    = 1
	exitTransport = 2
	exitStalled   = 3

	// exitConfigError is used for invalid flags or configuration. Nothing
	// reached the backend, so it shares the transport code.
	exitConfigError = exitTransport
)

// publishTimeout bounds publication of one completion event, retries included.
const publishTimeout = 30 * time.Second

// finishedRun is a run that reached a terminal state.
type finishedRun struct {
	runID    string
	state    types.RunState
	last     *types.ProgressSnapshot
	duration time.Duration
}

// tracker observes a controller and records finished runs.
type tracker struct {
	controller *session.Controller
	lines      io.Writer
	onFinish   func(finishedRun)

	mu       sync.Mutex
	status   types.Status
	started  time.Time
	last     *types.ProgressSnapshot
	finished []finishedRun

	done     chan struct{}
	doneOnce sync.Once
}

func newTracker(c *session.Controller, lines io.Writer, onFinish func(finishedRun)) *tracker {
	return &tracker{
		controller: c,
		lines:      lines,
		onFinish:   onFinish,
		status:     types.StatusIdle,
		done:       make(chan struct{}),
	}
}

func (t *tracker) observe(st types.RunState) {
	if line := transitionLine(st); line != "" && t.lines != nil {
		_, _ = fmt.Fprintln(t.lines, line)
	}

	t.mu.Lock()
	prev := t.status
	t.status = st.Status
	var fr *finishedRun
	switch st.Status {
	case types.StatusRunning:
		if prev != types.StatusRunning {
			t.started = time.Now()
		}
		t.last = st.Progress
	case types.StatusCompleted, types.StatusError:
		fr = &finishedRun{
			runID:    t.controller.RunID(),
			state:    st,
			last:     t.last,
			duration: time.Since(t.started),
		}
		t.finished = append(t.finished, *fr)
		t.last = nil
	}
	t.mu.Unlock()

	if fr != nil {
		if t.onFinish != nil {
			t.onFinish(*fr)
		}
		t.doneOnce.Do(func() { close(t.done) })
	}
}

// lastFinished returns the most recent finished run.
func (t *tracker) lastFinished() (finishedRun, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.finished) == 0 {
		return finishedRun{}, false
	}
	return t.finished[len(t.finished)-1], true
}

// publisher sends one completion event per finished run.
type publisher struct {
	ctx       context.Context
	adapter   adapter.Adapter
	endpoint  string
	logger    *log.Logger
	collector *metrics.Collector
	wg        sync.WaitGroup
}

// publishAsync publishes fr in the background. No-op without an adapter.
func (p *publisher) publishAsync(fr finishedRun) {
	if p.adapter == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.publish(fr)
	}()
}

func (p *publisher) publish(fr finishedRun) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), publishTimeout)
	defer cancel()

	logger := p.logger.WithRun(fr.runID)
	event := adapter.NewRunCompletedEvent(fr.runID, p.endpoint, fr.state, fr.duration, time.Now())
	if err := p.adapter.Publish(ctx, event); err != nil {
		p.collector.IncPublishFailure()
		logger.Error("publish failed", map[string]any{"error": err.Error()})
		return
	}
	p.collector.IncPublishSuccess()
	logger.Info("run completion published", nil)
}

// close waits for pending publications and releases the adapter.
func (p *publisher) close() {
	p.wg.Wait()
	if p.adapter != nil {
		iox.DiscardClose(p.adapter)
	}
}

// execute drives one session against dialer and reports the outcome.
// Plain mode runs once and exits with the run's code. TUI mode lets the
// user start runs until quitting and exits with the last run's code.
func execute(c *cli.Context, opts *runOptions, dialer session.Dialer, endpoint string) error {
	r, err := newRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	logger, closeLog, err := buildLogger(opts, c.App.ErrWriter)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer closeLog()

	ad, err := buildAdapter(opts.adapter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), exitConfigError)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(endpoint)
	ctrl, err := session.NewController(session.Config{
		Dialer:      dialer,
		Endpoint:    endpoint,
		Logger:      logger,
		Collector:   collector,
		IdleTimeout: opts.idleTimeout,
	})
	if err != nil {
		return err
	}

	pub := &publisher{
		ctx:       ctx,
		adapter:   ad,
		endpoint:  endpoint,
		logger:    logger.WithEndpoint(endpoint),
		collector: collector,
	}

	var lines io.Writer
	if !opts.tui && !opts.quiet {
		lines = c.App.ErrWriter
	}
	tr := newTracker(ctrl, lines, pub.publishAsync)
	unsubscribe := ctrl.Subscribe(tr.observe)

	if opts.tui {
		_, err = tui.Run(ctx, ctrl, endpoint, true)
	} else {
		ctrl.Start(ctx)
		// Cancelling ctx fails the run as a transport error, so a terminal
		// state always arrives.
		<-tr.done
	}
	unsubscribe()
	ctrl.Close()
	pub.close()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fr, ok := tr.lastFinished()
	if !ok {
		return nil
	}
	if !opts.quiet {
		report := render.NewReport(fr.runID, endpoint, fr.state, fr.last, fr.duration, collector.Snapshot())
		if err := r.Render(report); err != nil {
			return err
		}
	}
	return cli.Exit("", exitCode(fr.state))
}

// exitCode maps a terminal state to the process exit code.
func exitCode(st types.RunState) int {
	if st.Status != types.StatusError || st.Err == nil {
		return exitSuccess
	}
	switch st.Err.Cause {
	case types.CauseDecode:
		return exitDecode
	case types.CauseStalled:
		return exitStalled
	default:
		return exitTransport
	}
}

// transitionLine is the one-line progress report printed per transition.
func transitionLine(st types.RunState) string {
	switch st.Status {
	case types.StatusRunning:
		p := st.Progress
		return fmt.Sprintf("running: %s/%s units (%s%%), avg %s ms, elapsed %s ms",
			intStr(p.CompletedUnits), intStr(p.TotalUnits), floatStr(p.Percentage),
			floatStr(p.AverageTimeMs), floatStr(p.ElapsedTimeMs))
	case types.StatusCompleted:
		r := st.Result
		return fmt.Sprintf("completed: %s units, %s results, p50 %s ms, p95 %s ms, p99 %s ms",
			intStr(r.UnitsExecuted), intStr(r.ResultsCount),
			floatStr(r.P50Ms), floatStr(r.P95Ms), floatStr(r.P99Ms))
	case types.StatusError:
		return "error: " + st.Err.Message
	default:
		return ""
	}
}

func intStr(v int64) string {
	if types.IsUnset(v) {
		return "n/a"
	}
	return fmt.Sprintf("%d", v)
}

func floatStr(v float64) string {
	if types.IsMissing(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", v)
}
