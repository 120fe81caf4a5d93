// Package sessiontest provides helpers for testing code built on session.
package sessiontest

import (
	"sync"
	"time"

	"github.com/pithecene-io/benchwatch/types"
)

// Recorder records every state an observer receives.
//
// Recorder is safe under concurrent Observe calls.
type Recorder struct {
	mu     sync.Mutex
	states []types.RunState
	notify chan struct{}
}

// NewRecorder constructs a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Observe appends st. Pass it to Controller.Subscribe.
func (r *Recorder) Observe(st types.RunState) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.states = append(r.states, st)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// States returns a snapshot copy of recorded states.
func (r *Recorder) States() []types.RunState {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]types.RunState, len(r.states))
	copy(cp, r.states)
	return cp
}

// Statuses returns the recorded statuses in order.
func (r *Recorder) Statuses() []types.Status {
	states := r.States()
	out := make([]types.Status, len(states))
	for i, st := range states {
		out[i] = st.Status
	}
	return out
}

// Last returns the most recent state, or idle when nothing was recorded.
func (r *Recorder) Last() types.RunState {
	states := r.States()
	if len(states) == 0 {
		return types.Idle()
	}
	return states[len(states)-1]
}

// WaitFor blocks until a recorded state satisfies pred or timeout elapses.
// Returns the matching state and true, or the last state and false.
func (r *Recorder) WaitFor(pred func(types.RunState) bool, timeout time.Duration) (types.RunState, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		for _, st := range r.States() {
			if pred(st) {
				return st, true
			}
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return r.Last(), false
		}
	}
}

// WaitTerminal waits for a completed or error state.
func (r *Recorder) WaitTerminal(timeout time.Duration) (types.RunState, bool) {
	return r.WaitFor(func(st types.RunState) bool { return st.Status.IsTerminal() }, timeout)
}

// Reset clears the recorder.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.states = nil
	r.mu.Unlock()
}
