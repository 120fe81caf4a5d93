// Package session drives one benchmark run at a time over an event stream.
//
// The state machine is a pure function (Transition) so it can be tested
// without a stream; Controller applies it to inputs coming from a live or
// replayed stream and notifies observers of every transition.
package session

import (
	"github.com/pithecene-io/benchwatch/decode"
	"github.com/pithecene-io/benchwatch/types"
)

// Input is something that can move the run state.
// The set is closed: Started, Received, DecodeFailed, TransportFailed,
// Stalled and Reset.
type Input interface {
	input()
}

// Started requests a new run.
type Started struct{}

// Received carries one decoded stream message.
type Received struct {
	Event decode.Event
}

// DecodeFailed reports a message that could not be decoded.
type DecodeFailed struct {
	Err error
}

// TransportFailed reports a stream that failed or ended before the result.
type TransportFailed struct {
	Err error
}

// Stalled reports that no message arrived within the idle timeout.
type Stalled struct{}

// Reset tears the session down to idle.
type Reset struct{}

func (Started) input()         {}
func (Received) input()        {}
func (DecodeFailed) input()    {}
func (TransportFailed) input() {}
func (Stalled) input()         {}
func (Reset) input()           {}

// Transition applies in to state and returns the next state.
// The bool is false when the input is not accepted in the current state, in
// which case the returned state equals the given one.
//
// Rules:
//   - Started is accepted from idle, completed and error; never while running.
//   - Received, DecodeFailed, TransportFailed and Stalled are accepted only
//     while running. Completed and error absorb them.
//   - Reset is accepted from any non-idle state.
func Transition(state types.RunState, in Input) (types.RunState, bool) {
	switch in.(type) {
	case Started:
		if state.Status == types.StatusRunning {
			return state, false
		}
		return types.Running(types.InitialSnapshot()), true

	case Reset:
		if state.Status == types.StatusIdle {
			return state, false
		}
		return types.Idle(), true
	}

	if state.Status != types.StatusRunning {
		return state, false
	}

	switch in := in.(type) {
	case Received:
		switch in.Event.Kind {
		case decode.KindProgress:
			if in.Event.Progress == nil {
				return state, false
			}
			return types.Running(in.Event.Progress), true
		case decode.KindTerminal:
			if in.Event.Result == nil {
				return state, false
			}
			return types.Completed(in.Event.Result), true
		default:
			return state, false
		}
	case DecodeFailed:
		return types.Failed(types.CauseDecode), true
	case TransportFailed:
		return types.Failed(types.CauseTransport), true
	case Stalled:
		return types.Failed(types.CauseStalled), true
	default:
		return state, false
	}
}
