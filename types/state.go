package types

import "fmt"

// Status is the discriminator of a RunState.
type Status string

// Run state statuses.
const (
	// StatusIdle means no run has started, or the session was reset.
	StatusIdle Status = "idle"
	// StatusRunning means a run is active.
	StatusRunning Status = "running"
	// StatusCompleted means the run finished successfully.
	StatusCompleted Status = "completed"
	// StatusError means the run aborted abnormally.
	StatusError Status = "error"
)

// IsTerminal returns true for statuses that end a run.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ErrorCause classifies why a run ended in StatusError.
type ErrorCause string

// Error causes.
const (
	// CauseDecode means an inbound message was not a structured object.
	CauseDecode ErrorCause = "decode"
	// CauseTransport means the stream failed, was refused, or ended early.
	CauseTransport ErrorCause = "transport"
	// CauseStalled means the stream went silent past the idle timeout.
	CauseStalled ErrorCause = "stalled"
)

// Fixed diagnostic messages shown to the user for each cause.
const (
	MessageDecode    = "Failed to parse server response"
	MessageTransport = "Connection to server failed"
	MessageStalled   = "Benchmark stream stalled"
)

// RunError is the payload of an error state.
type RunError struct {
	// Message is human-readable and rendered verbatim.
	Message string `json:"message" yaml:"message"`
	// Cause classifies the failure.
	Cause ErrorCause `json:"cause" yaml:"cause"`
}

// RunState is the client-visible state of a session.
// Exactly one payload is set, matching Status; build values with the
// constructors below rather than by hand.
type RunState struct {
	Status   Status            `json:"status" yaml:"status"`
	Progress *ProgressSnapshot `json:"progress,omitempty" yaml:"progress,omitempty"`
	Result   *FinalResult      `json:"result,omitempty" yaml:"result,omitempty"`
	Err      *RunError         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Idle returns the idle state.
func Idle() RunState {
	return RunState{Status: StatusIdle}
}

// Running returns a running state holding the given snapshot.
func Running(p *ProgressSnapshot) RunState {
	return RunState{Status: StatusRunning, Progress: p}
}

// Completed returns a completed state holding the final result.
func Completed(r *FinalResult) RunState {
	return RunState{Status: StatusCompleted, Result: r}
}

// Failed returns an error state for the given cause with its fixed message.
func Failed(cause ErrorCause) RunState {
	return RunState{Status: StatusError, Err: &RunError{Message: cause.Message(), Cause: cause}}
}

// Message returns the fixed diagnostic message for the cause.
func (c ErrorCause) Message() string {
	switch c {
	case CauseDecode:
		return MessageDecode
	case CauseTransport:
		return MessageTransport
	case CauseStalled:
		return MessageStalled
	default:
		return fmt.Sprintf("run failed (%s)", string(c))
	}
}

// Validate checks that exactly the payload matching Status is set.
func (s RunState) Validate() error {
	set := 0
	if s.Progress != nil {
		set++
	}
	if s.Result != nil {
		set++
	}
	if s.Err != nil {
		set++
	}

	switch s.Status {
	case StatusIdle:
		if set != 0 {
			return fmt.Errorf("idle state must carry no payload")
		}
	case StatusRunning:
		if s.Progress == nil || set != 1 {
			return fmt.Errorf("running state must carry only a progress snapshot")
		}
	case StatusCompleted:
		if s.Result == nil || set != 1 {
			return fmt.Errorf("completed state must carry only a final result")
		}
	case StatusError:
		if s.Err == nil || set != 1 {
			return fmt.Errorf("error state must carry only an error")
		}
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}
	return nil
}

// String renders a compact description, used in logs.
func (s RunState) String() string {
	switch s.Status {
	case StatusRunning:
		if s.Progress != nil {
			return fmt.Sprintf("running(%d/%d)", s.Progress.CompletedUnits, s.Progress.TotalUnits)
		}
	case StatusCompleted:
		if s.Result != nil {
			return fmt.Sprintf("completed(%d units)", s.Result.UnitsExecuted)
		}
	case StatusError:
		if s.Err != nil {
			return fmt.Sprintf("error(%s)", s.Err.Cause)
		}
	}
	return string(s.Status)
}
