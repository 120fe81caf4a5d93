package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/benchwatch/session"
	"github.com/pithecene-io/benchwatch/types"
)

// Sender is the subset of *tea.Program used to forward transitions.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards every session transition to the program as a StateMsg.
func Observer(p Sender) session.Observer {
	return func(st types.RunState) {
		p.Send(StateMsg{State: st})
	}
}

// Run drives the live view until the user quits or ctx is cancelled, then
// returns the controller's final state. The controller is left open; the
// caller owns Close.
func Run(ctx context.Context, c *session.Controller, endpoint string, autoStart bool) (types.RunState, error) {
	start := func() bool { return c.Start(ctx) }
	model := NewModel(endpoint, start, autoStart)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := c.Subscribe(Observer(p))
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return c.State(), ctx.Err()
		}
		return c.State(), fmt.Errorf("TUI error: %w", err)
	}
	return c.State(), nil
}
