package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/benchwatch/types"
)

const description = "Runs the search benchmark on the backend and streams its progress. " +
	"Connecting starts the run; results appear when the server reports completion."

// StateMsg delivers a session transition to the model.
type StateMsg struct {
	State types.RunState
}

// startedMsg reports the result of a start request.
type startedMsg struct {
	ok bool
}

// Starter begins a run and reports whether it started. It is invoked from a
// tea.Cmd, never from Update.
type Starter func() bool

type keyMap struct {
	Start key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Start: key.NewBinding(
		key.WithKeys("s", "enter"),
		key.WithHelp("s", "start"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the live run view.
type Model struct {
	endpoint  string
	start     Starter
	autoStart bool

	state    types.RunState
	spinner  spinner.Model
	bar      progress.Model
	width    int
	quitting bool
}

// NewModel creates the view. With autoStart the first run begins as soon as
// the program starts.
func NewModel(endpoint string, start Starter, autoStart bool) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 48
	return Model{
		endpoint:  endpoint,
		start:     start,
		autoStart: autoStart,
		state:     types.Idle(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(WarningStyle)),
		bar:       bar,
	}
}

// State returns the last state the model received.
func (m Model) State() types.RunState {
	return m.state
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.autoStart {
		return tea.Batch(m.spinner.Tick, m.startCmd())
	}
	return m.spinner.Tick
}

func (m Model) startCmd() tea.Cmd {
	if m.start == nil {
		return nil
	}
	start := m.start
	return func() tea.Msg {
		return startedMsg{ok: start()}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-8, 10), 72)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Start):
			if m.state.Status == types.StatusRunning {
				return m, nil
			}
			return m, m.startCmd()
		}

	case StateMsg:
		m.state = msg.State
		return m, nil

	case startedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("benchwatch"))
	b.WriteString("\n")
	b.WriteString(DescriptionStyle.Render(description))
	b.WriteString("\n")
	b.WriteString(row("Endpoint", m.endpoint))
	b.WriteString(row("Status", BadgeStyle.Inherit(StateStyle(m.state.Status)).Render(string(m.state.Status))))
	b.WriteString("\n")

	switch m.state.Status {
	case types.StatusRunning:
		b.WriteString(m.viewRunning())
	case types.StatusCompleted:
		b.WriteString(m.viewCompleted())
	case types.StatusError:
		b.WriteString(ErrorStyle.Render(m.state.Err.Message))
		b.WriteString("\n")
	default:
		b.WriteString(LabelStyle.UnsetWidth().Render("Press s to start a run."))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.help()))
	return b.String()
}

func (m Model) help() string {
	if m.state.Status == types.StatusRunning {
		return "q quit"
	}
	return "s/enter start • q quit"
}

func (m Model) viewRunning() string {
	p := m.state.Progress
	var b strings.Builder

	pct := 0.0
	if !types.IsMissing(p.Percentage) {
		pct = min(max(p.Percentage/100, 0), 1)
	}
	b.WriteString(m.spinner.View() + " " + m.bar.ViewAs(pct))
	b.WriteString("\n\n")

	b.WriteString(row("Units", fmt.Sprintf("%s / %s", formatInt(p.CompletedUnits), formatInt(p.TotalUnits))))
	b.WriteString(row("Average", formatMs(p.AverageTimeMs)))
	b.WriteString(row("Current unit", formatMs(p.CurrentUnitTimeMs)))
	b.WriteString(row("Elapsed", formatMs(p.ElapsedTimeMs)))
	b.WriteString(row("Results", formatInt(p.CompletedCount)))
	return b.String()
}

func (m Model) viewCompleted() string {
	r := m.state.Result
	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("p50", formatMs(r.P50Ms), successColor),
		statBox("p95", formatMs(r.P95Ms), warningColor),
		statBox("p99", formatMs(r.P99Ms), errorColor),
		statBox("total", formatMs(r.TotalExecutionTimeMs), highlightColor),
	)

	var b strings.Builder
	b.WriteString(boxes)
	b.WriteString("\n")
	b.WriteString(row("Units executed", formatInt(r.UnitsExecuted)))
	b.WriteString(row("Results", formatInt(r.ResultsCount)))
	return b.String()
}

func row(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value) + "\n"
}

func statBox(label, value string, color lipgloss.Color) string {
	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

func formatMs(v float64) string {
	if types.IsMissing(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f ms", v)
}

func formatInt(v int64) string {
	if types.IsUnset(v) {
		return "n/a"
	}
	return fmt.Sprintf("%d", v)
}
