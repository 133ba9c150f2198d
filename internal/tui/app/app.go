package app

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"httpconnect/internal/banner"
	"httpconnect/internal/runner"
	"httpconnect/internal/tui/live"
	"httpconnect/internal/tui/result"
	"httpconnect/internal/tui/styles"
)

type SnapshotMsg runner.Snapshot

// DoneMsg carries the outcome of the sweep.
type DoneMsg struct {
	Results []runner.LevelResult
	Err     error
}

type Model struct {
	Runner  *runner.Runner
	Updates runner.UpdateChan

	ctx    context.Context
	cancel context.CancelFunc

	Live    live.Model
	Results result.Model

	Done   bool
	Final  DoneMsg
	Width  int
	Height int
}

// NewModel prepares a sweep; it starts when the program runs.
func NewModel(parent context.Context, r *runner.Runner, updates runner.UpdateChan) Model {
	ctx, cancel := context.WithCancel(parent)
	return Model{
		Runner:  r,
		Updates: updates,
		ctx:     ctx,
		cancel:  cancel,
		Live:    live.NewModel(),
		Results: result.NewModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		runSweep(m.ctx, m.Runner),
		waitForUpdate(m.Updates),
	)
}

func runSweep(ctx context.Context, r *runner.Runner) tea.Cmd {
	return func() tea.Msg {
		results, err := r.Run(ctx)
		return DoneMsg{Results: results, Err: err}
	}
}

func waitForUpdate(sub runner.UpdateChan) tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg(<-sub)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Abort a running sweep; Run returns with the context error.
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		var c tea.Cmd
		m.Live, c = m.Live.Update(msg)
		cmds = append(cmds, c)
		m.Results, c = m.Results.Update(msg)
		cmds = append(cmds, c)
		return m, tea.Batch(cmds...)

	case SnapshotMsg:
		snap := runner.Snapshot(msg)
		var c tea.Cmd
		m.Live, c = m.Live.Update(snap)
		m.Results.SetResults(snap.Results)
		return m, tea.Batch(c, waitForUpdate(m.Updates))

	case DoneMsg:
		m.Done = true
		m.Final = msg
		m.Results.SetResults(msg.Results)
		m.Results.Err = msg.Err
		var c tea.Cmd
		m.Live, c = m.Live.Update(m.Runner.Snapshot())
		return m, c
	}

	var c tea.Cmd
	m.Live, c = m.Live.Update(msg)
	cmds = append(cmds, c)
	m.Results, c = m.Results.Update(msg)
	cmds = append(cmds, c)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.Live.View(),
		"",
		m.Results.View(),
	)

	quit := "Abort"
	if m.Done {
		quit = "Quit"
	}
	footer := styles.FooterBase.Width(m.Width).Render(strings.Join([]string{
		styles.RenderKey("q", quit),
		styles.RenderKey("↑/↓", "Scroll"),
	}, "   "))

	return lipgloss.JoinVertical(lipgloss.Left,
		banner.GetString(),
		styles.Panel.Width(m.Width-2).Render(content),
		footer,
	)
}
