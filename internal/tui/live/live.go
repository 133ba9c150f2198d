package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"httpconnect/internal/runner"
	"httpconnect/internal/tui/components"
	"httpconnect/internal/tui/styles"
)

// Model shows the progress of the running sweep.
type Model struct {
	Snap     runner.Snapshot
	Progress progress.Model

	InflightLine components.Sparkline
	BuiltLine    components.Sparkline

	lastBuilt int64

	Width  int
	Height int
}

func NewModel() Model {
	return Model{
		Progress:     progress.New(progress.WithDefaultGradient()),
		InflightLine: components.NewSparkline(40, 1, "Agents In Flight", styles.Active),
		BuiltLine:    components.NewSparkline(40, 1, "Gateway Lookups / Tick", styles.Warn),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.Snapshot:
		built := msg.Constructed - m.lastBuilt
		if built < 0 {
			// New sample reset the counter.
			built = msg.Constructed
		}
		m.lastBuilt = msg.Constructed

		inflight := msg.Inflight()
		if inflight < 0 {
			inflight = 0
		}
		m.InflightLine.Add(uint64(inflight))
		m.BuiltLine.Add(uint64(built))

		m.Snap = msg
		return m, m.Progress.SetPercent(msg.Progress())

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 8

		half := (msg.Width / 2) - 8
		if half < 10 {
			half = 10
		}
		m.InflightLine.Width = half
		m.BuiltLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	snap := m.Snap

	stageStyle := styles.Active
	if snap.Stage == runner.StageDone {
		stageStyle = styles.Success
	}

	col1 := fmt.Sprintf("LEVEL: %d/%d\nAGENTS: %d", snap.LevelIndex+1, snap.Levels, snap.NumAgents)
	col2 := fmt.Sprintf("SAMPLE: %d/%d\nSTAGE: %s", snap.Sample+1, snap.Samples, stageStyle.Render(snap.Stage.String()))
	col3 := fmt.Sprintf("BUILT: %d\nINF: %d  DONE: %d", snap.Constructed, snap.Inflight(), snap.Completed)

	grid := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(col2),
		styles.Box.Render(col3),
		styles.Box.Render(fmt.Sprintf("ELAPSED\n%s", snap.Elapsed.Round(100*time.Millisecond))),
	)
	s.WriteString(grid)
	s.WriteString("\n\n")

	// Sparklines
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.InflightLine.View()),
		styles.Box.Render(m.BuiltLine.View()),
	))
	s.WriteString("\n\n")

	// Progress
	s.WriteString(m.Progress.View())

	return s.String()
}
