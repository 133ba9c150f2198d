package result

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"httpconnect/internal/runner"
	"httpconnect/internal/tui/styles"
)

// Model lists the finished report rows.
type Model struct {
	Table table.Model
	Err   error

	Width  int
	Height int
}

func NewModel() Model {
	columns := []table.Column{
		{Title: "Agents", Width: 8},
		{Title: "GW ms", Width: 10},
		{Title: "GW ms/agent", Width: 12},
		{Title: "GW agents/s", Width: 12},
		{Title: "Req ms", Width: 10},
		{Title: "Req ms/agent", Width: 12},
		{Title: "Req agents/s", Width: 12},
		{Title: "POST p99", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	t.SetStyles(styles.TableStyles())
	return Model{Table: t}
}

// Rows converts level results into table rows.
func Rows(results []runner.LevelResult) []table.Row {
	rows := make([]table.Row, len(results))
	for i, r := range results {
		rows[i] = table.Row{
			fmt.Sprintf("%d", r.NumAgents),
			fmt.Sprintf("%.1f", r.GatewayTimeMs),
			fmt.Sprintf("%.3f", r.GatewayLatencyMs),
			fmt.Sprintf("%.1f", r.GatewayThroughput),
			fmt.Sprintf("%.1f", r.RequestTimeMs),
			fmt.Sprintf("%.3f", r.RequestLatencyMs),
			fmt.Sprintf("%.1f", r.RequestThroughput),
			fmt.Sprintf("%.1f", r.RequestP99Ms),
		}
	}
	return rows
}

func (m *Model) SetResults(results []runner.LevelResult) {
	m.Table.SetRows(Rows(results))
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 8)
	}
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("📊 Levels"))
	s.WriteString("\n")
	s.WriteString(styles.Box.Render(m.Table.View()))
	if m.Err != nil {
		s.WriteString("\n")
		s.WriteString(styles.Error.Render("❌ " + m.Err.Error()))
	}
	return s.String()
}
