package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"httpconnect/internal/storage"
	"httpconnect/internal/tui/result"
	"httpconnect/internal/tui/styles"
)

// Model browses stored sweeps. Enter shows the levels of the selected one.
type Model struct {
	Records []storage.SweepRecord
	Table   table.Model
	Detail  result.Model

	showDetail bool

	Width  int
	Height int
}

func NewModel(records []storage.SweepRecord) Model {
	columns := []table.Column{
		{Title: "Started", Width: 20},
		{Title: "Gateway", Width: 22},
		{Title: "Agents", Width: 14},
		{Title: "Samples", Width: 8},
		{Title: "Levels", Width: 7},
		{Title: "Status", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(styles.TableStyles())

	m := Model{
		Records: records,
		Table:   t,
		Detail:  result.NewModel(),
	}
	m.Table.SetRows(Rows(records))
	return m
}

// Rows converts records into table rows.
func Rows(records []storage.SweepRecord) []table.Row {
	rows := make([]table.Row, len(records))
	for i, rec := range records {
		status := "ok"
		if rec.Error != "" {
			status = "aborted"
		} else if !rec.Completed() {
			status = "partial"
		}
		rows[i] = table.Row{
			rec.StartedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%s:%d", rec.Config.Host, rec.Config.GatewayPort),
			fmt.Sprintf("%d..%d/%d", rec.Config.From, rec.Config.To, rec.Config.Step),
			fmt.Sprintf("%d", rec.Config.Samples),
			fmt.Sprintf("%d", len(rec.Results)),
			status,
		}
	}
	return rows
}

// Selected returns the highlighted record, nil when the list is empty.
func (m Model) Selected() *storage.SweepRecord {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.Records) {
		return nil
	}
	return &m.Records[i]
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		m.Detail, _ = m.Detail.Update(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.showDetail = false
			return m, nil
		case "enter":
			if rec := m.Selected(); rec != nil {
				m.Detail.SetResults(rec.Results)
				m.Detail.Err = nil
				if rec.Error != "" {
					m.Detail.Err = errors.New(rec.Error)
				}
				m.showDetail = true
			}
			return m, nil
		}
	}

	if m.showDetail {
		m.Detail, cmd = m.Detail.Update(msg)
		return m, cmd
	}
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.showDetail {
		return m.Detail.View() + "\n" + styles.RenderKey("Esc", "Back") + "  " + styles.RenderKey("q", "Quit")
	}
	return styles.Box.Render(m.Table.View()) + "\n" +
		styles.RenderKey("Enter", "Levels") + "  " + styles.RenderKey("q", "Quit")
}
