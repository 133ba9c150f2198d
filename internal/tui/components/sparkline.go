package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Sparkline is a one-line scrolling bar chart of the last Width values.
type Sparkline struct {
	Data   []uint64
	Width  int
	Height int
	Style  lipgloss.Style
	Label  string
}

func NewSparkline(width, height int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width:  width,
		Height: height,
		Label:  label,
		Style:  style,
		Data:   make([]uint64, 0, width),
	}
}

func (s *Sparkline) Add(val uint64) {
	s.Data = append(s.Data, val)
	if s.Width > 0 && len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}
}

func (s *Sparkline) Reset() {
	s.Data = s.Data[:0]
}

// Last returns the newest value, 0 when empty.
func (s Sparkline) Last() uint64 {
	if len(s.Data) == 0 {
		return 0
	}
	return s.Data[len(s.Data)-1]
}

// Max is the largest visible value.
func (s Sparkline) Max() uint64 {
	max := uint64(0)
	for _, v := range s.visible() {
		if v > max {
			max = v
		}
	}
	return max
}

func (s Sparkline) visible() []uint64 {
	if s.Width > 0 && len(s.Data) > s.Width {
		return s.Data[len(s.Data)-s.Width:]
	}
	return s.Data
}

// Graph renders the bars without label or style.
func (s Sparkline) Graph() string {
	if s.Width <= 0 {
		return ""
	}
	data := s.visible()
	max := s.Max()

	var graph strings.Builder
	for _, v := range data {
		if max == 0 {
			graph.WriteString(levels[0])
			continue
		}
		idx := int(float64(v) / float64(max) * float64(len(levels)-1))
		if idx >= len(levels) {
			idx = len(levels) - 1
		}
		graph.WriteString(levels[idx])
	}

	// Pad if not full
	if pad := s.Width - len(data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}
	return graph.String()
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}
	return s.Style.Render(s.Label) + "\n" + s.Style.Render(s.Graph())
}
