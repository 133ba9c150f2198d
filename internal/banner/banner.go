package banner

import (
	"httpconnect/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const tagline = "gateway -> node  |  GET /api/1.0/ then POST /api/1.0/nodes"

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	art := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)
	sub := renderer.NewStyle().
		Foreground(styles.ColorSubtle).
		Italic(true).
		PaddingLeft(2)

	ascii := `
    __    __  __                                         __ 
   / /_  / /_/ /_____  _________  ____  ____  ___  _____/ /_
  / __ \/ __/ __/ __ \/ ___/ __ \/ __ \/ __ \/ _ \/ ___/ __/
 / / / / /_/ /_/ /_/ / /__/ /_/ / / / / / / /  __/ /__/ /_  
/_/ /_/\__/\__/ .___/\___/\____/_/ /_/_/ /_/\___/\___/\__/  
             /_/                                            `

	return "\n" + art.Render(ascii) + "\n" + sub.Render(tagline) + "\n"
}
