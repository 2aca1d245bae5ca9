package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/imgsearch-cli/internal/search"
)

type Theme struct {
	Title      lipgloss.Style
	ModePill   lipgloss.Style
	Section    lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style
	Engine     lipgloss.Style
	Modal      lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ModePill:   lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		Section:    lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		ActiveLine: lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:  lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:  lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:  lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:  lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:  lipgloss.NewStyle().Foreground(cpPeach),
		Engine:     lipgloss.NewStyle().Foreground(cpLavender),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cpMauve).
			Padding(0, 1),
	}
}

func (t Theme) StyleEngineStatus(status search.EngineStatus) string {
	label := string(status)
	switch status {
	case search.StatusLoaded:
		return t.StateIdle.Render(label)
	case search.StatusLoading:
		return t.StateLoad.Render(label)
	case search.StatusError:
		return t.StateWarn.Render(label)
	default:
		return t.MetaLabel.Render(label)
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
