package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/labplay/internal/chart"
)

// Theme defines the colours of the terminal views. Series keep their own
// colours unless Mono is set.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Axis    lipgloss.Color
	Accent  lipgloss.Color
	Warning lipgloss.Color
	Border  lipgloss.Color
	Mono    bool
}

var (
	ThemeLab = Theme{
		Name:    "lab",
		Title:   lipgloss.Color("#00ffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Axis:    lipgloss.Color("#888899"),
		Accent:  lipgloss.Color("#00ccff"),
		Warning: lipgloss.Color("#ffaa00"),
		Border:  lipgloss.Color("#444466"),
	}

	ThemeRetro = Theme{
		Name:    "retro",
		Title:   lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Axis:    lipgloss.Color("#00cc00"),
		Accent:  lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Border:  lipgloss.Color("#005500"),
		Mono:    true,
	}

	ThemePaper = Theme{
		Name:    "paper",
		Title:   lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#222222"),
		Muted:   lipgloss.Color("#999999"),
		Axis:    lipgloss.Color("#555555"),
		Accent:  lipgloss.Color("#0088ff"),
		Warning: lipgloss.Color("#cc6600"),
		Border:  lipgloss.Color("#cccccc"),
	}

	Themes = []Theme{ThemeLab, ThemeRetro, ThemePaper}
)

// GetTheme returns a theme by name, falling back to the lab theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeLab
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// SeriesColor maps a chart colour into the theme.
func (t Theme) SeriesColor(c chart.Color) lipgloss.Color {
	if t.Mono {
		return t.Text
	}
	return lipgloss.Color(c.Hex())
}

func (t Theme) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Title)
}

func (t Theme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) KeyHint() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted).Italic(true)
}

func (t Theme) Panel() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
}

// Toast styles a notification.
func (t Theme) Toast() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Warning).
		Border(lipgloss.NormalBorder()).
		BorderForeground(t.Warning).
		Padding(0, 1)
}
