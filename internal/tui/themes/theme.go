package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the review UI.
type Theme struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Header      lipgloss.Style
	Selected    lipgloss.Style
	Anomalous   lipgloss.Style
	Normal      lipgloss.Style
	Help        lipgloss.Style
	RoundedBox  lipgloss.Style
	StatusInfo  lipgloss.Style
	Primary     lipgloss.Color
	Border      lipgloss.Color
	Muted       lipgloss.Color
	Foreground  lipgloss.Color
	AnomalyTint lipgloss.Color
	NormalTint  lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	Primary:     lipgloss.Color("#3b82f6"),
	Border:      lipgloss.Color("#404040"),
	Muted:       lipgloss.Color("#737373"),
	Foreground:  lipgloss.Color("#fafafa"),
	AnomalyTint: lipgloss.Color("#ef4444"),
	NormalTint:  lipgloss.Color("#10b981"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Header: lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		BorderBottom(true).
		Bold(true).
		Padding(0, 1),
	Selected: lipgloss.NewStyle().
		Background(lipgloss.Color("#3b82f6")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true),
	Anomalous: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")).
		Bold(true),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")),
	RoundedBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3b82f6")).
		Bold(true),
}

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = Theme{
	Primary:     lipgloss.Color("#cba6f7"),
	Border:      lipgloss.Color("#45475a"),
	Muted:       lipgloss.Color("#6c7086"),
	Foreground:  lipgloss.Color("#cdd6f4"),
	AnomalyTint: lipgloss.Color("#f38ba8"),
	NormalTint:  lipgloss.Color("#a6e3a1"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#cdd6f4")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a6adc8")),
	Header: lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#45475a")).
		BorderBottom(true).
		Bold(true).
		Padding(0, 1),
	Selected: lipgloss.NewStyle().
		Background(lipgloss.Color("#cba6f7")).
		Foreground(lipgloss.Color("#1e1e2e")).
		Bold(true),
	Anomalous: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f38ba8")).
		Bold(true),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a6e3a1")),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6c7086")),
	RoundedBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#45475a")),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#89dceb")).
		Bold(true),
}

// ByName returns the named theme, falling back to Default.
func ByName(name string) Theme {
	if name == "catppuccin" || name == "catppuccin-mocha" {
		return CatppuccinMocha
	}
	return Default
}
