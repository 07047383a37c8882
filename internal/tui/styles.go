package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the courier TUI style tokens.
type Theme struct {
	Name string

	Foreground string
	Muted      string
	Accent     string
	Error      string

	Header       string
	Footer       string
	SelectedItem string

	OwnMessage   string
	OtherMessage string
	UnreadBadge  string
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default": DefaultTheme,
	"dark":    DarkTheme,
	"light":   LightTheme,
}

// DefaultTheme is the standard ANSI-256 palette.
var DefaultTheme = Theme{
	Name:         "default",
	Foreground:   "252",
	Muted:        "243",
	Accent:       "75",
	Error:        "203",
	Header:       "24",
	Footer:       "236",
	SelectedItem: "39",
	OwnMessage:   "114",
	OtherMessage: "252",
	UnreadBadge:  "214",
}

// DarkTheme mutes the chrome for dark terminals.
var DarkTheme = Theme{
	Name:         "dark",
	Foreground:   "250",
	Muted:        "240",
	Accent:       "68",
	Error:        "167",
	Header:       "235",
	Footer:       "234",
	SelectedItem: "68",
	OwnMessage:   "108",
	OtherMessage: "250",
	UnreadBadge:  "179",
}

// LightTheme targets light terminal backgrounds.
var LightTheme = Theme{
	Name:         "light",
	Foreground:   "235",
	Muted:        "245",
	Accent:       "26",
	Error:        "124",
	Header:       "117",
	Footer:       "254",
	SelectedItem: "26",
	OwnMessage:   "28",
	OtherMessage: "235",
	UnreadBadge:  "130",
}

func themeByName(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted))
}

func (t Theme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent))
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error))
}

func (t Theme) selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.SelectedItem)).Bold(true)
}

func (t Theme) ownMessageStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.OwnMessage))
}

func (t Theme) otherMessageStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.OtherMessage))
}

func (t Theme) unreadStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.UnreadBadge)).Bold(true)
}
