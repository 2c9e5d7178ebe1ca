package ui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the chat pane.
type Styles struct {
	Header       lipgloss.Style
	Panel        lipgloss.Style
	UserBubble   lipgloss.Style
	BotBubble    lipgloss.Style
	Typing       lipgloss.Style
	Toggle       lipgloss.Style
	ToggleActive lipgloss.Style
	Status       lipgloss.Style
	Help         lipgloss.Style
}

func DefaultStyles() Styles {
	accent := lipgloss.Color("#7C3AED")
	muted := lipgloss.Color("#6B7280")
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		UserBubble: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accent).
			Padding(0, 1),
		BotBubble: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111827")).
			Background(lipgloss.Color("#E5E7EB")).
			Padding(0, 1),
		Typing:       lipgloss.NewStyle().Foreground(muted).Italic(true),
		Toggle:       lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder()),
		ToggleActive: lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.ThickBorder()).BorderForeground(accent),
		Status:       lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")),
		Help:         lipgloss.NewStyle().Foreground(muted),
	}
}
