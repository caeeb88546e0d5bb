package cmd

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primary   = lipgloss.Color("#7C3AED") // Purple
	secondary = lipgloss.Color("#10B981") // Green
	muted     = lipgloss.Color("#6B7280") // Gray
	warning   = lipgloss.Color("#F59E0B") // Amber
	danger    = lipgloss.Color("#EF4444") // Red

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted)

	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA")) // Blue

	hiddenStyle = lipgloss.NewStyle().
			Foreground(muted).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warning)

	errorStyle = lipgloss.NewStyle().
			Foreground(danger).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true).
			Width(10)
)
