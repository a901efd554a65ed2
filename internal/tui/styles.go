package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/purelink/purelink/internal/tui/colors"
)

// === Layout Styles ===
var (
	// Standard pane border
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Gray).
			Padding(0, 1)

	// Focus style for the active pane
	ActivePaneStyle = PaneStyle.
			BorderForeground(colors.NeonPink)

	LogoStyle = lipgloss.NewStyle().
			Foreground(colors.NeonPurple).
			Bold(true)

	TabStyle = lipgloss.NewStyle().
			Foreground(colors.LightGray).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(colors.NeonPink).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colors.NeonPink).
			Padding(0, 1).
			Bold(true)

	StatsLabelStyle = lipgloss.NewStyle().
			Foreground(colors.NeonCyan)

	StatsValueStyle = lipgloss.NewStyle().
			Foreground(colors.NeonPink).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(colors.LightGray)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(colors.NeonPink).
			Bold(true)

	BadgeOnStyle = lipgloss.NewStyle().
			Foreground(colors.StateOn).
			Bold(true)

	BadgeOffStyle = lipgloss.NewStyle().
			Foreground(colors.StateOff).
			Bold(true)

	// Log Entry Styles
	LogStyleCleaned = lipgloss.NewStyle().
			Foreground(colors.StateCleaned)

	LogStyleInfo = lipgloss.NewStyle().
			Foreground(colors.NeonCyan)

	LogStyleError = lipgloss.NewStyle().
			Foreground(colors.StateError)
)
