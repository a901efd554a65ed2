package components

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/purelink/purelink/internal/tui/colors"
)

// ConfirmationModal renders a yes/no dialog box
type ConfirmationModal struct {
	Title       string
	Message     string
	Detail      string // Optional line under the message
	Keys        help.KeyMap
	Help        help.Model
	BorderColor lipgloss.TerminalColor
}

// ConfirmationKeyMap defines keybindings for a confirmation modal
type ConfirmationKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k ConfirmationKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k ConfirmationKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// NewConfirmationModal creates a modal with default styling
func NewConfirmationModal(title, message, detail string, keys help.KeyMap, helpModel help.Model, borderColor lipgloss.TerminalColor) ConfirmationModal {
	return ConfirmationModal{
		Title:       title,
		Message:     message,
		Detail:      detail,
		Keys:        keys,
		Help:        helpModel,
		BorderColor: borderColor,
	}
}

// View renders the title, message and detail without the box.
func (m ConfirmationModal) View() string {
	titleStyle := lipgloss.NewStyle().Foreground(m.BorderColor).Bold(true)
	detailStyle := lipgloss.NewStyle().Foreground(colors.NeonPurple).Bold(true)

	lines := []string{titleStyle.Render(m.Title), "", m.Message}
	if m.Detail != "" {
		lines = append(lines, "", detailStyle.Render(m.Detail))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

// Centered returns the boxed modal placed in the middle of width x height.
func (m ConfirmationModal) Centered(width, height int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(m.BorderColor).
		Padding(1, 4)

	helpText := lipgloss.NewStyle().Foreground(colors.LightGray).Render(m.Help.View(m.Keys))

	content := lipgloss.JoinVertical(lipgloss.Center, m.View(), "", helpText)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}
