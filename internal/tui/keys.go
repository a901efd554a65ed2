package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/purelink/purelink/internal/tui/components"
)

// KeyMap defines the keybindings for the entire application
type KeyMap struct {
	Dashboard DashboardKeyMap
	Confirm   components.ConfirmationKeyMap
}

// DashboardKeyMap defines keybindings for the main dashboard
type DashboardKeyMap struct {
	Toggle     key.Binding
	Unshorten  key.Binding
	Bell       key.Binding
	Notify     key.Binding
	Refresh    key.Binding
	Clear      key.Binding
	Copy       key.Binding
	NextTab    key.Binding
	Up         key.Binding
	Down       key.Binding
	Help       key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
	ReloadView key.Binding
}

// Keys contains all the keybindings for the application
var Keys = KeyMap{
	Dashboard: DashboardKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "monitoring on/off"),
		),
		Unshorten: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unshorten"),
		),
		Bell: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bell"),
		),
		Notify: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "notifications"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "update rules"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
		Copy: key.NewBinding(
			key.WithKeys("enter", "y"),
			key.WithHelp("enter", "copy"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		ReloadView: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload"),
		),
	},
	Confirm: components.ConfirmationKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "yes"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "no"),
		),
	},
}

func (k DashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Unshorten, k.Copy, k.NextTab, k.Help, k.Quit}
}

func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Unshorten, k.Bell, k.Notify},
		{k.Refresh, k.Clear, k.Copy, k.ReloadView},
		{k.NextTab, k.Up, k.Down, k.Help, k.Quit},
	}
}
