package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/core"
	"github.com/purelink/purelink/internal/events"
	"github.com/purelink/purelink/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case refreshedMsg:
		if msg.settings != nil {
			m.settings = msg.settings
		}
		if msg.err != nil {
			m.addLog(levelError, "refresh failed: "+msg.err.Error())
			return m, nil
		}
		m.status = msg.status
		m.items = msg.items
		m.clampCursor()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.addLog(levelError, msg.err.Error())
		} else if msg.text != "" {
			m.addLog(levelInfo, msg.text)
		}
		return m, m.refreshCmd()

	case events.CleanedMsg:
		m.status.Cleaned++
		m.addLog(levelCleaned, fmt.Sprintf("cleaned (%s): %s", msg.Origin, msg.Cleaned))
		return m, m.refreshCmd()

	case events.ToggledMsg:
		m.status.Monitoring = msg.Enabled
		state := "off"
		if msg.Enabled {
			state = "on"
		}
		m.addLog(levelInfo, "monitoring "+state)
		return m, nil

	case events.RulesUpdatedMsg:
		if msg.Err != "" {
			m.addLog(levelError, "rules update failed: "+msg.Err)
			return m, nil
		}
		m.status.Rules.Count = msg.Count
		m.status.Rules.Source = msg.Source
		m.addLog(levelInfo, fmt.Sprintf("rules updated: %d from %s", msg.Count, msg.Source))
		return m, nil

	case events.HistoryClearedMsg:
		m.items = nil
		m.clampCursor()
		m.addLog(levelInfo, "history cleared")
		return m, nil

	case events.FeedbackMsg:
		return m, nil

	case tea.KeyMsg:
		if m.confirmClear {
			return m.updateConfirm(msg)
		}
		return m.updateDashboard(msg)
	}

	return m, nil
}

func (m RootModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm.Confirm):
		m.confirmClear = false
		return m, m.action(func(ctx context.Context, s core.Service) (string, error) {
			return "", s.ClearHistory(ctx)
		})
	case key.Matches(msg, m.keys.Confirm.Cancel):
		m.confirmClear = false
	}
	return m, nil
}

func (m RootModel) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys.Dashboard

	switch {
	case key.Matches(msg, keys.ForceQuit), key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Toggle):
		enabled := !m.status.Monitoring
		return m, m.action(func(ctx context.Context, s core.Service) (string, error) {
			return "", s.SetMonitoring(ctx, enabled)
		})

	case key.Matches(msg, keys.Unshorten):
		return m, flipSetting("unshorten", func(s *config.Settings) *bool { return &s.General.Unshorten })

	case key.Matches(msg, keys.Bell):
		return m, flipSetting("bell", func(s *config.Settings) *bool { return &s.General.Bell })

	case key.Matches(msg, keys.Notify):
		return m, flipSetting("notifications", func(s *config.Settings) *bool { return &s.General.DesktopNotify })

	case key.Matches(msg, keys.Refresh):
		m.addLog(levelInfo, "updating rules...")
		return m, m.action(func(ctx context.Context, s core.Service) (string, error) {
			_, err := s.UpdateRules(ctx)
			return "", err
		})

	case key.Matches(msg, keys.Clear):
		if len(m.items) > 0 {
			m.confirmClear = true
		}
		return m, nil

	case key.Matches(msg, keys.Copy):
		if m.activeTab != TabRecent || m.cursor >= len(m.items) {
			return m, nil
		}
		text := m.items[m.cursor].Text
		noUnshorten := false
		return m, m.action(func(ctx context.Context, s core.Service) (string, error) {
			if _, err := s.Clean(ctx, core.CleanRequest{Text: text, Unshorten: &noUnshorten, Copy: true}); err != nil {
				return "", err
			}
			return "copied to clipboard", nil
		})

	case key.Matches(msg, keys.NextTab):
		m.activeTab = (m.activeTab + 1) % 2
		m.cursor = 0
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, keys.ReloadView):
		return m, m.refreshCmd()
	}

	return m, nil
}

// flipSetting inverts one boolean setting on disk. The running service
// reads settings on use, so no reload is needed.
func flipSetting(name string, field func(*config.Settings) *bool) tea.Cmd {
	return func() tea.Msg {
		var now bool
		_, err := config.UpdateSettings(func(s *config.Settings) {
			p := field(s)
			*p = !*p
			now = *p
		})
		if err != nil {
			utils.Debug("TUI: failed to save %s: %v", name, err)
			return actionDoneMsg{err: fmt.Errorf("failed to save %s: %w", name, err)}
		}
		state := "off"
		if now {
			state = "on"
		}
		return actionDoneMsg{text: name + " " + state}
	}
}
