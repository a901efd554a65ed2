package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/core"
	"github.com/purelink/purelink/internal/history"
)

const (
	TabRecent = iota
	TabLog
)

const (
	maxLogEntries = 200
	// how long a service call from the UI may take
	actionTimeout = 15 * time.Second
)

type logLevel int

const (
	levelInfo logLevel = iota
	levelCleaned
	levelError
)

type logEntry struct {
	Time  time.Time
	Level logLevel
	Text  string
}

// refreshedMsg carries a fresh status and history snapshot.
type refreshedMsg struct {
	status   core.Status
	items    []history.Item
	settings *config.Settings
	err      error
}

// actionDoneMsg reports the outcome of a key-triggered action.
type actionDoneMsg struct {
	text string
	err  error
}

type RootModel struct {
	Service core.Service
	Port    int
	Version string

	width  int
	height int

	activeTab int
	cursor    int

	status   core.Status
	items    []history.Item
	settings *config.Settings
	logs     []logEntry

	confirmClear bool

	keys KeyMap
	help help.Model
}

// InitialRootModel creates the dashboard for a running service.
func InitialRootModel(port int, version string, service core.Service) RootModel {
	return RootModel{
		Service:  service,
		Port:     port,
		Version:  version,
		settings: config.DefaultSettings(),
		keys:     Keys,
		help:     help.New(),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m RootModel) refreshCmd() tea.Cmd {
	service := m.Service
	return func() tea.Msg {
		if service == nil {
			return refreshedMsg{settings: config.DefaultSettings()}
		}
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		settings, err := config.LoadSettings()
		if err != nil {
			settings = config.DefaultSettings()
		}
		status, err := service.Status(ctx)
		if err != nil {
			return refreshedMsg{settings: settings, err: err}
		}
		items, err := service.History(ctx, settings.History.Limit)
		return refreshedMsg{status: status, items: items, settings: settings, err: err}
	}
}

// action runs fn against the service off the UI goroutine.
func (m RootModel) action(fn func(ctx context.Context, s core.Service) (string, error)) tea.Cmd {
	service := m.Service
	return func() tea.Msg {
		if service == nil {
			return actionDoneMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		text, err := fn(ctx, service)
		return actionDoneMsg{text: text, err: err}
	}
}

func (m *RootModel) addLog(level logLevel, text string) {
	m.logs = append(m.logs, logEntry{Time: time.Now(), Level: level, Text: text})
	if len(m.logs) > maxLogEntries {
		m.logs = m.logs[len(m.logs)-maxLogEntries:]
	}
}

func (m RootModel) listLen() int {
	if m.activeTab == TabLog {
		return len(m.logs)
	}
	return len(m.items)
}

func (m *RootModel) clampCursor() {
	n := m.listLen()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
