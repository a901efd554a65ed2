package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/purelink/purelink/internal/tui/colors"
	"github.com/purelink/purelink/internal/tui/components"
)

const (
	minWidth  = 40
	minHeight = 12
)

func (m RootModel) View() string {
	width, height := m.width, m.height
	if width == 0 || height == 0 {
		width, height = 80, 24
	}
	if width < minWidth || height < minHeight {
		return "Terminal too small for PureLink"
	}

	if m.confirmClear {
		modal := components.NewConfirmationModal(
			"Clear History",
			"Delete every entry in the history?",
			fmt.Sprintf("%d item(s)", len(m.items)),
			m.keys.Confirm,
			m.help,
			colors.StateError,
		)
		return modal.Centered(width, height)
	}

	header := m.renderHeader(width)
	tabs := components.RenderTabBar([]components.Tab{
		{Label: "Recent", Count: len(m.items)},
		{Label: "Log", Count: -1},
	}, m.activeTab, ActiveTabStyle, TabStyle)
	footer := m.help.View(m.keys.Dashboard)

	listHeight := height - lipgloss.Height(header) - lipgloss.Height(tabs) - lipgloss.Height(footer) - 2
	if listHeight < 1 {
		listHeight = 1
	}

	var body string
	if m.activeTab == TabLog {
		body = m.renderLog(width-4, listHeight)
	} else {
		body = m.renderRecent(width-4, listHeight)
	}
	pane := ActivePaneStyle.Width(width - 2).Height(listHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, pane, footer)
}

func (m RootModel) renderHeader(width int) string {
	monitoring := BadgeOffStyle.Render("● PAUSED")
	if m.status.Monitoring {
		monitoring = BadgeOnStyle.Render("● WATCHING")
	}

	stat := func(label, value string) string {
		return StatsLabelStyle.Render(label+" ") + StatsValueStyle.Render(value)
	}

	rulesSource := m.status.Rules.Source
	if rulesSource == "" {
		rulesSource = "-"
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Top,
		LogoStyle.Render("PureLink"), "  ", monitoring,
	)
	fields := []string{
		stat("cleaned", fmt.Sprintf("%d", m.status.Cleaned)),
		stat("rules", fmt.Sprintf("%d (%s)", m.status.Rules.Count, rulesSource)),
		stat("unshorten", onOff(m.settings.General.Unshorten)),
		stat("bell", onOff(m.settings.General.Bell)),
		stat("notify", onOff(m.settings.General.DesktopNotify)),
	}
	if m.Port > 0 {
		fields = append(fields, stat("api", fmt.Sprintf(":%d", m.Port)))
	}
	line2 := strings.Join(fields, DimStyle.Render("  │  "))

	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinVertical(lipgloss.Left, line1, line2))
}

func (m RootModel) renderRecent(width, height int) string {
	if len(m.items) == 0 {
		return DimStyle.Render("Nothing cleaned yet. Copy a link with tracking parameters.")
	}

	start := scrollStart(m.cursor, height, len(m.items))
	var lines []string
	for i := start; i < len(m.items) && len(lines) < height; i++ {
		it := m.items[i]
		text := truncate(firstLine(it.Text), width-12)
		line := fmt.Sprintf("%s  %s", it.Time.Format("15:04:05"), text)
		if i == m.cursor {
			line = SelectedStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m RootModel) renderLog(width, height int) string {
	if len(m.logs) == 0 {
		return DimStyle.Render("No activity yet.")
	}

	start := scrollStart(m.cursor, height, len(m.logs))
	var lines []string
	for i := start; i < len(m.logs) && len(lines) < height; i++ {
		e := m.logs[i]
		style := LogStyleInfo
		switch e.Level {
		case levelCleaned:
			style = LogStyleCleaned
		case levelError:
			style = LogStyleError
		}
		text := truncate(firstLine(e.Text), width-12)
		lines = append(lines, DimStyle.Render(e.Time.Format(time.TimeOnly))+"  "+style.Render(text))
	}
	return strings.Join(lines, "\n")
}

func scrollStart(cursor, height, n int) int {
	if n <= height || cursor < height {
		return 0
	}
	start := cursor - height + 1
	if start > n-height {
		start = n - height
	}
	return start
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func truncate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
