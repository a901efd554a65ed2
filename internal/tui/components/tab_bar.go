package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Tab is a single tab label with an optional counter.
type Tab struct {
	Label string
	Count int // shown as "Label (Count)" when >= 0
}

// RenderTabBar joins the tabs horizontally, styling the active one.
func RenderTabBar(tabs []Tab, activeIndex int, activeStyle, inactiveStyle lipgloss.Style) string {
	rendered := make([]string, 0, len(tabs))
	for i, t := range tabs {
		style := inactiveStyle
		if i == activeIndex {
			style = activeStyle
		}

		label := t.Label
		if t.Count >= 0 {
			label = fmt.Sprintf("%s (%d)", t.Label, t.Count)
		}
		rendered = append(rendered, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
