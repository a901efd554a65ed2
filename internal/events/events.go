// Package events defines the messages broadcast by the running service to
// the TUI and to /events subscribers.
package events

import "time"

// CleanedMsg is sent whenever text was rewritten.
type CleanedMsg struct {
	Original string    `json:"original"`
	Cleaned  string    `json:"cleaned"`
	Origin   string    `json:"origin"` // clipboard, manual or api
	Time     time.Time `json:"time"`
}

// FeedbackMsg mirrors a user feedback notification.
type FeedbackMsg struct {
	Kind string `json:"kind"`
}

// ToggledMsg reports a change of the monitoring switch.
type ToggledMsg struct {
	Enabled bool `json:"enabled"`
}

// RulesUpdatedMsg reports the outcome of a rules refresh.
type RulesUpdatedMsg struct {
	Count  int    `json:"count"`
	Source string `json:"source"`
	Err    string `json:"error,omitempty"`
}

// HistoryClearedMsg is sent after the history was wiped.
type HistoryClearedMsg struct{}

// Name returns the SSE event name for msg, or "" when msg is not an event.
func Name(msg interface{}) string {
	switch msg.(type) {
	case CleanedMsg:
		return "cleaned"
	case FeedbackMsg:
		return "feedback"
	case ToggledMsg:
		return "toggled"
	case RulesUpdatedMsg:
		return "rules"
	case HistoryClearedMsg:
		return "history_cleared"
	}
	return ""
}
