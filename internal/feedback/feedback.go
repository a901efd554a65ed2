// Package feedback tells the user that something was cleaned.
package feedback

import (
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"

	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/utils"
)

// Kind selects the feedback channel.
type Kind string

const (
	// Pulse is a short non-visual signal: the terminal bell.
	Pulse Kind = "pulse"
	// Message is a transient desktop notification.
	Message Kind = "message"
)

// Notifier delivers feedback. Implementations decide themselves whether a
// kind is enabled.
type Notifier interface {
	Notify(kind Kind)
}

// Terminal rings the bell and raises OSC 777 desktop notifications on the
// controlling terminal.
type Terminal struct {
	Title string
	Body  string
	// Enabled reports whether a kind should be delivered.
	Enabled func(Kind) bool

	mu     sync.Mutex
	out    io.Writer
	output *termenv.Output
}

// NewTerminal writes to w and reads per-kind switches from the settings.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		Title:   "PureLink",
		Body:    "Link cleaned",
		Enabled: SettingsEnabled,
		out:     w,
		output:  termenv.NewOutput(w),
	}
}

func (t *Terminal) Notify(kind Kind) {
	if t.Enabled != nil && !t.Enabled(kind) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch kind {
	case Pulse:
		_, _ = fmt.Fprint(t.out, "\a")
	case Message:
		t.output.Notify(t.Title, t.Body)
	default:
		utils.Debug("Feedback: unknown kind %q", kind)
	}
}

// SettingsEnabled reads the bell and desktop notification switches.
func SettingsEnabled(kind Kind) bool {
	settings, err := config.LoadSettings()
	if err != nil {
		settings = config.DefaultSettings()
	}
	switch kind {
	case Pulse:
		return settings.General.Bell
	case Message:
		return settings.General.DesktopNotify
	}
	return false
}
