package clipboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/purelink/purelink/internal/utils"
)

var (
	clipboardReadAll  = clipboard.ReadAll
	clipboardWriteAll = clipboard.WriteAll
	clipboardMissing  = func() bool { return clipboard.Unsupported }
)

// DefaultPollInterval is how often System checks for changes.
const DefaultPollInterval = 250 * time.Millisecond

// System is the host clipboard. Desktop clipboards carry no labels, so the
// label of the last text written through System is remembered and reported
// for as long as that text stays on the clipboard.
type System struct {
	PollInterval time.Duration

	mu      sync.Mutex
	written string
	label   string
}

// NewSystem returns a System polling at interval.
func NewSystem(interval time.Duration) *System {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &System{PollInterval: interval}
}

// Available reports whether a clipboard backend could be found.
func Available() bool {
	return !clipboardMissing()
}

func (s *System) Read() (Snapshot, error) {
	if clipboardMissing() {
		return Snapshot{}, ErrUnavailable
	}
	text, err := clipboardReadAll()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read clipboard: %w", err)
	}
	if text == "" {
		return Snapshot{}, nil
	}

	snap := Snapshot{Text: text, Present: true}
	s.mu.Lock()
	if s.label != "" && text == s.written {
		snap.Label = s.label
	}
	s.mu.Unlock()
	return snap, nil
}

func (s *System) Write(text, label string) error {
	if clipboardMissing() {
		return ErrUnavailable
	}
	if err := clipboardWriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	s.mu.Lock()
	s.written, s.label = text, label
	s.mu.Unlock()
	return nil
}

// Subscribe polls the clipboard and signals whenever its text differs from
// the previous poll. Content present at subscription time is not reported.
func (s *System) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	read := clipboardReadAll

	go func() {
		defer close(ch)

		last, _ := read()
		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()

		failing := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			text, err := read()
			if err != nil {
				if !failing {
					utils.Debug("Clipboard: poll failed: %v", err)
					failing = true
				}
				continue
			}
			failing = false
			if text == last {
				continue
			}
			last = text

			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()

	return ch
}
