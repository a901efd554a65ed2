// Package watch runs the clipboard watch loop: every genuine clipboard
// change is cleaned once, and the loop never reacts to its own writes.
package watch

import (
	"context"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/purelink/purelink/internal/cleaner"
	"github.com/purelink/purelink/internal/clipboard"
	"github.com/purelink/purelink/internal/feedback"
	"github.com/purelink/purelink/internal/utils"
)

// DefaultQuietWindow is how long the gate stays closed after a write.
const DefaultQuietWindow = 600 * time.Millisecond

// Toggle is the monitoring switch, read on every change.
type Toggle interface {
	Enabled() bool
}

// Processor rewrites the URLs in a piece of text.
type Processor interface {
	ProcessDetailed(ctx context.Context, text string, unshorten bool) (string, []cleaner.Change)
}

// Recorder receives every successful clean.
type Recorder interface {
	Record(ctx context.Context, original, cleaned string) error
}

type Config struct {
	QuietWindow time.Duration
	// Label tags self-written content. Defaults to clipboard.OwnLabel.
	Label string
	// Unshorten is consulted per pass; nil means never.
	Unshorten func() bool
}

type Deps struct {
	Clipboard clipboard.Clipboard
	Processor Processor
	Toggle    Toggle
	Notifier  feedback.Notifier // optional
	Recorder  Recorder          // optional
}

// Watcher owns the gate and consumes change notifications one at a time.
type Watcher struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	gate    Gate
	missed  atomic.Bool
	recheck chan struct{}
	cleaned atomic.Int64
}

func New(cfg Config, deps Deps) *Watcher {
	if cfg.QuietWindow <= 0 {
		cfg.QuietWindow = DefaultQuietWindow
	}
	if cfg.Label == "" {
		cfg.Label = clipboard.OwnLabel
	}
	return &Watcher{
		cfg:     cfg,
		deps:    deps,
		log:     utils.Logger("watch"),
		recheck: make(chan struct{}, 1),
	}
}

// State returns the gate state.
func (w *Watcher) State() State {
	return w.gate.State()
}

// Cleaned returns how many clipboard writes this watcher made.
func (w *Watcher) Cleaned() int64 {
	return w.cleaned.Load()
}

// Run blocks until ctx is cancelled or the clipboard subscription ends.
func (w *Watcher) Run(ctx context.Context) error {
	changes := w.deps.Clipboard.Subscribe(ctx)
	w.log.Info().Dur("quiet_window", w.cfg.QuietWindow).Msg("watching clipboard")
	defer w.gate.Release()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			w.onChange(ctx)
		case <-w.recheck:
			w.log.Trace().Msg("re-examining clipboard after quiet window")
			w.onChange(ctx)
		}
	}
}

func (w *Watcher) onChange(ctx context.Context) {
	if w.gate.State() == Gated {
		w.missed.Store(true)
		w.log.Trace().Msg("change ignored while gated")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("clean pass failed")
		}
	}()
	w.checkAndClean(ctx)
}

func (w *Watcher) skip(reason string) {
	w.log.Debug().Str("reason", reason).Msg("skip")
}

func (w *Watcher) checkAndClean(ctx context.Context) {
	if !w.deps.Toggle.Enabled() {
		w.skip("monitoring off")
		return
	}

	snap, err := w.deps.Clipboard.Read()
	if err != nil {
		utils.Debug("Watch: clipboard read failed: %v", err)
		return
	}
	switch {
	case !snap.Present:
		w.skip("no clip")
		return
	case snap.Label == w.cfg.Label:
		w.skip("own write")
		return
	case strings.TrimSpace(snap.Text) == "":
		w.skip("blank")
		return
	case clipboard.IsBinary(snap.Text):
		w.skip("binary content")
		return
	case !cleaner.HasScheme(snap.Text):
		w.skip("no url")
		return
	}

	unshorten := w.cfg.Unshorten != nil && w.cfg.Unshorten()
	out, changes := w.deps.Processor.ProcessDetailed(ctx, snap.Text, unshorten)
	if out == snap.Text {
		w.skip("nothing to clean")
		return
	}

	// A copy made while we were processing wins; its own notification is
	// already queued.
	cur, err := w.deps.Clipboard.Read()
	if err != nil || cur.Text != snap.Text {
		w.skip("clipboard changed during processing")
		return
	}

	if !w.gate.TryAcquire() {
		w.missed.Store(true)
		return
	}
	defer w.gate.ReleaseAfter(w.cfg.QuietWindow, w.onRelease)

	// A copy landing between the re-read above and this write is lost; the
	// platform clipboard offers no compare-and-swap.
	if err := w.deps.Clipboard.Write(out, w.cfg.Label); err != nil {
		w.log.Warn().Err(err).Msg("clipboard write failed")
		return
	}
	w.cleaned.Add(1)
	w.log.Info().Int("urls", len(changes)).Bool("unshorten", unshorten).Msg("clipboard cleaned")

	if n := w.deps.Notifier; n != nil {
		n.Notify(feedback.Pulse)
		n.Notify(feedback.Message)
	}
	if r := w.deps.Recorder; r != nil {
		if err := r.Record(ctx, snap.Text, out); err != nil {
			w.log.Warn().Err(err).Msg("failed to record clean")
		}
	}
}

// onRelease runs on the gate timer. Changes dropped while gated get one
// more look, since a real copy may have been among them.
func (w *Watcher) onRelease() {
	if !w.missed.Swap(false) {
		return
	}
	select {
	case w.recheck <- struct{}{}:
	default:
	}
}
