package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/purelink/purelink/internal/cleaner"
	"github.com/purelink/purelink/internal/clipboard"
	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/events"
	"github.com/purelink/purelink/internal/feedback"
	"github.com/purelink/purelink/internal/history"
	"github.com/purelink/purelink/internal/rules"
	"github.com/purelink/purelink/internal/utils"
	"github.com/purelink/purelink/internal/version"
)

var (
	ErrEmptyText   = errors.New("nothing to clean")
	ErrNoClipboard = errors.New("clipboard not available in this process")
	ErrNoFetcher   = errors.New("remote rules are not configured")
)

// Event origins reported in events.CleanedMsg.
const (
	OriginClipboard = "clipboard"
	OriginManual    = "manual"
	OriginAPI       = "api"
)

// LocalService implements Service in-process. It also serves as the
// watcher's Recorder and Notifier so clipboard cleans reach the history and
// every event subscriber.
type LocalService struct {
	Store     *rules.Store
	Fetcher   *rules.Fetcher // optional
	Processor *cleaner.Processor
	Clipboard clipboard.Clipboard // optional, required for Copy
	Notifier  feedback.Notifier   // optional
	Toggle    config.Toggle

	InputCh chan interface{}

	// Broadcast fields
	listeners  []chan interface{}
	listenerMu sync.Mutex

	closedMu sync.RWMutex
	closed   bool

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ Service           = (*LocalService)(nil)
	_ feedback.Notifier = (*LocalService)(nil)
)

// NewLocalService creates a service around an existing processor and starts
// the broadcaster.
func NewLocalService(store *rules.Store, fetcher *rules.Fetcher, processor *cleaner.Processor, clip clipboard.Clipboard, notifier feedback.Notifier) *LocalService {
	s := &LocalService{
		Store:     store,
		Fetcher:   fetcher,
		Processor: processor,
		Clipboard: clip,
		Notifier:  notifier,
		InputCh:   make(chan interface{}, 100),
		listeners: make([]chan interface{}, 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.ctx = ctx
	s.cancel = cancel

	go s.broadcastLoop()

	return s
}

func (s *LocalService) broadcastLoop() {
	for msg := range s.InputCh {
		s.listenerMu.Lock()
		for _, ch := range s.listeners {
			// Non-blocking send to avoid stalling if a client is slow
			select {
			case ch <- msg:
			default:
			}
		}
		s.listenerMu.Unlock()
	}
	// Close all listeners when input closes
	s.listenerMu.Lock()
	for _, ch := range s.listeners {
		close(ch)
	}
	s.listeners = nil
	s.listenerMu.Unlock()
}

// Publish queues msg for every subscriber. Messages are dropped when the
// queue is full or the service is shut down.
func (s *LocalService) Publish(msg interface{}) {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.InputCh <- msg:
	default:
		utils.Debug("Events: queue full, dropping %s", events.Name(msg))
	}
}

// StreamEvents returns a channel that receives service events until ctx is
// done, cleanup is called or the service shuts down.
func (s *LocalService) StreamEvents(ctx context.Context) (<-chan interface{}, func(), error) {
	ch := make(chan interface{}, 100)
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, ch)
	s.listenerMu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cleanup := func() { once.Do(func() { close(done) }) }

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		case <-s.ctx.Done():
		}
		s.removeListener(ch)
	}()

	return ch, cleanup, nil
}

func (s *LocalService) removeListener(ch chan interface{}) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for i, listener := range s.listeners {
		if listener == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Shutdown stops the broadcaster and closes every subscriber channel.
func (s *LocalService) Shutdown() error {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	close(s.InputCh)
	return nil
}

func (s *LocalService) settings() *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		utils.Debug("Service: failed to load settings: %v", err)
		return config.DefaultSettings()
	}
	return settings
}

// Notify forwards feedback to the configured notifier and to subscribers.
func (s *LocalService) Notify(kind feedback.Kind) {
	if s.Notifier != nil {
		s.Notifier.Notify(kind)
	}
	s.Publish(events.FeedbackMsg{Kind: string(kind)})
}

// Record stores a clipboard clean in the history.
func (s *LocalService) Record(ctx context.Context, original, cleaned string) error {
	s.Publish(events.CleanedMsg{
		Original: original,
		Cleaned:  cleaned,
		Origin:   OriginClipboard,
		Time:     time.Now(),
	})
	return history.Add(ctx, cleaned, s.settings().History.Limit)
}

// Clean processes req.Text and optionally copies the result.
func (s *LocalService) Clean(ctx context.Context, req CleanRequest) (CleanResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return CleanResult{}, ErrEmptyText
	}
	if req.Copy && s.Clipboard == nil {
		return CleanResult{}, ErrNoClipboard
	}

	settings := s.settings()
	unshorten := settings.General.Unshorten
	if req.Unshorten != nil {
		unshorten = *req.Unshorten
	}
	origin := req.Origin
	if origin == "" {
		origin = OriginManual
	}

	out, changes := s.Processor.ProcessDetailed(ctx, req.Text, unshorten)
	result := CleanResult{Text: out, Changed: len(changes) > 0, Changes: changes}

	if result.Changed {
		if err := history.Add(ctx, out, settings.History.Limit); err != nil {
			utils.Debug("Service: failed to record history: %v", err)
		}
		s.Publish(events.CleanedMsg{
			Original: req.Text,
			Cleaned:  out,
			Origin:   origin,
			Time:     time.Now(),
		})
	}

	if req.Copy {
		if err := s.Clipboard.Write(out, clipboard.OwnLabel); err != nil {
			return result, err
		}
		result.Copied = true
		s.Notify(feedback.Pulse)
		s.Notify(feedback.Message)
	}

	return result, nil
}

func (s *LocalService) History(ctx context.Context, limit int) ([]history.Item, error) {
	return history.Recent(ctx, limit)
}

func (s *LocalService) ClearHistory(ctx context.Context) error {
	if err := history.Clear(ctx); err != nil {
		return err
	}
	s.Publish(events.HistoryClearedMsg{})
	return nil
}

func (s *LocalService) Status(ctx context.Context) (Status, error) {
	settings := s.settings()
	cleaned, err := history.Count(ctx)
	if err != nil {
		utils.Debug("Service: failed to read clean count: %v", err)
	}
	return Status{
		Monitoring: settings.General.MonitoringActive,
		Unshorten:  settings.General.Unshorten,
		Cleaned:    cleaned,
		Rules:      s.rulesInfo(),
		Version:    version.Version,
	}, nil
}

func (s *LocalService) SetMonitoring(ctx context.Context, enabled bool) error {
	if err := s.Toggle.SetEnabled(enabled); err != nil {
		return err
	}
	s.Publish(events.ToggledMsg{Enabled: enabled})
	return nil
}

// UpdateRules runs one remote refresh. A failed refresh keeps the active
// rules; the returned info always describes what is active.
func (s *LocalService) UpdateRules(ctx context.Context) (RulesInfo, error) {
	if s.Fetcher == nil {
		return s.rulesInfo(), ErrNoFetcher
	}
	err := s.Fetcher.Update(ctx)
	s.ReportRules(err)
	return s.rulesInfo(), err
}

func (s *LocalService) ImportRules(ctx context.Context, names []string) (RulesInfo, error) {
	if s.Fetcher == nil {
		return s.rulesInfo(), ErrNoFetcher
	}
	err := s.Fetcher.Apply(names)
	if err == nil {
		s.ReportRules(nil)
	}
	return s.rulesInfo(), err
}

func (s *LocalService) ResetRules(ctx context.Context) (RulesInfo, error) {
	if s.Fetcher == nil {
		s.Store.Reset()
	} else if err := s.Fetcher.Reset(); err != nil {
		return s.rulesInfo(), err
	}
	s.ReportRules(nil)
	return s.rulesInfo(), nil
}

// ReportRules publishes the outcome of a rules refresh. It is also the
// background refresher's result hook.
func (s *LocalService) ReportRules(err error) {
	info := s.rulesInfo()
	msg := events.RulesUpdatedMsg{Count: info.Count, Source: info.Source}
	if err != nil {
		msg.Err = err.Error()
	}
	s.Publish(msg)
}

func (s *LocalService) rulesInfo() RulesInfo {
	snap := s.Store.Current()
	return RulesInfo{
		Count:    snap.Rules.Len(),
		Source:   string(snap.Source),
		LoadedAt: snap.LoadedAt,
	}
}
