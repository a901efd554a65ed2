package clipboard

import (
	"context"
	"sync"
)

// Memory is an in-process Clipboard. Every Set or Write notifies all
// subscribers, the way a platform clipboard echoes its own writes.
type Memory struct {
	mu     sync.Mutex
	snap   Snapshot
	subs   []chan struct{}
	writes []Snapshot

	// ReadErr, when set, is returned by Read.
	ReadErr error
	// OnRead, when set, runs at the start of every Read.
	OnRead func(n int)
	reads  int
}

// NewMemory returns an empty Memory clipboard.
func NewMemory() *Memory {
	return &Memory{}
}

// Set simulates an external copy.
func (m *Memory) Set(text, label string) {
	m.mu.Lock()
	m.snap = Snapshot{Text: text, Label: label, Present: true}
	m.mu.Unlock()
	m.notify()
}

// Clear removes the current clip.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.snap = Snapshot{}
	m.mu.Unlock()
	m.notify()
}

func (m *Memory) Read() (Snapshot, error) {
	m.mu.Lock()
	m.reads++
	n, hook := m.reads, m.OnRead
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return Snapshot{}, m.ReadErr
	}
	return m.snap, nil
}

func (m *Memory) Write(text, label string) error {
	m.mu.Lock()
	m.snap = Snapshot{Text: text, Label: label, Present: true}
	m.writes = append(m.writes, m.snap)
	m.mu.Unlock()
	m.notify()
	return nil
}

// Writes returns everything written through Write, oldest first.
func (m *Memory) Writes() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.writes))
	copy(out, m.writes)
	return out
}

// Current returns the clip without counting as a Read.
func (m *Memory) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribers returns the number of live subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Memory) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, c := range m.subs {
			if c == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}()
	return ch
}

func (m *Memory) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
