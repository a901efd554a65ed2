package watch

import (
	"sync"
	"sync/atomic"
	"time"
)

// State of the processing gate.
type State int32

const (
	// Idle accepts change notifications.
	Idle State = iota
	// Gated ignores change notifications while a self-write settles.
	Gated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Gated:
		return "gated"
	}
	return "unknown"
}

// Gate is the two-state reentrancy guard. The state is read and written
// only through atomics, so the release timer and the watch loop can both
// touch it.
type Gate struct {
	state      atomic.Int32
	acquiredAt atomic.Int64

	mu    sync.Mutex
	timer *time.Timer
}

// State returns the current state.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// AcquiredAt returns when the gate was last closed.
func (g *Gate) AcquiredAt() time.Time {
	n := g.acquiredAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// TryAcquire moves Idle to Gated. It reports false if the gate was already
// Gated.
func (g *Gate) TryAcquire() bool {
	if !g.state.CompareAndSwap(int32(Idle), int32(Gated)) {
		return false
	}
	g.acquiredAt.Store(time.Now().UnixNano())
	return true
}

// ReleaseAfter schedules the move back to Idle. onRelease, if not nil, runs
// on the timer goroutine right after the gate opens.
func (g *Gate) ReleaseAfter(d time.Duration, onRelease func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(d, func() {
		g.state.Store(int32(Idle))
		if onRelease != nil {
			onRelease()
		}
	})
}

// Release opens the gate immediately and cancels a pending timer.
func (g *Gate) Release() {
	g.mu.Lock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.mu.Unlock()
	g.state.Store(int32(Idle))
}
