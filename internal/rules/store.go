package rules

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/purelink/purelink/internal/utils"
)

// ErrEmptyRuleSet is returned when a reload would leave no rules at all.
var ErrEmptyRuleSet = errors.New("rule set is empty")

// Source describes where the active rules came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceCached  Source = "cached"
	SourceRemote  Source = "remote"
	SourceFile    Source = "file"
)

// Snapshot pairs a RuleSet with the Pattern compiled from it. Snapshots are
// never mutated; a reload publishes a new one.
type Snapshot struct {
	Rules    RuleSet
	Pattern  *Pattern
	Source   Source
	LoadedAt time.Time
}

// Store holds the active Snapshot. Readers never block.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a Store serving the default rules.
func NewStore() *Store {
	s := &Store{}
	rs := Default()
	s.current.Store(&Snapshot{
		Rules:    rs,
		Pattern:  Compile(rs),
		Source:   SourceDefault,
		LoadedAt: time.Now(),
	})
	return s
}

// Current returns the active snapshot. Callers that normalize several URLs
// should take one snapshot and use it for all of them.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Pattern is shorthand for Current().Pattern.
func (s *Store) Pattern() *Pattern {
	return s.Current().Pattern
}

// Reload replaces the rules wholesale. The pattern is compiled before the
// swap so readers only ever see a matching pair. On error the active
// snapshot is left untouched.
func (s *Store) Reload(names []string, src Source) error {
	rs := New(names)
	if rs.Len() == 0 {
		return ErrEmptyRuleSet
	}

	snap := &Snapshot{
		Rules:    rs,
		Pattern:  Compile(rs),
		Source:   src,
		LoadedAt: time.Now(),
	}
	s.current.Store(snap)

	log := utils.Logger("rules")
	log.Info().Int("count", rs.Len()).Str("source", string(src)).Msg("rules reloaded")
	return nil
}

// Reset restores the built-in rules.
func (s *Store) Reset() {
	rs := Default()
	s.current.Store(&Snapshot{
		Rules:    rs,
		Pattern:  Compile(rs),
		Source:   SourceDefault,
		LoadedAt: time.Now(),
	})
}

// ReloadPayload parses a JSON payload and reloads from it.
func (s *Store) ReloadPayload(data []byte, src Source) error {
	names, err := ParsePayload(data)
	if err != nil {
		return fmt.Errorf("invalid rules payload: %w", err)
	}
	return s.Reload(names, src)
}
