package core

import (
	"context"
	"time"

	"github.com/purelink/purelink/internal/cleaner"
	"github.com/purelink/purelink/internal/history"
)

// Service defines the operations the TUI, the CLI and the HTTP API share.
// The local implementation runs them in-process; the remote one forwards
// them to a running instance.
type Service interface {
	// Clean rewrites the URLs in a piece of text.
	Clean(ctx context.Context, req CleanRequest) (CleanResult, error)

	// History returns up to limit recent cleans, newest first.
	History(ctx context.Context, limit int) ([]history.Item, error)

	// ClearHistory deletes all history entries.
	ClearHistory(ctx context.Context) error

	// Status reports the monitoring switch, counters and active rules.
	Status(ctx context.Context) (Status, error)

	// SetMonitoring turns clipboard monitoring on or off.
	SetMonitoring(ctx context.Context, enabled bool) error

	// UpdateRules fetches the remote rules now.
	UpdateRules(ctx context.Context) (RulesInfo, error)

	// ImportRules replaces the rules with a user-supplied list.
	ImportRules(ctx context.Context, names []string) (RulesInfo, error)

	// ResetRules restores the built-in rules.
	ResetRules(ctx context.Context) (RulesInfo, error)

	// StreamEvents returns a channel that receives events from the events
	// package, and a cleanup function that unsubscribes.
	// For local mode, this is a direct channel.
	// For remote mode, this is sourced from SSE.
	StreamEvents(ctx context.Context) (<-chan interface{}, func(), error)

	// Shutdown handles graceful shutdown of the service
	Shutdown() error
}

// CleanRequest is a manual clean, from the CLI or the API.
type CleanRequest struct {
	Text string `json:"text"`
	// Unshorten overrides the setting when not nil.
	Unshorten *bool `json:"unshorten,omitempty"`
	// Copy puts the result on the clipboard.
	Copy   bool   `json:"copy,omitempty"`
	Origin string `json:"origin,omitempty"`
}

type CleanResult struct {
	Text    string           `json:"text"`
	Changed bool             `json:"changed"`
	Changes []cleaner.Change `json:"changes,omitempty"`
	Copied  bool             `json:"copied"`
}

type RulesInfo struct {
	Count    int       `json:"count"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
}

type Status struct {
	Monitoring bool      `json:"monitoring"`
	Unshorten  bool      `json:"unshorten"`
	Cleaned    int64     `json:"cleaned"`
	Rules      RulesInfo `json:"rules"`
	Version    string    `json:"version"`
}
