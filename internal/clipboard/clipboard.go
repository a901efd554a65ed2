// Package clipboard abstracts the system clipboard as read, write and
// change notification, so the watch loop can run against a fake.
package clipboard

import (
	"context"
	"errors"
)

// OwnLabel marks content purelink wrote itself.
const OwnLabel = "Cleaned by PureLink"

// ErrUnavailable is returned when no clipboard backend is usable.
var ErrUnavailable = errors.New("clipboard unavailable")

// Snapshot is the clipboard content at one point in time.
type Snapshot struct {
	Text    string
	Label   string
	Present bool
}

// Clipboard is the capability the watcher depends on.
type Clipboard interface {
	Read() (Snapshot, error)
	Write(text, label string) error
	// Subscribe delivers one value per observed change until ctx is done.
	// Bursts may be coalesced.
	Subscribe(ctx context.Context) <-chan struct{}
}
