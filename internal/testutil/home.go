// Package testutil isolates tests from the user's purelink directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/history"
)

// Home points every purelink path at a fresh temp dir and opens a history
// database there. The database is closed when the test ends.
func Home(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.HomeEnv, dir)
	require.NoError(t, config.EnsureDirs())

	history.CloseDB()
	history.Configure(config.GetHistoryDBPath())
	t.Cleanup(history.CloseDB)
	return dir
}

// WriteFile creates name under dir with content and returns its path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
