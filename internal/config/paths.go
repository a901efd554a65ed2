package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "purelink"

// HomeEnv overrides every purelink directory when set.
const HomeEnv = "PURELINK_HOME"

// GetPureLinkDir returns the directory holding settings, rules and the port file.
func GetPureLinkDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

// Returns directory for state files (history database, lock)
func GetStateDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(home, "state")
	}
	return filepath.Join(xdg.StateHome, appName)
}

// Returns directory for logs
func GetLogsDir() string {
	return filepath.Join(GetStateDir(), "logs")
}

// GetRulesPath returns the path of the persisted remote rules.
func GetRulesPath() string {
	return filepath.Join(GetPureLinkDir(), "rules_v1.json")
}

// GetHistoryDBPath returns the path of the SQLite history database.
func GetHistoryDBPath() string {
	return filepath.Join(GetStateDir(), "history.db")
}

// GetPortPath returns the file the API server writes its port to.
func GetPortPath() string {
	return filepath.Join(GetPureLinkDir(), "port")
}

// EnsureDirs creates all required directories
func EnsureDirs() error {
	dirs := []string{GetPureLinkDir(), GetStateDir(), GetLogsDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
