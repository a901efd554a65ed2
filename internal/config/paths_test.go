package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetPureLinkDir_HomeOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(HomeEnv, tmpDir)

	if got := GetPureLinkDir(); got != tmpDir {
		t.Errorf("GetPureLinkDir() = %s, want %s", got, tmpDir)
	}
	if got, want := GetStateDir(), filepath.Join(tmpDir, "state"); got != want {
		t.Errorf("GetStateDir() = %s, want %s", got, want)
	}
}

func TestGetPureLinkDir_Default(t *testing.T) {
	t.Setenv(HomeEnv, "")

	dir := GetPureLinkDir()
	if dir == "" {
		t.Fatal("GetPureLinkDir returned empty string")
	}
	if !strings.Contains(strings.ToLower(dir), "purelink") {
		t.Errorf("Expected path to contain 'purelink', got: %s", dir)
	}
}

func TestGetLogsDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	dir := GetLogsDir()
	if !strings.HasSuffix(dir, "logs") {
		t.Errorf("Expected path to end with 'logs', got: %s", dir)
	}
	if !strings.HasPrefix(dir, GetStateDir()) {
		t.Errorf("LogsDir %s should be under StateDir %s", dir, GetStateDir())
	}
}

func TestFilePaths(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(HomeEnv, tmpDir)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"rules", GetRulesPath(), filepath.Join(tmpDir, "rules_v1.json")},
		{"history", GetHistoryDBPath(), filepath.Join(tmpDir, "state", "history.db")},
		{"port", GetPortPath(), filepath.Join(tmpDir, "port")},
		{"settings", GetSettingsPath(), filepath.Join(tmpDir, "settings.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(HomeEnv, filepath.Join(tmpDir, "nested", "purelink"))

	if err := EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}

	for _, dir := range []string{GetPureLinkDir(), GetStateDir(), GetLogsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("directory %s not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
