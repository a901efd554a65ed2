package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General  GeneralSettings  `json:"general"`
	Rules    RulesSettings    `json:"rules"`
	Resolver ResolverSettings `json:"resolver"`
	Watch    WatchSettings    `json:"watch"`
	Server   ServerSettings   `json:"server"`
	History  HistorySettings  `json:"history"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	MonitoringActive  bool `json:"monitoring_active"`
	Unshorten         bool `json:"unshorten"`
	Bell              bool `json:"bell"`
	DesktopNotify     bool `json:"desktop_notify"`
	LogRetentionCount int  `json:"log_retention_count"`
}

// RulesSettings controls where tracking rules come from and how often they refresh.
type RulesSettings struct {
	SourceURL       string        `json:"source_url"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	RetryInterval   time.Duration `json:"retry_interval"`
	FetchTimeout    time.Duration `json:"fetch_timeout"`
}

// ResolverSettings contains parameters for single-hop link unshortening.
type ResolverSettings struct {
	Timeout     time.Duration `json:"timeout"`
	UserAgent   string        `json:"user_agent"`
	MaxParallel int           `json:"max_parallel"`
}

// WatchSettings tunes the clipboard watch loop.
type WatchSettings struct {
	PollInterval time.Duration `json:"poll_interval"`
	QuietWindow  time.Duration `json:"quiet_window"`
}

// ServerSettings contains the local API server parameters.
type ServerSettings struct {
	Port int `json:"port"`
}

// HistorySettings contains history retention parameters.
type HistorySettings struct {
	Limit int `json:"limit"`
}

// EnvPrefix is the prefix of environment overrides, e.g.
// PURELINK_GENERAL_UNSHORTEN=true or PURELINK_WATCH_QUIET_WINDOW=750ms.
const EnvPrefix = "PURELINK_"

const (
	// DefaultRulesURL serves {"blocklist": [...]}.
	DefaultRulesURL = "https://raw.githubusercontent.com/ahmedthebest31/PureLink/main/rules.json"

	// MinQuietWindow is the shortest gate window that still outlasts the
	// redelivery of a self-triggered change notification.
	MinQuietWindow  = 500 * time.Millisecond
	MinPollInterval = 50 * time.Millisecond
	DefaultPort     = 1750
)

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text
	Type        string // "string", "int", "bool", "duration"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "monitoring_active", Label: "Monitoring", Description: "Watch the clipboard and clean copied links automatically.", Type: "bool"},
			{Key: "unshorten", Label: "Unshorten Links", Description: "Follow one redirect hop to reveal where short links point.", Type: "bool"},
			{Key: "bell", Label: "Bell", Description: "Ring the terminal bell after a clean.", Type: "bool"},
			{Key: "desktop_notify", Label: "Desktop Notification", Description: "Show a desktop notification after a clean.", Type: "bool"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
		},
		"Rules": {
			{Key: "source_url", Label: "Rules URL", Description: "Where the tracking parameter blocklist is fetched from.", Type: "string"},
			{Key: "refresh_interval", Label: "Refresh Interval", Description: "How often rules are refreshed in the background (e.g., 24h).", Type: "duration"},
			{Key: "retry_interval", Label: "Retry Interval", Description: "First retry delay after a failed refresh (e.g., 15m).", Type: "duration"},
			{Key: "fetch_timeout", Label: "Fetch Timeout", Description: "Timeout for a single rules download.", Type: "duration"},
		},
		"Resolver": {
			{Key: "timeout", Label: "Timeout", Description: "Connect and read timeout for unshortening (e.g., 6s).", Type: "duration"},
			{Key: "user_agent", Label: "User Agent", Description: "User-Agent sent when unshortening. Leave empty for a desktop browser string.", Type: "string"},
			{Key: "max_parallel", Label: "Max Parallel", Description: "Distinct links resolved at once (1-16).", Type: "int"},
		},
		"Watch": {
			{Key: "poll_interval", Label: "Poll Interval", Description: "How often the clipboard is checked for changes.", Type: "duration"},
			{Key: "quiet_window", Label: "Quiet Window", Description: "How long change notifications are ignored after a self-write (min 500ms).", Type: "duration"},
		},
		"Server": {
			{Key: "port", Label: "API Port", Description: "Local API port. 0 picks the first free port from 1750.", Type: "int"},
		},
		"History": {
			{Key: "limit", Label: "History Size", Description: "Number of cleaned links kept in history.", Type: "int"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Rules", "Resolver", "Watch", "Server", "History"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			MonitoringActive:  true,
			Unshorten:         false,
			Bell:              true,
			DesktopNotify:     true,
			LogRetentionCount: 5,
		},
		Rules: RulesSettings{
			SourceURL:       DefaultRulesURL,
			RefreshInterval: 24 * time.Hour,
			RetryInterval:   15 * time.Minute,
			FetchTimeout:    10 * time.Second,
		},
		Resolver: ResolverSettings{
			Timeout:     6 * time.Second,
			UserAgent:   "", // Empty means desktop browser UA
			MaxParallel: 4,
		},
		Watch: WatchSettings{
			PollInterval: 250 * time.Millisecond,
			QuietWindow:  600 * time.Millisecond,
		},
		Server: ServerSettings{
			Port: 0,
		},
		History: HistorySettings{
			Limit: 10,
		},
	}
}

// Validate clamps out-of-range values back into their supported ranges.
func (s *Settings) Validate() {
	if s.Watch.PollInterval < MinPollInterval {
		s.Watch.PollInterval = MinPollInterval
	}
	if s.Watch.QuietWindow < MinQuietWindow {
		s.Watch.QuietWindow = MinQuietWindow
	}
	// the gate must outlast at least two polls or the echo slips through
	if s.Watch.QuietWindow <= 2*s.Watch.PollInterval {
		s.Watch.QuietWindow = 2*s.Watch.PollInterval + 100*time.Millisecond
	}
	if s.Resolver.Timeout < time.Second {
		s.Resolver.Timeout = time.Second
	}
	if s.Resolver.Timeout > 30*time.Second {
		s.Resolver.Timeout = 30 * time.Second
	}
	if s.Resolver.MaxParallel < 1 {
		s.Resolver.MaxParallel = 1
	}
	if s.Resolver.MaxParallel > 16 {
		s.Resolver.MaxParallel = 16
	}
	if s.Rules.FetchTimeout <= 0 {
		s.Rules.FetchTimeout = 10 * time.Second
	}
	if s.Rules.RefreshInterval < time.Minute {
		s.Rules.RefreshInterval = time.Minute
	}
	if s.Rules.RetryInterval <= 0 {
		s.Rules.RetryInterval = time.Minute
	}
	if s.Rules.SourceURL == "" {
		s.Rules.SourceURL = DefaultRulesURL
	}
	if s.History.Limit < 1 {
		s.History.Limit = 1
	}
	if s.General.LogRetentionCount < 0 {
		s.General.LogRetentionCount = 0
	}
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		s.Server.Port = 0
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetPureLinkDir(), "settings.json")
}

// LoadSettings loads settings from disk, then applies PURELINK_* environment
// overrides. Returns defaults if the file doesn't exist.
func LoadSettings() (*Settings, error) {
	settings, err := loadFile(GetSettingsPath())
	if err != nil {
		return nil, err
	}
	if err := applyEnv(settings); err != nil {
		return nil, err
	}
	settings.Validate()
	return settings, nil
}

func loadFile(path string) (*Settings, error) {
	settings := DefaultSettings() // Start with defaults to fill any missing fields

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return settings, nil
}

// applyEnv overlays PURELINK_* environment variables onto s.
func applyEnv(s *Settings) error {
	found := false
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix) && !strings.HasPrefix(kv, HomeEnv+"=") {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		// the first underscore separates category from key
		return strings.Replace(key, "_", ".", 1)
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load env overrides: %w", err)
	}

	conf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           s,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", s, conf); err != nil {
		return fmt.Errorf("invalid env override: %w", err)
	}
	return nil
}

var saveMu sync.Mutex

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	saveMu.Lock()
	defer saveMu.Unlock()
	return saveLocked(s)
}

func saveLocked(s *Settings) error {
	path := GetSettingsPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// UpdateSettings loads the settings file, applies fn and saves the result.
// Environment overrides are not written back.
func UpdateSettings(fn func(*Settings)) (*Settings, error) {
	saveMu.Lock()
	defer saveMu.Unlock()

	s, err := loadFile(GetSettingsPath())
	if err != nil {
		return nil, err
	}
	fn(s)
	s.Validate()
	if err := saveLocked(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Set assigns one setting addressed as "category.key" (e.g. "watch.quiet_window")
// from its string form and saves the result. Values are validated like any
// loaded file.
func Set(path, value string) (*Settings, error) {
	category, key, ok := strings.Cut(strings.ToLower(strings.TrimSpace(path)), ".")
	if !ok || category == "" || key == "" {
		return nil, fmt.Errorf("invalid setting %q: want category.key", path)
	}
	if _, found := lookupMeta(category, key); !found {
		return nil, fmt.Errorf("unknown setting %q", path)
	}

	saveMu.Lock()
	defer saveMu.Unlock()

	s, err := loadFile(GetSettingsPath())
	if err != nil {
		return nil, err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           s,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]interface{}{
		category: map[string]interface{}{key: value},
	}); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", path, err)
	}
	s.Validate()
	if err := saveLocked(s); err != nil {
		return nil, err
	}
	return s, nil
}

func lookupMeta(category, key string) (SettingMeta, bool) {
	for cat, metas := range GetSettingsMetadata() {
		if strings.ToLower(cat) != category {
			continue
		}
		for _, m := range metas {
			if m.Key == key {
				return m, true
			}
		}
	}
	return SettingMeta{}, false
}
