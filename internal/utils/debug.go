package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	debugFile *os.File
	debugOnce sync.Once
	logsDir   string
	level     = zerolog.InfoLevel
	console   io.Writer
	base      = zerolog.Nop()
	mu        sync.RWMutex
)

const logPrefix = "debug-"

// ConfigureDebug sets the directory for debug logs and the minimum level
// derived from a -v count (0 info, 1 debug, 2+ trace).
func ConfigureDebug(dir string, verbosity int) {
	mu.Lock()
	defer mu.Unlock()
	logsDir = dir
	switch {
	case verbosity <= 0:
		level = zerolog.InfoLevel
	case verbosity == 1:
		level = zerolog.DebugLevel
	default:
		level = zerolog.TraceLevel
	}
}

// ConfigureConsole mirrors log output to w (stderr in headless mode).
// Passing nil disables the mirror.
func ConfigureConsole(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		console = nil
	} else {
		console = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	rebuild()
}

// rebuild must be called with mu held.
func rebuild() {
	var writers []io.Writer
	if debugFile != nil {
		writers = append(writers, debugFile)
	}
	if console != nil {
		writers = append(writers, console)
	}
	if len(writers) == 0 {
		base = zerolog.Nop()
		return
	}
	base = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
}

func open() {
	debugOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if logsDir == "" {
			rebuild()
			return
		}
		_ = os.MkdirAll(logsDir, 0o755)
		name := fmt.Sprintf("%s%s.log", logPrefix, time.Now().Format("20060102-150405"))
		debugFile, _ = os.Create(filepath.Join(logsDir, name))
		rebuild()
	})
}

// Logger returns a logger tagged with the given component name.
// Without ConfigureDebug it discards everything.
func Logger(component string) zerolog.Logger {
	open()
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

// Debug writes a printf-style message to the debug log
func Debug(format string, args ...any) {
	open()
	mu.RLock()
	l := base
	mu.RUnlock()
	l.Debug().Msgf(format, args...)
}

// CleanupLogs removes old debug logs, keeping the newest retention files.
func CleanupLogs(retention int) {
	mu.RLock()
	dir := logsDir
	mu.RUnlock()
	if dir == "" || retention < 0 {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), logPrefix) || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		logs = append(logs, e.Name())
	}
	if len(logs) <= retention {
		return
	}

	// timestamped names sort chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(logs)))
	for _, name := range logs[retention:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			Debug("Failed to remove old log %s: %v", name, err)
		}
	}
}
