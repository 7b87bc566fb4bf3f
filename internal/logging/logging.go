// Package logging configures the zerolog logger shared by the whole program.
// The terminal belongs to the TUI while it runs, so logs only go to a file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
)

// L returns the current logger. Before Setup it discards everything.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// ParseLevel maps a config/flag string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "d", "verbose", "v":
		return zerolog.DebugLevel
	case "warn", "warning", "w":
		return zerolog.WarnLevel
	case "error", "e":
		return zerolog.ErrorLevel
	case "quiet", "q", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Setup points the logger at path, creating parent directories as needed.
// The returned closer flushes and closes the file.
func Setup(path string, level zerolog.Level) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	SetOutput(zerolog.ConsoleWriter{Out: f, TimeFormat: "15:04:05", NoColor: true}, level)
	return f, nil
}

// SetOutput replaces the logger with one writing to w at level.
func SetOutput(w io.Writer, level zerolog.Level) {
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Path returns where the debug log lives. When running from the project
// directory (go run, ./bin/dualfm) logs go to .logs/debug.log; an installed
// binary logs to $XDG_STATE_HOME/dualfm/debug.log.
func Path() string {
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		cwd, _ := os.Getwd()
		if strings.HasPrefix(exeDir, cwd) || strings.Contains(exeDir, "go-build") {
			return filepath.Join(cwd, ".logs", "debug.log")
		}
	}
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, _ := os.UserHomeDir()
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "dualfm", "debug.log")
}
