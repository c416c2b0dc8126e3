// Package logx provides structured logging with component-scoped loggers and
// environment-driven debug filtering.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level identifies the severity of a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger writes leveled, component-prefixed log lines.
type Logger struct {
	component string
	logger    *log.Logger
}

// debugConfig controls which components emit DEBUG lines.
type debugConfig struct {
	enabled    bool
	components map[string]bool // nil = all components
}

var (
	debugCfg = &debugConfig{}
	debugMu  sync.RWMutex
)

// init reads debug settings from the environment so that DEBUG=1 works
// without any wiring in main.
func init() { //nolint:gochecknoinits // env var initialization
	initDebugFromEnv()
}

func initDebugFromEnv() {
	debugMu.Lock()
	defer debugMu.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugCfg.enabled = true
	}

	// DEBUG_COMPONENTS=supervisor,ledger restricts debug output to those components.
	if components := os.Getenv("DEBUG_COMPONENTS"); components != "" {
		debugCfg.components = make(map[string]bool)
		for _, c := range strings.Split(components, ",") {
			debugCfg.components[strings.TrimSpace(c)] = true
		}
	}
}

// SetDebug enables or disables debug logging globally.
func SetDebug(enabled bool) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugCfg.enabled = enabled
}

// SetDebugComponents restricts debug logging to the named components.
// An empty list enables debug for all components.
func SetDebugComponents(components []string) {
	debugMu.Lock()
	defer debugMu.Unlock()

	if len(components) == 0 {
		debugCfg.components = nil
		return
	}
	debugCfg.components = make(map[string]bool, len(components))
	for _, c := range components {
		debugCfg.components[c] = true
	}
}

// NewLogger creates a logger scoped to a component ("supervisor", "ledger", ...).
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0), // stderr keeps stdout clean for CLI use
	}
}

func (l *Logger) logf(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%s [%s] %s: %s", timestamp, level, l.component, message)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.logf(LevelError, format, args...)
}

// Debug logs a debug message if debug logging is enabled for this component.
func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled() {
		return
	}
	l.logf(LevelDebug, format, args...)
}

func (l *Logger) debugEnabled() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()

	if !debugCfg.enabled {
		return false
	}
	if debugCfg.components == nil {
		return true
	}
	return debugCfg.components[l.component]
}
