// Package logging provides categorized file-based diagnostic logging for the
// cubicle engine. Each category writes to its own file under <dir>/logs/ so
// a misbehaving capability (judge drifting out of range, actors narrating
// instead of speaking) can be investigated in isolation. When debug mode is
// off every call is a no-op; process-level logging is zap's job in cmd.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Category identifies one diagnostic log stream.
type Category string

const (
	CategoryBoot      Category = "boot"      // startup and wiring
	CategorySession   Category = "session"   // lifecycle manager operations
	CategoryTurn      Category = "turn"      // orchestrator state machine
	CategoryGuardrail Category = "guardrail" // validation and repairs
	CategoryDrift     Category = "drift"     // drift signals per turn
	CategoryAgents    Category = "agents"    // capability calls and latency
	CategoryStore     Category = "store"     // persistence operations
	CategoryContent   Category = "content"   // module loading and reloads
	CategoryAPI       Category = "api"       // HTTP layer
)

// Level gates which messages are written.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Options configures the logging system. Zero value = disabled.
type Options struct {
	Enabled    bool
	Dir        string          // root directory; logs land in Dir/logs
	Level      string          // debug|info|warn|error, default info
	Categories map[string]bool // nil = all categories enabled
}

// Logger writes to a single category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu      sync.RWMutex
	opts    Options
	level   int
	logsDir string
	loggers = make(map[Category]*Logger)
)

// Initialize sets up the logging directory and level. Call once at startup;
// safe to skip entirely (all calls no-op).
func Initialize(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	opts = o
	switch o.Level {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	default:
		level = LevelInfo
	}

	if !o.Enabled {
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("logging dir required when enabled")
	}
	logsDir = filepath.Join(o.Dir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}
	return nil
}

func categoryEnabled(c Category) bool {
	if !opts.Enabled {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(c)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category. Disabled categories
// get a no-op logger.
func Get(c Category) *Logger {
	mu.RLock()
	if !categoryEnabled(c) || logsDir == "" {
		mu.RUnlock()
		return &Logger{category: c}
	}
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	path := filepath.Join(logsDir, string(c)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] cannot open %s: %v\n", path, err)
		return &Logger{category: c}
	}
	l := &Logger{
		category: c,
		logger:   log.New(f, "", log.LstdFlags|log.Lmicroseconds),
		file:     f,
	}
	loggers[c] = l
	return l
}

func (l *Logger) write(lvl int, tag, format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	mu.RLock()
	gate := level
	mu.RUnlock()
	if lvl < gate {
		return
	}
	l.logger.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "WARN", format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", format, args...)
}

// CloseAll flushes and closes every open category file.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for c, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
		delete(loggers, c)
	}
	logsDir = ""
}

// Convenience wrappers, one pair per category the pipeline logs from.

func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

func Turn(format string, args ...interface{}) { Get(CategoryTurn).Info(format, args...) }

func TurnDebug(format string, args ...interface{}) { Get(CategoryTurn).Debug(format, args...) }

func Guardrail(format string, args ...interface{}) { Get(CategoryGuardrail).Info(format, args...) }

func GuardrailWarn(format string, args ...interface{}) { Get(CategoryGuardrail).Warn(format, args...) }

func Drift(format string, args ...interface{}) { Get(CategoryDrift).Info(format, args...) }

func Agents(format string, args ...interface{}) { Get(CategoryAgents).Info(format, args...) }

func AgentsDebug(format string, args ...interface{}) { Get(CategoryAgents).Debug(format, args...) }

func AgentsWarn(format string, args ...interface{}) { Get(CategoryAgents).Warn(format, args...) }

func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

func Content(format string, args ...interface{}) { Get(CategoryContent).Info(format, args...) }

func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }
