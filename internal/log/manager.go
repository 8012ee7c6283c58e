package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/pinecone-robotics/sentry-core/pkg/workpool"
)

// LoggerDef mirrors one entry of the `logs` configuration section: a named
// logger, its level, and the appenders it fans out to.
type LoggerDef struct {
	Name      string
	Level     string
	Appenders []AppenderDef
}

// AppenderDef describes one appender attached to a LoggerDef.
type AppenderDef struct {
	Type    string // "FileLogAppender" or "StdoutLogAppender"
	Pattern string
	Path    string // only meaningful for FileLogAppender
}

// namedLogger is the live, built form of a LoggerDef.
type namedLogger struct {
	level     slog.Level
	formatter *Formatter
	appenders []Appender
}

// Manager builds and hot-swaps the set of named loggers described by the
// `logs` configuration section, and exposes a slog.Handler per name.
type Manager struct {
	mu      sync.RWMutex
	loggers map[string]*namedLogger
	pool    *workpool.Pool
}

// NewManager returns an empty Manager backed by a workpool used for every
// FileLogAppender it builds.
func NewManager(filePoolSize int) *Manager {
	return &Manager{
		loggers: map[string]*namedLogger{},
		pool:    workpool.New(filePoolSize),
	}
}

// ParseDefs decodes the raw `logs` config section (a YAML sequence of
// maps) into LoggerDefs.
func ParseDefs(section any) ([]LoggerDef, error) {
	seq, ok := section.([]any)
	if !ok {
		return nil, fmt.Errorf("log: logs section is not a sequence (%T)", section)
	}
	defs := make([]LoggerDef, 0, len(seq))
	for _, item := range seq {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("log: logger entry is not a map (%T)", item)
		}
		def := LoggerDef{
			Name:  stringField(m, "name"),
			Level: stringField(m, "level"),
		}
		rawAppenders, _ := m["appenders"].([]any)
		for _, ra := range rawAppenders {
			am, ok := ra.(map[string]any)
			if !ok {
				continue
			}
			def.Appenders = append(def.Appenders, AppenderDef{
				Type:    stringField(am, "type"),
				Pattern: stringField(am, "pattern"),
				Path:    stringField(am, "path"),
			})
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Reload rebuilds the manager's loggers from defs, closing whatever
// appenders the previous generation owned. Suitable as a
// config.Registry.OnChange("logs", ...) callback (after ParseDefs).
func (m *Manager) Reload(defs []LoggerDef) error {
	built := make(map[string]*namedLogger, len(defs))
	for _, def := range defs {
		nl, err := m.build(def)
		if err != nil {
			return fmt.Errorf("log: build logger %q: %w", def.Name, err)
		}
		built[def.Name] = nl
	}

	m.mu.Lock()
	old := m.loggers
	m.loggers = built
	m.mu.Unlock()

	for _, nl := range old {
		for _, a := range nl.appenders {
			a.Close()
		}
	}
	return nil
}

func (m *Manager) build(def LoggerDef) (*namedLogger, error) {
	level := parseLevel(def.Level)
	appenders := make([]Appender, 0, len(def.Appenders))
	for _, ad := range def.Appenders {
		pattern := ad.Pattern
		if pattern == "" {
			pattern = "%d{2006-01-02T15:04:05} %p %c - %m%n"
		}
		formatter, err := ParsePattern(pattern)
		if err != nil {
			return nil, err
		}
		var appender Appender
		switch ad.Type {
		case "FileLogAppender":
			a, err := NewFileAppender(ad.Path, m.pool)
			if err != nil {
				return nil, err
			}
			appender = a
		default:
			appender = NewStdoutAppender()
		}
		appenders = append(appenders, appenderWithFormatter{Appender: appender, formatter: formatter})
	}
	return &namedLogger{level: level, appenders: appenders}, nil
}

// appenderWithFormatter binds a compiled Formatter to an Appender so
// Manager.Handler doesn't need to look one up per record.
type appenderWithFormatter struct {
	Appender
	formatter *Formatter
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler returns an slog.Handler that dispatches to name's appenders, or
// a stdout-only fallback if name has no configured logger.
func (m *Manager) Handler(name string) slog.Handler {
	return &namedHandler{manager: m, name: name}
}

// Close drains the file-write pool, so every queued line lands, and then
// closes every current appender.
func (m *Manager) Close() {
	m.pool.Close()
	m.mu.RLock()
	loggers := m.loggers
	m.mu.RUnlock()
	for _, nl := range loggers {
		for _, a := range nl.appenders {
			a.Close()
		}
	}
}

// namedHandler implements slog.Handler against a Manager's live logger
// set, re-resolved on every call so a hot reload takes effect immediately.
type namedHandler struct {
	manager *Manager
	name    string
	attrs   []slog.Attr
}

func (h *namedHandler) Enabled(_ context.Context, level slog.Level) bool {
	nl := h.current()
	if nl == nil {
		return level >= slog.LevelInfo
	}
	return level >= nl.level
}

var fallbackFormatter, _ = ParsePattern("%d{2006-01-02T15:04:05} %p %c - %m%n")

func (h *namedHandler) Handle(_ context.Context, r slog.Record) error {
	nl := h.current()
	file, line := sourceLocation(r)
	if nl == nil {
		l := Line{Message: formatMessage(r, h.attrs), Level: r.Level.String(), LoggerName: h.name, Time: r.Time, File: file, Line: line}
		fmt.Println(fallbackFormatter.Format(l))
		return nil
	}
	l := Line{
		Message:    formatMessage(r, h.attrs),
		Level:      r.Level.String(),
		LoggerName: h.name,
		Time:       r.Time,
		File:       file,
		Line:       line,
	}
	for _, a := range nl.appenders {
		afmt := a.(appenderWithFormatter)
		afmt.Emit(afmt.formatter.Format(l))
	}
	return nil
}

func (h *namedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &namedHandler{manager: h.manager, name: h.name, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *namedHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *namedHandler) current() *namedLogger {
	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()
	return h.manager.loggers[h.name]
}

func formatMessage(r slog.Record, attrs []slog.Attr) string {
	msg := r.Message
	all := append([]slog.Attr{}, attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, a)
		return true
	})
	for _, a := range all {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	return msg
}

func sourceLocation(r slog.Record) (file string, line int) {
	if r.PC == 0 {
		return "", 0
	}
	frames := runtime.CallersFrames([]uintptr{r.PC})
	f, _ := frames.Next()
	return f.File, f.Line
}
