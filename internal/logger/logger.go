package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Component names the part of the system a log line comes from. It is
// rendered as the logger prefix, e.g. "repository/question".
type Component string

const (
	HTTP       Component = "http"
	Database   Component = "database"
	Migrations Component = "migrations"
	Repository Component = "repository"
	Blobs      Component = "blobs"
	Handler    Component = "handler"
	Service    Component = "service"
)

var (
	mu     sync.RWMutex
	Logger *log.Logger
)

// Initialize sets up the global logger. format is "text", "json" or "logfmt".
func Initialize(level, format string) {
	InitializeWriter(os.Stderr, level, format)
}

// InitializeWriter is Initialize with an explicit destination
func InitializeWriter(w io.Writer, level, format string) {
	l := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		Formatter:       ParseFormatter(format),
		ReportCaller:    true,
		ReportTimestamp: true,
	})

	mu.Lock()
	Logger = l
	mu.Unlock()

	l.Debug("Logger initialized", "level", strings.ToLower(level), "format", format)
}

// ParseLevel maps a textual level to a log.Level, falling back to info
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter maps a format name to a formatter, falling back to text
func ParseFormatter(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// Get returns the global logger, creating a text logger at info if needed
func Get() *log.Logger {
	mu.RLock()
	l := Logger
	mu.RUnlock()

	if l == nil {
		Initialize("info", "text")
		mu.RLock()
		l = Logger
		mu.RUnlock()
	}
	return l
}

// For returns a logger prefixed with the component and, optionally, a name
// inside it. Extra fields are attached to every line.
func For(c Component, name string, fields ...any) *log.Logger {
	prefix := string(c)
	if name != "" {
		prefix += "/" + name
	}

	l := Get().WithPrefix(prefix)
	if len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}
