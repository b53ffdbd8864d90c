// Package logger provides the leveled logging utility used across the pipeline.
// Messages are formatted printf-style and emitted through log/slog. When a log file is
// configured, every record is fanned out to both the console and an append-only JSON
// run log so operators can follow a long batch after the fact.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues or warning messages.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for fatal error messages that cause application termination.
	LevelFatal
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	// levelVar is shared by every handler so SetLogLevel takes effect without rebuilding them.
	levelVar = new(slog.LevelVar)
	base     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	exitFunc = os.Exit
)

// ParseLevel converts a level name ("DEBUG", "INFO", "WARN", "ERROR", "FATAL", case-insensitive)
// into a LogLevel. Unknown names yield LevelInfo and false.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global log level.
// If an invalid value is specified, the default "INFO" level is used and a warning is logged.
func SetLogLevel(level string) {
	parsed, ok := ParseLevel(level)
	mu.Lock()
	logLevel = parsed
	levelVar.Set(toSlogLevel(parsed))
	mu.Unlock()
	if !ok {
		Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// Configure installs the console handler and, when file is non-empty, a JSON handler that appends
// to file. The returned cleanup closes the file. If the file cannot be opened, logging continues
// on the console only and the open error is returned alongside a no-op cleanup.
func Configure(level, file string) (func() error, error) {
	SetLogLevel(level)

	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar})
	if file == "" {
		setBase(slog.New(console))
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		setBase(slog.New(console))
		return func() error { return nil }, fmt.Errorf("open log file %s: %w", file, err)
	}
	jsonHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: levelVar})
	setBase(slog.New(slogmulti.Fanout(console, jsonHandler)))
	return f.Close, nil
}

// ConfigureWriters routes console output to console and the run log to runLog.
// Either writer may be nil. Intended for tests and embedding.
func ConfigureWriters(level string, console, runLog io.Writer) {
	SetLogLevel(level)
	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{Level: levelVar}))
	}
	if runLog != nil {
		handlers = append(handlers, slog.NewJSONHandler(runLog, &slog.HandlerOptions{Level: levelVar}))
	}
	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(io.Discard, nil))
	}
	setBase(slog.New(slogmulti.Fanout(handlers...)))
}

// Slog exposes the underlying structured logger for components that want attributes.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func setBase(l *slog.Logger) {
	mu.Lock()
	base = l
	mu.Unlock()
}

func toSlogLevel(l LogLevel) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFatal:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func emit(level slog.Level, format string, v ...interface{}) {
	Slog().Log(context.Background(), level, fmt.Sprintf(format, v...))
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	emit(slog.LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	emit(slog.LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	emit(slog.LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	emit(slog.LevelError, format, v...)
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	Slog().Log(context.Background(), slog.LevelError, fmt.Sprintf(format, v...), slog.Bool("fatal", true))
	exitFunc(1)
}
