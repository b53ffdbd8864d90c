package logger

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter implements fxevent.Logger on top of the package's slog logger.
// Container chatter stays at DEBUG; only failures reach the run log at ERROR.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx with the event kind and the hook or type it concerns as attributes.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		logHook("on_start", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuted:
		logHook("on_stop", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		logOutcome("supplied", e.Err, slog.String("type", e.TypeName))
	case *fxevent.Provided:
		if e.Err != nil {
			logOutcome("provided", e.Err, slog.String("constructor", hookName(e.ConstructorName)))
			return
		}
		for _, name := range e.OutputTypeNames {
			logOutcome("provided", nil, slog.String("type", name))
		}
	case *fxevent.Invoked:
		logOutcome("invoked", e.Err, slog.String("function", hookName(e.FunctionName)))
	case *fxevent.Stopping:
		logOutcome("stopping", nil, slog.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		logOutcome("stopped", e.Err)
	case *fxevent.RollingBack:
		logOutcome("rolling_back", e.StartErr)
	case *fxevent.RolledBack:
		logOutcome("rolled_back", e.Err)
	case *fxevent.Started:
		logOutcome("started", e.Err)
	case *fxevent.LoggerInitialized:
		logOutcome("logger_initialized", e.Err, slog.String("constructor", hookName(e.ConstructorName)))
	}
}

func logHook(kind, function, runtime string, err error) {
	logOutcome(kind, err, slog.String("function", hookName(function)), slog.String("runtime", runtime))
}

func logOutcome(kind string, err error, attrs ...slog.Attr) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	Slog().LogAttrs(context.Background(), level, "fx "+kind, attrs...)
}

// hookName strips the ".funcN" suffix fx reports for closures so the enclosing constructor is shown.
func hookName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
