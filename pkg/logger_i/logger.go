package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/akolanti/ClinicalRAG/internal/config"
)

// Logger keeps its attributes and resolves slog.Default on every call,
// so package level loggers created before Init still use the configured handler.
type Logger struct {
	args []any
}

// Init installs the default handler for the process. Services call it once in main.
func Init(service string) {
	settings := config.Get()
	InitWith(os.Stdout, settings.IsProd, settings.LogLevel, service)
}

func InitWith(w io.Writer, isProd bool, level string, service string) {
	options := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if isProd {
		if options.Level.Level() < config.LOG_LEVEL_PROD {
			options.Level = config.LOG_LEVEL_PROD
		}
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	newLogger := slog.New(handler)
	if service != "" {
		newLogger = newLogger.With("service", service)
	}
	slog.SetDefault(newLogger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func NewLogger(section string) *Logger {
	return &Logger{args: []any{"component", section}}
}

func (l *Logger) inner() *slog.Logger {
	return slog.Default().With(l.args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	inner := l.inner()
	if !inner.Enabled(context.Background(), level) {
		return
	}
	inner.Log(context.Background(), level, msg, args...)
}

// WithTrace attaches the trace id stored in ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		return l.With(config.TRACE_ID_KEY, trace)
	}
	return l
}

func (l *Logger) With(args ...any) *Logger {
	merged := make([]any, 0, len(l.args)+len(args))
	merged = append(merged, l.args...)
	return &Logger{args: append(merged, args...)}
}
