package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kitwiz/miniapp-backend/pkg/config"
)

// Logger bundles the structured logger with its adjustable level and file sink.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  io.Closer
}

// New builds a slog logger according to cfg: stdout plus an optional rotated file,
// secret masking, and error forwarding to Sentry when enabled.
func New(cfg config.Config) *Logger {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Logger.Level))

	var (
		out  io.Writer = os.Stdout
		file io.Closer
	)
	if cfg.Logger.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.Logger.File,
			MaxSize:    cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAge:     cfg.Logger.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotated)
		file = rotated
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AppEnv != "production"}

	var base slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "text") {
		base = slog.NewTextHandler(out, opts)
	} else {
		base = slog.NewJSONHandler(out, opts)
	}

	handler := slog.Handler(NewMaskingHandler(base))
	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelError}.NewSentryHandler()
		handler = slogmulti.Fanout(handler, NewMaskingHandler(sentryHandler))
	}

	l := slog.New(handler).With(slog.String("env", cfg.AppEnv))

	return &Logger{Logger: l, level: level, file: file}
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) {
	if l == nil || l.level == nil {
		return
	}
	l.level.Set(ParseLevel(level))
}

// Close releases the rotated log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
