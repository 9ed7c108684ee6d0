package logging

import (
	"context"
	"io"
	"log/slog"

	"go.uber.org/zap/zapcore"
)

// SlogLogger adapts a *slog.Logger to Logger. The command-line tools use it
// so that their output stays plain text on stderr.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// NewSlogText writes text records at or above level to w. Level names are
// the ones ParseLevel accepts.
func NewSlogText(w io.Writer, level string) *SlogLogger {
	var lvl slog.Level
	switch ParseLevel(level) {
	case zapcore.DebugLevel:
		lvl = slog.LevelDebug
	case zapcore.WarnLevel:
		lvl = slog.LevelWarn
	case zapcore.ErrorLevel:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
