package types

import (
	"go.uber.org/zap"
)

type Logger interface {
	Printf(format string, v ...interface{})
}

// ZapLogger adapts a zap logger to the `Logger` interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger wraps l. A nil logger is replaced by a no-op one.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.Sugar()}
}

// Printf logs a formatted message at info level.
func (l *ZapLogger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Zap returns the underlying zap logger.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

// DefaultLogger returns a `Logger` implementation backed by a production zap logger.
func DefaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return NewZapLogger(nil)
	}
	return NewZapLogger(l)
}

func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}

	return DefaultLogger()
}

// ZapOf returns the zap logger behind l, or a no-op logger when l is not zap backed.
func ZapOf(l Logger) *zap.Logger {
	if zl, ok := l.(*ZapLogger); ok {
		return zl.Zap()
	}
	return zap.NewNop()
}
