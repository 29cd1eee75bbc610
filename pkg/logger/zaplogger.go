package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// ZapLogger adapts a sugared zap logger to Logger.
type ZapLogger struct {
	log *zap.SugaredLogger
}

var current atomic.Pointer[ZapLogger]

// NewLogger builds config and installs the result as the process logger.
// The caller skip accounts for the package-level helpers.
func NewLogger(config zap.Config) (*ZapLogger, error) {
	base, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	l := &ZapLogger{log: base.Sugar()}
	current.Store(l)
	return l, nil
}

// NewNop installs a logger that discards everything.
func NewNop() *ZapLogger {
	l := &ZapLogger{log: zap.NewNop().Sugar()}
	current.Store(l)
	return l
}

func GetLogger() *ZapLogger {
	l := current.Load()
	if l == nil {
		panic("logger not initialized")
	}
	return l
}

// With returns a child logger carrying the given key-value pairs on every
// entry. The child is called directly, so one frame less is skipped.
func (l *ZapLogger) With(values ...any) *ZapLogger {
	base := l.log.Desugar().WithOptions(zap.AddCallerSkip(-1))
	return &ZapLogger{log: base.Sugar().With(values...)}
}

func (l *ZapLogger) Info(message string, values ...any)  { l.log.Infow(message, values...) }
func (l *ZapLogger) Warn(message string, values ...any)  { l.log.Warnw(message, values...) }
func (l *ZapLogger) Error(message string, values ...any) { l.log.Errorw(message, values...) }
func (l *ZapLogger) Debug(message string, values ...any) { l.log.Debugw(message, values...) }
func (l *ZapLogger) Panic(message string, values ...any) { l.log.Panicw(message, values...) }

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

// Printf lets the logger back fasthttp.Server.Logger.
func (l *ZapLogger) Printf(format string, args ...any) {
	l.log.Infof(format, args...)
}
