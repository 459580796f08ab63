package host

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a host message severity.
type Level int

const (
	LevelDebug5  Level = 10
	LevelDebug4  Level = 11
	LevelDebug3  Level = 12
	LevelDebug2  Level = 13
	LevelDebug1  Level = 14
	LevelLog     Level = 15
	LevelInfo    Level = 17
	LevelNotice  Level = 18
	LevelWarning Level = 19
	LevelError   Level = 21
)

func (l Level) String() string {
	switch {
	case l <= LevelDebug1:
		return "DEBUG"
	case l == LevelLog:
		return "LOG"
	case l == LevelInfo:
		return "INFO"
	case l == LevelNotice:
		return "NOTICE"
	case l == LevelWarning:
		return "WARNING"
	}
	return "ERROR"
}

// Reporter is the host's diagnostic channel.
type Reporter interface {
	Report(level Level, state, msg string)
}

// ZapReporter writes host messages to a zap logger.
type ZapReporter struct {
	Logger *zap.Logger
}

// NewZapReporter creates a reporter. A nil logger discards everything.
func NewZapReporter(l *zap.Logger) *ZapReporter {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapReporter{Logger: l}
}

// Report implements Reporter.
func (r *ZapReporter) Report(level Level, state, msg string) {
	fields := []zap.Field{zap.String("severity", level.String())}
	if state != "" {
		fields = append(fields, zap.String("sqlstate", state))
	}
	r.Logger.Log(zapLevel(level), msg, fields...)
}

func zapLevel(l Level) zapcore.Level {
	switch {
	case l <= LevelDebug1:
		return zapcore.DebugLevel
	case l <= LevelNotice:
		return zapcore.InfoLevel
	case l == LevelWarning:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}
