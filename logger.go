package jsonsql

import (
	"fmt"

	"go.uber.org/zap"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelDev
	LogLevelProd
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewLogger builds a zap backed Logger for the given level. LogLevelNone
// returns a logger that discards everything.
func NewLogger(level LogLevel) (Logger, error) {
	switch level {
	case LogLevelNone:
		return &zapLogger{zap.NewNop().Sugar()}, nil
	case LogLevelDev:
		l, err := zap.NewDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		return &zapLogger{l.Sugar()}, nil
	case LogLevelProd:
		l, err := zap.NewProductionConfig().Build()
		if err != nil {
			return nil, err
		}
		return &zapLogger{l.Sugar()}, nil
	default:
		return nil, fmt.Errorf("log level should be one of LogLevelNone, LogLevelDev or LogLevelProd")
	}
}

// ParseLogLevel maps configuration names ("none", "dev", "prod") to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "", "none":
		return LogLevelNone, nil
	case "dev", "development":
		return LogLevelDev, nil
	case "prod", "production":
		return LogLevelProd, nil
	}
	return LogLevelNone, fmt.Errorf("unknown log level %q", s)
}

func nopLogger() Logger {
	return &zapLogger{zap.NewNop().Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) { z.l.Debugf("[DEBUG] "+format, args...) }
func (z *zapLogger) Infof(format string, args ...any)  { z.l.Infof("[INFO] "+format, args...) }
func (z *zapLogger) Warnf(format string, args ...any)  { z.l.Warnf("[WARN] "+format, args...) }
func (z *zapLogger) Errorf(format string, args ...any) { z.l.Errorf("[ERROR] "+format, args...) }
