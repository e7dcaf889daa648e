package kafka

import (
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KgoZapLogger bridges the franz-go client logs into zap.
type KgoZapLogger struct {
	logger *zap.SugaredLogger
}

// Level is fixed to warn. franz-go is very chatty on info and debug when connections are opened.
func (k KgoZapLogger) Level() kgo.LogLevel {
	return kgo.LogLevelWarn
}

func (k KgoZapLogger) Log(level kgo.LogLevel, msg string, keyvals ...interface{}) {
	switch level {
	case kgo.LogLevelDebug:
		k.logger.Debugw(msg, keyvals...)
	case kgo.LogLevelInfo:
		k.logger.Infow(msg, keyvals...)
	case kgo.LogLevelWarn:
		k.logger.Warnw(msg, keyvals...)
	case kgo.LogLevelError:
		k.logger.Errorw(msg, keyvals...)
	}
}
