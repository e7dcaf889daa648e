package logging

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a preconfigured global logger and configures the global zap logger. The log message counter is
// registered with registerer if it is not nil.
func NewLogger(cfg Config, metricsNamespace string, registerer prometheus.Registerer) *zap.Logger {
	return newLogger(cfg, metricsNamespace, registerer, os.Stdout)
}

func newLogger(cfg Config, metricsNamespace string, registerer prometheus.Registerer, out io.Writer) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	// Parse log level text to zap.LogLevel. Error check isn't required because the input is already validated.
	level := zap.NewAtomicLevel()
	_ = level.UnmarshalText([]byte(cfg.Level))

	var encoder zapcore.Encoder
	if cfg.Format == FormatConsole {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level)
	core = zapcore.RegisterHooks(core, prometheusHook(metricsNamespace, registerer))
	logger := zap.New(core)
	zap.ReplaceGlobals(logger)

	return logger
}

// prometheusHook is a hook for the zap library which exposes Prometheus counters for various log levels.
func prometheusHook(metricsNamespace string, registerer prometheus.Registerer) func(zapcore.Entry) error {
	messageCounterVec := promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "log_messages_total",
		Help:      "Total number of log messages by log level emitted by klag.",
	}, []string{"level"})

	// Initialize counters for all supported log levels so that they expose 0 for each level on startup
	supportedLevels := []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
		zapcore.FatalLevel,
		zapcore.PanicLevel,
	}
	for _, level := range supportedLevels {
		messageCounterVec.WithLabelValues(level.String())
	}

	return func(entry zapcore.Entry) error {
		messageCounterVec.WithLabelValues(entry.Level.String()).Inc()
		return nil
	}
}
