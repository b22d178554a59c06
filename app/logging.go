package app

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/advdv/bfilter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding suitable for log shipping. BF_LOG_LEVEL controls the level.
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(err error) {
	l.Logger.Error("unhandled serve error", zap.Error(err))
}

func (l zapLogger) LogFinalizeError(url string, cost time.Duration, err error) {
	l.Logger.Error("failed to finalize response",
		zap.String("url", url), zap.Duration("cost", cost), zap.Error(err))
}

func (l zapLogger) LogUnsupportedEncoding(name string, err error) {
	l.Logger.Warn("unsupported character encoding", zap.String("encoding", name), zap.Error(err))
}

func (l zapLogger) LogCompressionUnavailable(err error) {
	l.Logger.Warn("compression unavailable", zap.Error(err))
}

// NewBFilterLogger adapts l for the filter.
func NewBFilterLogger(l *zap.Logger) bfilter.Logger {
	return zapLogger{l.Named("bfilter")}
}

// watermillLogger lets the message bus log through zap.
type watermillLogger struct{ l *zap.Logger }

// NewWatermillLogger adapts l for watermill publishers and subscribers.
func NewWatermillLogger(l *zap.Logger) watermill.LoggerAdapter {
	return watermillLogger{l.Named("watermill")}
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.l.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.l.Info(msg, zapFields(fields)...)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.l.Debug(msg, zapFields(fields)...)
}

// Trace maps onto debug, zap has no lower level.
func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.l.Debug(msg, zapFields(fields)...)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{w.l.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}

	return zf
}
