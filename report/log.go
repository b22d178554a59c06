package report

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes every record to a zap logger as a JSON string field.
type LogSink struct {
	logs *zap.Logger
}

// NewLogSink returns a sink that logs records at info level.
func NewLogSink(logs *zap.Logger) *LogSink {
	return &LogSink{logs: logs.Named("report")}
}

// Publish implements Sink.
func (s *LogSink) Publish(_ context.Context, rec Record) {
	b, err := Marshal(rec)
	if err != nil {
		s.logs.Error("failed to marshal record", zap.Error(err))
		return
	}

	s.logs.Info("record", zap.String("topic", rec.Topic()), zap.String("record", string(b)))
}
