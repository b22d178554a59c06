package report

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// WatermillSink publishes every record as a JSON message on the record's topic.
type WatermillSink struct {
	pub  message.Publisher
	logs *zap.Logger
}

// NewWatermillSink returns a sink on top of any Watermill publisher.
func NewWatermillSink(pub message.Publisher, logs *zap.Logger) *WatermillSink {
	return &WatermillSink{pub: pub, logs: logs.Named("report")}
}

// Publish implements Sink. Failures are logged and the record is dropped.
func (s *WatermillSink) Publish(ctx context.Context, rec Record) {
	b, err := Marshal(rec)
	if err != nil {
		s.logs.Error("failed to marshal record", zap.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.SetContext(ctx)
	msg.Metadata.Set("topic", rec.Topic())

	if err := s.pub.Publish(rec.Topic(), msg); err != nil {
		s.logs.Error("failed to publish record",
			zap.String("topic", rec.Topic()), zap.String("uuid", msg.UUID), zap.Error(err))
	}
}
