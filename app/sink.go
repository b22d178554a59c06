package app

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/advdv/bfilter/report"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/cockroachdb/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Supported values of BF_SINK.
const (
	SinkLog     = "log"
	SinkSQS     = "sqs"
	SinkChannel = "channel"
)

// busBuffer is the output buffer of every in-process subscription.
const busBuffer = 1024

// sinkParams holds the dependencies for creating the record sink.
type sinkParams struct {
	fx.In

	LC     fx.Lifecycle
	Env    Environment
	Logger *zap.Logger
	Bus    *gochannel.GoChannel
	AWS    aws.Config
}

// provideSink builds the sink selected by BF_SINK.
func provideSink(p sinkParams) (report.Sink, error) {
	switch kind := p.Env.sinkKind(); kind {
	case SinkLog, "":
		return report.NewLogSink(p.Logger), nil
	case SinkChannel:
		return report.NewWatermillSink(p.Bus, p.Logger), nil
	case SinkSQS:
		url := p.Env.sqsQueueURL()
		if url == "" {
			return nil, errors.New("BF_SQS_QUEUE_URL is required when BF_SINK=sqs")
		}

		sink := report.NewSQSSink(sqs.NewFromConfig(p.AWS), url, report.DefaultSQSBacklog, p.Logger)
		p.LC.Append(fx.Hook{OnStop: sink.Close})

		return sink, nil
	default:
		return nil, errors.Newf("unsupported BF_SINK: %q (supported: log, sqs, channel)", kind)
	}
}

// provideBus creates the in-process message bus that the channel sink publishes to.
// Subscribe to report.TopicAccess or report.TopicPageStatus through message.Subscriber.
func provideBus(lc fx.Lifecycle, logs *zap.Logger) *gochannel.GoChannel {
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: busBuffer}, NewWatermillLogger(logs))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return bus.Close()
		},
	})

	return bus
}

func busSubscriber(bus *gochannel.GoChannel) message.Subscriber { return bus }
