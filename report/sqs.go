package report

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultSQSBacklog is the number of records an SQSSink holds before it starts dropping.
const DefaultSQSBacklog = 1024

const sqsSendTimeout = 5 * time.Second

// SQSAPI is the part of the SQS client the sink uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsJob struct {
	topic string
	body  string
}

// SQSSink sends records to an SQS queue from a single background goroutine. Publish only
// enqueues, and drops the record when the backlog is full.
type SQSSink struct {
	client   SQSAPI
	queueURL string
	logs     *zap.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan sqsJob
	done   chan struct{}
}

// NewSQSSink starts a sink that delivers to queueURL. A backlog below one uses
// DefaultSQSBacklog. Close must be called to stop the delivery goroutine.
func NewSQSSink(client SQSAPI, queueURL string, backlog int, logs *zap.Logger) *SQSSink {
	if backlog < 1 {
		backlog = DefaultSQSBacklog
	}

	s := &SQSSink{
		client:   client,
		queueURL: queueURL,
		logs:     logs.Named("report").Named("sqs"),
		jobs:     make(chan sqsJob, backlog),
		done:     make(chan struct{}),
	}

	go s.run()

	return s
}

// Publish implements Sink.
func (s *SQSSink) Publish(_ context.Context, rec Record) {
	b, err := Marshal(rec)
	if err != nil {
		s.logs.Error("failed to marshal record", zap.Error(err))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logs.Warn("sink is closed, dropping record", zap.String("topic", rec.Topic()))
		return
	}

	select {
	case s.jobs <- sqsJob{topic: rec.Topic(), body: string(b)}:
	default:
		s.logs.Warn("backlog full, dropping record", zap.String("topic", rec.Topic()))
	}
}

// Close stops accepting records and waits until the backlog is delivered or ctx is done.
func (s *SQSSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for sqs backlog")
	}
}

func (s *SQSSink) run() {
	defer close(s.done)

	for job := range s.jobs {
		if err := s.send(job); err != nil {
			s.logs.Error("failed to send record", zap.String("topic", job.topic), zap.Error(err))
		}
	}
}

func (s *SQSSink) send(job sqsJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqsSendTimeout)
	defer cancel()

	_, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(job.body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"topic": {DataType: aws.String("String"), StringValue: aws.String(job.topic)},
		},
	})
	if err != nil {
		return errors.Wrap(err, "send message")
	}

	return nil
}
