// Package report defines the records the filter hands off for reporting and the sinks
// that carry them away. Publishing is fire-and-forget: a sink never reports an error back
// to the request that produced the record.
package report

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
)

const (
	// TopicAccess receives one AccessRecord per sampled request.
	TopicAccess = "access"
	// TopicPageStatus receives the periodic per-URI PageStatusRecord summaries.
	TopicPageStatus = "page-status"
)

// Record is a structured record that can be published.
type Record interface {
	Topic() string
}

// Sink accepts records. Implementations must be safe for concurrent use and must not block
// the caller on network I/O.
type Sink interface {
	Publish(ctx context.Context, rec Record)
}

// SinkFunc allows a function to be used as a Sink.
type SinkFunc func(ctx context.Context, rec Record)

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, rec Record) { f(ctx, rec) }

// Discard is a sink that drops every record.
var Discard Sink = SinkFunc(func(context.Context, Record) {})

// AccessRecord describes a single sampled request.
type AccessRecord struct {
	Time      time.Time `json:"time"`
	Cost      int64     `json:"cost"`
	TraceID   string    `json:"traceId"`
	StepID    string    `json:"stepId"`
	ClientIP  string    `json:"clientIp"`
	ServerIP  string    `json:"serverIp"`
	Profile   string    `json:"profile"`
	Status    int       `json:"status"`
	Size      int64     `json:"size"`
	Referer   string    `json:"referer,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Cookie    string    `json:"cookie,omitempty"`
	UserID    string    `json:"uid,omitempty"`
	URL       string    `json:"url"`
}

// Topic implements Record.
func (AccessRecord) Topic() string { return TopicAccess }

// PageStatusRecord summarizes the traffic of one normalized URI over one export interval.
type PageStatusRecord struct {
	App       string `json:"app"`
	ServerIP  string `json:"serverIp"`
	URI       string `json:"uri"`
	Total     int64  `json:"total"`
	Bot       int64  `json:"bot"`
	Fail      int64  `json:"fail"`
	Cost      int64  `json:"cost"`
	Status5xx int64  `json:"status5xx"`
	Status4xx int64  `json:"status4xx"`
	Status3xx int64  `json:"status3xx"`
	Status2xx int64  `json:"status2xx"`
}

// Topic implements Record.
func (PageStatusRecord) Topic() string { return TopicPageStatus }

// Marshal encodes a record as JSON.
func Marshal(rec Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s record", rec.Topic())
	}

	return b, nil
}
