// Package aggregator keeps live per-URI traffic counters and periodically hands them to a
// report sink. Recording is lock free; the exporter swaps the whole table out before it
// reads it.
package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/advdv/bfilter/report"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the time between two sweeps.
	DefaultInterval = time.Minute
	// DefaultMinVolume is the request count a URI must exceed within an interval to be reported.
	DefaultMinVolume = 10
)

// Config configures an Aggregator.
type Config struct {
	App       string
	ServerIP  string
	Interval  time.Duration
	MinVolume int64
}

type table struct{ rows sync.Map } // normalized uri -> *row

// Aggregator counts requests per normalized URI.
type Aggregator struct {
	cfg     Config
	sink    report.Sink
	logs    *zap.Logger
	metrics *Metrics

	live    atomic.Pointer[table]
	sweepMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an aggregator. Zero config values fall back to the defaults. The sink, logger
// and metrics may be nil; without a sink qualifying rows are dropped.
func New(cfg Config, sink report.Sink, logs *zap.Logger, metrics *Metrics) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	if cfg.MinVolume <= 0 {
		cfg.MinVolume = DefaultMinVolume
	}

	if logs == nil {
		logs = zap.NewNop()
	}

	if sink == nil {
		sink = report.Discard
	}

	agg := &Aggregator{
		cfg:     cfg,
		sink:    sink,
		logs:    logs.Named("aggregator"),
		metrics: metrics,
	}
	agg.live.Store(&table{})

	return agg
}

// Record counts one request against the normalized form of uri. It never fails and is
// safe for concurrent use.
func (a *Aggregator) Record(uri string, cost time.Duration, status int, bot bool) {
	key := NormalizeURI(uri)
	tbl := a.live.Load()

	v, ok := tbl.rows.Load(key)
	if !ok {
		v, _ = tbl.rows.LoadOrStore(key, &row{})
	}

	v.(*row).add(cost, status, bot) //nolint:forcetypeassert
	a.metrics.recorded()
}

// Lookup returns the live counters of the normalized form of uri.
func (a *Aggregator) Lookup(uri string) (Snapshot, bool) {
	key := NormalizeURI(uri)

	v, ok := a.live.Load().rows.Load(key)
	if !ok {
		return Snapshot{}, false
	}

	return v.(*row).snapshot(key), true //nolint:forcetypeassert
}

// Sweep swaps the live table for an empty one and publishes a record for every URI whose
// total exceeds the minimum volume. Rows at or below it are dropped. It returns the number
// of published records. Concurrent sweeps run one after the other.
func (a *Aggregator) Sweep(ctx context.Context) int {
	a.sweepMu.Lock()
	defer a.sweepMu.Unlock()

	old := a.live.Swap(&table{})

	var reported, skipped int
	old.rows.Range(func(k, v any) bool {
		snap := v.(*row).snapshot(k.(string)) //nolint:forcetypeassert
		if snap.Total <= a.cfg.MinVolume {
			skipped++
			a.logs.Debug("skip low volume uri",
				zap.String("uri", snap.URI), zap.Int64("total", snap.Total))

			return true
		}

		reported++
		a.sink.Publish(ctx, report.PageStatusRecord{
			App:       a.cfg.App,
			ServerIP:  a.cfg.ServerIP,
			URI:       snap.URI,
			Total:     snap.Total,
			Bot:       snap.Bot,
			Fail:      snap.Fail,
			Cost:      snap.Cost,
			Status5xx: snap.Status5xx,
			Status4xx: snap.Status4xx,
			Status3xx: snap.Status3xx,
			Status2xx: snap.Status2xx,
		})

		return true
	})

	a.metrics.swept(reported, skipped)
	a.logs.Debug("sweep done", zap.Int("reported", reported), zap.Int("skipped", skipped))

	return reported
}

// Start launches the background sweeper. Calling Start on a running aggregator is a no-op.
func (a *Aggregator) Start() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel, a.done = cancel, make(chan struct{})

	go a.run(ctx, a.done)
}

func (a *Aggregator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}

// Stop stops the background sweeper and performs one last sweep so that counts recorded
// since the previous one are not lost.
func (a *Aggregator) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.runMu.Unlock()

	if cancel != nil {
		cancel()

		select {
		case <-done:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait for sweeper to stop")
		}
	}

	a.Sweep(ctx)

	return nil
}
