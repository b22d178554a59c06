package aggregator_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/advdv/bfilter/aggregator"
	"github.com/advdv/bfilter/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type collector struct {
	mu   sync.Mutex
	recs []report.PageStatusRecord
}

func (c *collector) Publish(_ context.Context, rec report.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec.(report.PageStatusRecord)) //nolint:forcetypeassert
}

func (c *collector) records() []report.PageStatusRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]report.PageStatusRecord(nil), c.recs...)
}

func TestNormalizeURI(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct{ in, exp string }{
		{"", "/"},
		{"/", "/"},
		{";jsessionid=1", "/"},
		{"/item/123456;jsessionid=abc", "/item/*"},
		{"/doc/0123456789abcdef0123456789abcdef.htm", "/doc/*.htm"},
		{"/doc/0123456789ABCDEF0123456789abcdef/12/34", "/doc/*/12/34"},
		{"/u/12/p/345/x7", "/u/*/p/*/x7"},
		{"/about", "/about"},
	} {
		assert.Equal(t, tt.exp, aggregator.NormalizeURI(tt.in), tt.in)
	}
}

func TestRecordConcurrent(t *testing.T) {
	t.Parallel()

	agg := aggregator.New(aggregator.Config{}, report.Discard, zap.NewNop(), nil)

	const n = 500
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// different raw ids, same normalized key
			agg.Record("/item/"+string(rune('1'+i%9))+"0", 2*time.Millisecond, http.StatusOK, false)
		}()
	}
	wg.Wait()

	snap, ok := agg.Lookup("/item/55")
	require.True(t, ok)
	assert.Equal(t, "/item/*", snap.URI)
	assert.Equal(t, int64(n), snap.Total)
	assert.Equal(t, int64(n), snap.Status2xx)
	assert.Equal(t, int64(0), snap.Fail)
	assert.Equal(t, int64(0), snap.Bot)
	assert.Equal(t, int64(2*n), snap.Cost)
}

func TestRecordBuckets(t *testing.T) {
	t.Parallel()

	agg := aggregator.New(aggregator.Config{}, report.Discard, zap.NewNop(), nil)
	agg.Record("/a", 0, 200, false)
	agg.Record("/a", 0, 302, false)
	agg.Record("/a", 0, 404, false)
	agg.Record("/a", 0, 500, false)
	agg.Record("/a", 0, 503, true)

	snap, ok := agg.Lookup("/a")
	require.True(t, ok)
	assert.Equal(t, aggregator.Snapshot{
		URI: "/a", Total: 5, Bot: 1, Fail: 2,
		Status5xx: 2, Status4xx: 1, Status3xx: 1, Status2xx: 1,
	}, snap)

	_, ok = agg.Lookup("/b")
	assert.False(t, ok)
}

func TestSweepThreshold(t *testing.T) {
	t.Parallel()

	sink := &collector{}
	core, obs := observer.New(zap.DebugLevel)
	agg := aggregator.New(aggregator.Config{App: "shop", ServerIP: "10.1.1.1"}, sink, zap.New(core), nil)

	for range aggregator.DefaultMinVolume {
		agg.Record("/quiet", time.Millisecond, 200, false)
	}

	for range aggregator.DefaultMinVolume + 1 {
		agg.Record("/busy/12", time.Millisecond, 500, false)
	}

	// visible before the sweep even when below the threshold
	snap, ok := agg.Lookup("/quiet")
	require.True(t, ok)
	assert.Equal(t, int64(aggregator.DefaultMinVolume), snap.Total)

	assert.Equal(t, 1, agg.Sweep(t.Context()))

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, report.PageStatusRecord{
		App: "shop", ServerIP: "10.1.1.1", URI: "/busy/*",
		Total: 11, Fail: 11, Cost: 11, Status5xx: 11,
	}, recs[0])

	assert.Equal(t, 1, obs.FilterMessage("skip low volume uri").Len())

	_, ok = agg.Lookup("/quiet")
	assert.False(t, ok, "rows are dropped after a sweep")

	assert.Equal(t, 0, agg.Sweep(t.Context()))
	assert.Len(t, sink.records(), 1)
}

func TestStartSweepsPeriodically(t *testing.T) {
	t.Parallel()

	sink := &collector{}
	agg := aggregator.New(aggregator.Config{Interval: 10 * time.Millisecond, MinVolume: 1}, sink, zap.NewNop(), nil)
	agg.Record("/tick", 0, 200, false)
	agg.Record("/tick", 0, 200, false)

	agg.Start()
	agg.Start()
	t.Cleanup(func() { _ = agg.Stop(context.Background()) })

	require.Eventually(t, func() bool { return len(sink.records()) == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "/tick", sink.records()[0].URI)
}

func TestStopSweepsOneLastTime(t *testing.T) {
	t.Parallel()

	sink := &collector{}
	agg := aggregator.New(aggregator.Config{Interval: time.Hour, MinVolume: 1}, sink, zap.NewNop(), nil)
	agg.Start()

	agg.Record("/final", 0, 200, false)
	agg.Record("/final", 0, 200, false)
	require.NoError(t, agg.Stop(t.Context()))

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "/final", recs[0].URI)

	require.NoError(t, agg.Stop(t.Context()))
	assert.Len(t, sink.records(), 1)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	agg := aggregator.New(aggregator.Config{MinVolume: 1}, report.Discard, zap.NewNop(), aggregator.NewMetrics(reg))

	agg.Record("/x", 0, 200, false)
	agg.Record("/x", 0, 200, false)
	agg.Record("/y", 0, 200, false)
	agg.Sweep(t.Context())

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	vals := map[string]float64{}
	for _, mf := range mfs {
		vals[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
	}

	assert.InDelta(t, 3, vals["bfilter_aggregator_records_total"], 0)
	assert.InDelta(t, 1, vals["bfilter_aggregator_sweeps_total"], 0)
	assert.InDelta(t, 1, vals["bfilter_aggregator_rows_reported_total"], 0)
	assert.InDelta(t, 1, vals["bfilter_aggregator_rows_skipped_total"], 0)
}

func TestNilDependencies(t *testing.T) {
	t.Parallel()

	agg := aggregator.New(aggregator.Config{MinVolume: 1}, nil, nil, nil)
	agg.Record("/nil", 0, 200, false)
	agg.Record("/nil", 0, 200, false)

	require.NotPanics(t, func() { require.Equal(t, 1, agg.Sweep(context.Background())) })
}
