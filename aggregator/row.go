package aggregator

import (
	"sync/atomic"
	"time"
)

// row holds the counters of one normalized URI. Only atomic operations touch it.
type row struct {
	total     atomic.Int64
	bot       atomic.Int64
	fail      atomic.Int64
	cost      atomic.Int64
	status5xx atomic.Int64
	status4xx atomic.Int64
	status3xx atomic.Int64
	status2xx atomic.Int64
}

func (r *row) add(cost time.Duration, status int, bot bool) {
	r.total.Add(1)
	r.cost.Add(cost.Milliseconds())

	if bot {
		r.bot.Add(1)
	} else if status >= 400 {
		r.fail.Add(1)
	}

	switch {
	case status >= 500:
		r.status5xx.Add(1)
	case status >= 400:
		r.status4xx.Add(1)
	case status >= 300:
		r.status3xx.Add(1)
	default:
		r.status2xx.Add(1)
	}
}

// Snapshot is a point in time copy of one URI's counters.
type Snapshot struct {
	URI       string
	Total     int64
	Bot       int64
	Fail      int64
	Cost      int64
	Status5xx int64
	Status4xx int64
	Status3xx int64
	Status2xx int64
}

func (r *row) snapshot(uri string) Snapshot {
	return Snapshot{
		URI:       uri,
		Total:     r.total.Load(),
		Bot:       r.bot.Load(),
		Fail:      r.fail.Load(),
		Cost:      r.cost.Load(),
		Status5xx: r.status5xx.Load(),
		Status4xx: r.status4xx.Load(),
		Status3xx: r.status3xx.Load(),
		Status2xx: r.status2xx.Load(),
	}
}
