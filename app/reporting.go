package app

import (
	"context"

	"github.com/advdv/bfilter"
	"github.com/advdv/bfilter/aggregator"
	"github.com/advdv/bfilter/report"
	"github.com/advdv/bfilter/trace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRegistry creates the Prometheus registry served on /metrics, with the Go runtime and
// process collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// provideFilterConfig takes the filter configuration from the environment and settles the
// server ip so that the filter and the aggregator report the same one.
func provideFilterConfig(env Environment) bfilter.Config {
	cfg := env.filterConfig()
	if cfg.ServerIP == "" {
		cfg.ServerIP = trace.LocalIP()
	}

	return cfg
}

// provideAggregator creates the status aggregator and ties its sweeper to the app
// lifecycle. Stopping the app publishes what was counted since the last sweep.
func provideAggregator(
	lc fx.Lifecycle, env Environment, cfg bfilter.Config, sink report.Sink, logs *zap.Logger, reg *prometheus.Registry,
) *aggregator.Aggregator {
	agg := aggregator.New(aggregator.Config{
		App:       cfg.AppName,
		ServerIP:  cfg.ServerIP,
		Interval:  env.reportInterval(),
		MinVolume: env.reportMinVolume(),
	}, sink, logs, aggregator.NewMetrics(reg))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			agg.Start()
			return nil
		},
		OnStop: agg.Stop,
	})

	return agg
}

// provideFilter creates the filter that every route is served behind.
func provideFilter(cfg bfilter.Config, logs *zap.Logger, agg *aggregator.Aggregator, sink report.Sink) *bfilter.Filter {
	return bfilter.NewFilter(cfg, NewBFilterLogger(logs), agg, sink)
}
