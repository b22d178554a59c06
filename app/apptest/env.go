package apptest

import (
	"strconv"
	"testing"
	"time"
)

// Env provides a chainable builder for setting [app.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets all [app.BaseEnvironment] env vars to sensible test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BF_SERVICE_NAME: "test"
//   - BF_HEALTH_CHECK_PATH: "/health"
//   - BF_OTEL_EXPORTER: "none"
//   - BF_SINK: "channel"
//   - BF_SERVER_IP: "10.0.0.1"
//   - BF_REPORT_INTERVAL: "1h"
//   - BF_REPORT_MIN_VOLUME: "1"
//   - AWS_REGION: "us-east-1"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
//
// Use the returned [Env] to override individual values:
//
//	apptest.SetBaseEnv(t, 18085).ServiceName("shop").Sink("log")
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BF_PORT", strconv.Itoa(port))
	t.Setenv("BF_SERVICE_NAME", "test")
	t.Setenv("BF_HEALTH_CHECK_PATH", "/health")
	t.Setenv("BF_OTEL_EXPORTER", "none")
	t.Setenv("BF_SINK", "channel")
	t.Setenv("BF_SERVER_IP", "10.0.0.1")
	t.Setenv("BF_REPORT_INTERVAL", "1h")
	t.Setenv("BF_REPORT_MIN_VOLUME", "1")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	return &Env{t: t}
}

// ServiceName overrides BF_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BF_SERVICE_NAME", name)

	return e
}

// HealthCheckPath overrides BF_HEALTH_CHECK_PATH.
func (e *Env) HealthCheckPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BF_HEALTH_CHECK_PATH", path)

	return e
}

// Sink overrides BF_SINK.
func (e *Env) Sink(kind string) *Env {
	e.t.Helper()
	e.t.Setenv("BF_SINK", kind)

	return e
}

// ReportInterval overrides BF_REPORT_INTERVAL.
func (e *Env) ReportInterval(d time.Duration) *Env {
	e.t.Helper()
	e.t.Setenv("BF_REPORT_INTERVAL", d.String())

	return e
}

// RequestTimeout overrides BF_REQUEST_TIMEOUT.
func (e *Env) RequestTimeout(d time.Duration) *Env {
	e.t.Helper()
	e.t.Setenv("BF_REQUEST_TIMEOUT", d.String())

	return e
}
