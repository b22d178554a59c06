package bfilter

import (
	"log"
	"sync/atomic"
	"testing"
	"time"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUnhandledServeError(err error)
	LogFinalizeError(url string, cost time.Duration, err error)
	LogUnsupportedEncoding(name string, err error)
	LogCompressionUnavailable(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(err error) {
	l.Logger.Printf("bfilter: unhandled serve error: %s", err)
}

func (l stdLogger) LogFinalizeError(url string, cost time.Duration, err error) {
	l.Logger.Printf("bfilter: failed to finalize response of %s after %s: %s", url, cost, err)
}

func (l stdLogger) LogUnsupportedEncoding(name string, err error) {
	l.Logger.Printf("bfilter: unsupported character encoding %q: %s", name, err)
}

func (l stdLogger) LogCompressionUnavailable(err error) {
	l.Logger.Printf("bfilter: compression unavailable: %s", err)
}

// NewStdLogger adapts a standard library logger. A nil l uses log.Default().
func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}

	return stdLogger{l}
}

// TestLogger counts every call and forwards it to the test log.
type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError    int64
	NumLogFinalizeError          int64
	NumLogUnsupportedEncoding    int64
	NumLogCompressionUnavailable int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.tb.Logf("bfilter: unhandled serve error: %s", err)
}

func (l *TestLogger) LogFinalizeError(url string, cost time.Duration, err error) {
	atomic.AddInt64(&l.NumLogFinalizeError, 1)
	l.tb.Logf("bfilter: failed to finalize %s after %s: %s", url, cost, err)
}

func (l *TestLogger) LogUnsupportedEncoding(name string, err error) {
	atomic.AddInt64(&l.NumLogUnsupportedEncoding, 1)
	l.tb.Logf("bfilter: unsupported character encoding %q: %s", name, err)
}

func (l *TestLogger) LogCompressionUnavailable(err error) {
	atomic.AddInt64(&l.NumLogCompressionUnavailable, 1)
	l.tb.Logf("bfilter: compression unavailable: %s", err)
}

var _ Logger = &TestLogger{}
