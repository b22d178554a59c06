package app

import (
	"time"

	"github.com/advdv/bfilter"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	filterConfig() bfilter.Config
	port() int
	serviceName() string
	healthCheckPath() string
	logLevel() zapcore.Level
	otelExporter() string
	sinkKind() string
	sqsQueueURL() string
	reportInterval() time.Duration
	reportMinVolume() int64
	requestTimeout() time.Duration
}

// BaseEnvironment contains the environment variables every service needs, including the
// filter's own configuration. Embed this in your custom environment struct.
type BaseEnvironment struct {
	bfilter.Config

	Port            int           `env:"BF_PORT" envDefault:"8080"`
	ServiceName     string        `env:"BF_SERVICE_NAME,required,notEmpty"`
	HealthCheckPath string        `env:"BF_HEALTH_CHECK_PATH" envDefault:"/health"`
	LogLevel        zapcore.Level `env:"BF_LOG_LEVEL" envDefault:"info"`
	OtelExporter    string        `env:"BF_OTEL_EXPORTER" envDefault:"stdout"`
	// Sink selects where access and page status records go: log, sqs or channel.
	Sink            string        `env:"BF_SINK" envDefault:"log"`
	SQSQueueURL     string        `env:"BF_SQS_QUEUE_URL"`
	ReportInterval  time.Duration `env:"BF_REPORT_INTERVAL" envDefault:"1m"`
	ReportMinVolume int64         `env:"BF_REPORT_MIN_VOLUME" envDefault:"10"`
	RequestTimeout  time.Duration `env:"BF_REQUEST_TIMEOUT" envDefault:"30s"`
}

func (e BaseEnvironment) filterConfig() bfilter.Config  { return e.Config }
func (e BaseEnvironment) port() int                     { return e.Port }
func (e BaseEnvironment) serviceName() string           { return e.ServiceName }
func (e BaseEnvironment) healthCheckPath() string       { return e.HealthCheckPath }
func (e BaseEnvironment) logLevel() zapcore.Level       { return e.LogLevel }
func (e BaseEnvironment) otelExporter() string          { return e.OtelExporter }
func (e BaseEnvironment) sinkKind() string              { return e.Sink }
func (e BaseEnvironment) sqsQueueURL() string           { return e.SQSQueueURL }
func (e BaseEnvironment) reportInterval() time.Duration { return e.ReportInterval }
func (e BaseEnvironment) reportMinVolume() int64        { return e.ReportMinVolume }
func (e BaseEnvironment) requestTimeout() time.Duration { return e.RequestTimeout }

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		return e, nil
	}
}
