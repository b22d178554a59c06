package bfilter

import (
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Config configures the filter. The env tags allow it to be parsed from the environment
// and embedded in a larger environment struct.
type Config struct {
	// Gzip enables gzip capture for clients that accept it.
	Gzip bool `env:"BF_GZIP" envDefault:"true"`
	// GzipLevel is the gzip compression level.
	GzipLevel int `env:"BF_GZIP_LEVEL" envDefault:"-1"`
	// StaticSuffixes are path suffixes that bypass the filter.
	StaticSuffixes []string `env:"BF_STATIC_SUFFIXES" envSeparator:"," envDefault:"txt,css,js,gif,png,jpg,jpeg,swf,ico,flv,exe,mp3,mp4,wma,apk,rar,zip,tar.gz,tgz,7z"` //nolint:lll
	// BufferLimit caps captured bodies in bytes, -1 disables the limit.
	BufferLimit int `env:"BF_BUFFER_LIMIT" envDefault:"-1"`
	// ServerIP identifies this node in reports. It is discovered when empty.
	ServerIP string `env:"BF_SERVER_IP"`
	// Profile names the deployment environment in access records.
	Profile string `env:"BF_PROFILE" envDefault:"dev"`
	// AppName names the application in page status records.
	AppName string `env:"BF_APP_NAME" envDefault:"app"`
}

// ParseConfig reads the configuration from the environment.
func ParseConfig() (cfg Config, err error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse filter config")
	}

	return cfg, nil
}

// DefaultConfig returns the configuration with every default applied, ignoring the
// environment.
func DefaultConfig() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic("bfilter: invalid config defaults: " + err.Error())
	}

	return cfg
}
