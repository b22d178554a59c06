package app_test

import (
	"testing"
	"time"

	"github.com/advdv/bfilter/app"
	"github.com/advdv/bfilter/app/apptest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type TestEnv struct {
	app.BaseEnvironment
	ShopName string `env:"SHOP_NAME" envDefault:"corner shop"`
}

func TestParseEnv(t *testing.T) {
	apptest.SetBaseEnv(t, 18090).ServiceName("shop").RequestTimeout(5 * time.Second)
	t.Setenv("BF_LOG_LEVEL", "debug")
	t.Setenv("BF_GZIP", "false")
	t.Setenv("BF_STATIC_SUFFIXES", "css,js")

	env, err := app.ParseEnv[TestEnv]()()
	require.NoError(t, err)

	require.Equal(t, 18090, env.Port)
	require.Equal(t, "shop", env.ServiceName)
	require.Equal(t, zapcore.DebugLevel, env.LogLevel)
	require.Equal(t, 5*time.Second, env.RequestTimeout)
	require.Equal(t, time.Hour, env.ReportInterval)
	require.Equal(t, int64(1), env.ReportMinVolume)
	require.Equal(t, "corner shop", env.ShopName)

	require.False(t, env.Gzip)
	require.Equal(t, []string{"css", "js"}, env.StaticSuffixes)
	require.Equal(t, "10.0.0.1", env.ServerIP)
	require.Equal(t, "dev", env.Profile)
}

func TestParseEnvRequired(t *testing.T) {
	apptest.SetBaseEnv(t, 18091)
	t.Setenv("BF_SERVICE_NAME", "")

	_, err := app.ParseEnv[TestEnv]()()
	require.ErrorContains(t, err, "failed to parse environment")
}
