package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"sina", "tencent"}, cfg.Market.Providers)
	assert.Equal(t, "data/app.db", cfg.Store.Sqlite.Path)
	assert.Equal(t, 300, cfg.Alert.CooldownSec)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
log:
  level: debug
market:
  providers: ["tencent"]
  poll_interval_sec: 5
metrics:
  addr: ":9090"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"tencent"}, cfg.Market.Providers)
	assert.Equal(t, 5, cfg.Market.PollIntervalSec)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	// untouched sections keep defaults
	assert.Equal(t, 1000, cfg.Market.MinRequestIntervalMs)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8181")
	t.Setenv("DINGTALK_WEBHOOK", "https://oapi.dingtalk.com/robot/send?access_token=x")
	t.Setenv("SQLITE_PATH", "/tmp/other.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "https://oapi.dingtalk.com/robot/send?access_token=x", cfg.Push.Dingtalk.Webhook)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Sqlite.Path)
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
