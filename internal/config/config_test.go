package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("log_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultPageSize, cfg.Sync.PageSize)
	assert.Equal(t, 30*time.Minute, cfg.Sync.RunTimeout)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, "https://api.weixin.qq.com", cfg.WeChat.BaseURL)
	assert.Equal(t, "wechat_sync_requests", cfg.RabbitMQ.SyncQueue)
	assert.Equal(t, "noop", cfg.Media.Dispatcher)
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("WECHAT_SYNC_DB_PASSWORD", "s3cret")

	cfg, err := Parse([]byte(`
database:
  host: db
  port: 5432
  user: sync
  password: ${WECHAT_SYNC_DB_PASSWORD}
  dbname: cms
  sslmode: disable
sync:
  run_timeout: 5m
  retry_base_delay: 10s
media:
  dispatcher: rabbitmq
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "host=db port=5432 user=sync password=s3cret dbname=cms sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 5*time.Minute, cfg.Sync.RunTimeout)
	assert.Equal(t, 10*time.Second, cfg.Sync.RetryBaseDelay)
	assert.Equal(t, "rabbitmq", cfg.Media.Dispatcher)
}

func TestParse_RejectsOversizedPage(t *testing.T) {
	_, err := Parse([]byte("sync:\n  page_size: 50\n"))
	assert.Error(t, err)
}

func TestParse_RejectsUnknownDispatcher(t *testing.T) {
	_, err := Parse([]byte("media:\n  dispatcher: kafka\n"))
	assert.ErrorContains(t, err, "media.dispatcher")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rabbitmq:\n  concurrency: 4\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.RabbitMQ.Concurrency)
}
