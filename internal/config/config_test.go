package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
storage: memory
listen:
  bind_ip: 127.0.0.1
  port: "9090"
database:
  host: db
  name: tickets
  query_timeout: 2s
auth:
  jwt_secret: s3cret
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "tickets", cfg.AMQP.Exchange)
	assert.Equal(t, 24*time.Hour, cfg.Redis.QRTTL)
	assert.Contains(t, cfg.Database.DSN(), "dbname=tickets")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("storage: memory\n"), 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("STORAGE", "postgres")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Listen.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")

	_, err := Load("")
	assert.ErrorContains(t, err, "unknown storage")
}
