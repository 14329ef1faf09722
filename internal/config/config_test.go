package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8083", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 8*time.Second, cfg.Listings.QueryTimeout)
	assert.Equal(t, 2, cfg.Listings.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Listings.Backoff)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"avatars", "listing-images"}, cfg.Mongo.Buckets.Names())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Listings, cfg.Listings)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studenthub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
database:
  driver: sqlite
  url: file:dev.db
listings:
  default_location: Rajampeta
  query_timeout: 3s
session:
  ttl: 30m
log:
  development: true
`), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("QUERY_MAX_ATTEMPTS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "Rajampeta", cfg.Listings.DefaultLocation)
	assert.Equal(t, 3*time.Second, cfg.Listings.QueryTimeout)
	assert.Equal(t, 3, cfg.Listings.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.True(t, cfg.Log.Development)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNormalizesDriverName(t *testing.T) {
	t.Setenv("DB_DRIVER", " Postgres ")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = "http"
	cfg.Database.Driver = "mysql"
	cfg.Listings.MaxAttempts = 0
	cfg.Session.SweepInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "database.driver", "database.url", "jwt_secret", "max_attempts", "session.sweep_interval"} {
		assert.Contains(t, err.Error(), want)
	}
}
