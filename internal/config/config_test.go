package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_FileValues(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: 9090
  request_timeout: 5s
database:
  host: db.internal
  name: clinic
auth:
  jwt_secret: file-secret
cache:
  patients_ttl: 1m
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "clinic", cfg.Database.Name)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, DriverPostgres, cfg.Datastore.Driver)
	assert.Equal(t, time.Minute, cfg.Cache.PatientsTTL)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := writeConfig(t, `
database:
  host: db.internal
auth:
  jwt_secret: file-secret
`)
	t.Setenv("WELLNESS_DB_HOST", "env-host")
	t.Setenv("WELLNESS_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("WELLNESS_DATASTORE_DRIVER", "rest")
	t.Setenv("WELLNESS_DATASTORE_REST_URL", "https://example.supabase.co/rest/v1")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, DriverREST, cfg.Datastore.Driver)
	assert.Equal(t, "https://example.supabase.co/rest/v1", cfg.Datastore.REST.URL)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("WELLNESS_AUTH_JWT_SECRET", "s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 8080},
		Datastore: DatastoreConfig{Driver: DriverREST},
		Auth:      AuthConfig{Enabled: true},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datastore.rest.url")
	assert.Contains(t, err.Error(), "auth.jwt_secret")

	cfg.Datastore.Driver = "mongo"
	assert.ErrorContains(t, cfg.Validate(), `unknown datastore.driver "mongo"`)

	cfg.Datastore.Driver = DriverMemory
	cfg.Auth.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", db.DSN())
}
