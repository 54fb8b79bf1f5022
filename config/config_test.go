package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONConfig_GroupedAndFlat(t *testing.T) {
	var grouped AppConfig
	require.NoError(t, loadJSONConfig([]byte(`{
		"app": {"AppPort": "8080", "JWTSecret": "s3cret"},
		"database": {"DBDriver": "postgres", "DBName": "board"},
		"feed": {"FeedMaxPageSize": 50}
	}`), &grouped))
	assert.Equal(t, "8080", grouped.AppPort)
	assert.Equal(t, "s3cret", grouped.JWTSecret)
	assert.Equal(t, "postgres", grouped.DBDriver)
	assert.Equal(t, "board", grouped.DBName)
	assert.Equal(t, 50, grouped.FeedMaxPageSize)

	var flat AppConfig
	require.NoError(t, loadJSONConfig([]byte(`{"AppPort": "9000", "RedisEnabled": true}`), &flat))
	assert.Equal(t, "9000", flat.AppPort)
	assert.True(t, flat.RedisEnabled)
}

func TestLoadYAMLConfig(t *testing.T) {
	var c AppConfig
	require.NoError(t, loadYAMLConfig([]byte(`
app:
  app_port: "7000"
  jwt_secret: yaml-secret
  allowed_origins: ["https://a.example", "https://b.example"]
database:
  driver: sqlite
  uri: "file:dev.db"
log:
  log_level: debug
`), &c))
	assert.Equal(t, "7000", c.AppPort)
	assert.Equal(t, "yaml-secret", c.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "file:dev.db", c.DatabaseURI)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadFile_PicksDecoderByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  app_port: \"1234\"\n"), 0o600))

	var c AppConfig
	require.NoError(t, loadFile(path, &c))
	assert.Equal(t, "1234", c.AppPort)

	bad := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	assert.Error(t, loadFile(bad, &c))
}

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)
	assert.Equal(t, "4000", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, 100, c.FeedMaxPageSize)
	assert.Equal(t, 10, c.FeedDefaultPageSize)
	assert.Equal(t, 3600, c.AuthorCacheTTLSec)

	pg := AppConfig{DBDriver: "postgres"}
	applyDefaults(&pg)
	assert.Equal(t, "5432", pg.DBPort)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "5555")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("FEED_MAX_PAGE_SIZE", "25")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://x.example , ,https://y.example")

	c := AppConfig{AppPort: "4000", DBDriver: "mysql"}
	applyEnvOverrides(&c)
	assert.Equal(t, "5555", c.AppPort)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.True(t, c.RedisEnabled)
	assert.Equal(t, 25, c.FeedMaxPageSize)
	assert.Equal(t, []string{"https://x.example", "https://y.example"}, c.AllowedOrigins)
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(AppConfig{DBDriver: driver, DBName: "board"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}
	_, err := Dialector(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}
