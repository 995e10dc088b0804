package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"environment":            "staging",
		"http_addr":              ":4000",
		"database_dsn":           "postgres://json",
		"access_token_secret":    "json-acc",
		"refresh_token_secret":   "json-ref",
		"access_token_lifetime":  "10m",
		"refresh_token_lifetime": "14d",
		"bcrypt_cost":            11,
		"cors_origins":           []string{"https://app.example"},
		"rate_limit_requests":    10,
		"rate_limit_window":      "1m",
		"s3_bucket":              "bucket",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "staging", cfg.Environment)
		assert.Equal(t, ":4000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
		assert.Equal(t, "json-acc", cfg.AccessTokenSecret)
		assert.Equal(t, "json-ref", cfg.RefreshTokenSecret)
		assert.Equal(t, 10*time.Minute, cfg.AccessTokenLifetime)
		assert.Equal(t, 14*24*time.Hour, cfg.RefreshTokenLifetime)
		assert.Equal(t, 11, cfg.BcryptCost)
		assert.Equal(t, []string{"https://app.example"}, cfg.CORSOrigins)
		assert.Equal(t, 10, cfg.RateLimitRequests)
		assert.Equal(t, time.Minute, cfg.RateLimitWindow)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		// untouched keys keep their defaults
		assert.Equal(t, "@hourly", cfg.CleanupSchedule)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("no -config flag leaves config alone", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", AccessTokenLifetime: 2 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenLifetime)
	})

	t.Run("flags beat env beat json", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", path, "-s", "flag-acc"}
		t.Setenv("JWT_REFRESH_SECRET", "env-ref")
		t.Setenv("JWT_ACCESS_SECRET", "env-acc")

		cfg := LoadConfig()

		assert.Equal(t, "flag-acc", cfg.AccessTokenSecret)
		assert.Equal(t, "env-ref", cfg.RefreshTokenSecret)
		assert.Equal(t, ":4000", cfg.HTTPAddr)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
