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
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":               "www.example:9000",
		"database_dsn":                     "memory",
		"secret_key":                       "my_secret_key",
		"operator_token_validity_duration": "2h",
		"claim_base_url":                   "https://prizes.example/claim",
		"token_validity_duration":          "72h",
		"max_failed_attempts":              6,
		"attempt_window":                   "30m",
		"block_duration":                   int64(time.Hour),
		"retention_days":                   14,
		"cleanup_interval":                 "6h",
		"stats_interval":                   "15m",
		"redis_url":                        "redis://redis:6379/1",
		"events_topic":                     "alerts",
		"seed_file":                        "/etc/claimkeeper/seed.json",
		"trusted_proxies":                  []string{"10.0.0.0/8"},
		"log_level":                        "warn",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", pathFlag})

		assert.Equal(t, Config{
			EndpointAddrHTTP:              "www.example:9000",
			DatabaseDSN:                   "memory",
			SecretKey:                     "my_secret_key",
			OperatorTokenValidityDuration: 2 * time.Hour,
			ClaimBaseURL:                  "https://prizes.example/claim",
			TokenValidityDuration:         72 * time.Hour,
			MaxFailedAttempts:             6,
			AttemptWindow:                 30 * time.Minute,
			BlockDuration:                 time.Hour,
			RetentionDays:                 14,
			CleanupInterval:               6 * time.Hour,
			StatsInterval:                 15 * time.Minute,
			RedisURL:                      "redis://redis:6379/1",
			EventsTopic:                   "alerts",
			SeedFile:                      "/etc/claimkeeper/seed.json",
			TrustedProxies:                []string{"10.0.0.0/8"},
			LogLevel:                      "warn",
		}, *cfg)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		var cfg Config
		cfg.LoadDefaults()
		want := cfg

		parseJson(&cfg, nil)
		assert.Equal(t, want, cfg)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "other"})

		var cfg Config
		cfg.LoadDefaults()
		parseJson(&cfg, []string{"-c", partial})

		assert.Equal(t, "other", cfg.SecretKey)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
		assert.Equal(t, 4, cfg.MaxFailedAttempts)
	})

	t.Run("missing file panics", func(t *testing.T) {
		cfg := &Config{}
		assert.Panics(t, func() { parseJson(cfg, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		cfg := &Config{}
		assert.Panics(t, func() { parseJson(cfg, []string{"-c", bad}) })
	})
}
