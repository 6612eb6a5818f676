package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable read by parseEnv.
const EnvPrefix = "CLAIMKEEPER_"

// dotenvLoad is a seam for tests.
var dotenvLoad = func() error { return godotenv.Load() }

// parseEnv loads .env when present (existing variables are not overridden)
// and overlays config with CLAIMKEEPER_* variables. Malformed numbers and
// durations panic, matching the other sources.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	_ = dotenvLoad()

	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}

	str := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				panic(err)
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	dur("OPERATOR_TOKEN_VALIDITY", &config.OperatorTokenValidityDuration)
	str("CLAIM_BASE_URL", &config.ClaimBaseURL)
	dur("TOKEN_VALIDITY", &config.TokenValidityDuration)
	num("MAX_FAILED_ATTEMPTS", &config.MaxFailedAttempts)
	dur("ATTEMPT_WINDOW", &config.AttemptWindow)
	dur("BLOCK_DURATION", &config.BlockDuration)
	num("RETENTION_DAYS", &config.RetentionDays)
	dur("CLEANUP_INTERVAL", &config.CleanupInterval)
	dur("STATS_INTERVAL", &config.StatsInterval)
	str("REDIS_URL", &config.RedisURL)
	str("EVENTS_TOPIC", &config.EventsTopic)
	str("SEED_FILE", &config.SeedFile)
	str("LOG_LEVEL", &config.LogLevel)
	if v, ok := get("TRUSTED_PROXIES"); ok {
		config.TrustedProxies = splitList(v)
	}
}

// splitList parses a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
