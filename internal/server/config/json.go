package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/flagx"
	"github.com/dmitrijs2005/claimkeeper/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Durations use timex.Duration
// so both "90s" and integer nanoseconds are accepted. Missing keys keep the
// value already in Config.
type JsonConfig struct {
	EndpointAddrHTTP              string         `json:"endpoint_addr_http"`
	DatabaseDSN                   string         `json:"database_dsn"`
	SecretKey                     string         `json:"secret_key"`
	OperatorTokenValidityDuration timex.Duration `json:"operator_token_validity_duration"`
	ClaimBaseURL                  string         `json:"claim_base_url"`
	TokenValidityDuration         timex.Duration `json:"token_validity_duration"`
	MaxFailedAttempts             int            `json:"max_failed_attempts"`
	AttemptWindow                 timex.Duration `json:"attempt_window"`
	BlockDuration                 timex.Duration `json:"block_duration"`
	RetentionDays                 int            `json:"retention_days"`
	CleanupInterval               timex.Duration `json:"cleanup_interval"`
	StatsInterval                 timex.Duration `json:"stats_interval"`
	RedisURL                      string         `json:"redis_url"`
	EventsTopic                   string         `json:"events_topic"`
	SeedFile                      string         `json:"seed_file"`
	TrustedProxies                []string       `json:"trusted_proxies"`
	LogLevel                      string         `json:"log_level"`
}

// parseJson overlays config with the file named by -c/-config, if any.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFileFlag(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.OperatorTokenValidityDuration, c.OperatorTokenValidityDuration)
	setString(&config.ClaimBaseURL, c.ClaimBaseURL)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setInt(&config.MaxFailedAttempts, c.MaxFailedAttempts)
	setDuration(&config.AttemptWindow, c.AttemptWindow)
	setDuration(&config.BlockDuration, c.BlockDuration)
	setInt(&config.RetentionDays, c.RetentionDays)
	setDuration(&config.CleanupInterval, c.CleanupInterval)
	setDuration(&config.StatsInterval, c.StatsInterval)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.EventsTopic, c.EventsTopic)
	setString(&config.SeedFile, c.SeedFile)
	setString(&config.LogLevel, c.LogLevel)
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
