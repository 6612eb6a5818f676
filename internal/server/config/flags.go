package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN, or "memory"
//	-s string   JWT HMAC secret key
//	-t int      operator token validity, minutes
//	-u string   claim base URL
//	-r string   Redis URL for the security event stream
//	-k int      retention days for cleanup
//
// args are filtered with flagx.FilterArgs first so flags owned by other
// components (such as -c) do not fail the parse.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-u", "-r", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	operatorValidity := fs.Int("t", int(config.OperatorTokenValidityDuration.Minutes()), "operator_token_validity_duration (in minutes)")
	fs.StringVar(&config.ClaimBaseURL, "u", config.ClaimBaseURL, "claim base URL")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL for security events")
	fs.IntVar(&config.RetentionDays, "k", config.RetentionDays, "retention days")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OperatorTokenValidityDuration = time.Duration(*operatorValidity) * time.Minute
}
