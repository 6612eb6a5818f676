package services

import (
	"context"
	"strings"
	"time"
)

// Clock supplies the current time. Tests swap in a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClaimURLBuilder turns a token into the link handed to a winner.
type ClaimURLBuilder interface {
	ClaimURL(token string) string
}

// BaseURLBuilder appends the token as the last path segment of a base URL.
type BaseURLBuilder struct {
	base string
}

func NewClaimURLBuilder(base string) BaseURLBuilder {
	return BaseURLBuilder{base: strings.TrimRight(base, "/")}
}

func (b BaseURLBuilder) ClaimURL(token string) string {
	return b.base + "/" + token
}

type clientIPKey struct{}

// UnknownIP is recorded when no client address was attached to the context.
const UnknownIP = "unknown"

// WithClientIP attaches the caller's address for audit records written by
// operations that are not IP-scoped.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the address stored by WithClientIP, or UnknownIP.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return UnknownIP
}
