package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/securitylog"
)

// FraudGuardConfig tunes the per-IP failure threshold.
type FraudGuardConfig struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// DefaultFraudGuardConfig is 4 failures per rolling hour, with a 24h
// informational block stamp.
var DefaultFraudGuardConfig = FraudGuardConfig{
	MaxAttempts:   4,
	Window:        time.Hour,
	BlockDuration: 24 * time.Hour,
}

// FraudGuard derives IP blocks from recent invalid_token events. No block
// flag is stored; every check recounts the window.
//
// Concurrent failures from one IP are not serialized, so a burst can get a
// few attempts past the threshold.
type FraudGuard struct {
	repo   securitylog.Repository
	audit  *AuditLog
	clock  Clock
	logger logging.Logger
	cfg    FraudGuardConfig
}

func NewFraudGuard(repo securitylog.Repository, audit *AuditLog, clock Clock, logger logging.Logger, cfg FraudGuardConfig) *FraudGuard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultFraudGuardConfig.MaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultFraudGuardConfig.Window
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = DefaultFraudGuardConfig.BlockDuration
	}
	return &FraudGuard{
		repo:   repo,
		audit:  audit,
		clock:  clock,
		logger: logger.With("module", "fraudguard"),
		cfg:    cfg,
	}
}

func (g *FraudGuard) recentFailures(ctx context.Context, ip string) (int64, error) {
	since := g.clock.Now().Add(-g.cfg.Window)
	return g.repo.CountSince(ctx, ip, models.EventInvalidToken, since)
}

// IsBlocked reports whether ip has at least MaxAttempts invalid_token events
// strictly inside the window.
func (g *FraudGuard) IsBlocked(ctx context.Context, ip string) (bool, error) {
	n, err := g.recentFailures(ctx, ip)
	if err != nil {
		return false, err
	}
	return n >= int64(g.cfg.MaxAttempts), nil
}

// RecordFailure appends an invalid_token event and, once the threshold is
// reached, an ip_blocked event. It returns the attempt number just recorded.
// A failed count is logged and treated as no prior attempts.
func (g *FraudGuard) RecordFailure(ctx context.Context, ip, reason, tokenFragment string) int {
	n, err := g.recentFailures(ctx, ip)
	if err != nil {
		g.logger.Error(ctx, "failed to count recent failures", "ip", ip, "error", err)
		n = 0
	}
	attempts := int(n) + 1

	_ = g.audit.Record(ctx, ip, models.EventInvalidToken, map[string]any{
		"reason":   reason,
		"token":    tokenFragment,
		"attempts": attempts,
	}, models.SeverityMedium)

	if attempts >= g.cfg.MaxAttempts {
		until := g.clock.Now().Add(g.cfg.BlockDuration)
		_ = g.audit.RecordBlock(ctx, ip, map[string]any{
			"reason":   reason,
			"attempts": attempts,
			"window":   g.cfg.Window.String(),
		}, until)
		g.logger.Warn(ctx, "ip reached failure threshold", "ip", ip, "attempts", attempts)
	}

	return attempts
}
