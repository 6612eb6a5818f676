// Package services contains server-side business logic: the claim token
// lifecycle, the IP fraud guard and the security audit log.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/dmitrijs2005/claimkeeper/internal/server/config"
	"github.com/dmitrijs2005/claimkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/claimtokens"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/participants"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/repomanager"
)

// StatisticsWindowDays is the trailing window for issuance/redemption rates.
const StatisticsWindowDays = 30

// mintAttempts bounds retries when a freshly minted token collides.
const mintAttempts = 3

// ClaimService implements the claim token state machine: active tokens become
// used through UseToken, expire by clock, and are purged by cleanup.
type ClaimService struct {
	tokens        claimtokens.Repository
	participants  participants.Repository
	audit         *AuditLog
	guard         *FraudGuard
	clock         Clock
	random        io.Reader
	urls          ClaimURLBuilder
	logger        logging.Logger
	metrics       *metrics.ClaimMetrics
	tokenValidity time.Duration
}

// Option customizes a ClaimService.
type Option func(*options)

type options struct {
	clock     Clock
	random    io.Reader
	logger    logging.Logger
	metrics   *metrics.ClaimMetrics
	publisher EventPublisher
}

func WithClock(c Clock) Option                   { return func(o *options) { o.clock = c } }
func WithRandom(r io.Reader) Option              { return func(o *options) { o.random = r } }
func WithLogger(l logging.Logger) Option         { return func(o *options) { o.logger = l } }
func WithMetrics(m *metrics.ClaimMetrics) Option { return func(o *options) { o.metrics = m } }
func WithEventPublisher(p EventPublisher) Option { return func(o *options) { o.publisher = p } }

// NewClaimService wires the service, its audit log and fraud guard from the
// repositories m vends for db.
func NewClaimService(db dbx.DBTX, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *ClaimService {
	o := options{clock: SystemClock{}, random: rand.Reader, logger: logging.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}

	securityRepo := m.SecurityLog(db)
	audit := NewAuditLog(securityRepo, o.clock, o.logger, o.publisher, o.metrics)
	guard := NewFraudGuard(securityRepo, audit, o.clock, o.logger, FraudGuardConfig{
		MaxAttempts:   cfg.MaxFailedAttempts,
		Window:        cfg.AttemptWindow,
		BlockDuration: cfg.BlockDuration,
	})

	validity := cfg.TokenValidityDuration
	if validity <= 0 {
		validity = common.DefaultTokenValidity
	}

	return &ClaimService{
		tokens:        m.ClaimTokens(db),
		participants:  m.Participants(db),
		audit:         audit,
		guard:         guard,
		clock:         o.clock,
		random:        o.random,
		urls:          NewClaimURLBuilder(cfg.ClaimBaseURL),
		logger:        o.logger.With("module", "claims"),
		metrics:       o.metrics,
		tokenValidity: validity,
	}
}

func (s *ClaimService) observe(op string, o Outcome, start time.Time) {
	s.metrics.RecordOperation(op, o.label(), time.Since(start))
}

// GenerateToken issues a claim token for an eligible winner, or returns the
// participant's active token of the same type with Existing set. An empty
// tokenType means winner_claim; a non-positive expiry means the configured
// default.
//
// The existing-token check and the insert are not atomic. Concurrent calls
// for one participant can each mint a token.
func (s *ClaimService) GenerateToken(ctx context.Context, participantID int64, tokenType string, expiry time.Duration) (res GenerateResult) {
	start := time.Now()
	defer func() { s.observe("generate", res.Outcome, start) }()

	if tokenType == "" {
		tokenType = common.DefaultTokenType
	}
	if expiry <= 0 {
		expiry = s.tokenValidity
	}
	ip := ClientIP(ctx)

	failed := func(err error) GenerateResult {
		s.logger.Error(ctx, "token generation failed", "participant_id", participantID, "error", err)
		_ = s.audit.Record(ctx, ip, models.EventTokenGenerationFailed, map[string]any{
			"participant_id": participantID,
			"token_type":     tokenType,
			"error":          err.Error(),
		}, models.SeverityHigh)
		return GenerateResult{Outcome: fail(ReasonInternal, MsgGenerationFailed)}
	}

	eligibility, err := s.participants.Eligibility(ctx, participantID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return failed(err)
	}
	if !eligibility.Eligible() {
		return GenerateResult{Outcome: fail(ReasonIneligible, MsgIneligible)}
	}

	now := s.clock.Now()

	existing, err := s.tokens.FindActiveByParticipant(ctx, participantID, tokenType, now)
	switch {
	case err == nil:
		return GenerateResult{
			Outcome:   succeeded(),
			Token:     existing.Token,
			ClaimURL:  s.urls.ClaimURL(existing.Token),
			ExpiresAt: existing.ExpiresAt,
			Existing:  true,
		}
	case !errors.Is(err, common.ErrorNotFound):
		return failed(err)
	}

	var created *models.ClaimToken
	for i := 0; i < mintAttempts; i++ {
		value, err := common.MakeRandHexStringFrom(s.random, common.ClaimTokenBytes)
		if err != nil {
			return failed(err)
		}
		created, err = s.tokens.Create(ctx, &models.ClaimToken{
			ParticipantID: participantID,
			Token:         value,
			TokenType:     tokenType,
			ExpiresAt:     now.Add(expiry),
			CreatedAt:     now,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, common.ErrDuplicateToken) {
			return failed(err)
		}
		s.logger.Warn(ctx, "minted token collided, retrying", "participant_id", participantID)
	}
	if created == nil {
		return failed(common.ErrDuplicateToken)
	}

	_ = s.audit.Record(ctx, ip, models.EventTokenGenerated, map[string]any{
		"participant_id": participantID,
		"token_type":     tokenType,
		"token":          common.MaskToken(created.Token),
		"expires_at":     created.ExpiresAt,
	}, models.SeverityLow)

	return GenerateResult{
		Outcome:   succeeded(),
		Token:     created.Token,
		ClaimURL:  s.urls.ClaimURL(created.Token),
		ExpiresAt: created.ExpiresAt,
		Existing:  false,
	}
}

// ValidateToken checks token on behalf of ip without consuming it.
func (s *ClaimService) ValidateToken(ctx context.Context, token, ip string) (res ValidateResult) {
	start := time.Now()
	defer func() { s.observe("validate", res.Outcome, start) }()

	return s.validate(ctx, token, ip)
}

func (s *ClaimService) validate(ctx context.Context, token, ip string) ValidateResult {
	masked := common.MaskToken(token)

	failed := func(err error) ValidateResult {
		s.logger.Error(ctx, "token validation failed", "ip", ip, "error", err)
		_ = s.audit.Record(ctx, ip, models.EventTokenValidationError, map[string]any{
			"token": masked,
			"error": err.Error(),
		}, models.SeverityHigh)
		return ValidateResult{Outcome: fail(ReasonInternal, MsgValidationFailed)}
	}

	blocked, err := s.guard.IsBlocked(ctx, ip)
	if err != nil {
		return failed(err)
	}
	if blocked {
		_ = s.audit.Record(ctx, ip, models.EventBlockedIPAttempt, map[string]any{
			"token": masked,
		}, models.SeverityHigh)
		o := fail(ReasonBlocked, MsgBlocked)
		o.Blocked = true
		return ValidateResult{Outcome: o}
	}

	if !common.IsClaimToken(token) {
		s.guard.RecordFailure(ctx, ip, ReasonInvalidFormat, masked)
		return ValidateResult{Outcome: fail(ReasonInvalidFormat, MsgInvalidFormat)}
	}

	claim, err := s.tokens.FindUnusedClaim(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.guard.RecordFailure(ctx, ip, ReasonTokenNotFound, masked)
			return ValidateResult{Outcome: fail(ReasonTokenNotFound, MsgTokenNotFound)}
		}
		return failed(err)
	}

	if claim.Token.IsExpired(s.clock.Now()) {
		s.guard.RecordFailure(ctx, ip, ReasonTokenExpired, masked)
		o := fail(ReasonTokenExpired, MsgTokenExpired)
		o.Expired = true
		return ValidateResult{Outcome: o}
	}

	_ = s.audit.Record(ctx, ip, models.EventTokenValidated, map[string]any{
		"participant_id": claim.Token.ParticipantID,
		"token":          masked,
	}, models.SeverityLow)

	return ValidateResult{
		Outcome:     succeeded(),
		Token:       &claim.Token,
		Participant: &claim.Participant,
		Prize:       &claim.Prize,
	}
}

// UseToken validates token and then marks it used. Only the conditional
// update guards against double redemption.
func (s *ClaimService) UseToken(ctx context.Context, token, ip string) (res ValidateResult) {
	start := time.Now()
	defer func() { s.observe("use", res.Outcome, start) }()

	res = s.validate(ctx, token, ip)
	if !res.Success {
		// A consumed token no longer matches the unused lookup.
		if res.Reason == ReasonTokenNotFound {
			res.Outcome = fail(ReasonAlreadyUsed, MsgAlreadyUsed)
		}
		return res
	}

	now := s.clock.Now()
	n, err := s.tokens.MarkUsed(ctx, token, ip, now)
	if err != nil {
		s.logger.Error(ctx, "token usage failed", "ip", ip, "error", err)
		_ = s.audit.Record(ctx, ip, models.EventTokenUsageError, map[string]any{
			"token": common.MaskToken(token),
			"error": err.Error(),
		}, models.SeverityHigh)
		return ValidateResult{Outcome: fail(ReasonInternal, MsgUsageFailed)}
	}
	if n == 0 {
		return ValidateResult{Outcome: fail(ReasonAlreadyUsed, MsgAlreadyUsed)}
	}

	res.Token.IsUsed = true
	res.Token.UsedAt = &now
	res.Token.UsedByIP = &ip

	_ = s.audit.Record(ctx, ip, models.EventTokenUsed, map[string]any{
		"participant_id": res.Token.ParticipantID,
		"token":          common.MaskToken(token),
	}, models.SeverityMedium)

	return res
}

// ExtendToken pushes the expiry of an unused, unexpired token forward by
// additional.
func (s *ClaimService) ExtendToken(ctx context.Context, token string, additional time.Duration) (res ExtendResult) {
	start := time.Now()
	defer func() { s.observe("extend", res.Outcome, start) }()

	if additional <= 0 {
		return ExtendResult{Outcome: fail(ReasonBadRequest, MsgInvalidExtension)}
	}

	n, err := s.tokens.Extend(ctx, token, additional, s.clock.Now())
	if err != nil {
		s.logger.Error(ctx, "token extension failed", "error", err)
		return ExtendResult{Outcome: fail(ReasonInternal, MsgExtensionFailed)}
	}
	if n == 0 {
		return ExtendResult{Outcome: fail(ReasonNotExtendable, MsgNotExtendable)}
	}

	updated, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		s.logger.Error(ctx, "extended token re-read failed", "error", err)
		return ExtendResult{Outcome: fail(ReasonInternal, MsgExtensionFailed)}
	}

	_ = s.audit.Record(ctx, ClientIP(ctx), models.EventTokenExtended, map[string]any{
		"participant_id":     updated.ParticipantID,
		"token":              common.MaskToken(token),
		"additional_seconds": int64(additional.Seconds()),
		"expires_at":         updated.ExpiresAt,
	}, models.SeverityMedium)

	return ExtendResult{Outcome: succeeded(), ExpiresAt: updated.ExpiresAt}
}

// CleanupExpiredTokens deletes tokens that expired, or were used, more than
// olderThanDays ago. A non-positive value means the default retention.
func (s *ClaimService) CleanupExpiredTokens(ctx context.Context, olderThanDays int) (res CleanupResult) {
	start := time.Now()
	defer func() { s.observe("cleanup", res.Outcome, start) }()

	if olderThanDays <= 0 {
		olderThanDays = common.DefaultRetentionDays
	}
	cutoff := s.clock.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)

	deleted, err := s.tokens.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error(ctx, "token cleanup failed", "error", err)
		return CleanupResult{Outcome: fail(ReasonInternal, MsgCleanupFailed)}
	}

	s.metrics.RecordCleanup(deleted)
	_ = s.audit.Record(ctx, ClientIP(ctx), models.EventTokensCleaned, map[string]any{
		"deleted":         deleted,
		"older_than_days": olderThanDays,
	}, models.SeverityLow)

	return CleanupResult{Outcome: succeeded(), Deleted: deleted}
}

// GetStatistics aggregates token counts and the trailing issuance and
// redemption figures. It writes no audit events.
func (s *ClaimService) GetStatistics(ctx context.Context) (res StatisticsResult) {
	start := time.Now()
	defer func() { s.observe("statistics", res.Outcome, start) }()

	now := s.clock.Now()
	since := now.Add(-StatisticsWindowDays * 24 * time.Hour)

	stats, err := s.tokens.Statistics(ctx, now, since)
	if err != nil {
		s.logger.Error(ctx, "statistics query failed", "error", err)
		return StatisticsResult{Outcome: fail(ReasonInternal, MsgStatisticsFailed)}
	}

	stats.Window.Days = StatisticsWindowDays
	stats.Window.RedemptionRate = redemptionRate(stats.Window.Redeemed, stats.Window.Generated)
	s.metrics.SetTokenCounts(stats.Active, stats.Used, stats.Expired)

	return StatisticsResult{Outcome: succeeded(), Stats: stats}
}

// redemptionRate is redeemed/generated as a percentage with two decimals.
func redemptionRate(redeemed, generated int64) float64 {
	if generated == 0 {
		return 0
	}
	return math.Round(float64(redeemed)/float64(generated)*10000) / 100
}
