package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/dmitrijs2005/claimkeeper/internal/server/config"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/claimtokens"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/participants"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/securitylog"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+": "+msg)
}

func (l *recordingLogger) Debug(_ context.Context, msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(_ context.Context, msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) { l.add("error", msg) }
func (l *recordingLogger) With(...any) logging.Logger                    { return l }

func (l *recordingLogger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// fakeManager serves the memory store but lets a test swap single repositories.
type fakeManager struct {
	*memory.Store
	tokens       claimtokens.Repository
	security     securitylog.Repository
	participants participants.Repository
}

func (m *fakeManager) ClaimTokens(db dbx.DBTX) claimtokens.Repository {
	if m.tokens != nil {
		return m.tokens
	}
	return m.Store.ClaimTokens(db)
}

func (m *fakeManager) SecurityLog(db dbx.DBTX) securitylog.Repository {
	if m.security != nil {
		return m.security
	}
	return m.Store.SecurityLog(db)
}

func (m *fakeManager) Participants(db dbx.DBTX) participants.Repository {
	if m.participants != nil {
		return m.participants
	}
	return m.Store.Participants(db)
}

// failingTokens wraps a repository and fails selected methods.
type failingTokens struct {
	claimtokens.Repository
	findActiveErr error
	createErr     error
	findClaimErr  error
	markUsedErr   error
	extendErr     error
	findByErr     error
	deleteErr     error
	statsErr      error
}

func (f *failingTokens) FindActiveByParticipant(ctx context.Context, pid int64, tokenType string, now time.Time) (*models.ClaimToken, error) {
	if f.findActiveErr != nil {
		return nil, f.findActiveErr
	}
	return f.Repository.FindActiveByParticipant(ctx, pid, tokenType, now)
}

func (f *failingTokens) Create(ctx context.Context, t *models.ClaimToken) (*models.ClaimToken, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.Repository.Create(ctx, t)
}

func (f *failingTokens) FindUnusedClaim(ctx context.Context, token string) (*models.Claim, error) {
	if f.findClaimErr != nil {
		return nil, f.findClaimErr
	}
	return f.Repository.FindUnusedClaim(ctx, token)
}

func (f *failingTokens) MarkUsed(ctx context.Context, token, ip string, at time.Time) (int64, error) {
	if f.markUsedErr != nil {
		return 0, f.markUsedErr
	}
	return f.Repository.MarkUsed(ctx, token, ip, at)
}

func (f *failingTokens) Extend(ctx context.Context, token string, d time.Duration, now time.Time) (int64, error) {
	if f.extendErr != nil {
		return 0, f.extendErr
	}
	return f.Repository.Extend(ctx, token, d, now)
}

func (f *failingTokens) FindByToken(ctx context.Context, token string) (*models.ClaimToken, error) {
	if f.findByErr != nil {
		return nil, f.findByErr
	}
	return f.Repository.FindByToken(ctx, token)
}

func (f *failingTokens) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.Repository.DeleteExpired(ctx, cutoff)
}

func (f *failingTokens) Statistics(ctx context.Context, now, since time.Time) (*models.TokenStatistics, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.Repository.Statistics(ctx, now, since)
}

// countingTokens counts token lookups made during validation.
type countingTokens struct {
	claimtokens.Repository
	mu      sync.Mutex
	lookups int
}

func (c *countingTokens) FindUnusedClaim(ctx context.Context, token string) (*models.Claim, error) {
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
	return c.Repository.FindUnusedClaim(ctx, token)
}

func (c *countingTokens) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

type failingSecurityLog struct {
	createErr error
	countErr  error
	inner     securitylog.Repository
}

func (f *failingSecurityLog) Create(ctx context.Context, e *models.SecurityEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.inner.Create(ctx, e)
}

func (f *failingSecurityLog) CountSince(ctx context.Context, ip string, et models.EventType, since time.Time) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.inner.CountSince(ctx, ip, et, since)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func testConfig() *config.Config {
	return &config.Config{
		ClaimBaseURL:          "https://prizes.example/claim/",
		TokenValidityDuration: 30 * 24 * time.Hour,
		MaxFailedAttempts:     4,
		AttemptWindow:         time.Hour,
		BlockDuration:         24 * time.Hour,
	}
}

func seedWinner(s *memory.Store, id int64) {
	s.AddParticipant(id, memory.Participant{
		View: models.ParticipantView{
			Name:  fmt.Sprintf("Winner %d", id),
			Email: fmt.Sprintf("winner%d@example.com", id),
			Phone: "+3712000000",
		},
		Prize: models.PrizeView{
			GameName:   "Spring Draw",
			PrizeValue: decimal.RequireFromString("1250.50"),
			Currency:   "EUR",
		},
		Eligibility: models.Eligibility{IsWinner: true, IsPaid: true, RoundCompleted: true},
	})
}

type fixture struct {
	svc     *ClaimService
	store   *memory.Store
	manager *fakeManager
	clock   *fakeClock
	logger  *recordingLogger
}

// newFixture seeds participant 42 as an eligible winner. configure may swap
// repositories on the manager before the service is built.
func newFixture(t *testing.T, configure func(*fakeManager), opts ...Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	seedWinner(store, 42)

	m := &fakeManager{Store: store}
	if configure != nil {
		configure(m)
	}

	clock := newFakeClock()
	logger := &recordingLogger{}
	opts = append([]Option{WithClock(clock), WithLogger(logger)}, opts...)

	return &fixture{
		svc:     NewClaimService(nil, m, testConfig(), opts...),
		store:   store,
		manager: m,
		clock:   clock,
		logger:  logger,
	}
}

func (f *fixture) eventsOf(et models.EventType) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, e := range f.store.Events() {
		if e.EventType == et {
			out = append(out, e)
		}
	}
	return out
}

func hexToken(b byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 64)
	for i := range out {
		out[i] = digits[b&0x0f]
	}
	return string(out)
}

type failingParticipants struct{}

func (failingParticipants) Eligibility(context.Context, int64) (*models.Eligibility, error) {
	return nil, errBoom{}
}
