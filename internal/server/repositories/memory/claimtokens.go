package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

type tokenRepository struct {
	s *Store
}

func (r *tokenRepository) find(token string) *models.ClaimToken {
	for _, t := range r.s.tokens {
		if t.Token == token {
			return t
		}
	}
	return nil
}

func (r *tokenRepository) Create(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.find(token.Token) != nil {
		return nil, common.ErrDuplicateToken
	}
	r.s.nextTokenID++
	row := cloneToken(token)
	row.ID = r.s.nextTokenID
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	r.s.tokens = append(r.s.tokens, &row)

	out := cloneToken(&row)
	return &out, nil
}

func (r *tokenRepository) FindActiveByParticipant(ctx context.Context, participantID int64, tokenType string, now time.Time) (*models.ClaimToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var newest *models.ClaimToken
	for _, t := range r.s.tokens {
		if t.ParticipantID != participantID || t.TokenType != tokenType || t.IsUsed || !t.ExpiresAt.After(now) {
			continue
		}
		if newest == nil || !t.CreatedAt.Before(newest.CreatedAt) {
			newest = t
		}
	}
	if newest == nil {
		return nil, common.ErrorNotFound
	}
	out := cloneToken(newest)
	return &out, nil
}

func (r *tokenRepository) FindByToken(ctx context.Context, token string) (*models.ClaimToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := r.find(token)
	if t == nil {
		return nil, common.ErrorNotFound
	}
	out := cloneToken(t)
	return &out, nil
}

func (r *tokenRepository) FindUnusedClaim(ctx context.Context, token string) (*models.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := r.find(token)
	if t == nil || t.IsUsed {
		return nil, common.ErrorNotFound
	}
	p, ok := r.s.participants[t.ParticipantID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.Claim{Token: cloneToken(t), Participant: p.View, Prize: p.Prize}, nil
}

func (r *tokenRepository) MarkUsed(ctx context.Context, token string, ip string, usedAt time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := r.find(token)
	if t == nil || t.IsUsed {
		return 0, nil
	}
	t.IsUsed = true
	t.UsedAt = &usedAt
	t.UsedByIP = &ip
	return 1, nil
}

func (r *tokenRepository) Extend(ctx context.Context, token string, d time.Duration, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := r.find(token)
	if t == nil || t.IsUsed || !t.ExpiresAt.After(now) {
		return 0, nil
	}
	t.ExpiresAt = t.ExpiresAt.Add(d)
	return 1, nil
}

func (r *tokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.tokens[:0]
	var deleted int64
	for _, t := range r.s.tokens {
		expired := t.ExpiresAt.Before(cutoff)
		usedLongAgo := t.IsUsed && t.UsedAt != nil && t.UsedAt.Before(cutoff)
		if expired || usedLongAgo {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	clear(r.s.tokens[len(kept):])
	r.s.tokens = kept
	return deleted, nil
}

func (r *tokenRepository) Statistics(ctx context.Context, now time.Time, since time.Time) (*models.TokenStatistics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &models.TokenStatistics{ByType: []models.TypeStatistics{}}
	byType := map[string]*models.TypeStatistics{}

	for _, t := range r.s.tokens {
		ts, ok := byType[t.TokenType]
		if !ok {
			ts = &models.TypeStatistics{TokenType: t.TokenType}
			byType[t.TokenType] = ts
		}
		stats.Total++
		ts.Total++
		switch {
		case t.IsUsed:
			stats.Used++
			ts.Used++
		case t.ExpiresAt.After(now):
			stats.Active++
			ts.Active++
		default:
			stats.Expired++
		}
		if t.CreatedAt.After(since) {
			stats.Window.Generated++
			if t.IsUsed {
				stats.Window.Redeemed++
			}
		}
	}

	for _, ts := range byType {
		stats.ByType = append(stats.ByType, *ts)
	}
	sort.Slice(stats.ByType, func(i, j int) bool {
		return stats.ByType[i].TokenType < stats.ByType[j].TokenType
	})
	return stats, nil
}
