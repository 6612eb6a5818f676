// Package claimtokens declares the repository contract for claim token rows.
package claimtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

// Repository is the single writer of the claim_tokens table.
type Repository interface {
	// Create inserts a new token row and fills its ID. A token string that
	// already exists yields common.ErrDuplicateToken.
	Create(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error)

	// FindActiveByParticipant returns the newest unused token of tokenType
	// for the participant whose expiry is after now, or common.ErrorNotFound.
	FindActiveByParticipant(ctx context.Context, participantID int64, tokenType string, now time.Time) (*models.ClaimToken, error)

	// FindByToken returns the row for token regardless of its state.
	FindByToken(ctx context.Context, token string) (*models.ClaimToken, error)

	// FindUnusedClaim returns an unused token joined with its participant
	// and prize. Expiry is not checked here.
	FindUnusedClaim(ctx context.Context, token string) (*models.Claim, error)

	// MarkUsed flips is_used only if it is still false and reports the
	// number of rows changed.
	MarkUsed(ctx context.Context, token string, ip string, usedAt time.Time) (int64, error)

	// Extend pushes expires_at forward by d for an unused token that has not
	// expired at now, and reports the number of rows changed.
	Extend(ctx context.Context, token string, d time.Duration, now time.Time) (int64, error)

	// DeleteExpired removes rows that expired, or were used, before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// Statistics aggregates the table. Window counters cover rows created
	// after since; the redemption rate is left for the caller.
	Statistics(ctx context.Context, now time.Time, since time.Time) (*models.TokenStatistics, error)
}
