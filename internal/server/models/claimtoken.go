// Package models holds the rows and read models shared by the claimkeeper
// repositories, services and transport.
package models

import "time"

// TokenState is derived from a ClaimToken and the current time. It is never
// persisted.
type TokenState string

const (
	TokenStateActive  TokenState = "active"
	TokenStateUsed    TokenState = "used"
	TokenStateExpired TokenState = "expired"
)

// ClaimToken is one issuance of a redeemable claim secret.
type ClaimToken struct {
	ID            int64      `json:"id"`
	ParticipantID int64      `json:"participant_id"`
	Token         string     `json:"token"`
	TokenType     string     `json:"token_type"`
	ExpiresAt     time.Time  `json:"expires_at"`
	IsUsed        bool       `json:"is_used"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	UsedByIP      *string    `json:"used_by_ip,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsExpired reports whether the token's expiry lies in the past at now.
func (t *ClaimToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// State returns the lifecycle state of the token at now.
func (t *ClaimToken) State(now time.Time) TokenState {
	switch {
	case t.IsUsed:
		return TokenStateUsed
	case t.IsExpired(now):
		return TokenStateExpired
	default:
		return TokenStateActive
	}
}
