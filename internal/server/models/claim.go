package models

import "github.com/shopspring/decimal"

// Eligibility carries the participant flags owned by the participant/round
// subsystem.
type Eligibility struct {
	ParticipantID  int64
	IsWinner       bool
	IsPaid         bool
	RoundCompleted bool
}

// Eligible reports whether a claim token may be issued.
func (e *Eligibility) Eligible() bool {
	return e != nil && e.IsWinner && e.IsPaid && e.RoundCompleted
}

// ParticipantView is the redacted participant returned to the claim flow.
type ParticipantView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PrizeView is the redacted prize summary returned to the claim flow.
type PrizeView struct {
	GameName   string          `json:"game_name"`
	PrizeValue decimal.Decimal `json:"prize_value"`
	Currency   string          `json:"currency"`
}

// Claim is an unused token joined with its participant and prize.
type Claim struct {
	Token       ClaimToken
	Participant ParticipantView
	Prize       PrizeView
}
