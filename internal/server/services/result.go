package services

import (
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

// Failure reasons carried in Outcome.Reason. Callers branch on these, not on
// the human-readable Error text.
const (
	ReasonIneligible    = "ineligible"
	ReasonInvalidFormat = "invalid_format"
	ReasonTokenNotFound = "token_not_found"
	ReasonTokenExpired  = "token_expired"
	ReasonBlocked       = "blocked"
	ReasonAlreadyUsed   = "already_used"
	ReasonNotExtendable = "not_extendable"
	ReasonBadRequest    = "bad_request"
	ReasonInternal      = "internal"
)

// Caller-facing messages.
const (
	MsgIneligible       = "invalid participant or not a winner"
	MsgInvalidFormat    = "invalid token format"
	MsgTokenNotFound    = "invalid or already used token"
	MsgTokenExpired     = "token has expired"
	MsgBlocked          = "too many failed attempts, try again later"
	MsgAlreadyUsed      = "already used or invalid"
	MsgNotExtendable    = "not found or already expired/used"
	MsgInvalidExtension = "extension must be positive"
	MsgGenerationFailed = "failed to generate token"
	MsgValidationFailed = "failed to validate token"
	MsgUsageFailed      = "failed to use token"
	MsgExtensionFailed  = "failed to extend token"
	MsgCleanupFailed    = "failed to clean up tokens"
	MsgStatisticsFailed = "failed to get statistics"
)

// Outcome is embedded in every result. Operations never return a Go error;
// failures are described here.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`
	Expired bool   `json:"expired,omitempty"`
}

func succeeded() Outcome { return Outcome{Success: true} }

func fail(reason, msg string) Outcome {
	return Outcome{Error: msg, Reason: reason}
}

// label is the metrics outcome label.
func (o Outcome) label() string {
	switch {
	case o.Success:
		return "success"
	case o.Blocked:
		return "blocked"
	case o.Expired:
		return "expired"
	default:
		return "failure"
	}
}

type GenerateResult struct {
	Outcome
	Token     string    `json:"token,omitempty"`
	ClaimURL  string    `json:"claim_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Existing  bool      `json:"existing"`
}

type ValidateResult struct {
	Outcome
	Token       *models.ClaimToken      `json:"token,omitempty"`
	Participant *models.ParticipantView `json:"participant,omitempty"`
	Prize       *models.PrizeView       `json:"prize,omitempty"`
}

type ExtendResult struct {
	Outcome
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type CleanupResult struct {
	Outcome
	Deleted int64 `json:"deleted"`
}

type StatisticsResult struct {
	Outcome
	Stats *models.TokenStatistics `json:"statistics,omitempty"`
}
