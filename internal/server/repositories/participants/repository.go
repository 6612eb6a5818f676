// Package participants reads winner eligibility from the tables owned by the
// participant/round subsystem. It never writes.
package participants

import (
	"context"

	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

// Repository is the read-only eligibility lookup.
type Repository interface {
	// Eligibility returns the winner/payment/round flags for participantID,
	// or common.ErrorNotFound when the participant does not exist.
	Eligibility(ctx context.Context, participantID int64) (*models.Eligibility, error)
}
