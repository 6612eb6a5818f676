// Package securitylog declares the repository contract for the append-only
// security_log table.
package securitylog

import (
	"context"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

// Repository appends and counts security events. It has no update or delete
// operations.
type Repository interface {
	// Create appends one event and fills its ID.
	Create(ctx context.Context, event *models.SecurityEvent) error

	// CountSince counts events of eventType for ip created strictly after since.
	CountSince(ctx context.Context, ip string, eventType models.EventType, since time.Time) (int64, error)
}
