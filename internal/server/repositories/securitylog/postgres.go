package securitylog

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_log (ip_address, event_type, details_json, severity, blocked_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	details := []byte(event.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}
	err := r.db.QueryRowContext(ctx, query,
		event.IPAddress, string(event.EventType), details, string(event.Severity), event.BlockedUntil, event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountSince(ctx context.Context, ip string, eventType models.EventType, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM security_log
		WHERE event_type = $1 AND ip_address = $2 AND created_at > $3
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, string(eventType), ip, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
