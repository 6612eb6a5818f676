package participants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Eligibility(ctx context.Context, participantID int64) (*models.Eligibility, error) {
	query := `
		SELECT p.is_winner, p.payment_status = 'paid', r.status = 'completed'
		FROM participants p
		JOIN rounds r ON r.id = p.round_id
		WHERE p.id = $1
	`
	e := &models.Eligibility{ParticipantID: participantID}
	err := r.db.QueryRowContext(ctx, query, participantID).Scan(&e.IsWinner, &e.IsPaid, &e.RoundCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}
