package claimtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

const tokenColumns = `id, participant_id, token, token_type, expires_at, is_used, used_at, used_by_ip, created_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner, extra ...any) (*models.ClaimToken, error) {
	t := &models.ClaimToken{}
	var usedAt sql.NullTime
	var usedBy sql.NullString

	dest := append([]any{&t.ID, &t.ParticipantID, &t.Token, &t.TokenType, &t.ExpiresAt, &t.IsUsed, &usedAt, &usedBy, &t.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	if usedBy.Valid {
		t.UsedByIP = &usedBy.String
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.ClaimToken) (*models.ClaimToken, error) {
	query := `
		INSERT INTO claim_tokens (participant_id, token, token_type, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		token.ParticipantID, token.Token, token.TokenType, token.ExpiresAt, token.CreatedAt).Scan(&token.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrDuplicateToken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) FindActiveByParticipant(ctx context.Context, participantID int64, tokenType string, now time.Time) (*models.ClaimToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM claim_tokens
		WHERE participant_id = $1 AND token_type = $2 AND is_used = false AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	t, err := scanToken(r.db.QueryRowContext(ctx, query, participantID, tokenType, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.ClaimToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM claim_tokens
		WHERE token = $1
	`
	t, err := scanToken(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// FindUnusedClaim joins the participant, round and game tables owned by the
// participant subsystem.
func (r *PostgresRepository) FindUnusedClaim(ctx context.Context, token string) (*models.Claim, error) {
	query := `
		SELECT ct.id, ct.participant_id, ct.token, ct.token_type, ct.expires_at, ct.is_used, ct.used_at, ct.used_by_ip, ct.created_at,
		       p.name, p.email, p.phone, g.name, g.prize_value, g.currency
		FROM claim_tokens ct
		JOIN participants p ON p.id = ct.participant_id
		JOIN rounds r ON r.id = p.round_id
		JOIN games g ON g.id = r.game_id
		WHERE ct.token = $1 AND ct.is_used = false
	`
	var (
		name, email, gameName string
		phone, currency       sql.NullString
		prizeValue            decimal.NullDecimal
	)
	t, err := scanToken(r.db.QueryRowContext(ctx, query, token),
		&name, &email, &phone, &gameName, &prizeValue, &currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &models.Claim{
		Token: *t,
		Participant: models.ParticipantView{
			ID:    t.ParticipantID,
			Name:  name,
			Email: email,
			Phone: phone.String,
		},
		Prize: models.PrizeView{
			GameName:   gameName,
			PrizeValue: prizeValue.Decimal,
			Currency:   currency.String,
		},
	}, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, token string, ip string, usedAt time.Time) (int64, error) {
	query := `
		UPDATE claim_tokens
		SET is_used = true, used_at = $1, used_by_ip = $2
		WHERE token = $3 AND is_used = false
	`
	res, err := r.db.ExecContext(ctx, query, usedAt, ip, token)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) Extend(ctx context.Context, token string, d time.Duration, now time.Time) (int64, error) {
	query := `
		UPDATE claim_tokens
		SET expires_at = expires_at + make_interval(secs => $1)
		WHERE token = $2 AND is_used = false AND expires_at > $3
	`
	res, err := r.db.ExecContext(ctx, query, d.Seconds(), token, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM claim_tokens
		WHERE expires_at < $1 OR (is_used = true AND used_at < $1)
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) Statistics(ctx context.Context, now time.Time, since time.Time) (*models.TokenStatistics, error) {
	stats := &models.TokenStatistics{ByType: []models.TypeStatistics{}}

	totals := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_used),
		       COUNT(*) FILTER (WHERE NOT is_used AND expires_at > $1),
		       COUNT(*) FILTER (WHERE NOT is_used AND expires_at <= $1)
		FROM claim_tokens
	`
	if err := r.db.QueryRowContext(ctx, totals, now).Scan(&stats.Total, &stats.Used, &stats.Active, &stats.Expired); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	byType := `
		SELECT token_type,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE is_used),
		       COUNT(*) FILTER (WHERE NOT is_used AND expires_at > $1)
		FROM claim_tokens
		GROUP BY token_type
		ORDER BY token_type
	`
	rows, err := r.db.QueryContext(ctx, byType, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts models.TypeStatistics
		if err := rows.Scan(&ts.TokenType, &ts.Total, &ts.Used, &ts.Active); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		stats.ByType = append(stats.ByType, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	window := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_used)
		FROM claim_tokens
		WHERE created_at > $1
	`
	if err := r.db.QueryRowContext(ctx, window, since).Scan(&stats.Window.Generated, &stats.Window.Redeemed); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return stats, nil
}
