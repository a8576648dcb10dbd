package repositories

import (
	"context"
	"time"

	"github.com/HollandReese/bulwark/internal/database"
	"github.com/HollandReese/bulwark/internal/models"
	"github.com/jackc/pgx/v5"
)

// LoginActivityRepository handles database operations for login outcomes
type LoginActivityRepository struct {
	db *database.DB
}

// NewLoginActivityRepository creates a new LoginActivityRepository
func NewLoginActivityRepository(db *database.DB) *LoginActivityRepository {
	return &LoginActivityRepository{db: db}
}

// Record stores one login outcome
func (r *LoginActivityRepository) Record(ctx context.Context, activity *models.LoginActivity) error {
	query := `
		INSERT INTO login_activity (ip_address, identifier, success, failure_reason, user_agent)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		activity.IPAddress,
		activity.Identifier,
		activity.Success,
		activity.FailureReason,
		activity.UserAgent,
	)

	return database.MapPostgresError(err)
}

// CountFailuresSince returns the number of failed attempts from an address
// since a timestamp
func (r *LoginActivityRepository) CountFailuresSince(ctx context.Context, address string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_activity
		WHERE ip_address = $1 AND success = false AND attempted_at >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, address, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// LastSuccessTime returns the timestamp of the most recent successful login
// from an address, or nil when there is none
func (r *LoginActivityRepository) LastSuccessTime(ctx context.Context, address string) (*time.Time, error) {
	query := `
		SELECT attempted_at FROM login_activity
		WHERE ip_address = $1 AND success = true
		ORDER BY attempted_at DESC
		LIMIT 1
	`

	var successTime time.Time
	err := r.db.Pool.QueryRow(ctx, query, address).Scan(&successTime)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &successTime, nil
}

// DeleteOlderThan prunes activity rows past the retention cutoff
func (r *LoginActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_activity WHERE attempted_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
