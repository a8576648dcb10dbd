package repositories

import (
	"context"
	"time"

	"github.com/HollandReese/bulwark/internal/database"
	"github.com/HollandReese/bulwark/internal/models"
)

// BlockedIPRepository handles database operations for blocked addresses.
// One row per address, enforced by a unique constraint; rows are
// deactivated on unblock or expiry, never deleted.
type BlockedIPRepository struct {
	db *database.DB
}

// NewBlockedIPRepository creates a new BlockedIPRepository
func NewBlockedIPRepository(db *database.DB) *BlockedIPRepository {
	return &BlockedIPRepository{db: db}
}

// BlockUpsertParams carries the fields written on block/re-block
type BlockUpsertParams struct {
	IPAddress string
	Reason    models.BlockReason
	BlockType models.BlockType
	BlockedBy *string
	ExpiresAt *time.Time // nil means permanent
	Location  *string
	Notes     *string
}

const blockedIPColumns = `
	id, ip_address, reason, block_type, blocked_by, expires_at, active,
	violation_count, location, notes, last_attempt_at, created_at, updated_at
`

// GetActiveByAddress returns the active block record for an address whose
// expiry has not passed, or ErrNotFound. Backed by a partial index on
// active rows so the per-request lookup stays cheap.
func (r *BlockedIPRepository) GetActiveByAddress(ctx context.Context, address string) (*models.BlockedIP, error) {
	query := `
		SELECT ` + blockedIPColumns + `
		FROM blocked_ips
		WHERE ip_address = $1
		  AND active = true
		  AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	`

	return r.scanOne(r.db.Pool.QueryRow(ctx, query, address))
}

// GetByAddress returns the record for an address regardless of state
func (r *BlockedIPRepository) GetByAddress(ctx context.Context, address string) (*models.BlockedIP, error) {
	query := `SELECT ` + blockedIPColumns + ` FROM blocked_ips WHERE ip_address = $1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, address))
}

// Upsert creates or refreshes a block record in a single statement. A
// repeat block increments violation_count in the database, so concurrent
// blocks of the same address never lose increments.
func (r *BlockedIPRepository) Upsert(ctx context.Context, p BlockUpsertParams) (*models.BlockedIP, error) {
	query := `
		INSERT INTO blocked_ips (
			ip_address, reason, block_type, blocked_by, expires_at, active,
			violation_count, location, notes, last_attempt_at
		)
		VALUES ($1, $2, $3, $4, $5, true, 1, $6, $7, CURRENT_TIMESTAMP)
		ON CONFLICT (ip_address) DO UPDATE SET
			reason          = EXCLUDED.reason,
			block_type      = EXCLUDED.block_type,
			blocked_by      = EXCLUDED.blocked_by,
			expires_at      = EXCLUDED.expires_at,
			active          = true,
			violation_count = blocked_ips.violation_count + 1,
			location        = COALESCE(EXCLUDED.location, blocked_ips.location),
			notes           = COALESCE(EXCLUDED.notes, blocked_ips.notes),
			last_attempt_at = CURRENT_TIMESTAMP,
			updated_at      = CURRENT_TIMESTAMP
		RETURNING ` + blockedIPColumns + `
	`

	return r.scanOne(r.db.Pool.QueryRow(ctx, query,
		p.IPAddress,
		p.Reason,
		p.BlockType,
		p.BlockedBy,
		p.ExpiresAt,
		p.Location,
		p.Notes,
	))
}

// Deactivate unblocks an address, recording who did it in notes-free audit
// columns. Returns ErrNotFound if no active record exists.
func (r *BlockedIPRepository) Deactivate(ctx context.Context, address, actor string) (*models.BlockedIP, error) {
	query := `
		UPDATE blocked_ips
		SET active = false, blocked_by = $2, updated_at = CURRENT_TIMESTAMP
		WHERE ip_address = $1 AND active = true
		RETURNING ` + blockedIPColumns + `
	`

	return r.scanOne(r.db.Pool.QueryRow(ctx, query, address, actor))
}

// DeactivateExpired flips every active record whose expiry has passed.
// Idempotent; safe to run on every sweep tick.
func (r *BlockedIPRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE blocked_ips
		SET active = false, updated_at = CURRENT_TIMESTAMP
		WHERE active = true AND expires_at IS NOT NULL AND expires_at <= $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}

// ListActive returns active block records, newest first
func (r *BlockedIPRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.BlockedIP, error) {
	query := `
		SELECT ` + blockedIPColumns + `
		FROM blocked_ips
		WHERE active = true
		  AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var blocks []*models.BlockedIP
	for rows.Next() {
		b := &models.BlockedIP{}
		if err := rows.Scan(
			&b.ID, &b.IPAddress, &b.Reason, &b.BlockType, &b.BlockedBy,
			&b.ExpiresAt, &b.Active, &b.ViolationCount, &b.Location, &b.Notes,
			&b.LastAttemptAt, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// CountActive returns the number of currently blocking records
func (r *BlockedIPRepository) CountActive(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*) FROM blocked_ips
		WHERE active = true
		  AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	`

	var count int64
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	return count, database.MapPostgresError(err)
}

// TopOffenders returns the addresses with the highest violation counts
// touched since the given timestamp
func (r *BlockedIPRepository) TopOffenders(ctx context.Context, since time.Time, limit int) ([]models.OffenderCount, error) {
	query := `
		SELECT ip_address, violation_count
		FROM blocked_ips
		WHERE last_attempt_at >= $1
		ORDER BY violation_count DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var offenders []models.OffenderCount
	for rows.Next() {
		var o models.OffenderCount
		if err := rows.Scan(&o.IPAddress, &o.ViolationCount); err != nil {
			return nil, err
		}
		offenders = append(offenders, o)
	}
	return offenders, rows.Err()
}

func (r *BlockedIPRepository) scanOne(row interface{ Scan(dest ...any) error }) (*models.BlockedIP, error) {
	b := &models.BlockedIP{}
	err := row.Scan(
		&b.ID, &b.IPAddress, &b.Reason, &b.BlockType, &b.BlockedBy,
		&b.ExpiresAt, &b.Active, &b.ViolationCount, &b.Location, &b.Notes,
		&b.LastAttemptAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return b, nil
}
