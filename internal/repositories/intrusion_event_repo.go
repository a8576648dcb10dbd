package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HollandReese/bulwark/internal/database"
	"github.com/HollandReese/bulwark/internal/models"
	"github.com/jackc/pgx/v5"
)

// IntrusionEventRepository handles database operations for intrusion events.
// Events are append-only: inserts plus status/repeat-count updates, never
// deletes.
type IntrusionEventRepository struct {
	db *database.DB
}

// NewIntrusionEventRepository creates a new IntrusionEventRepository
func NewIntrusionEventRepository(db *database.DB) *IntrusionEventRepository {
	return &IntrusionEventRepository{db: db}
}

// Create inserts a new intrusion event and returns it with generated fields
func (r *IntrusionEventRepository) Create(ctx context.Context, event *models.IntrusionEvent) (*models.IntrusionEvent, error) {
	headers, err := json.Marshal(event.Request.Headers)
	if err != nil {
		headers = []byte("{}")
	}

	query := `
		INSERT INTO intrusion_events (
			source_address, target_resource, intrusion_type, severity, status,
			description, user_id, location, request_method, request_url,
			request_user_agent, request_headers, request_payload, action_taken,
			repeat_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, repeat_count, created_at, updated_at
	`

	row := r.db.Pool.QueryRow(ctx, query,
		event.SourceAddress,
		event.TargetResource,
		event.Type,
		event.Severity,
		event.Status,
		event.Description,
		event.UserID,
		event.Location,
		event.Request.Method,
		event.Request.URL,
		event.Request.UserAgent,
		headers,
		event.Request.Payload,
		event.ActionTaken,
		event.RepeatCount,
	)

	if err := row.Scan(&event.ID, &event.RepeatCount, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return event, nil
}

// FindRecent returns the newest event for an address and type created after
// since, or ErrNotFound. Used to fold repeat detections into one record.
func (r *IntrusionEventRepository) FindRecent(ctx context.Context, address string, intrusionType models.IntrusionType, since time.Time) (*models.IntrusionEvent, error) {
	query := `
		SELECT id, source_address, target_resource, intrusion_type, severity,
		       status, description, action_taken, repeat_count, created_at, updated_at
		FROM intrusion_events
		WHERE source_address = $1 AND intrusion_type = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	event := &models.IntrusionEvent{}
	err := r.db.Pool.QueryRow(ctx, query, address, intrusionType, since).Scan(
		&event.ID,
		&event.SourceAddress,
		&event.TargetResource,
		&event.Type,
		&event.Severity,
		&event.Status,
		&event.Description,
		&event.ActionTaken,
		&event.RepeatCount,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return event, nil
}

// IncrementRepeatCount bumps the repeat counter on an existing event
func (r *IntrusionEventRepository) IncrementRepeatCount(ctx context.Context, id string) error {
	query := `
		UPDATE intrusion_events
		SET repeat_count = repeat_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateStatus transitions an event's review status. Core fields stay immutable.
func (r *IntrusionEventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	query := `
		UPDATE intrusion_events
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountByType returns event counts grouped by intrusion type since a timestamp
func (r *IntrusionEventRepository) CountByType(ctx context.Context, since time.Time) ([]models.TypeCount, error) {
	query := `
		SELECT intrusion_type, COUNT(*)
		FROM intrusion_events
		WHERE created_at >= $1
		GROUP BY intrusion_type
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	return scanTypeCounts(rows)
}

// CountBySeverity returns event counts grouped by severity since a timestamp
func (r *IntrusionEventRepository) CountBySeverity(ctx context.Context, since time.Time) ([]models.SeverityCount, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM intrusion_events
		WHERE created_at >= $1
		GROUP BY severity
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var counts []models.SeverityCount
	for rows.Next() {
		var c models.SeverityCount
		if err := rows.Scan(&c.Severity, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountByDay returns daily event counts since a timestamp
func (r *IntrusionEventRepository) CountByDay(ctx context.Context, since time.Time) ([]models.BucketCount, error) {
	query := `
		SELECT date_trunc('day', created_at) AS bucket, COUNT(*)
		FROM intrusion_events
		WHERE created_at >= $1
		GROUP BY bucket
		ORDER BY bucket
	`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var counts []models.BucketCount
	for rows.Next() {
		var c models.BucketCount
		if err := rows.Scan(&c.Bucket, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountSince returns the total number of events recorded since a timestamp
func (r *IntrusionEventRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM intrusion_events WHERE created_at >= $1`

	var count int64
	err := r.db.Pool.QueryRow(ctx, query, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

func scanTypeCounts(rows pgx.Rows) ([]models.TypeCount, error) {
	var counts []models.TypeCount
	for rows.Next() {
		var c models.TypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
