package organ

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/organlink/organlink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed organ repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recordCols = `id, donor_id, recipient_id, organ_type, status, score,
	distance_km, viability_hours, expires_at, allocation_attempts,
	waste_reason, notes, transplanted_at, attributes, created_at, updated_at`

func (r *repoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.DonorID, &rec.RecipientID, &rec.Type, &rec.Status, &rec.Score,
		&rec.DistanceKm, &rec.ViabilityHours, &rec.ExpiresAt, &rec.AllocationAttempts,
		&rec.WasteReason, &rec.Notes, &rec.TransplantedAt, &rec.Attributes, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusAvailable
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organ_record (id, donor_id, organ_type, status, viability_hours,
			expires_at, attributes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.DonorID, rec.Type, rec.Status, rec.ViabilityHours,
		rec.ExpiresAt, rec.Attributes)
	if err != nil {
		return fmt.Errorf("insert organ record: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM organ_record WHERE id = $1`, id))
}

func (r *repoPG) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*Record, error) {
	return r.list(ctx, `SELECT `+recordCols+` FROM organ_record WHERE donor_id = $1 ORDER BY created_at, id`, donorID)
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status) ([]*Record, error) {
	return r.list(ctx, `SELECT `+recordCols+` FROM organ_record WHERE status = $1 ORDER BY created_at, id`, status)
}

func (r *repoPG) ListExpiringBefore(ctx context.Context, t time.Time) ([]*Record, error) {
	return r.list(ctx, `
		SELECT `+recordCols+` FROM organ_record
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at, id`, StatusAvailable, t)
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repoPG) CountsByType(ctx context.Context) (map[string]map[Status]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT organ_type, status, COUNT(*) FROM organ_record
		GROUP BY organ_type, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]map[Status]int{}
	for rows.Next() {
		var (
			organType string
			status    Status
			n         int
		)
		if err := rows.Scan(&organType, &status, &n); err != nil {
			return nil, err
		}
		if out[organType] == nil {
			out[organType] = map[Status]int{}
		}
		out[organType][status] = n
	}
	return out, rows.Err()
}

// casFailure classifies a status-guarded UPDATE that matched no rows.
func (r *repoPG) casFailure(ctx context.Context, id uuid.UUID, target Status) error {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == target {
		return ErrConflict
	}
	return ErrInvalidState
}

func (r *repoPG) AllocateCAS(ctx context.Context, id, recipientID uuid.UUID, score int, distanceKm float64) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE organ_record
		SET status = $2, recipient_id = $3, score = $4, distance_km = $5,
			allocation_attempts = allocation_attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status = $6`,
		id, StatusMatched, recipientID, score, distanceKm, StatusAvailable)
	if err != nil {
		return fmt.Errorf("allocate organ: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.casFailure(ctx, id, StatusMatched)
	}
	return nil
}

func (r *repoPG) CompleteCAS(ctx context.Context, id uuid.UUID, notes *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE organ_record
		SET status = $2, notes = COALESCE($3, notes), transplanted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, StatusTransplanted, notes, StatusMatched)
	if err != nil {
		return fmt.Errorf("complete transplant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.casFailure(ctx, id, StatusTransplanted)
	}
	return nil
}

func (r *repoPG) WasteCAS(ctx context.Context, id uuid.UUID, reason string, kind WasteKind) error {
	if !ValidWasteKind(kind) {
		return fmt.Errorf("%w: %q is not a waste status", ErrInvalidState, kind)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE organ_record
		SET status = $2, waste_reason = $3, transplanted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)`,
		id, kind, reason, StatusAvailable, StatusMatched)
	if err != nil {
		return fmt.Errorf("waste organ: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.casFailure(ctx, id, kind)
	}
	return nil
}
