package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/organlink/organlink/internal/domain/compat"
	"github.com/organlink/organlink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ErrNotFound is returned when a donor or recipient does not exist.
var ErrNotFound = errors.New("registry: not found")

// =========== Donor Repository ===========

type donorRepoPG struct{ pool *pgxpool.Pool }

func NewDonorRepoPG(pool *pgxpool.Pool) DonorRepository { return &donorRepoPG{pool: pool} }

func (r *donorRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const donorCols = `id, name, blood_group, age_at_death, height_cm, weight_kg,
	eligible_organs, hospital_text, hospital_lat, hospital_lng, procured_at,
	attributes, created_at`

func (r *donorRepoPG) scanDonor(row pgx.Row) (*Donor, error) {
	var (
		d      Donor
		organs []string
	)
	err := row.Scan(&d.ID, &d.Name, &d.BloodGroup, &d.AgeAtDeath, &d.HeightCm, &d.WeightKg,
		&organs, &d.Hospital.Text, &d.Hospital.Lat, &d.Hospital.Lng, &d.ProcuredAt,
		&d.Attributes, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.EligibleOrgans = make([]compat.OrganType, len(organs))
	for i, o := range organs {
		d.EligibleOrgans[i] = compat.OrganType(o)
	}
	return &d, nil
}

func (r *donorRepoPG) Create(ctx context.Context, d *Donor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	organs := make([]string, len(d.EligibleOrgans))
	for i, o := range d.EligibleOrgans {
		organs[i] = string(o)
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO donor (id, name, blood_group, age_at_death, height_cm, weight_kg,
			eligible_organs, hospital_text, hospital_lat, hospital_lng, procured_at, attributes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, d.Name, d.BloodGroup, d.AgeAtDeath, d.HeightCm, d.WeightKg,
		organs, d.Hospital.Text, d.Hospital.Lat, d.Hospital.Lng, d.ProcuredAt, d.Attributes)
	if err != nil {
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

func (r *donorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Donor, error) {
	return r.scanDonor(r.conn(ctx).QueryRow(ctx, `SELECT `+donorCols+` FROM donor WHERE id = $1`, id))
}

// =========== Recipient Repository ===========

type recipientRepoPG struct{ pool *pgxpool.Pool }

func NewRecipientRepoPG(pool *pgxpool.Pool) RecipientRepository { return &recipientRepoPG{pool: pool} }

func (r *recipientRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recipientCols = `id, name, blood_group, age, required_organ, urgency,
	medical_condition, hospital_text, hospital_lat, hospital_lng, status,
	attributes, created_at, updated_at`

func (r *recipientRepoPG) scanRecipient(row pgx.Row) (*Recipient, error) {
	var rec Recipient
	err := row.Scan(&rec.ID, &rec.Name, &rec.BloodGroup, &rec.Age, &rec.RequiredOrgan, &rec.Urgency,
		&rec.MedicalCondition, &rec.Hospital.Text, &rec.Hospital.Lat, &rec.Hospital.Lng, &rec.Status,
		&rec.Attributes, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recipientRepoPG) Create(ctx context.Context, rec *Recipient) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = RecipientActive
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO recipient (id, name, blood_group, age, required_organ, urgency,
			medical_condition, hospital_text, hospital_lat, hospital_lng, status, attributes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.Name, rec.BloodGroup, rec.Age, rec.RequiredOrgan, rec.Urgency,
		rec.MedicalCondition, rec.Hospital.Text, rec.Hospital.Lat, rec.Hospital.Lng,
		rec.Status, rec.Attributes)
	if err != nil {
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

func (r *recipientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error) {
	return r.scanRecipient(r.conn(ctx).QueryRow(ctx, `SELECT `+recipientCols+` FROM recipient WHERE id = $1`, id))
}

func (r *recipientRepoPG) ListActiveByOrgan(ctx context.Context, organ string) ([]*Recipient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recipientCols+` FROM recipient
		WHERE status = $1 AND required_organ = $2
		ORDER BY CASE urgency WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
			created_at, id`, RecipientActive, organ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Recipient
	for rows.Next() {
		rec, err := r.scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recipientRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE recipient SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update recipient status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
