package organ

import (
	"time"

	"github.com/google/uuid"

	"github.com/organlink/organlink/internal/domain/compat"
)

// Status values for an organ record. The lifecycle is a one-way machine:
// available -> matched -> transplanted, with wasted/expired/rejected as
// terminal exits from any non-terminal state.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusMatched      Status = "matched"
	StatusTransplanted Status = "transplanted"
	StatusWasted       Status = "wasted"
	StatusExpired      Status = "expired"
	StatusRejected     Status = "rejected"
)

// Statuses returns every valid status, for validation and analytics.
func Statuses() []Status {
	return []Status{StatusAvailable, StatusMatched, StatusTransplanted,
		StatusWasted, StatusExpired, StatusRejected}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusMatched, StatusTransplanted,
		StatusWasted, StatusExpired, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether the status absorbs all further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusTransplanted, StatusWasted, StatusExpired, StatusRejected:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusAvailable: {StatusMatched, StatusWasted, StatusExpired, StatusRejected},
	StatusMatched:   {StatusTransplanted, StatusWasted, StatusExpired, StatusRejected},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// WasteKind names the terminal state used when an organ is taken out of
// circulation without transplant.
type WasteKind = Status

// ValidWasteKind reports whether k is one of the waste-path terminals.
func ValidWasteKind(k WasteKind) bool {
	return k == StatusWasted || k == StatusExpired || k == StatusRejected
}

// Record maps to the organ_record table. One row per procured organ; the
// row is the unit of allocation.
type Record struct {
	ID                 uuid.UUID        `db:"id" json:"id"`
	DonorID            uuid.UUID        `db:"donor_id" json:"donor_id"`
	RecipientID        *uuid.UUID       `db:"recipient_id" json:"recipient_id,omitempty"`
	Type               compat.OrganType `db:"organ_type" json:"organ_type"`
	Status             Status           `db:"status" json:"status"`
	Score              *int             `db:"score" json:"score,omitempty"`
	DistanceKm         *float64         `db:"distance_km" json:"distance_km,omitempty"`
	ViabilityHours     int              `db:"viability_hours" json:"viability_hours"`
	ExpiresAt          time.Time        `db:"expires_at" json:"expires_at"`
	AllocationAttempts int              `db:"allocation_attempts" json:"allocation_attempts"`
	WasteReason        *string          `db:"waste_reason" json:"waste_reason,omitempty"`
	Notes              *string          `db:"notes" json:"notes,omitempty"`
	TransplantedAt     *time.Time       `db:"transplanted_at" json:"transplanted_at,omitempty"`
	Attributes         map[string]any   `db:"attributes" json:"attributes,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// Open reports whether the record can still be allocated or transplanted.
func (r *Record) Open() bool { return !r.Status.IsTerminal() }

// HoursRemaining returns viability hours left at now, floored at zero.
func (r *Record) HoursRemaining(now time.Time) float64 {
	h := r.ExpiresAt.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}
