package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/organlink/organlink/internal/domain/compat"
	"github.com/organlink/organlink/internal/domain/geo"
)

// Donor maps to the donor table. Donor records are owned by the intake
// system; the engine only reads them.
type Donor struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	Name           string             `db:"name" json:"name"`
	BloodGroup     compat.BloodGroup  `db:"blood_group" json:"blood_group"`
	AgeAtDeath     int                `db:"age_at_death" json:"age_at_death"`
	HeightCm       *float64           `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg       *float64           `db:"weight_kg" json:"weight_kg,omitempty"`
	EligibleOrgans []compat.OrganType `db:"eligible_organs" json:"eligible_organs"`
	Hospital       geo.Location       `db:"-" json:"hospital"`
	ProcuredAt     time.Time          `db:"procured_at" json:"procured_at"`
	Attributes     map[string]any     `db:"attributes" json:"attributes,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}

// EligibleFor reports whether the donor's intake record lists the organ.
func (d *Donor) EligibleFor(organ compat.OrganType) bool {
	for _, o := range d.EligibleOrgans {
		if o == organ {
			return true
		}
	}
	return false
}

// Recipient status values.
const (
	RecipientActive    = "active"
	RecipientInactive  = "inactive"
	RecipientCompleted = "completed"
	RecipientExpired   = "expired"
)

// Recipient maps to the recipient table. Only recipients with status
// "active" participate in matching.
type Recipient struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	Name             string            `db:"name" json:"name"`
	BloodGroup       compat.BloodGroup `db:"blood_group" json:"blood_group"`
	Age              int               `db:"age" json:"age"`
	RequiredOrgan    compat.OrganType  `db:"required_organ" json:"required_organ"`
	Urgency          compat.Urgency    `db:"urgency" json:"urgency"`
	MedicalCondition string            `db:"medical_condition" json:"medical_condition,omitempty"`
	Hospital         geo.Location      `db:"-" json:"hospital"`
	Status           string            `db:"status" json:"status"`
	Attributes       map[string]any    `db:"attributes" json:"attributes,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// Active reports whether the recipient is eligible for matching.
func (r *Recipient) Active() bool { return r.Status == RecipientActive }
