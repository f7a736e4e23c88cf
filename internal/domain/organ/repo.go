package organ

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no organ record has the given id.
	ErrNotFound = errors.New("organ: record not found")
	// ErrConflict is returned when a CAS mutation loses to a concurrent
	// writer: the record exists but is no longer in the required status.
	ErrConflict = errors.New("organ: record already claimed")
	// ErrInvalidState is returned when the requested transition is not
	// legal from the record's current status.
	ErrInvalidState = errors.New("organ: invalid state transition")
)

// Repository persists organ records. All status mutations are
// compare-and-set: they name the required current status and fail with
// ErrConflict or ErrInvalidState instead of overwriting concurrent work.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*Record, error)
	ListByStatus(ctx context.Context, status Status) ([]*Record, error)
	ListExpiringBefore(ctx context.Context, t time.Time) ([]*Record, error)
	CountsByType(ctx context.Context) (map[string]map[Status]int, error)

	// AllocateCAS moves available -> matched, records the chosen recipient,
	// score and distance, and increments allocation_attempts. Exactly one
	// concurrent caller wins.
	AllocateCAS(ctx context.Context, id, recipientID uuid.UUID, score int, distanceKm float64) error
	// CompleteCAS moves matched -> transplanted and stamps the time.
	CompleteCAS(ctx context.Context, id uuid.UUID, notes *string) error
	// WasteCAS moves available|matched to the given terminal kind with a
	// reason, clearing any transplant timestamp.
	WasteCAS(ctx context.Context, id uuid.UUID, reason string, kind WasteKind) error
}
