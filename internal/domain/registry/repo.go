package registry

import (
	"context"

	"github.com/google/uuid"
)

// DonorRepository reads donor intake records.
type DonorRepository interface {
	Create(ctx context.Context, d *Donor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Donor, error)
}

// RecipientRepository reads and updates waiting-list entries. ListActiveByOrgan
// returns only recipients with status "active" needing the given organ, ordered
// by urgency then registration time so ranking ties break deterministically.
type RecipientRepository interface {
	Create(ctx context.Context, r *Recipient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error)
	ListActiveByOrgan(ctx context.Context, organ string) ([]*Recipient, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
