package organ

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/organlink/organlink/internal/domain/compat"
	"github.com/organlink/organlink/internal/domain/registry"
)

// Service owns organ record registration and reads. Status mutations past
// registration go through the matching service, which coordinates the
// recipient side.
type Service struct {
	records Repository
	donors  registry.DonorRepository
	now     func() time.Time
}

func NewService(records Repository, donors registry.DonorRepository) *Service {
	return &Service{records: records, donors: donors, now: time.Now}
}

// RegisterAvailable creates an available organ record for a procured organ.
// The donor must list the organ as eligible, and only one open record per
// (donor, organ type) may exist at a time.
func (s *Service) RegisterAvailable(ctx context.Context, donorID uuid.UUID, organType compat.OrganType) (*Record, error) {
	if !organType.Valid() {
		return nil, fmt.Errorf("unknown organ type %q", organType)
	}

	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("load donor: %w", err)
	}
	if !donor.EligibleFor(organType) {
		return nil, fmt.Errorf("donor %s is not eligible to donate %s", donorID, organType)
	}

	existing, err := s.records.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	for _, rec := range existing {
		if rec.Type == organType && rec.Open() {
			return nil, fmt.Errorf("donor %s already has an open %s record", donorID, organType)
		}
	}

	cons := compat.ConstraintsFor(organType)
	rec := &Record{
		DonorID:        donorID,
		Type:           organType,
		Status:         StatusAvailable,
		ViabilityHours: cons.CriticalViabilityHours,
		ExpiresAt:      donor.ProcuredAt.Add(time.Duration(cons.CriticalViabilityHours) * time.Hour),
	}
	if !rec.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%s viability window elapsed at %s", organType, rec.ExpiresAt.Format(time.RFC3339))
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*Record, error) {
	return s.records.ListByDonor(ctx, donorID)
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]*Record, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.records.ListByStatus(ctx, status)
}
