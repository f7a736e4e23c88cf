package organ

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a mutex-guarded in-memory Repository with the same CAS
// semantics as the Postgres implementation. Used in tests and dev mode.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
}

// NewMemoryRepo returns an empty in-memory repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[uuid.UUID]*Record)}
}

func (m *MemoryRepo) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusAvailable
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

// get returns a copy so callers never share the stored struct. Callers must
// hold mu.
func (m *MemoryRepo) get(id uuid.UUID) (*Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryRepo) ListByDonor(_ context.Context, donorID uuid.UUID) ([]*Record, error) {
	return m.filter(func(r *Record) bool { return r.DonorID == donorID }), nil
}

func (m *MemoryRepo) ListByStatus(_ context.Context, status Status) ([]*Record, error) {
	return m.filter(func(r *Record) bool { return r.Status == status }), nil
}

func (m *MemoryRepo) ListExpiringBefore(_ context.Context, t time.Time) ([]*Record, error) {
	out := m.filter(func(r *Record) bool {
		return r.Status == StatusAvailable && !r.ExpiresAt.After(t)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (m *MemoryRepo) filter(keep func(*Record) bool) []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Record
	for _, rec := range m.records {
		if keep(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *MemoryRepo) CountsByType(_ context.Context) (map[string]map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]map[Status]int{}
	for _, rec := range m.records {
		t := string(rec.Type)
		if out[t] == nil {
			out[t] = map[Status]int{}
		}
		out[t][rec.Status]++
	}
	return out, nil
}

func (m *MemoryRepo) AllocateCAS(_ context.Context, id, recipientID uuid.UUID, score int, distanceKm float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusAvailable {
		if rec.Status == StatusMatched {
			return ErrConflict
		}
		return ErrInvalidState
	}
	rec.Status = StatusMatched
	rec.RecipientID = &recipientID
	rec.Score = &score
	rec.DistanceKm = &distanceKm
	rec.AllocationAttempts++
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepo) CompleteCAS(_ context.Context, id uuid.UUID, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusMatched {
		if rec.Status == StatusTransplanted {
			return ErrConflict
		}
		return ErrInvalidState
	}
	now := time.Now()
	rec.Status = StatusTransplanted
	if notes != nil {
		rec.Notes = notes
	}
	rec.TransplantedAt = &now
	rec.UpdatedAt = now
	return nil
}

func (m *MemoryRepo) WasteCAS(_ context.Context, id uuid.UUID, reason string, kind WasteKind) error {
	if !ValidWasteKind(kind) {
		return ErrInvalidState
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusAvailable && rec.Status != StatusMatched {
		if rec.Status == kind {
			return ErrConflict
		}
		return ErrInvalidState
	}
	rec.Status = kind
	rec.WasteReason = &reason
	rec.TransplantedAt = nil
	rec.UpdatedAt = time.Now()
	return nil
}
