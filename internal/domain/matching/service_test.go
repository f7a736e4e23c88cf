package matching

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/organlink/organlink/internal/domain/compat"
	"github.com/organlink/organlink/internal/domain/geo"
	"github.com/organlink/organlink/internal/domain/organ"
	"github.com/organlink/organlink/internal/domain/registry"
)

type mockDonorRepo struct {
	donors map[uuid.UUID]*registry.Donor
}

func (m *mockDonorRepo) Create(_ context.Context, d *registry.Donor) error {
	m.donors[d.ID] = d
	return nil
}

func (m *mockDonorRepo) GetByID(_ context.Context, id uuid.UUID) (*registry.Donor, error) {
	d, ok := m.donors[id]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return d, nil
}

type mockRecipientRepo struct {
	mu         sync.Mutex
	recipients map[uuid.UUID]*registry.Recipient
}

func (m *mockRecipientRepo) Create(_ context.Context, r *registry.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients[r.ID] = r
	return nil
}

func (m *mockRecipientRepo) GetByID(_ context.Context, id uuid.UUID) (*registry.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipients[id]
	if !ok {
		return nil, registry.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecipientRepo) ListActiveByOrgan(_ context.Context, organType string) ([]*registry.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*registry.Recipient
	for _, r := range m.recipients {
		if r.Status == registry.RecipientActive && string(r.RequiredOrgan) == organType {
			cp := *r
			out = append(out, &cp)
		}
	}
	rank := map[compat.Urgency]int{compat.UrgencyHigh: 0, compat.UrgencyMedium: 1, compat.UrgencyLow: 2}
	sort.SliceStable(out, func(i, j int) bool {
		if rank[out[i].Urgency] != rank[out[j].Urgency] {
			return rank[out[i].Urgency] < rank[out[j].Urgency]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockRecipientRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipients[id]
	if !ok {
		return registry.ErrNotFound
	}
	r.Status = status
	return nil
}

type fixture struct {
	svc        *Service
	donors     *mockDonorRepo
	recipients *mockRecipientRepo
	organs     *organ.MemoryRepo
}

func newFixture() *fixture {
	donors := &mockDonorRepo{donors: map[uuid.UUID]*registry.Donor{}}
	recipients := &mockRecipientRepo{recipients: map[uuid.UUID]*registry.Recipient{}}
	organs := organ.NewMemoryRepo()
	svc := NewService(organs, donors, recipients, geo.NewHeuristicEstimator(),
		DefaultConfig(), nil, zerolog.Nop())
	return &fixture{svc: svc, donors: donors, recipients: recipients, organs: organs}
}

func coords(lat, lng float64) geo.Location {
	return geo.Location{Lat: &lat, Lng: &lng}
}

var (
	mumbai = coords(19.0760, 72.8777)
	pune   = coords(18.5204, 73.8567) // ~120km from mumbai
	delhi  = coords(28.6139, 77.2090) // ~1150km from mumbai
)

func (f *fixture) addDonor(blood compat.BloodGroup, age int, loc geo.Location, organs ...compat.OrganType) *registry.Donor {
	d := &registry.Donor{
		ID:             uuid.New(),
		Name:           "Donor",
		BloodGroup:     blood,
		AgeAtDeath:     age,
		EligibleOrgans: organs,
		Hospital:       loc,
		ProcuredAt:     time.Now(),
	}
	f.donors.donors[d.ID] = d
	return d
}

func (f *fixture) addRecipient(blood compat.BloodGroup, age int, o compat.OrganType, urgency compat.Urgency, loc geo.Location) *registry.Recipient {
	r := &registry.Recipient{
		ID:            uuid.New(),
		Name:          "Recipient",
		BloodGroup:    blood,
		Age:           age,
		RequiredOrgan: o,
		Urgency:       urgency,
		Hospital:      loc,
		Status:        registry.RecipientActive,
		CreatedAt:     time.Now(),
	}
	f.recipients.recipients[r.ID] = r
	return r
}

func (f *fixture) addOrganRecord(t *testing.T, donorID uuid.UUID, o compat.OrganType) *organ.Record {
	t.Helper()
	rec := &organ.Record{
		DonorID:        donorID,
		Type:           o,
		Status:         organ.StatusAvailable,
		ViabilityHours: 36,
		ExpiresAt:      time.Now().Add(36 * time.Hour),
	}
	if err := f.organs.Create(context.Background(), rec); err != nil {
		t.Fatalf("create organ record: %v", err)
	}
	return rec
}

func TestFindTopMatchesRanksUrgencyBeforeScore(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)

	// Same city, same blood: high score but low urgency.
	closeLow := f.addRecipient(compat.ONeg, 40, compat.Kidney, compat.UrgencyLow, mumbai)
	// Further away and worse ages, but high urgency: must outrank.
	farHigh := f.addRecipient(compat.APos, 65, compat.Kidney, compat.UrgencyHigh, pune)

	res, err := f.svc.FindTopMatches(context.Background(), donor.ID, nil, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.Matches))
	}
	if res.Matches[0].Recipient.ID != farHigh.ID {
		t.Error("high urgency should rank first regardless of score")
	}
	if res.Matches[1].Recipient.ID != closeLow.ID {
		t.Error("low urgency should rank second")
	}
	if res.Matches[0].Rank != 1 || res.Matches[1].Rank != 2 {
		t.Error("ranks should be 1-based and sequential")
	}
	if res.Matches[0].Score < res.Matches[1].Score {
		// Sanity: urgency won despite the lower score.
		if res.Matches[0].Quality == "" {
			t.Error("quality label missing")
		}
	}
}

func TestFindTopMatchesLimit(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	for i := 0; i < 5; i++ {
		f.addRecipient(compat.OPos, 40, compat.Kidney, compat.UrgencyMedium, mumbai)
	}

	res, err := f.svc.FindTopMatches(context.Background(), donor.ID, nil, 2)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Matches) != 2 {
		t.Errorf("expected limit 2, got %d", len(res.Matches))
	}
	if res.Filters.Survivors != 5 {
		t.Errorf("survivors should count pre-limit candidates: %d", res.Filters.Survivors)
	}
}

func TestFindTopMatchesFilterBreakdown(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.APos, 70, mumbai, compat.Heart) // heart limit is 65

	f.addRecipient(compat.BPos, 40, compat.Heart, compat.UrgencyHigh, mumbai) // blood filter
	f.addRecipient(compat.ABPos, 40, compat.Heart, compat.UrgencyHigh, mumbai)

	res, err := f.svc.FindTopMatches(context.Background(), donor.ID, nil, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Matches) != 0 {
		t.Fatalf("expected zero matches, got %d", len(res.Matches))
	}
	if res.Filters.Examined != 2 {
		t.Errorf("expected 2 examined, got %d", res.Filters.Examined)
	}
	if res.Filters.BloodIncompatible != 1 {
		t.Errorf("expected 1 blood rejection, got %d", res.Filters.BloodIncompatible)
	}
	// Blood runs before age, so the compatible pair falls to the age gate.
	if res.Filters.OverAgeLimit != 1 {
		t.Errorf("expected 1 age rejection, got %d", res.Filters.OverAgeLimit)
	}
}

func TestFindTopMatchesDistanceCeiling(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	f.addRecipient(compat.OPos, 40, compat.Kidney, compat.UrgencyHigh, delhi) // ~1150km

	res, err := f.svc.FindTopMatches(context.Background(), donor.ID, nil, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if res.Filters.TooFar != 1 {
		t.Errorf("expected 1 too-far rejection, got %d", res.Filters.TooFar)
	}
	if len(res.Matches) != 0 {
		t.Error("distant recipient should be filtered")
	}
}

func TestFindTopMatchesEmptyListIsNotAnError(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)

	res, err := f.svc.FindTopMatches(context.Background(), donor.ID, nil, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if res.Matches == nil || len(res.Matches) != 0 {
		t.Errorf("expected empty non-nil match list, got %v", res.Matches)
	}
}

func TestFindTopMatchesOrganNarrowing(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney, compat.Liver)
	f.addRecipient(compat.OPos, 40, compat.Kidney, compat.UrgencyHigh, mumbai)
	f.addRecipient(compat.OPos, 40, compat.Liver, compat.UrgencyHigh, mumbai)

	liver := compat.Liver
	res, err := f.svc.FindTopMatches(context.Background(), donor.ID, &liver, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].OrganType != compat.Liver {
		t.Errorf("expected only liver matches, got %+v", res.Matches)
	}

	heart := compat.Heart
	_, err = f.svc.FindTopMatches(context.Background(), donor.ID, &heart, 10)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for ineligible organ, got %v", err)
	}

	bogus := compat.OrganType("Spleen")
	_, err = f.svc.FindTopMatches(context.Background(), donor.ID, &bogus, 10)
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for unknown organ, got %v", err)
	}
}

func TestAllocateHappyPath(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	recipient := f.addRecipient(compat.OPos, 42, compat.Kidney, compat.UrgencyHigh, mumbai)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	got, err := f.svc.Allocate(context.Background(), rec.ID, recipient.ID)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got.Status != organ.StatusMatched {
		t.Errorf("expected matched, got %s", got.Status)
	}
	if got.Score == nil || *got.Score <= 0 {
		t.Error("score should be recorded on allocation")
	}
	if got.RecipientID == nil || *got.RecipientID != recipient.ID {
		t.Error("recipient should be recorded on allocation")
	}
}

func TestAllocateSecondCallerGetsConflict(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	first := f.addRecipient(compat.OPos, 42, compat.Kidney, compat.UrgencyHigh, mumbai)
	second := f.addRecipient(compat.APos, 45, compat.Kidney, compat.UrgencyHigh, mumbai)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	if _, err := f.svc.Allocate(context.Background(), rec.ID, first.ID); err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	_, err := f.svc.Allocate(context.Background(), rec.ID, second.ID)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestAllocateExactlyOneWinner(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	const callers = 16
	recipients := make([]*registry.Recipient, callers)
	for i := range recipients {
		recipients[i] = f.addRecipient(compat.OPos, 40, compat.Kidney, compat.UrgencyHigh, mumbai)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(r *registry.Recipient) {
			defer wg.Done()
			if _, err := f.svc.Allocate(context.Background(), rec.ID, r.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(recipients[i])
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestAllocateRevalidatesHardFilters(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.APos, 40, mumbai, compat.Kidney)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	// Blood-incompatible recipient: a stale match list must not win here.
	bad := f.addRecipient(compat.BPos, 40, compat.Kidney, compat.UrgencyHigh, mumbai)
	_, err := f.svc.Allocate(context.Background(), rec.ID, bad.ID)
	var ie *IncompatibilityError
	if !errors.As(err, &ie) || ie.Reason != ReasonBloodIncompatible {
		t.Errorf("expected blood incompatibility, got %v", err)
	}

	// Too far.
	far := f.addRecipient(compat.ABPos, 40, compat.Kidney, compat.UrgencyHigh, delhi)
	_, err = f.svc.Allocate(context.Background(), rec.ID, far.ID)
	if !errors.As(err, &ie) || ie.Reason != ReasonTooFar {
		t.Errorf("expected too-far rejection, got %v", err)
	}

	// Failed allocations must not consume the organ.
	got, _ := f.organs.GetByID(context.Background(), rec.ID)
	if got.Status != organ.StatusAvailable {
		t.Errorf("organ should remain available, got %s", got.Status)
	}
	if got.AllocationAttempts != 0 {
		t.Errorf("failed validations must not bump attempts, got %d", got.AllocationAttempts)
	}
}

func TestAllocateRejectsInactiveRecipient(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	recipient := f.addRecipient(compat.OPos, 40, compat.Kidney, compat.UrgencyHigh, mumbai)
	recipient.Status = registry.RecipientInactive
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	_, err := f.svc.Allocate(context.Background(), rec.ID, recipient.ID)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for inactive recipient, got %v", err)
	}
}

func TestAllocateRejectsOrganMismatch(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	recipient := f.addRecipient(compat.OPos, 40, compat.Liver, compat.UrgencyHigh, mumbai)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	_, err := f.svc.Allocate(context.Background(), rec.ID, recipient.ID)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for organ mismatch, got %v", err)
	}
}

func TestCompleteTransplant(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	recipient := f.addRecipient(compat.OPos, 42, compat.Kidney, compat.UrgencyHigh, mumbai)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	if _, err := f.svc.Allocate(context.Background(), rec.ID, recipient.ID); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	notes := "completed without complications"
	got, err := f.svc.CompleteTransplant(context.Background(), rec.ID, &notes)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != organ.StatusTransplanted {
		t.Errorf("expected transplanted, got %s", got.Status)
	}

	updated, _ := f.recipients.GetByID(context.Background(), recipient.ID)
	if updated.Status != registry.RecipientCompleted {
		t.Errorf("recipient should be completed, got %s", updated.Status)
	}
}

func TestCompleteTransplantRequiresMatched(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	_, err := f.svc.CompleteTransplant(context.Background(), rec.ID, nil)
	var se *InvalidStateError
	if !errors.As(err, &se) {
		t.Errorf("expected InvalidStateError from available, got %v", err)
	}
}

// brokenRecipientRepo refuses status updates, simulating a registry that
// accepts reads but fails writes.
type brokenRecipientRepo struct {
	*mockRecipientRepo
}

func (m *brokenRecipientRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ string) error {
	return errors.New("registry write unavailable")
}

func TestCompleteTransplantRecipientFailureLeavesOrganMatched(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	recipient := f.addRecipient(compat.OPos, 42, compat.Kidney, compat.UrgencyHigh, mumbai)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	if _, err := f.svc.Allocate(context.Background(), rec.ID, recipient.ID); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	// Swap in a registry that fails every status write.
	broken := NewService(f.organs, f.donors, &brokenRecipientRepo{f.recipients},
		geo.NewHeuristicEstimator(), DefaultConfig(), nil, zerolog.Nop())

	if _, err := broken.CompleteTransplant(context.Background(), rec.ID, nil); err == nil {
		t.Fatal("expected error from failing recipient update")
	}

	after, err := f.organs.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("reload organ: %v", err)
	}
	if after.Status != organ.StatusMatched {
		t.Errorf("organ should stay matched after failed dual update, got %s", after.Status)
	}
	updated, _ := f.recipients.GetByID(context.Background(), recipient.ID)
	if updated.Status != registry.RecipientActive {
		t.Errorf("recipient should stay active, got %s", updated.Status)
	}
}

func TestCompleteTransplantOrganFailureRestoresRecipient(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	recipient := f.addRecipient(compat.OPos, 42, compat.Kidney, compat.UrgencyHigh, mumbai)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	if _, err := f.svc.Allocate(context.Background(), rec.ID, recipient.ID); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	// The organ is withdrawn between allocation and completion, so the
	// organ-side transition will refuse.
	if _, err := f.svc.MarkWasted(context.Background(), rec.ID, "contamination found", organ.StatusWasted); err != nil {
		t.Fatalf("waste: %v", err)
	}

	_, err := f.svc.CompleteTransplant(context.Background(), rec.ID, nil)
	var se *InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}

	updated, _ := f.recipients.GetByID(context.Background(), recipient.ID)
	if updated.Status != registry.RecipientActive {
		t.Errorf("recipient should be restored to active, got %s", updated.Status)
	}
}

func TestMarkWasted(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	got, err := f.svc.MarkWasted(context.Background(), rec.ID, "no viable recipient", organ.StatusWasted)
	if err != nil {
		t.Fatalf("waste: %v", err)
	}
	if got.Status != organ.StatusWasted {
		t.Errorf("expected wasted, got %s", got.Status)
	}
}

func TestMarkWastedValidation(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	var ve *ValidationError
	if _, err := f.svc.MarkWasted(context.Background(), rec.ID, "", organ.StatusWasted); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for missing reason, got %v", err)
	}
	if _, err := f.svc.MarkWasted(context.Background(), rec.ID, "typo", "matched"); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for bad kind, got %v", err)
	}
}

func TestMarkWastedTransplantedIsInvalidState(t *testing.T) {
	f := newFixture()
	donor := f.addDonor(compat.ONeg, 40, mumbai, compat.Kidney)
	recipient := f.addRecipient(compat.OPos, 42, compat.Kidney, compat.UrgencyHigh, mumbai)
	rec := f.addOrganRecord(t, donor.ID, compat.Kidney)

	if _, err := f.svc.Allocate(context.Background(), rec.ID, recipient.ID); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := f.svc.CompleteTransplant(context.Background(), rec.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := f.svc.MarkWasted(context.Background(), rec.ID, "too late", organ.StatusWasted)
	var se *InvalidStateError
	if !errors.As(err, &se) {
		t.Errorf("expected InvalidStateError, got %v", err)
	}
}
