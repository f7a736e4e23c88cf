package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/organlink/organlink/internal/domain/compat"
	"github.com/organlink/organlink/internal/domain/geo"
	"github.com/organlink/organlink/internal/domain/organ"
	"github.com/organlink/organlink/internal/domain/registry"
)

// Config carries the tunable matching thresholds.
type Config struct {
	MinScore      int     // floor below which a pair is filtered out
	MaxDistanceKm float64 // transport ceiling
	DefaultLimit  int     // top-N size when the caller does not ask
}

// DefaultConfig mirrors the shipped configuration defaults.
func DefaultConfig() Config {
	return Config{MinScore: 40, MaxDistanceKm: 500, DefaultLimit: 3}
}

// TxRunner runs fn atomically. A nil TxRunner runs fn directly, which is
// correct for the in-memory repositories.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

// Match is one ranked donor/recipient pairing.
type Match struct {
	Rank       int                 `json:"rank"`
	OrganType  compat.OrganType    `json:"organ_type"`
	Recipient  *registry.Recipient `json:"recipient"`
	Score      int                 `json:"score"`
	Quality    string              `json:"quality"`
	DistanceKm float64             `json:"distance_km"`
	Breakdown  compat.Breakdown    `json:"breakdown"`
}

// FilterBreakdown explains why candidates fell out of a ranking pass.
type FilterBreakdown struct {
	Examined          int `json:"examined"`
	BloodIncompatible int `json:"blood_incompatible"`
	OverAgeLimit      int `json:"over_age_limit"`
	TooFar            int `json:"too_far"`
	BelowMinScore     int `json:"below_min_score"`
	Survivors         int `json:"survivors"`
}

// Result is a full ranking answer for one donor.
type Result struct {
	DonorID uuid.UUID       `json:"donor_id"`
	Matches []Match         `json:"matches"`
	Filters FilterBreakdown `json:"filters"`
}

// Service ranks matches and drives organ allocation.
type Service struct {
	organs     organ.Repository
	donors     registry.DonorRepository
	recipients registry.RecipientRepository
	estimator  geo.Estimator
	cfg        Config
	tx         TxRunner
	log        zerolog.Logger
}

func NewService(organs organ.Repository, donors registry.DonorRepository,
	recipients registry.RecipientRepository, estimator geo.Estimator,
	cfg Config, tx TxRunner, log zerolog.Logger) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 3
	}
	return &Service{
		organs:     organs,
		donors:     donors,
		recipients: recipients,
		estimator:  estimator,
		cfg:        cfg,
		tx:         tx,
		log:        log,
	}
}

// FindTopMatches ranks active recipients against a donor's eligible organs.
// organType narrows the search to one organ; nil means all eligible organs.
// Zero survivors is not an error: the caller gets an empty list plus the
// filter breakdown.
func (s *Service) FindTopMatches(ctx context.Context, donorID uuid.UUID, organType *compat.OrganType, limit int) (*Result, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, s.wrapDependency("registry", fmt.Errorf("load donor: %w", err))
	}

	organs := donor.EligibleOrgans
	if organType != nil {
		if !organType.Valid() {
			return nil, validationf("unknown organ type %q", *organType)
		}
		// Naming an organ the donor cannot give is a caller error, not an
		// empty ranking; the empty-list path is for pairs filtered on merit.
		if !donor.EligibleFor(*organType) {
			return nil, validationf("donor %s is not eligible to donate %s", donorID, *organType)
		}
		organs = []compat.OrganType{*organType}
	}

	res := &Result{DonorID: donorID, Matches: []Match{}}
	var candidates []Match

	for _, o := range organs {
		recipients, err := s.recipients.ListActiveByOrgan(ctx, string(o))
		if err != nil {
			return nil, s.wrapDependency("registry", fmt.Errorf("list recipients for %s: %w", o, err))
		}
		for _, rec := range recipients {
			res.Filters.Examined++
			m, reason := s.evaluate(ctx, donor, rec, o)
			if reason != "" {
				res.Filters.count(reason)
				continue
			}
			candidates = append(candidates, m)
		}
	}

	// High urgency outranks score; the sort is stable so equal pairs keep
	// the repository's urgency/registration order.
	sort.SliceStable(candidates, func(i, j int) bool {
		hi := candidates[i].Recipient.Urgency == compat.UrgencyHigh
		hj := candidates[j].Recipient.Urgency == compat.UrgencyHigh
		if hi != hj {
			return hi
		}
		return candidates[i].Score > candidates[j].Score
	})

	res.Filters.Survivors = len(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	if candidates != nil {
		res.Matches = candidates
	}

	s.log.Debug().
		Str("donor_id", donorID.String()).
		Int("examined", res.Filters.Examined).
		Int("survivors", res.Filters.Survivors).
		Msg("ranked matches")
	return res, nil
}

func (fb *FilterBreakdown) count(reason string) {
	switch reason {
	case ReasonBloodIncompatible:
		fb.BloodIncompatible++
	case ReasonOverAgeLimit:
		fb.OverAgeLimit++
	case ReasonTooFar:
		fb.TooFar++
	case ReasonBelowMinScore:
		fb.BelowMinScore++
	}
}

// evaluate runs the hard filters in order and scores the pair. An empty
// reason means the pair survived.
func (s *Service) evaluate(ctx context.Context, donor *registry.Donor, rec *registry.Recipient, o compat.OrganType) (Match, string) {
	if !compat.BloodCompatible(donor.BloodGroup, rec.BloodGroup) {
		return Match{}, ReasonBloodIncompatible
	}
	if donor.AgeAtDeath > compat.ConstraintsFor(o).MaxDonorAge {
		return Match{}, ReasonOverAgeLimit
	}

	dist := s.estimator.DistanceKm(ctx, donor.Hospital, rec.Hospital)
	if dist > s.cfg.MaxDistanceKm {
		return Match{}, ReasonTooFar
	}

	breakdown := compat.Score(compat.ScoreInput{
		Organ:            o,
		DonorBlood:       donor.BloodGroup,
		DonorAge:         donor.AgeAtDeath,
		RecipientBlood:   rec.BloodGroup,
		RecipientAge:     rec.Age,
		Urgency:          rec.Urgency,
		MedicalCondition: rec.MedicalCondition,
		DistanceKm:       dist,
	})
	if breakdown.Total < s.cfg.MinScore {
		return Match{}, ReasonBelowMinScore
	}

	return Match{
		OrganType:  o,
		Recipient:  rec,
		Score:      breakdown.Total,
		Quality:    compat.Quality(breakdown.Total),
		DistanceKm: dist,
		Breakdown:  breakdown,
	}, ""
}

// Allocate claims an available organ record for a recipient. The hard
// filters are re-checked against fresh records before the compare-and-set,
// so a stale match list cannot allocate an incompatible pair. Exactly one
// concurrent caller wins; the rest get a ConflictError.
func (s *Service) Allocate(ctx context.Context, organRecordID, recipientID uuid.UUID) (*organ.Record, error) {
	rec, err := s.organs.GetByID(ctx, organRecordID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.recipients.GetByID(ctx, recipientID)
	if err != nil {
		return nil, s.wrapDependency("registry", fmt.Errorf("load recipient: %w", err))
	}
	if !recipient.Active() {
		return nil, validationf("recipient %s is not active (status %s)", recipientID, recipient.Status)
	}
	if recipient.RequiredOrgan != rec.Type {
		return nil, validationf("recipient %s needs %s, not %s", recipientID, recipient.RequiredOrgan, rec.Type)
	}
	donor, err := s.donors.GetByID(ctx, rec.DonorID)
	if err != nil {
		return nil, s.wrapDependency("registry", fmt.Errorf("load donor: %w", err))
	}

	if !compat.BloodCompatible(donor.BloodGroup, recipient.BloodGroup) {
		return nil, incompatiblef(ReasonBloodIncompatible,
			"donor blood %s cannot serve recipient blood %s", donor.BloodGroup, recipient.BloodGroup)
	}
	if donor.AgeAtDeath > compat.ConstraintsFor(rec.Type).MaxDonorAge {
		return nil, incompatiblef(ReasonOverAgeLimit,
			"donor age %d exceeds the %s limit", donor.AgeAtDeath, rec.Type)
	}
	dist := s.estimator.DistanceKm(ctx, donor.Hospital, recipient.Hospital)
	if dist > s.cfg.MaxDistanceKm {
		return nil, incompatiblef(ReasonTooFar,
			"%.0fkm exceeds the %.0fkm transport ceiling", dist, s.cfg.MaxDistanceKm)
	}
	breakdown := compat.Score(compat.ScoreInput{
		Organ:            rec.Type,
		DonorBlood:       donor.BloodGroup,
		DonorAge:         donor.AgeAtDeath,
		RecipientBlood:   recipient.BloodGroup,
		RecipientAge:     recipient.Age,
		Urgency:          recipient.Urgency,
		MedicalCondition: recipient.MedicalCondition,
		DistanceKm:       dist,
	})
	if breakdown.Total < s.cfg.MinScore {
		return nil, incompatiblef(ReasonBelowMinScore,
			"score %d is below the %d floor", breakdown.Total, s.cfg.MinScore)
	}

	if err := s.organs.AllocateCAS(ctx, organRecordID, recipientID, breakdown.Total, dist); err != nil {
		return nil, s.mapOrganErr(err, "allocate")
	}

	s.log.Info().
		Str("organ_record_id", organRecordID.String()).
		Str("recipient_id", recipientID.String()).
		Int("score", breakdown.Total).
		Float64("distance_km", dist).
		Msg("organ allocated")
	return s.organs.GetByID(ctx, organRecordID)
}

// CompleteTransplant finalizes a matched organ: the record moves to
// transplanted and the recipient leaves the waiting list, atomically.
func (s *Service) CompleteTransplant(ctx context.Context, organRecordID uuid.UUID, notes *string) (*organ.Record, error) {
	rec, err := s.organs.GetByID(ctx, organRecordID)
	if err != nil {
		return nil, err
	}
	if rec.RecipientID == nil {
		return nil, &InvalidStateError{Msg: fmt.Sprintf("organ record %s has no allocated recipient", organRecordID)}
	}
	recipientID := *rec.RecipientID

	recipient, err := s.recipients.GetByID(ctx, recipientID)
	if err != nil {
		return nil, s.wrapDependency("registry", fmt.Errorf("load recipient: %w", err))
	}
	priorStatus := recipient.Status

	// The recipient flips first; a refused organ transition restores it.
	// Under a real TxRunner the rollback covers both writes, but the
	// compensation is what keeps a nil-TxRunner (memory repo) pair
	// consistent: neither write survives without the other.
	err = s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.recipients.UpdateStatus(ctx, recipientID, registry.RecipientCompleted); err != nil {
			return fmt.Errorf("update recipient status: %w", err)
		}
		if err := s.organs.CompleteCAS(ctx, organRecordID, notes); err != nil {
			if rerr := s.recipients.UpdateStatus(ctx, recipientID, priorStatus); rerr != nil {
				s.log.Error().Err(rerr).
					Str("recipient_id", recipientID.String()).
					Msg("failed to restore recipient status")
			}
			return s.mapOrganErr(err, "complete")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("organ_record_id", organRecordID.String()).
		Str("recipient_id", recipientID.String()).
		Msg("transplant completed")
	return s.organs.GetByID(ctx, organRecordID)
}

// MarkWasted retires an organ record without transplant. kind selects the
// terminal status: wasted, expired or rejected.
func (s *Service) MarkWasted(ctx context.Context, organRecordID uuid.UUID, reason string, kind organ.WasteKind) (*organ.Record, error) {
	if reason == "" {
		return nil, validationf("a waste reason is required")
	}
	if !organ.ValidWasteKind(kind) {
		return nil, validationf("unknown waste kind %q", kind)
	}
	if err := s.organs.WasteCAS(ctx, organRecordID, reason, kind); err != nil {
		return nil, s.mapOrganErr(err, "waste")
	}

	s.log.Info().
		Str("organ_record_id", organRecordID.String()).
		Str("kind", string(kind)).
		Str("reason", reason).
		Msg("organ taken out of circulation")
	return s.organs.GetByID(ctx, organRecordID)
}

func (s *Service) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx(ctx, fn)
}

func (s *Service) mapOrganErr(err error, op string) error {
	switch {
	case errors.Is(err, organ.ErrConflict):
		return &ConflictError{Msg: fmt.Sprintf("%s: %v", op, err)}
	case errors.Is(err, organ.ErrInvalidState):
		return &InvalidStateError{Msg: fmt.Sprintf("%s: %v", op, err)}
	}
	return err
}

func (s *Service) wrapDependency(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &DependencyTimeout{Dependency: name, Err: err}
	}
	return err
}
