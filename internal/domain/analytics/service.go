package analytics

import (
	"context"
	"math"
	"sort"

	"github.com/organlink/organlink/internal/domain/organ"
)

// TypeStats summarizes outcomes for one organ type.
type TypeStats struct {
	OrganType      string  `json:"organ_type,omitempty"`
	Total          int     `json:"total"`
	Available      int     `json:"available"`
	Matched        int     `json:"matched"`
	Transplanted   int     `json:"transplanted"`
	Wasted         int     `json:"wasted"`
	Rejected       int     `json:"rejected"`
	UtilizationPct float64 `json:"utilization_pct"`
	AtRisk         bool    `json:"at_risk"`
}

// Report is the full utilization picture across the organ pool.
type Report struct {
	Overall TypeStats   `json:"overall"`
	ByType  []TypeStats `json:"by_type"`
}

// Service computes utilization analytics from organ record counts.
type Service struct {
	organs          organ.Repository
	atRiskThreshold float64 // utilization pct below which a type is flagged
}

func NewService(organs organ.Repository, atRiskThreshold float64) *Service {
	if atRiskThreshold <= 0 {
		atRiskThreshold = 70
	}
	return &Service{organs: organs, atRiskThreshold: atRiskThreshold}
}

// Report aggregates per-type and overall outcome counts. Wasted folds in
// expired organs: both are organs that never reached a recipient.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	counts, err := s.organs.CountsByType(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{ByType: []TypeStats{}}
	for organType, byStatus := range counts {
		st := s.stats(byStatus)
		st.OrganType = organType
		rep.ByType = append(rep.ByType, st)

		rep.Overall.Total += st.Total
		rep.Overall.Available += st.Available
		rep.Overall.Matched += st.Matched
		rep.Overall.Transplanted += st.Transplanted
		rep.Overall.Wasted += st.Wasted
		rep.Overall.Rejected += st.Rejected
	}
	sort.Slice(rep.ByType, func(i, j int) bool { return rep.ByType[i].OrganType < rep.ByType[j].OrganType })

	rep.Overall.UtilizationPct = utilization(rep.Overall.Transplanted, rep.Overall.Total)
	rep.Overall.AtRisk = rep.Overall.Total > 0 && rep.Overall.UtilizationPct < s.atRiskThreshold
	return rep, nil
}

func (s *Service) stats(byStatus map[organ.Status]int) TypeStats {
	st := TypeStats{
		Available:    byStatus[organ.StatusAvailable],
		Matched:      byStatus[organ.StatusMatched],
		Transplanted: byStatus[organ.StatusTransplanted],
		Wasted:       byStatus[organ.StatusWasted] + byStatus[organ.StatusExpired],
		Rejected:     byStatus[organ.StatusRejected],
	}
	for _, n := range byStatus {
		st.Total += n
	}
	st.UtilizationPct = utilization(st.Transplanted, st.Total)
	st.AtRisk = st.Total > 0 && st.UtilizationPct < s.atRiskThreshold
	return st
}

func utilization(transplanted, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(transplanted) / float64(total) * 100
	return math.Round(pct*100) / 100
}
