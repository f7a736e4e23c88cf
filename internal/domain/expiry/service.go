package expiry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/organlink/organlink/internal/domain/organ"
)

// Alert urgency tiers.
const (
	UrgencyCritical = "Critical"
	UrgencyHigh     = "High"
	UrgencyMedium   = "Medium"
)

// Alert flags an available organ approaching the end of its viability
// window.
type Alert struct {
	Record         *organ.Record `json:"record"`
	HoursRemaining float64       `json:"hours_remaining"`
	Urgency        string        `json:"urgency"`
}

// Monitor scans for organs about to expire. It only reports; expiring a
// record is an explicit waste operation taken by a coordinator.
type Monitor struct {
	organs    organ.Repository
	lookahead time.Duration
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewMonitor(organs organ.Repository, lookahead, interval time.Duration, log zerolog.Logger) *Monitor {
	if lookahead <= 0 {
		lookahead = 2 * time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Monitor{
		organs:    organs,
		lookahead: lookahead,
		interval:  interval,
		now:       time.Now,
		log:       log,
	}
}

// Scan returns alerts for every available organ expiring within the
// lookahead window, soonest first. A zero lookahead uses the configured
// default.
func (m *Monitor) Scan(ctx context.Context, lookahead time.Duration) ([]Alert, error) {
	if lookahead <= 0 {
		lookahead = m.lookahead
	}
	now := m.now()

	records, err := m.organs.ListExpiringBefore(ctx, now.Add(lookahead))
	if err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(records))
	for _, rec := range records {
		remaining := rec.HoursRemaining(now)
		alerts = append(alerts, Alert{
			Record:         rec,
			HoursRemaining: remaining,
			Urgency:        urgencyFor(remaining),
		})
	}
	return alerts, nil
}

func urgencyFor(hoursRemaining float64) string {
	switch {
	case hoursRemaining <= 1:
		return UrgencyCritical
	case hoursRemaining <= 2:
		return UrgencyHigh
	}
	return UrgencyMedium
}

// Run scans on the configured interval until ctx is canceled, logging a
// summary of what it finds. Run blocks; start it on its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info().
		Dur("interval", m.interval).
		Dur("lookahead", m.lookahead).
		Msg("expiry monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("expiry monitor stopped")
			return
		case <-ticker.C:
			alerts, err := m.Scan(ctx, 0)
			if err != nil {
				m.log.Error().Err(err).Msg("expiry scan failed")
				continue
			}
			if len(alerts) == 0 {
				continue
			}
			critical := 0
			for _, a := range alerts {
				if a.Urgency == UrgencyCritical {
					critical++
				}
				m.log.Warn().
					Str("organ_record_id", a.Record.ID.String()).
					Str("organ_type", string(a.Record.Type)).
					Float64("hours_remaining", a.HoursRemaining).
					Str("urgency", a.Urgency).
					Msg("organ approaching expiry")
			}
			m.log.Info().
				Int("alerts", len(alerts)).
				Int("critical", critical).
				Msg("expiry scan complete")
		}
	}
}
