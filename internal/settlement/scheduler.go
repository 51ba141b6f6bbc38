package settlement

import (
	"fmt"
	"time"

	"github.com/bloomlink/bloomlink-backend/pkg/config"
)

// settlementPeriod is the span each batch covers.
const settlementPeriod = 7 * 24 * time.Hour

// Scheduler computes settlement cutoffs in the configured timezone.
type Scheduler struct {
	cfg config.SettlementConfig
	loc *time.Location
}

// NewScheduler resolves the configured timezone once at construction.
func NewScheduler(cfg config.SettlementConfig) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolving settlement timezone: %w", err)
	}
	return &Scheduler{cfg: cfg, loc: loc}, nil
}

// NextSettlementDate returns the next cutoff strictly after from. A call made
// exactly at the cutoff instant rolls forward a full week, so the result is
// never in the past regardless of when in the week it is asked.
func (s *Scheduler) NextSettlementDate(from time.Time) time.Time {
	local := from.In(s.loc)

	days := (time.Weekday(s.cfg.Weekday) - local.Weekday() + 7) % 7
	candidate := time.Date(
		local.Year(), local.Month(), local.Day()+int(days),
		s.cfg.Hour, s.cfg.Minute, 0, 0, s.loc,
	)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// CurrentPeriod returns the most recently closed settlement window as of now:
// periodEnd is the last cutoff at or before now, periodStart one week earlier.
func (s *Scheduler) CurrentPeriod(now time.Time) (time.Time, time.Time) {
	periodEnd := s.NextSettlementDate(now).Add(-settlementPeriod)
	return periodEnd.Add(-settlementPeriod), periodEnd
}
