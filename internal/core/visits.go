package core

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/roniherschmann/linkgate/internal/metrics"
)

type VisitResult int

const (
	VisitRecorded VisitResult = iota
	VisitDuplicate
)

func (r VisitResult) String() string {
	if r == VisitRecorded {
		return "recorded"
	}
	return "duplicate"
}

// RecordIfFirstToday appends a visit event unless the same IP already has
// one for this code and step on the current UTC day.
func (s *Service) RecordIfFirstToday(ctx context.Context, code, ip, userAgent, referrer string, step int) (VisitResult, error) {
	unlock := s.codeLocks.Lock(code)
	defer unlock()
	return s.recordIfFirstToday(ctx, code, ip, userAgent, referrer, step)
}

// recordIfFirstToday expects the caller to hold the code lock.
func (s *Service) recordIfFirstToday(ctx context.Context, code, ip, userAgent, referrer string, step int) (VisitResult, error) {
	now := s.now()
	visits, err := s.store.ListVisits(ctx, code)
	if err != nil {
		// An unreadable history counts as empty.
		metrics.StoreDegraded.WithLabelValues("list_visits").Inc()
		log.Warn().Err(err).Str("code", code).Msg("visit history unavailable")
		visits = nil
	}
	y, m, d := now.Date()
	for _, v := range visits {
		vy, vm, vd := v.VisitedAt.UTC().Date()
		if v.IPAddress == ip && v.Step == step && vy == y && vm == m && vd == d {
			metrics.Visits.WithLabelValues(VisitDuplicate.String()).Inc()
			return VisitDuplicate, nil
		}
	}
	ev := VisitEvent{
		LinkCode:  code,
		IPAddress: ip,
		UserAgent: userAgent,
		Referrer:  referrer,
		Step:      step,
		VisitedAt: now,
	}
	if err := s.store.AppendVisit(ctx, ev); err != nil {
		return VisitDuplicate, err
	}
	metrics.Visits.WithLabelValues(VisitRecorded.String()).Inc()
	return VisitRecorded, nil
}
