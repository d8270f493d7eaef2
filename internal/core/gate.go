package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roniherschmann/linkgate/internal/metrics"
)

func gateKey(sessionID, code string) string { return sessionID + "\x00" + code }

// Enter starts (or restarts) the gate for code at step 1.
func (s *Service) Enter(ctx context.Context, code string, v Visitor) (*StepView, error) {
	if _, err := s.activeLink(ctx, code); err != nil {
		metrics.GateOutcomes.WithLabelValues("not_found").Inc()
		return nil, err
	}

	unlock := s.gateLocks.Lock(gateKey(v.SessionID, code))
	defer unlock()

	gs := GateSession{CurrentStep: 1, StartTime: s.now(), BoundIP: v.IP}
	if err := s.gates.SaveGate(ctx, v.SessionID, code, gs); err != nil {
		return nil, err
	}
	s.recordStep(ctx, code, v, 1)
	metrics.GateOutcomes.WithLabelValues("enter").Inc()
	return s.stepView(ctx, code, 1), nil
}

// Advance moves the visitor's gate to step. Any ordering, identity or
// session violation clears the session and yields ErrRestart; a step asked
// for before current_step*dwell has elapsed since Enter yields *TooFastError.
func (s *Service) Advance(ctx context.Context, code string, step int, v Visitor) (*StepResult, error) {
	if step < 2 || step > FinalStep {
		metrics.GateOutcomes.WithLabelValues("invalid_step").Inc()
		return nil, ErrInvalidStep
	}
	link, err := s.activeLink(ctx, code)
	if err != nil {
		metrics.GateOutcomes.WithLabelValues("not_found").Inc()
		return nil, err
	}

	unlock := s.gateLocks.Lock(gateKey(v.SessionID, code))
	defer unlock()

	gs, err := s.gates.LoadGate(ctx, v.SessionID, code)
	if err != nil {
		metrics.StoreDegraded.WithLabelValues("load_gate").Inc()
		log.Warn().Err(err).Str("code", code).Msg("gate session unavailable")
		gs = nil
	}
	switch {
	case gs == nil:
		return nil, s.restart(ctx, code, v, "no_session")
	case gs.BoundIP != v.IP:
		return nil, s.restart(ctx, code, v, "ip_changed")
	case step != gs.CurrentStep+1:
		return nil, s.restart(ctx, code, v, "out_of_order")
	}

	required := time.Duration(gs.CurrentStep) * s.stepDwell
	if elapsed := s.now().Sub(gs.StartTime); elapsed < required {
		metrics.GateOutcomes.WithLabelValues("too_fast").Inc()
		log.Debug().Str("code", code).Int("step", step).Dur("elapsed", elapsed).Msg("gate step too fast")
		return nil, &TooFastError{Step: step, Wait: required - elapsed}
	}

	// start_time stays at the Enter time: dwell is cumulative.
	gs.CurrentStep = step

	if step < FinalStep {
		if err := s.gates.SaveGate(ctx, v.SessionID, code, *gs); err != nil {
			return nil, err
		}
		s.recordStep(ctx, code, v, step)
		metrics.GateOutcomes.WithLabelValues("advance").Inc()
		return &StepResult{View: s.stepView(ctx, code, step)}, nil
	}

	counted := s.complete(ctx, code, v)
	if err := s.gates.ClearGate(ctx, v.SessionID, code); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("gate session clear failed")
	}
	metrics.GateOutcomes.WithLabelValues("completed").Inc()
	return &StepResult{Destination: link.OriginalURL, Counted: counted}, nil
}

// complete records the final-step visit and bumps the click counter only
// when that visit is new. Both happen under the code lock.
func (s *Service) complete(ctx context.Context, code string, v Visitor) bool {
	unlock := s.codeLocks.Lock(code)
	defer unlock()

	res, err := s.recordIfFirstToday(ctx, code, v.IP, v.UserAgent, v.Referrer, FinalStep)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("record final visit")
		return false
	}
	if res != VisitRecorded {
		return false
	}
	if err := s.store.IncrementClick(ctx, code); err != nil {
		log.Error().Err(err).Str("code", code).Msg("increment click")
		return false
	}
	metrics.Clicks.Inc()
	return true
}

func (s *Service) restart(ctx context.Context, code string, v Visitor, reason string) error {
	if err := s.gates.ClearGate(ctx, v.SessionID, code); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("gate session clear failed")
	}
	metrics.GateOutcomes.WithLabelValues("restart").Inc()
	log.Info().Str("code", code).Str("ip", v.IP).Str("reason", reason).Msg("gate restart")
	return ErrRestart
}

// recordStep never fails the step; visit write errors are only logged.
func (s *Service) recordStep(ctx context.Context, code string, v Visitor, step int) {
	if _, err := s.RecordIfFirstToday(ctx, code, v.IP, v.UserAgent, v.Referrer, step); err != nil {
		log.Error().Err(err).Str("code", code).Int("step", step).Msg("record visit")
	}
}

func (s *Service) stepView(ctx context.Context, code string, step int) *StepView {
	return &StepView{Code: code, Step: step, Ad: s.AdForPosition(ctx, step)}
}
