package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roniherschmann/linkgate/internal/metrics"
	"github.com/roniherschmann/linkgate/internal/shortid"
)

const (
	defaultStepDwell = 15 * time.Second
	maxCodeAttempts  = 32
)

type Service struct {
	store     Store
	gates     GateStore
	newCode   func() string
	nowFunc   func() time.Time
	stepDwell time.Duration
	blocked   []string

	codeLocks keyedMutex // serialises visit append + click increment per code
	gateLocks keyedMutex // serialises GateSession read-modify-write per visitor and code
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.nowFunc = now }
}

// WithCodeGenerator replaces the random short code source.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) { s.newCode = gen }
}

// WithStepDwell sets the per-step wait unit of the gate.
func WithStepDwell(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stepDwell = d
		}
	}
}

// WithBlockedDomains sets the hosts that can never be shortened.
func WithBlockedDomains(domains []string) Option {
	return func(s *Service) { s.blocked = domains }
}

func NewService(store Store, gates GateStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		gates:     gates,
		newCode:   func() string { return shortid.Generate(shortid.Length) },
		nowFunc:   time.Now,
		stepDwell: defaultStepDwell,
		blocked:   defaultBlockedDomains,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time { return s.nowFunc().UTC() }

// Shorten validates target and stores it under a fresh short code.
func (s *Service) Shorten(ctx context.Context, target string) (*Link, error) {
	targetNorm, err := ValidateURL(target, s.blocked)
	if err != nil {
		return nil, err
	}
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.GenerateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		link := NewLink(code, targetNorm, s.now())
		err = s.store.CreateLink(ctx, link)
		if err == nil {
			log.Info().Str("code", code).Str("url", targetNorm).Msg("link created")
			return link, nil
		}
		if !IsConflict(err) {
			return nil, err
		}
	}
	return nil, ErrConflict
}

// CheckURL runs the shorten target checks without creating anything.
func (s *Service) CheckURL(target string) (string, error) {
	return ValidateURL(target, s.blocked)
}

// GenerateUniqueCode draws codes until one is not present in the store.
func (s *Service) GenerateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := s.newCode()
		_, err := s.store.GetLink(ctx, code)
		if IsNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrConflict
}

// Link returns the record for code, active or not.
func (s *Service) Link(ctx context.Context, code string) (*Link, error) {
	if !shortid.Valid(code) {
		return nil, ErrNotFound
	}
	return s.store.GetLink(ctx, code)
}

// activeLink resolves a link for the gate. Read failures are treated as a
// missing link so that the gate degrades to 404 instead of 500.
func (s *Service) activeLink(ctx context.Context, code string) (*Link, error) {
	link, err := s.Link(ctx, code)
	if err != nil {
		if !IsNotFound(err) {
			metrics.StoreDegraded.WithLabelValues("get_link").Inc()
			log.Warn().Err(err).Str("code", code).Msg("link lookup failed")
		}
		return nil, ErrNotFound
	}
	if !link.IsActive {
		return nil, ErrNotFound
	}
	return link, nil
}

func (s *Service) Links(ctx context.Context) ([]Link, error) {
	return s.store.ListLinks(ctx)
}

// Visits returns every visit event of an existing link.
func (s *Service) Visits(ctx context.Context, code string) ([]VisitEvent, error) {
	if _, err := s.Link(ctx, code); err != nil {
		return nil, err
	}
	return s.store.ListVisits(ctx, code)
}

// ToggleActive flips the active flag and returns the updated link.
func (s *Service) ToggleActive(ctx context.Context, code string) (*Link, error) {
	unlock := s.codeLocks.Lock(code)
	defer unlock()

	link, err := s.Link(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetActive(ctx, code, !link.IsActive); err != nil {
		return nil, err
	}
	link.IsActive = !link.IsActive
	log.Info().Str("code", code).Bool("active", link.IsActive).Msg("link toggled")
	return link, nil
}

// Delete removes a link together with its visits.
func (s *Service) Delete(ctx context.Context, code string) error {
	unlock := s.codeLocks.Lock(code)
	defer unlock()

	if !shortid.Valid(code) {
		return ErrNotFound
	}
	if err := s.store.DeleteLink(ctx, code); err != nil {
		return err
	}
	log.Info().Str("code", code).Msg("link deleted")
	return nil
}

// Stats aggregates link and visit counters, falling back to zeros on read errors.
func (s *Service) Stats(ctx context.Context) Stats {
	st, err := s.store.Stats(ctx)
	if err != nil {
		metrics.StoreDegraded.WithLabelValues("stats").Inc()
		log.Warn().Err(err).Msg("stats unavailable")
		return Stats{}
	}
	return st
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
