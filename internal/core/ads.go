package core

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/roniherschmann/linkgate/internal/metrics"
)

func (s *Service) Ads(ctx context.Context) ([]Ad, error) {
	return s.store.ListAds(ctx)
}

func (s *Service) CreateAd(ctx context.Context, a Ad) (*Ad, error) {
	if err := s.store.CreateAd(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAd applies the non-nil fields of p to ad id.
func (s *Service) UpdateAd(ctx context.Context, id int64, p AdPatch) (*Ad, error) {
	ads, err := s.store.ListAds(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range ads {
		if a.ID != id {
			continue
		}
		if p.AdType != nil {
			a.AdType = *p.AdType
		}
		if p.AdContent != nil {
			a.AdContent = *p.AdContent
		}
		if p.Position != nil {
			a.Position = *p.Position
		}
		if p.IsActive != nil {
			a.IsActive = *p.IsActive
		}
		if err := s.store.UpdateAd(ctx, a); err != nil {
			return nil, err
		}
		return &a, nil
	}
	return nil, ErrNotFound
}

// DeleteAd removes ad id; deleting an unknown id is not an error.
func (s *Service) DeleteAd(ctx context.Context, id int64) error {
	return s.store.DeleteAd(ctx, id)
}

// AdForPosition returns the first active ad for a gate step, or nil.
func (s *Service) AdForPosition(ctx context.Context, position int) *Ad {
	ads, err := s.store.ListAds(ctx)
	if err != nil {
		metrics.StoreDegraded.WithLabelValues("list_ads").Inc()
		log.Warn().Err(err).Int("position", position).Msg("ads unavailable")
		return nil
	}
	for _, a := range ads {
		if a.Position == position && a.IsActive {
			ad := a
			return &ad
		}
	}
	return nil
}
