package store

import (
	"time"

	"github.com/roniherschmann/linkgate/internal/core"
)

// Row types mirror the tables. Timestamps are stored as UTC unix nanoseconds.

type linkRow struct {
	ShortCode   string `db:"short_code"`
	OriginalURL string `db:"original_url"`
	CreatedAt   int64  `db:"created_at"`
	ClickCount  int64  `db:"click_count"`
	IsActive    bool   `db:"is_active"`
	VisitsCount int64  `db:"visits_count"`
}

// decode rebuilds a stored link without going through core.NewLink.
func (r linkRow) decode() core.Link {
	return core.Link{
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		CreatedAt:   fromNanos(r.CreatedAt),
		ClickCount:  r.ClickCount,
		IsActive:    r.IsActive,
		VisitsCount: r.VisitsCount,
	}
}

type visitRow struct {
	LinkCode  string `db:"link_code"`
	IPAddress string `db:"ip_address"`
	UserAgent string `db:"user_agent"`
	Referrer  string `db:"referrer"`
	Step      int    `db:"step"`
	VisitedAt int64  `db:"visited_at"`
}

func (r visitRow) decode() core.VisitEvent {
	return core.VisitEvent{
		LinkCode:  r.LinkCode,
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
		Referrer:  r.Referrer,
		Step:      r.Step,
		VisitedAt: fromNanos(r.VisitedAt),
	}
}

type adRow struct {
	ID        int64  `db:"id"`
	AdType    string `db:"ad_type"`
	AdContent string `db:"ad_content"`
	Position  int    `db:"position"`
	IsActive  bool   `db:"is_active"`
}

func (r adRow) decode() core.Ad {
	return core.Ad(r)
}

type adminRow struct {
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
