package core

import (
	"context"
	"time"
)

// Terminal step of the gate; reaching it redirects to the destination.
const FinalStep = 4

// Link is a shortened URL record.
type Link struct {
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	ClickCount  int64     `json:"click_count"`
	IsActive    bool      `json:"is_active"`
	VisitsCount int64     `json:"visits_count"`
}

// NewLink builds a freshly created, active link with no clicks.
// Records loaded from storage are decoded by the store, not built here.
func NewLink(code, originalURL string, now time.Time) *Link {
	return &Link{
		ShortCode:   code,
		OriginalURL: originalURL,
		CreatedAt:   now.UTC(),
		IsActive:    true,
	}
}

// VisitEvent is one recorded gate step. Events are append-only.
type VisitEvent struct {
	LinkCode  string    `json:"link_code"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer"`
	Step      int       `json:"step"`
	VisitedAt time.Time `json:"visited_at"`
}

// GateSession is the per browser session and short code progress through the gate.
type GateSession struct {
	CurrentStep int       `json:"current_step"`
	StartTime   time.Time `json:"start_time"`
	BoundIP     string    `json:"bound_ip"`
}

// Ad is an ad slot rendered on the gate step matching its position.
type Ad struct {
	ID        int64  `json:"id"`
	AdType    string `json:"ad_type"`
	AdContent string `json:"ad_content"`
	Position  int    `json:"position"`
	IsActive  bool   `json:"is_active"`
}

// AdPatch holds the fields of an ad update; nil fields are left untouched.
type AdPatch struct {
	AdType    *string `json:"ad_type"`
	AdContent *string `json:"ad_content"`
	Position  *int    `json:"position"`
	IsActive  *bool   `json:"is_active"`
}

// AdminCredential is the single admin account.
type AdminCredential struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type Stats struct {
	TotalLinks  int64 `json:"total_links"`
	ActiveLinks int64 `json:"active_links"`
	TotalClicks int64 `json:"total_clicks"`
	TotalVisits int64 `json:"total_visits"`
}

// Visitor identifies the caller of a gate operation.
type Visitor struct {
	SessionID string
	IP        string
	UserAgent string
	Referrer  string
}

// StepView is what a gate step page needs to render.
type StepView struct {
	Code string
	Step int
	Ad   *Ad
}

// StepResult is the outcome of a successful Advance: either the next step
// view or, at the final step, the destination URL.
type StepResult struct {
	View        *StepView
	Destination string
	Counted     bool // click counter was incremented
}

// LinkStore persists link records.
type LinkStore interface {
	// CreateLink inserts a new link. Must fail with ErrConflict if the code is taken.
	CreateLink(ctx context.Context, l *Link) error
	// GetLink returns ErrNotFound when no link has the code.
	GetLink(ctx context.Context, code string) (*Link, error)
	// ListLinks returns all links, newest first.
	ListLinks(ctx context.Context) ([]Link, error)
	// IncrementClick adds one to the click counter atomically.
	IncrementClick(ctx context.Context, code string) error
	SetActive(ctx context.Context, code string, active bool) error
	// DeleteLink removes the link and all of its visits.
	DeleteLink(ctx context.Context, code string) error
}

// VisitStore persists visit events.
type VisitStore interface {
	AppendVisit(ctx context.Context, v VisitEvent) error
	ListVisits(ctx context.Context, code string) ([]VisitEvent, error)
}

type AdStore interface {
	ListAds(ctx context.Context) ([]Ad, error)
	// CreateAd assigns a.ID.
	CreateAd(ctx context.Context, a *Ad) error
	UpdateAd(ctx context.Context, a Ad) error
	DeleteAd(ctx context.Context, id int64) error
}

type AdminStore interface {
	// GetAdmin returns ErrNotFound before the credential is seeded.
	GetAdmin(ctx context.Context) (*AdminCredential, error)
	SaveAdmin(ctx context.Context, c AdminCredential) error
}

// Store is the full persistence collaborator.
type Store interface {
	LinkStore
	VisitStore
	AdStore
	AdminStore
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
}

// GateStore keeps GateSessions server-side, keyed by browser session id and code.
type GateStore interface {
	// LoadGate returns nil, nil when no session exists.
	LoadGate(ctx context.Context, sessionID, code string) (*GateSession, error)
	SaveGate(ctx context.Context, sessionID, code string, s GateSession) error
	ClearGate(ctx context.Context, sessionID, code string) error
}
