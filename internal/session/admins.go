package session

import (
	"context"
	"errors"
	"time"
)

// Admins remembers which browser sessions have logged in to the admin area.
type Admins struct {
	kv  KV
	ttl time.Duration
}

func NewAdmins(kv KV, ttl time.Duration) *Admins {
	return &Admins{kv: kv, ttl: ttl}
}

func adminKey(sessionID string) string { return "admin:" + sessionID }

func (a *Admins) Login(ctx context.Context, sessionID, username string) error {
	return a.kv.Set(ctx, adminKey(sessionID), []byte(username), a.ttl)
}

// Username reports the admin bound to sessionID, if any.
func (a *Admins) Username(ctx context.Context, sessionID string) (string, bool, error) {
	b, err := a.kv.Get(ctx, adminKey(sessionID))
	if errors.Is(err, ErrMissing) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (a *Admins) Logout(ctx context.Context, sessionID string) error {
	return a.kv.Delete(ctx, adminKey(sessionID))
}
