package session

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrMissing is returned by KV.Get when the key is absent or expired.
var ErrMissing = errors.New("session: key missing")

// KV is a small expiring byte store shared by the session adapters.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Memory keeps sessions in process. Entries vanish on restart.
type Memory struct {
	c *cache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: cache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrMissing
	}
	return v.([]byte), nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	cp := make([]byte, len(val))
	copy(cp, val)
	m.c.Set(key, cp, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

var _ KV = (*Memory)(nil)
