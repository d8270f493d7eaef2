package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/roniherschmann/linkgate/internal/core"
)

// Gates stores gate progress as JSON under gate:{sid}:{code}.
type Gates struct {
	kv  KV
	ttl time.Duration
}

func NewGates(kv KV, ttl time.Duration) *Gates {
	return &Gates{kv: kv, ttl: ttl}
}

func gateKey(sessionID, code string) string {
	return "gate:" + sessionID + ":" + code
}

func (g *Gates) LoadGate(ctx context.Context, sessionID, code string) (*core.GateSession, error) {
	b, err := g.kv.Get(ctx, gateKey(sessionID, code))
	if errors.Is(err, ErrMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var gs core.GateSession
	if err := json.Unmarshal(b, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (g *Gates) SaveGate(ctx context.Context, sessionID, code string, s core.GateSession) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return g.kv.Set(ctx, gateKey(sessionID, code), b, g.ttl)
}

func (g *Gates) ClearGate(ctx context.Context, sessionID, code string) error {
	return g.kv.Delete(ctx, gateKey(sessionID, code))
}

var _ core.GateStore = (*Gates)(nil)
