package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roniherschmann/linkgate/internal/core"
)

func newRedisKV(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	kv, err := ConnectRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv, mr
}

func backends(t *testing.T) map[string]KV {
	kv, _ := newRedisKV(t)
	return map[string]KV{
		"memory": NewMemory(time.Minute),
		"redis":  kv,
	}
}

func TestKVBasics(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := kv.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrMissing)

			require.NoError(t, kv.Set(ctx, "k", []byte("v1"), time.Minute))
			got, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), got)

			require.NoError(t, kv.Delete(ctx, "k"))
			_, err = kv.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrMissing)

			assert.NoError(t, kv.Delete(ctx, "never-set"))
		})
	}
}

func TestMemoryExpiry(t *testing.T) {
	kv := NewMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestRedisExpiry(t *testing.T) {
	kv, mr := newRedisKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestConnectRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(addr, "", 0)
	assert.Error(t, err)
}

func TestGatesRoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := NewGates(kv, time.Minute)
			start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

			gs, err := g.LoadGate(ctx, "sid", "Ab12Cd")
			require.NoError(t, err)
			assert.Nil(t, gs)

			require.NoError(t, g.SaveGate(ctx, "sid", "Ab12Cd", core.GateSession{CurrentStep: 2, StartTime: start, BoundIP: "203.0.113.7"}))

			gs, err = g.LoadGate(ctx, "sid", "Ab12Cd")
			require.NoError(t, err)
			require.NotNil(t, gs)
			assert.Equal(t, 2, gs.CurrentStep)
			assert.Equal(t, "203.0.113.7", gs.BoundIP)
			assert.True(t, gs.StartTime.Equal(start))

			other, err := g.LoadGate(ctx, "sid", "Other1")
			require.NoError(t, err)
			assert.Nil(t, other, "sessions are scoped per code")

			require.NoError(t, g.ClearGate(ctx, "sid", "Ab12Cd"))
			gs, err = g.LoadGate(ctx, "sid", "Ab12Cd")
			require.NoError(t, err)
			assert.Nil(t, gs)
		})
	}
}

func TestGatesCorruptEntry(t *testing.T) {
	kv := NewMemory(time.Minute)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, gateKey("sid", "Ab12Cd"), []byte("{not json"), time.Minute))

	_, err := NewGates(kv, time.Minute).LoadGate(ctx, "sid", "Ab12Cd")
	assert.Error(t, err)
}

func TestAdminsLoginLogout(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := NewAdmins(kv, time.Minute)

			_, ok, err := a.Username(ctx, "sid")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, a.Login(ctx, "sid", "admin"))
			user, ok, err := a.Username(ctx, "sid")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "admin", user)

			require.NoError(t, a.Logout(ctx, "sid"))
			_, ok, err = a.Username(ctx, "sid")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
