package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(codes ...string) func() string {
	i := 0
	return func() string {
		c := codes[i%len(codes)]
		i++
		return c
	}
}

func TestShorten(t *testing.T) {
	store := newFakeStore()
	clock := newTestClock()
	svc := NewService(store, newFakeGates(), WithClock(clock.Now), WithCodeGenerator(sequence("Ab12Cd")))

	link, err := svc.Shorten(context.Background(), "  https://example.org/path?q=1 ")
	require.NoError(t, err)
	assert.Equal(t, "Ab12Cd", link.ShortCode)
	assert.Equal(t, "https://example.org/path?q=1", link.OriginalURL)
	assert.True(t, link.IsActive)
	assert.Zero(t, link.ClickCount)
	assert.Equal(t, clock.Now(), link.CreatedAt)

	stored, err := svc.Link(context.Background(), "Ab12Cd")
	require.NoError(t, err)
	assert.Equal(t, link.OriginalURL, stored.OriginalURL)
}

func TestShortenRejectsBadTargets(t *testing.T) {
	svc := NewService(newFakeStore(), newFakeGates())
	ctx := context.Background()

	_, err := svc.Shorten(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = svc.Shorten(ctx, "javascript:alert(1)")
	assert.ErrorIs(t, err, ErrUnsafeURL)
	_, err = svc.Shorten(ctx, "https://login.phishing.com/x")
	assert.ErrorIs(t, err, ErrUnsafeURL)
	_, err = svc.Shorten(ctx, "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestCheckURLUsesConfiguredBlocklist(t *testing.T) {
	svc := NewService(newFakeStore(), newFakeGates(), WithBlockedDomains([]string{"evil.test"}))

	_, err := svc.CheckURL("https://cdn.evil.test/a")
	assert.ErrorIs(t, err, ErrUnsafeURL)

	got, err := svc.CheckURL("https://phishing.com/")
	require.NoError(t, err, "defaults are replaced, not merged")
	assert.Equal(t, "https://phishing.com/", got)
}

func TestGenerateUniqueCodeSkipsTakenCodes(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.CreateLink(ctx, NewLink("aaaaaa", "https://a.example", now)))
	require.NoError(t, store.CreateLink(ctx, NewLink("bbbbbb", "https://b.example", now)))

	svc := NewService(store, newFakeGates(), WithCodeGenerator(sequence("aaaaaa", "bbbbbb", "cccccc")))
	code, err := svc.GenerateUniqueCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cccccc", code)
	assert.Equal(t, 3, store.getCalls)
}

func TestGenerateUniqueCodeNeverReturnsExisting(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newFakeGates())
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		code, err := svc.GenerateUniqueCode(ctx)
		require.NoError(t, err)
		_, err = store.GetLink(ctx, code)
		require.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, store.CreateLink(ctx, NewLink(code, "https://x.example", time.Now())))
	}
}

func TestGenerateUniqueCodeGivesUp(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.CreateLink(context.Background(), NewLink("aaaaaa", "https://a.example", time.Now())))
	svc := NewService(store, newFakeGates(), WithCodeGenerator(sequence("aaaaaa")))

	_, err := svc.GenerateUniqueCode(context.Background())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestToggleActive(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newFakeGates())
	ctx := context.Background()
	require.NoError(t, store.CreateLink(ctx, NewLink("Ab12Cd", "https://example.org", time.Now())))

	link, err := svc.ToggleActive(ctx, "Ab12Cd")
	require.NoError(t, err)
	assert.False(t, link.IsActive)

	link, err = svc.ToggleActive(ctx, "Ab12Cd")
	require.NoError(t, err)
	assert.True(t, link.IsActive)

	_, err = svc.ToggleActive(ctx, "Zz99Zz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascadesVisits(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newFakeGates())
	ctx := context.Background()
	require.NoError(t, store.CreateLink(ctx, NewLink("Ab12Cd", "https://example.org", time.Now())))
	_, err := svc.RecordIfFirstToday(ctx, "Ab12Cd", "10.0.0.1", "", "", 1)
	require.NoError(t, err)

	visits, err := svc.Visits(ctx, "Ab12Cd")
	require.NoError(t, err)
	assert.Len(t, visits, 1)

	require.NoError(t, svc.Delete(ctx, "Ab12Cd"))
	assert.Equal(t, 0, store.visitCount("Ab12Cd"))
	_, err = svc.Link(ctx, "Ab12Cd")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Visits(ctx, "Ab12Cd")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "Ab12Cd"), ErrNotFound)
}

func TestStats(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newFakeGates())
	ctx := context.Background()
	require.NoError(t, store.CreateLink(ctx, NewLink("Ab12Cd", "https://example.org", time.Now())))
	require.NoError(t, store.CreateLink(ctx, NewLink("Ef34Gh", "https://example.net", time.Now())))
	require.NoError(t, store.SetActive(ctx, "Ef34Gh", false))
	require.NoError(t, store.IncrementClick(ctx, "Ab12Cd"))
	require.NoError(t, store.AppendVisit(ctx, VisitEvent{LinkCode: "Ab12Cd", Step: 1}))

	assert.Equal(t, Stats{TotalLinks: 2, ActiveLinks: 1, TotalClicks: 1, TotalVisits: 1}, svc.Stats(ctx))
}

func TestAds(t *testing.T) {
	svc := NewService(newFakeStore(), newFakeGates())
	ctx := context.Background()

	ad, err := svc.CreateAd(ctx, Ad{AdType: "banner", AdContent: "x", Position: 2, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ad.ID)
	assert.Equal(t, ad.ID, svc.AdForPosition(ctx, 2).ID)
	assert.Nil(t, svc.AdForPosition(ctx, 1))

	off := false
	content := "y"
	updated, err := svc.UpdateAd(ctx, ad.ID, AdPatch{IsActive: &off, AdContent: &content})
	require.NoError(t, err)
	assert.Equal(t, "banner", updated.AdType)
	assert.Equal(t, "y", updated.AdContent)
	assert.Nil(t, svc.AdForPosition(ctx, 2))

	_, err = svc.UpdateAd(ctx, 99, AdPatch{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteAd(ctx, ad.ID))
	ads, err := svc.Ads(ctx)
	require.NoError(t, err)
	assert.Empty(t, ads)
}

func TestAdminCredential(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newFakeGates())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authenticate(ctx, "admin", "admin123"), ErrUnauthorized)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "admin123"))
	assert.NotEqual(t, "admin123", store.admin.PasswordHash)
	assert.NoError(t, svc.Authenticate(ctx, "admin", "admin123"))
	assert.ErrorIs(t, svc.Authenticate(ctx, "admin", "wrong"), ErrUnauthorized)
	assert.ErrorIs(t, svc.Authenticate(ctx, "root", "admin123"), ErrUnauthorized)

	// A second boot with different defaults keeps the stored credential.
	require.NoError(t, svc.EnsureAdmin(ctx, "other", "pw"))
	assert.NoError(t, svc.Authenticate(ctx, "admin", "admin123"))
}
