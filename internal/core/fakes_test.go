package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type fakeStore struct {
	mu     sync.Mutex
	links  map[string]*Link
	visits map[string][]VisitEvent
	ads    []Ad
	admin  *AdminCredential

	getCalls     int
	listVisitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		links:  make(map[string]*Link),
		visits: make(map[string][]VisitEvent),
	}
}

func (f *fakeStore) CreateLink(_ context.Context, l *Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[l.ShortCode]; ok {
		return ErrConflict
	}
	cp := *l
	f.links[l.ShortCode] = &cp
	return nil
}

func (f *fakeStore) GetLink(_ context.Context, code string) (*Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	l, ok := f.links[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	cp.VisitsCount = int64(len(f.visits[code]))
	return &cp, nil
}

func (f *fakeStore) ListLinks(_ context.Context) ([]Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Link, 0, len(f.links))
	for _, l := range f.links {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) IncrementClick(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[code]
	if !ok {
		return ErrNotFound
	}
	l.ClickCount++
	return nil
}

func (f *fakeStore) SetActive(_ context.Context, code string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[code]
	if !ok {
		return ErrNotFound
	}
	l.IsActive = active
	return nil
}

func (f *fakeStore) DeleteLink(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[code]; !ok {
		return ErrNotFound
	}
	delete(f.links, code)
	delete(f.visits, code)
	return nil
}

func (f *fakeStore) AppendVisit(_ context.Context, v VisitEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits[v.LinkCode] = append(f.visits[v.LinkCode], v)
	return nil
}

func (f *fakeStore) ListVisits(_ context.Context, code string) ([]VisitEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listVisitErr != nil {
		return nil, f.listVisitErr
	}
	return append([]VisitEvent(nil), f.visits[code]...), nil
}

func (f *fakeStore) ListAds(_ context.Context) ([]Ad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Ad(nil), f.ads...), nil
}

func (f *fakeStore) CreateAd(_ context.Context, a *Ad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for _, x := range f.ads {
		if x.ID > max {
			max = x.ID
		}
	}
	a.ID = max + 1
	f.ads = append(f.ads, *a)
	return nil
}

func (f *fakeStore) UpdateAd(_ context.Context, a Ad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ads {
		if f.ads[i].ID == a.ID {
			f.ads[i] = a
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) DeleteAd(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.ads[:0]
	for _, a := range f.ads {
		if a.ID != id {
			out = append(out, a)
		}
	}
	f.ads = out
	return nil
}

func (f *fakeStore) GetAdmin(_ context.Context) (*AdminCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.admin == nil {
		return nil, ErrNotFound
	}
	cp := *f.admin
	return &cp, nil
}

func (f *fakeStore) SaveAdmin(_ context.Context, c AdminCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admin = &c
	return nil
}

func (f *fakeStore) Stats(_ context.Context) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var st Stats
	for code, l := range f.links {
		st.TotalLinks++
		if l.IsActive {
			st.ActiveLinks++
		}
		st.TotalClicks += l.ClickCount
		st.TotalVisits += int64(len(f.visits[code]))
	}
	return st, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) clicks(code string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.links[code]; ok {
		return l.ClickCount
	}
	return -1
}

func (f *fakeStore) visitCount(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visits[code])
}

type fakeGates struct {
	mu       sync.Mutex
	sessions map[string]GateSession
	loadErr  error
}

func newFakeGates() *fakeGates {
	return &fakeGates{sessions: make(map[string]GateSession)}
}

func (g *fakeGates) LoadGate(_ context.Context, sid, code string) (*GateSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	s, ok := g.sessions[gateKey(sid, code)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (g *fakeGates) SaveGate(_ context.Context, sid, code string, s GateSession) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[gateKey(sid, code)] = s
	return nil
}

func (g *fakeGates) ClearGate(_ context.Context, sid, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, gateKey(sid, code))
	return nil
}

func (g *fakeGates) get(sid, code string) (GateSession, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[gateKey(sid, code)]
	return s, ok
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")
