package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"postwatch/internal/model"
	"postwatch/internal/source"
)

// fakeSource is a scriptable Source for engine tests.
type fakeSource struct {
	mu          sync.Mutex
	info        model.AccountInfo
	infoErr     error
	infoCalls   int
	recent      []model.Post
	recentErr   error
	recentCalls int
}

func (f *fakeSource) AccountInfo(ctx context.Context, handle string) (model.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.infoErr != nil {
		return model.AccountInfo{}, f.infoErr
	}
	info := f.info
	info.Handle = handle
	return info, nil
}

func (f *fakeSource) RecentPosts(ctx context.Context, accountID string, limit int) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentCalls++
	if f.recentErr != nil {
		err := f.recentErr
		f.recentErr = nil // one-shot
		return nil, err
	}
	out := make([]model.Post, len(f.recent))
	copy(out, f.recent)
	return out, nil
}

func (f *fakeSource) PostsPage(ctx context.Context, accountID, cursor string) ([]model.Post, string, error) {
	return nil, "", nil
}

func (f *fakeSource) setRecent(posts []model.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = posts
}

func (f *fakeSource) calls() (info, recent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infoCalls, f.recentCalls
}

func waitEvent(t *testing.T, m *Monitor) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func waitUpdate(t *testing.T, m *Monitor) Update {
	t.Helper()
	for {
		ev := waitEvent(t, m)
		if u, ok := ev.(Update); ok {
			return u
		}
	}
}

func TestStartIsIdempotent(t *testing.T) {
	src := &fakeSource{info: model.AccountInfo{ID: "a1"}}
	m := New(src, Options{})
	defer m.Close()

	if err := m.Start("demo", time.Hour); err != nil {
		t.Fatal(err)
	}
	waitUpdate(t, m) // first tick has fired
	if err := m.Start("demo", time.Hour); err != nil {
		t.Fatal(err)
	}
	info, _ := src.calls()
	if info != 1 {
		t.Fatalf("second Start must not re-resolve, got %d resolutions", info)
	}
	m.Stop()
}

func TestStartResolveFailureStaysIdle(t *testing.T) {
	src := &fakeSource{infoErr: source.ErrNotFound}
	m := New(src, Options{})
	defer m.Close()

	err := m.Start("nobody", time.Hour)
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ev, ok := waitEvent(t, m).(Error); !ok || ev.Op != "start" {
		t.Fatalf("expected a start Error event, got %#v", ev)
	}
	_, recent := src.calls()
	if recent != 0 {
		t.Fatalf("loop must not start after failed resolution, got %d polls", recent)
	}
	m.Stop() // no-op while idle
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	m := New(&fakeSource{}, Options{})
	defer m.Close()
	m.Stop()
	m.Stop()
}

func TestFirstTickCounts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	day := func(h int) time.Time { return time.Date(2026, 3, 10, h, 0, 0, 0, time.Local) }
	src := &fakeSource{info: model.AccountInfo{ID: "a1", TotalPosts: 1000}}
	src.setRecent([]model.Post{
		post("5", day(11)),
		post("4", day(9)),
		post("3", day(8)),
		post("2", day(7).AddDate(0, 0, -1)), // yesterday
		post("1", day(6).AddDate(0, 0, -1)),
	})

	m := New(src, Options{})
	defer m.Close()
	m.now = func() time.Time { return now }

	st := &session{
		accountID:   "a1",
		tracker:     NewTracker(),
		start:       day(10),
		account:     model.AccountInfo{ID: "a1", TotalPosts: 1000},
		lastRefresh: now,
		firstTick:   true,
	}
	m.tick(make(chan struct{}), st)

	u := waitUpdate(t, m)
	if u.TodayCount != 3 {
		t.Fatalf("today count: expected 3, got %d", u.TodayCount)
	}
	if u.SessionCount != 1 {
		t.Fatalf("session count: expected 1, got %d", u.SessionCount)
	}
	if len(u.NewPosts) != 5 {
		t.Fatalf("first poll is the baseline: expected 5 new, got %d", len(u.NewPosts))
	}
	if u.Account == nil || u.Account.TotalPosts != 1000 {
		t.Fatalf("first tick must carry account info, got %#v", u.Account)
	}
	for i := 1; i < len(u.Posts); i++ {
		if u.Posts[i].CreatedAt.After(u.Posts[i-1].CreatedAt) {
			t.Fatalf("snapshot not newest-first at %d", i)
		}
	}
}

func TestDedupAcrossTicks(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	src := &fakeSource{info: model.AccountInfo{ID: "a1"}}
	src.setRecent([]model.Post{post("a", now.Add(-time.Hour)), post("b", now.Add(-2 * time.Hour))})

	m := New(src, Options{})
	defer m.Close()
	m.now = func() time.Time { return now }
	st := &session{accountID: "a1", tracker: NewTracker(), start: now, lastRefresh: now}
	stop := make(chan struct{})

	m.tick(stop, st)
	if u := waitUpdate(t, m); len(u.NewPosts) != 2 {
		t.Fatalf("expected 2 new on first tick, got %d", len(u.NewPosts))
	}

	// One genuinely new post, plus the old ids with updated counters.
	src.setRecent([]model.Post{
		post("c", now.Add(-time.Minute)),
		{ID: "a", CreatedAt: now.Add(-time.Hour), LikeCount: 12},
		{ID: "b", CreatedAt: now.Add(-2 * time.Hour), ReplyCount: 3},
	})
	m.tick(stop, st)
	u := waitUpdate(t, m)
	if len(u.NewPosts) != 1 || u.NewPosts[0].ID != "c" {
		t.Fatalf("expected only c to be new, got %v", u.NewPosts)
	}
}

func TestPollErrorKeepsTicking(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	src := &fakeSource{info: model.AccountInfo{ID: "a1"}}
	src.recentErr = &source.RateLimitError{RetryAfter: time.Minute}
	src.setRecent([]model.Post{post("a", now.Add(-time.Hour))})

	m := New(src, Options{})
	defer m.Close()
	m.now = func() time.Time { return now }
	st := &session{accountID: "a1", tracker: NewTracker(), start: now, lastRefresh: now}
	stop := make(chan struct{})

	m.tick(stop, st)
	if ev, ok := waitEvent(t, m).(Error); !ok || ev.Op != "poll" {
		t.Fatalf("expected a poll Error event, got %#v", ev)
	}

	// The failure did not change state: the next tick works and still
	// reports the post as new.
	m.tick(stop, st)
	if u := waitUpdate(t, m); len(u.NewPosts) != 1 {
		t.Fatalf("expected 1 new post after recovery, got %d", len(u.NewPosts))
	}
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	src := &fakeSource{info: model.AccountInfo{ID: "a1"}}
	src.setRecent([]model.Post{post("a", now)})

	m := New(src, Options{})
	defer m.Close()
	m.now = func() time.Time { return now }
	st := &session{accountID: "a1", tracker: NewTracker(), start: now, lastRefresh: now}

	stop := make(chan struct{})
	close(stop) // stop requested before the fetch result lands
	m.tick(stop, st)

	select {
	case ev := <-m.Events():
		t.Fatalf("expected no event after stop, got %#v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRestartBeginsFreshSession(t *testing.T) {
	now := time.Now()
	src := &fakeSource{info: model.AccountInfo{ID: "a1"}}
	src.setRecent([]model.Post{post("a", now.Add(-time.Hour))})

	m := New(src, Options{})
	defer m.Close()

	if err := m.Start("demo", time.Hour); err != nil {
		t.Fatal(err)
	}
	if u := waitUpdate(t, m); len(u.NewPosts) != 1 {
		t.Fatalf("expected 1 new in first session, got %d", len(u.NewPosts))
	}
	m.Stop()

	// The tracker is cleared only on explicit restart: the same post is
	// new again in the next session.
	if err := m.Start("demo", time.Hour); err != nil {
		t.Fatal(err)
	}
	if u := waitUpdate(t, m); len(u.NewPosts) != 1 {
		t.Fatalf("expected 1 new after restart, got %d", len(u.NewPosts))
	}
	m.Stop()
}
