// Package monitor implements the activity-monitoring engine: a poll loop
// with session-scoped deduplication, an on-demand range counter, and the
// event channel both feed.
package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"postwatch/internal/archive"
	"postwatch/internal/logging"
	"postwatch/internal/metrics"
	"postwatch/internal/model"
	"postwatch/internal/source"
)

// MinInterval is the enforced floor for the poll interval.
const MinInterval = 5 * time.Second

var (
	// ErrInvalidRange rejects range requests with start >= end.
	ErrInvalidRange = errors.New("invalid range: start must precede end")
	// ErrRangeBusy rejects a range request while one is already in flight.
	ErrRangeBusy = errors.New("range count already in flight")
	// ErrNotResolved means no account has been resolved yet.
	ErrNotResolved = errors.New("no account resolved; call Start or Resolve first")
)

// Options tune the engine. The zero value is usable.
type Options struct {
	// RecentLimit is how many posts each poll fetches (default 10).
	RecentLimit int
	// AccountRefreshEvery is how often account info is re-fetched while
	// polling (default 5 minutes). The first tick always carries it.
	AccountRefreshEvery time.Duration
	// Archive, when set, receives every new post observed by the poll loop.
	Archive *archive.DB
	// EventBuffer is the event channel capacity (default 256).
	EventBuffer int
}

// Monitor owns the poll loop and range counter for one account. The dedup
// tracker and session window belong to the loop goroutine alone; the only
// shared structures are the event channel and the resolved account id.
type Monitor struct {
	src    source.Source
	events chan Event

	mu        sync.Mutex
	running   bool
	stop      chan struct{}
	loopDone  chan struct{}
	handle    string
	accountID string

	rangeBusy atomic.Bool

	base   context.Context
	cancel context.CancelFunc

	recentLimit         int
	accountRefreshEvery time.Duration
	arc                 *archive.DB
	now                 func() time.Time
}

func New(src source.Source, opts Options) *Monitor {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 10
	}
	if opts.AccountRefreshEvery <= 0 {
		opts.AccountRefreshEvery = 5 * time.Minute
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	base, cancel := context.WithCancel(context.Background())
	return &Monitor{
		src:                 src,
		events:              make(chan Event, opts.EventBuffer),
		base:                base,
		cancel:              cancel,
		recentLimit:         opts.RecentLimit,
		accountRefreshEvery: opts.AccountRefreshEvery,
		arc:                 opts.Archive,
		now:                 time.Now,
	}
}

// Events returns the channel the presentation layer drains. It is never
// closed; consumers stop reading when they are done.
func (m *Monitor) Events() <-chan Event { return m.events }

// AccountID returns the most recently resolved account id, or "".
func (m *Monitor) AccountID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accountID
}

// Resolve resolves handle to an account id without starting the poll loop.
// Used for one-shot range counts.
func (m *Monitor) Resolve(ctx context.Context, handle string) error {
	info, err := m.src.AccountInfo(ctx, handle)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.handle = handle
	m.accountID = info.ID
	m.mu.Unlock()
	return nil
}

// Start resolves handle and launches the poll loop. Calling Start while the
// loop is running is a no-op. A failed resolution leaves the engine idle:
// the error is both returned and emitted as an Error event.
func (m *Monitor) Start(handle string, interval time.Duration) error {
	if interval < MinInterval {
		interval = MinInterval
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		logging.Info("monitor_start_noop", map[string]any{"handle": handle})
		return nil
	}
	m.mu.Unlock()

	info, err := m.src.AccountInfo(m.base, handle)
	if err != nil {
		m.emit(nil, Error{Op: "start", Message: "resolve " + handle + ": " + err.Error()})
		return err
	}

	m.mu.Lock()
	if m.running { // lost a race with a concurrent Start
		m.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	m.running = true
	m.stop = stop
	m.loopDone = done
	m.handle = handle
	m.accountID = info.ID
	m.mu.Unlock()

	st := &session{
		accountID:   info.ID,
		tracker:     NewTracker(),
		start:       m.now(),
		account:     info,
		lastRefresh: m.now(),
	}
	logging.Info("monitor_start", map[string]any{"handle": handle, "account_id": info.ID, "interval": interval.String()})
	go m.loop(stop, done, interval, st)
	return nil
}

// Stop halts the poll loop at the next tick boundary and waits for it to
// exit. An in-flight fetch completes and its result is discarded. Calling
// Stop while idle is a no-op. A stopped monitor may be started again; the
// new session begins with an empty dedup tracker.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop := m.stop
	done := m.loopDone
	m.mu.Unlock()

	close(stop)
	<-done
	logging.Info("monitor_stop", nil)
}

// Close releases the engine: stops the loop and cancels any range count.
func (m *Monitor) Close() {
	m.Stop()
	m.cancel()
}

// session is the poll loop's private state. No other goroutine touches it.
type session struct {
	accountID   string
	tracker     *Tracker
	start       time.Time
	account     model.AccountInfo
	lastRefresh time.Time
	firstTick   bool
}

func (m *Monitor) loop(stop, done chan struct{}, interval time.Duration, st *session) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()

	st.firstTick = true
	m.tick(stop, st)
	st.firstTick = false
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			select {
			case <-stop:
				return
			default:
			}
			m.tick(stop, st)
		}
	}
}

func (m *Monitor) tick(stop chan struct{}, st *session) {
	started := m.now()
	metrics.PollTicks.Inc()

	posts, err := m.src.RecentPosts(m.base, st.accountID, m.recentLimit)
	if err != nil {
		// Transient-failure tolerance: surface it, keep ticking.
		metrics.PollErrors.Inc()
		logging.Error("poll_tick_error", map[string]any{"error": err.Error()})
		m.emit(stop, Error{Op: "poll", Message: err.Error()})
		return
	}
	if stopped(stop) {
		return
	}

	sortNewestFirst(posts)
	fresh := st.tracker.Observe(posts)
	if len(fresh) > 0 {
		metrics.NewPosts.Add(float64(len(fresh)))
	}

	now := m.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, thisSession := 0, 0
	for _, p := range posts {
		if !p.CreatedAt.Before(todayStart) {
			today++
		}
		if !p.CreatedAt.Before(st.start) {
			thisSession++
		}
	}

	var account *model.AccountInfo
	if st.firstTick {
		info := st.account
		account = &info
	} else if now.Sub(st.lastRefresh) >= m.accountRefreshEvery {
		info, err := m.src.AccountInfo(m.base, st.accountID)
		if err != nil {
			m.emit(stop, Error{Op: "account_refresh", Message: err.Error()})
		} else {
			st.account = info
			st.lastRefresh = now
			account = &info
		}
	}

	if m.arc != nil && len(fresh) > 0 {
		if err := m.arc.RecordPosts(m.base, st.accountID, fresh); err != nil {
			logging.Warn("archive_record_error", map[string]any{"error": err.Error()})
		}
	}

	m.emit(stop, Update{
		Timestamp:    now,
		Posts:        posts,
		NewPosts:     fresh,
		TodayCount:   today,
		SessionCount: thisSession,
		Account:      account,
	})
	metrics.ObservePollDuration(started)
}

// emit delivers an event without ever wedging a producer: delivery gives up
// when the producing task stops or the engine closes.
func (m *Monitor) emit(stop chan struct{}, ev Event) {
	if stop == nil {
		select {
		case m.events <- ev:
		case <-m.base.Done():
		}
		return
	}
	select {
	case m.events <- ev:
	case <-stop:
	case <-m.base.Done():
	}
}

func stopped(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// sortNewestFirst orders posts by created_at descending, ties broken by id
// descending so ordering stays deterministic.
func sortNewestFirst(posts []model.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
