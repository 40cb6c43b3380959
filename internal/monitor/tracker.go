package monitor

import "postwatch/internal/model"

// Tracker remembers which post ids have been seen during a monitoring
// session. It keys on id only: updated engagement counters on a known id do
// not make a post "new" again. It never shrinks; a fresh session starts with
// a fresh tracker, so posts that predate the session count as new on the
// first poll.
type Tracker struct {
	seen map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Observe records the ids of posts and returns the subset whose id had not
// been seen before, preserving input order.
func (t *Tracker) Observe(posts []model.Post) []model.Post {
	var fresh []model.Post
	for _, p := range posts {
		if _, ok := t.seen[p.ID]; ok {
			continue
		}
		t.seen[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}
	return fresh
}

// Len returns the number of distinct ids observed this session.
func (t *Tracker) Len() int { return len(t.seen) }
