package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
	"unicode"

	"postwatch/internal/config"
	"postwatch/internal/model"
)

var demoTexts = []string{
	"Just shipped a new feature! The team worked incredibly hard on this.",
	"Thinking about the future of technology and where we're headed...",
	"Great meeting with the team today. Exciting things coming soon!",
	"Working late tonight. Building something special.",
	"The response to our latest update has been amazing. Thank you all!",
	"New announcement coming tomorrow. Stay tuned!",
	"Reading some interesting papers on AI today.",
	"Coffee and code - the perfect combination.",
	"Replying to some questions from the community.",
	"Just hit a major milestone. More details soon!",
}

// Simulated generates a deterministic posting history without any network.
// Posts occupy slots spaced roughly one cadence apart with seeded jitter, so
// the same seed and clock always produce the same posts, new slots appear as
// the clock advances, and the bounded history guarantees range queries
// terminate. It never fails.
type Simulated struct {
	seed       int64
	historyLen int
	cadence    time.Duration
	pageSize   int
	now        func() time.Time
}

func NewSimulated(cfg config.SimulationConfig) *Simulated {
	historyLen := cfg.HistoryLength
	if historyLen <= 0 {
		historyLen = 480
	}
	cadence := time.Duration(cfg.CadenceMinutes) * time.Minute
	if cadence <= 0 {
		cadence = 40 * time.Minute
	}
	return &Simulated{
		seed:       cfg.Seed,
		historyLen: historyLen,
		cadence:    cadence,
		pageSize:   100,
		now:        time.Now,
	}
}

func (s *Simulated) hash(slot int64, salt string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d:%s", s.seed, slot, salt)
	return h.Sum64()
}

// postTime places slot i at i*cadence plus seeded sub-cadence jitter.
// Jitter stays below one cadence, so times are strictly increasing in i.
func (s *Simulated) postTime(slot int64) time.Time {
	cadenceSec := int64(s.cadence / time.Second)
	jitter := int64(s.hash(slot, "jitter") % uint64(cadenceSec))
	return time.Unix(slot*cadenceSec+jitter, 0)
}

// newestSlot returns the most recent slot whose post time is not after now.
func (s *Simulated) newestSlot(now time.Time) int64 {
	slot := now.Unix() / int64(s.cadence/time.Second)
	for s.postTime(slot).After(now) {
		slot--
	}
	return slot
}

func (s *Simulated) oldestSlot(now time.Time) int64 {
	return s.newestSlot(now) - int64(s.historyLen) + 1
}

func (s *Simulated) post(slot int64) model.Post {
	h := s.hash(slot, "metrics")
	kind := model.KindOriginal
	switch {
	case slot%7 == 3:
		kind = model.KindReply
	case slot%11 == 5:
		kind = model.KindRepost
	}
	return model.Post{
		ID:           fmt.Sprintf("sim-%012d", slot),
		Text:         demoTexts[int(uint64(slot)%uint64(len(demoTexts)))],
		CreatedAt:    s.postTime(slot),
		Kind:         kind,
		RetweetCount: int(h % 10_000),
		LikeCount:    int(h >> 16 % 50_000),
		ReplyCount:   int(h >> 32 % 5_000),
	}
}

func (s *Simulated) AccountInfo(_ context.Context, handle string) (model.AccountInfo, error) {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", s.seed, handle)
	v := h.Sum64()
	return model.AccountInfo{
		ID:         "100000000001",
		Handle:     handle,
		Name:       capitalize(handle),
		Followers:  10_000 + int(v%990_000),
		Following:  100 + int(v>>24%4_900),
		TotalPosts: s.historyLen,
	}, nil
}

func (s *Simulated) RecentPosts(_ context.Context, _ string, limit int) ([]model.Post, error) {
	now := s.now()
	newest := s.newestSlot(now)
	oldest := s.oldestSlot(now)
	out := make([]model.Post, 0, limit)
	for slot := newest; slot >= oldest && len(out) < limit; slot-- {
		out = append(out, s.post(slot))
	}
	return out, nil
}

func (s *Simulated) PostsPage(_ context.Context, _ string, cursor string) ([]model.Post, string, error) {
	now := s.now()
	start := s.newestSlot(now)
	oldest := s.oldestSlot(now)
	if cursor != "" {
		v, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("bad cursor %q", cursor)
		}
		start = v
	}
	if start < oldest {
		return nil, "", nil
	}
	out := make([]model.Post, 0, s.pageSize)
	slot := start
	for ; slot >= oldest && len(out) < s.pageSize; slot-- {
		out = append(out, s.post(slot))
	}
	next := ""
	if slot >= oldest {
		next = strconv.FormatInt(slot, 10)
	}
	return out, next, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
