package monitor

import (
	"errors"
	"time"

	"postwatch/internal/logging"
	"postwatch/internal/metrics"
	"postwatch/internal/source"
)

// RequestRangeCount counts posts with created_at in [start, end], paging
// backward through the account's history in a background task. The result
// arrives as a single RangeResult event. Invalid input is rejected
// synchronously; at most one count runs per engine, a second request is
// refused with ErrRangeBusy rather than interleaved.
func (m *Monitor) RequestRangeCount(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidRange
	}
	m.mu.Lock()
	accountID := m.accountID
	m.mu.Unlock()
	if accountID == "" {
		return ErrNotResolved
	}
	if !m.rangeBusy.CompareAndSwap(false, true) {
		return ErrRangeBusy
	}
	metrics.RangeRequests.Inc()
	logging.Info("range_count_start", map[string]any{"start": start, "end": end})
	go m.runRangeCount(accountID, start, end)
	return nil
}

func (m *Monitor) runRangeCount(accountID string, start, end time.Time) {
	defer m.rangeBusy.Store(false)

	count := 0
	cursor := ""
	for {
		posts, next, err := m.src.PostsPage(m.base, accountID, cursor)
		var rl *source.RateLimitError
		if errors.As(err, &rl) {
			// The only retried failure: suspend for retry_after, then
			// re-fetch the same page. Nothing else in the engine waits.
			metrics.RangeRateLimitWaits.Inc()
			logging.Warn("range_count_rate_limited", map[string]any{"retry_after": rl.RetryAfter.String()})
			select {
			case <-time.After(rl.RetryAfter):
			case <-m.base.Done():
				return
			}
			continue
		}
		if err != nil {
			// No partial count on failure. The slot frees before the event
			// lands so a receiver can immediately request another count.
			logging.Error("range_count_error", map[string]any{"error": err.Error()})
			m.rangeBusy.Store(false)
			m.emit(nil, Error{Op: "range", Message: err.Error()})
			return
		}
		metrics.RangePages.Inc()

		for _, p := range posts {
			if !p.CreatedAt.Before(start) && !p.CreatedAt.After(end) {
				count++
			}
		}
		// Pages are newest first: once the oldest post on a page predates
		// the range, no older page can contain in-range posts.
		if len(posts) > 0 && posts[len(posts)-1].CreatedAt.Before(start) {
			break
		}
		if next == "" {
			break
		}
		cursor = next
	}

	logging.Info("range_count_done", map[string]any{"count": count})
	m.rangeBusy.Store(false)
	m.emit(nil, RangeResult{Start: start, End: end, Count: count})
}
