package monitor

import (
	"time"

	"postwatch/internal/model"
)

// Event is delivered to the presentation layer through the engine's event
// channel. Poll loop events and range counter events are independent
// streams; ordering is guaranteed only within each stream.
type Event interface {
	isEvent()
}

// Update is emitted once per poll tick.
type Update struct {
	Timestamp    time.Time
	Posts        []model.Post // full recent snapshot, newest first
	NewPosts     []model.Post // subset not seen before this session
	TodayCount   int          // posts created since local midnight
	SessionCount int          // posts created since monitoring started
	// Account is set on ticks that refreshed account info.
	Account *model.AccountInfo
}

// RangeResult is the single terminal event of a range count.
type RangeResult struct {
	Start time.Time
	End   time.Time
	Count int
}

// Error reports a failure from either background task. Failures never
// terminate the poll loop; the range counter aborts on all but rate limits.
type Error struct {
	Op      string
	Message string
}

func (Update) isEvent()      {}
func (RangeResult) isEvent() {}
func (Error) isEvent()       {}
