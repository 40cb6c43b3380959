package monitor

import (
	"testing"
	"time"

	"postwatch/internal/model"
)

func post(id string, at time.Time) model.Post {
	return model.Post{ID: id, CreatedAt: at, Kind: model.KindOriginal}
}

func TestTrackerReportsEachIDOnce(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	first := tr.Observe([]model.Post{post("a", now), post("b", now), post("c", now)})
	if len(first) != 3 {
		t.Fatalf("expected 3 new posts, got %d", len(first))
	}

	// Same ids with bumped counters must not be new again.
	again := []model.Post{
		{ID: "a", CreatedAt: now, LikeCount: 99},
		{ID: "b", CreatedAt: now, RetweetCount: 5},
		post("d", now),
	}
	fresh := tr.Observe(again)
	if len(fresh) != 1 || fresh[0].ID != "d" {
		t.Fatalf("expected only d to be new, got %v", fresh)
	}
	if tr.Len() != 4 {
		t.Fatalf("expected 4 tracked ids, got %d", tr.Len())
	}
}

func TestTrackerPreservesInputOrder(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	tr.Observe([]model.Post{post("b", now)})

	fresh := tr.Observe([]model.Post{post("c", now), post("b", now), post("a", now)})
	if len(fresh) != 2 || fresh[0].ID != "c" || fresh[1].ID != "a" {
		t.Fatalf("expected [c a], got %v", fresh)
	}
}
