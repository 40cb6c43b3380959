package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"postwatch/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func archivedPost(id string, at time.Time, kind model.PostKind) model.Post {
	return model.Post{ID: id, CreatedAt: at, Kind: kind, Text: "post " + id}
}

func TestRecordPostsIgnoresKnownIDs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)

	posts := []model.Post{
		archivedPost("1", at, model.KindOriginal),
		archivedPost("2", at.Add(time.Hour), model.KindReply),
	}
	if err := db.RecordPosts(ctx, "a1", posts); err != nil {
		t.Fatal(err)
	}

	// Re-recording the same ids with changed counters is a no-op.
	posts[0].LikeCount = 99
	if err := db.RecordPosts(ctx, "a1", posts); err != nil {
		t.Fatal(err)
	}
	got, err := db.PostsBetween(ctx, "a1", at.Add(-time.Hour), at.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 archived posts, got %d", len(got))
	}
	if got[0].LikeCount != 0 {
		t.Fatalf("re-record must not update, got likes %d", got[0].LikeCount)
	}
}

func TestCountRangeInclusive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)

	var posts []model.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, archivedPost(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour), model.KindOriginal))
	}
	if err := db.RecordPosts(ctx, "a1", posts); err != nil {
		t.Fatal(err)
	}

	// Bounds land exactly on post times; both ends are included.
	n, err := db.CountRange(ctx, "a1", base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}

	// Another account's posts do not leak into the count.
	if n, _ := db.CountRange(ctx, "other", base, base.Add(5*time.Hour)); n != 0 {
		t.Fatalf("expected 0 for other account, got %d", n)
	}
}

func TestPostsBetweenOldestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)

	// Inserted newest first, read back oldest first.
	posts := []model.Post{
		archivedPost("3", base.Add(2*time.Hour), model.KindRepost),
		archivedPost("2", base.Add(time.Hour), model.KindReply),
		archivedPost("1", base, model.KindOriginal),
	}
	if err := db.RecordPosts(ctx, "a1", posts); err != nil {
		t.Fatal(err)
	}
	got, err := db.PostsBetween(ctx, "a1", base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "1" || got[2].ID != "3" {
		t.Fatalf("expected oldest-first [1 2 3], got %v", got)
	}
	if got[1].Kind != model.KindReply {
		t.Fatalf("kind not restored, got %q", got[1].Kind)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if v, err := db.LoadCursor(ctx, "missing"); err != nil || v != "" {
		t.Fatalf("missing cursor: expected empty, got %q err %v", v, err)
	}
	if err := db.SaveCursor(ctx, "watch:last_account_id", "42"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCursor(ctx, "watch:last_account_id", "43"); err != nil {
		t.Fatal(err)
	}
	v, err := db.LoadCursor(ctx, "watch:last_account_id")
	if err != nil {
		t.Fatal(err)
	}
	if v != "43" {
		t.Fatalf("expected the updated value, got %q", v)
	}
}
