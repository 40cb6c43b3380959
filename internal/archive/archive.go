// Package archive persists observed posts in SQLite so day-level activity
// stats survive a restart. The engine itself keeps no history across runs;
// the archive is an optional sink fed by the poll loop.
package archive

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"postwatch/internal/model"
)

// DB wraps the SQLite post archive.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS posts (
	  id TEXT PRIMARY KEY,
	  account_id TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  kind TEXT NOT NULL,
	  text TEXT,
	  retweet_count INTEGER NOT NULL DEFAULT 0,
	  like_count INTEGER NOT NULL DEFAULT 0,
	  reply_count INTEGER NOT NULL DEFAULT 0,
	  observed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_account_created ON posts(account_id, created_at);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// RecordPosts stores posts, ignoring ids already archived. Re-observing a
// known id is a no-op, matching the dedup tracker's id-only identity.
func (d *DB) RecordPosts(ctx context.Context, accountID string, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, p := range posts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO posts(id, account_id, created_at, kind, text, retweet_count, like_count, reply_count, observed_at)
			 VALUES(?,?,?,?,?,?,?,?,?)`,
			p.ID, accountID, p.CreatedAt.Unix(), string(p.Kind), p.Text, p.RetweetCount, p.LikeCount, p.ReplyCount, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CountRange returns how many archived posts fall in [start, end].
func (d *DB) CountRange(ctx context.Context, accountID string, start, end time.Time) (int, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE account_id=? AND created_at>=? AND created_at<=?`,
		accountID, start.Unix(), end.Unix())
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// PostsBetween returns archived posts in [start, end], oldest first.
func (d *DB) PostsBetween(ctx context.Context, accountID string, start, end time.Time) ([]model.Post, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, created_at, kind, text, retweet_count, like_count, reply_count
		 FROM posts WHERE account_id=? AND created_at>=? AND created_at<=? ORDER BY created_at, id`,
		accountID, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		var p model.Post
		var created int64
		var kind string
		if err := rows.Scan(&p.ID, &created, &kind, &p.Text, &p.RetweetCount, &p.LikeCount, &p.ReplyCount); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(created, 0)
		p.Kind = model.PostKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveCursor stores a named session cursor.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value)
	return err
}

// LoadCursor returns the stored value for key, or "" when absent.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return v, nil
}
