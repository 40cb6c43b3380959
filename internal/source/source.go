// Package source abstracts over where post data comes from: the live X API
// or a deterministic simulation. Each call is independent; implementations
// hold no mutable state observable by callers.
package source

import (
	"context"

	"postwatch/internal/config"
	"postwatch/internal/model"
)

// Source is the capability interface consumed by the monitoring engine.
type Source interface {
	// AccountInfo resolves a handle to a point-in-time account snapshot.
	AccountInfo(ctx context.Context, handle string) (model.AccountInfo, error)

	// RecentPosts returns up to limit posts, newest first. An empty result
	// is a valid success.
	RecentPosts(ctx context.Context, accountID string, limit int) ([]model.Post, error)

	// PostsPage returns one newest-first page of the account's history and
	// the cursor for the next (older) page. An empty cursor starts at the
	// newest page; an empty returned cursor means the history is exhausted.
	PostsPage(ctx context.Context, accountID, cursor string) ([]model.Post, string, error)
}

// FromConfig selects the source variant once, before engine construction:
// a present bearer token means live, absence forces the simulation.
func FromConfig(cfg config.Config) Source {
	if cfg.Credentials.BearerToken != "" {
		return NewLive(cfg.Credentials.BearerToken)
	}
	return NewSimulated(cfg.Simulation)
}
