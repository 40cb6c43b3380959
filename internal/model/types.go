package model

import "time"

// PostKind classifies how a post was authored.
type PostKind string

const (
	KindOriginal PostKind = "original"
	KindReply    PostKind = "reply"
	KindRepost   PostKind = "repost"
)

// Post represents a single observed post. The id is the identity: two
// fetches may return the same id with updated engagement counters.
type Post struct {
	ID           string
	Text         string
	CreatedAt    time.Time
	Kind         PostKind
	RetweetCount int
	LikeCount    int
	ReplyCount   int
}

// AccountInfo is a point-in-time snapshot of the monitored account.
type AccountInfo struct {
	ID         string
	Handle     string
	Name       string
	Followers  int
	Following  int
	TotalPosts int
}
