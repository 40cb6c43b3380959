package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"postwatch/internal/model"
	"postwatch/internal/util"

	"golang.org/x/time/rate"
)

const (
	displayTextLimit = 100
	// Used when a 429 carries no usable Retry-After header.
	defaultRetryAfter = 60 * time.Second
)

// Live is a bearer-token client for the X API v2. It paces itself with a
// client-side limiter but performs no retries: rate limits and transport
// failures are translated into typed errors and handled by the caller.
type Live struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	pageSize    int
}

func NewLive(bearerToken string) *Live {
	return &Live{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		pageSize:    100,
	}
}

// newDefaultLimiter creates a rate limiter using env overrides if present.
func newDefaultLimiter() *rate.Limiter {
	rps := 2.0
	burst := 10
	if v := os.Getenv("X_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if v := os.Getenv("X_API_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (c *Live) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

// do executes one request and classifies the outcome into the source error
// taxonomy. The response is returned only on 2xx.
func (c *Live) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		ra := parseRetryAfter(resp.Header.Get("Retry-After"))
		_ = resp.Body.Close()
		return nil, &RateLimitError{RetryAfter: ra}
	case resp.StatusCode >= 400:
		code := resp.StatusCode
		_ = resp.Body.Close()
		return nil, &TransportError{Op: op, Err: fmt.Errorf("x api status %d", code)}
	}
	return resp, nil
}

func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return defaultRetryAfter
}

func (c *Live) AccountInfo(ctx context.Context, handle string) (model.AccountInfo, error) {
	var out model.AccountInfo
	if handle == "" {
		return out, errors.New("empty handle")
	}
	u := fmt.Sprintf("%s/users/by/username/%s?user.fields=public_metrics,name", c.baseURL, url.PathEscape(handle))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	resp, err := c.do(ctx, "account_info", req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	var raw struct {
		Data struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Username      string `json:"username"`
			PublicMetrics struct {
				FollowersCount int `json:"followers_count"`
				FollowingCount int `json:"following_count"`
				TweetCount     int `json:"tweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, &TransportError{Op: "account_info", Err: err}
	}
	if raw.Data.ID == "" {
		return out, ErrNotFound
	}
	out = model.AccountInfo{
		ID:         raw.Data.ID,
		Handle:     raw.Data.Username,
		Name:       raw.Data.Name,
		Followers:  raw.Data.PublicMetrics.FollowersCount,
		Following:  raw.Data.PublicMetrics.FollowingCount,
		TotalPosts: raw.Data.PublicMetrics.TweetCount,
	}
	return out, nil
}

func (c *Live) RecentPosts(ctx context.Context, accountID string, limit int) ([]model.Post, error) {
	u := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&tweet.fields=created_at,public_metrics,referenced_tweets",
		c.baseURL, url.PathEscape(accountID), clamp(limit, 5, 100))
	posts, _, err := c.fetchTweets(ctx, "recent_posts", u)
	return posts, err
}

func (c *Live) PostsPage(ctx context.Context, accountID, cursor string) ([]model.Post, string, error) {
	u := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&tweet.fields=created_at,public_metrics,referenced_tweets",
		c.baseURL, url.PathEscape(accountID), c.pageSize)
	if cursor != "" {
		u += "&pagination_token=" + url.QueryEscape(cursor)
	}
	return c.fetchTweets(ctx, "posts_page", u)
}

func (c *Live) fetchTweets(ctx context.Context, op, u string) ([]model.Post, string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	resp, err := c.do(ctx, op, req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	var raw struct {
		Data []struct {
			ID            string    `json:"id"`
			Text          string    `json:"text"`
			CreatedAt     time.Time `json:"created_at"`
			PublicMetrics struct {
				LikeCount    int `json:"like_count"`
				ReplyCount   int `json:"reply_count"`
				RetweetCount int `json:"retweet_count"`
			} `json:"public_metrics"`
			ReferencedTweets []struct {
				Type string `json:"type"`
			} `json:"referenced_tweets"`
		} `json:"data"`
		Meta struct {
			NextToken string `json:"next_token"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, "", &TransportError{Op: op, Err: err}
	}
	out := make([]model.Post, 0, len(raw.Data))
	for _, d := range raw.Data {
		kind := model.KindOriginal
		for _, ref := range d.ReferencedTweets {
			if ref.Type == "replied_to" {
				kind = model.KindReply
				break
			}
			if ref.Type == "retweeted" {
				kind = model.KindRepost
				break
			}
		}
		out = append(out, model.Post{
			ID:           d.ID,
			Text:         util.Truncate(d.Text, displayTextLimit),
			CreatedAt:    d.CreatedAt,
			Kind:         kind,
			LikeCount:    d.PublicMetrics.LikeCount,
			ReplyCount:   d.PublicMetrics.ReplyCount,
			RetweetCount: d.PublicMetrics.RetweetCount,
		})
	}
	return out, raw.Meta.NextToken, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
