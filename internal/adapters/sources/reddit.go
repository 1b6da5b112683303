package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fragdrop/fragwatch/internal/domain/model"
)

// RedditClient reads a subreddit's newest posts through the public JSON
// listing endpoint. Token-based API access is deliberately out of scope.
type RedditClient struct {
	baseURL   string
	subreddit string
	userAgent string
	client    *http.Client
	backoff   Backoff
}

// RedditOption applies a configuration option to the RedditClient.
type RedditOption func(*RedditClient)

// WithRedditHTTPClient overrides the HTTP client, for tests.
func WithRedditHTTPClient(c *http.Client) RedditOption {
	return func(r *RedditClient) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRedditBackoff overrides the retry tuning.
func WithRedditBackoff(b Backoff) RedditOption {
	return func(r *RedditClient) { r.backoff = b }
}

// NewRedditClient creates a listing client for one subreddit.
func NewRedditClient(baseURL, subreddit, userAgent string, opts ...RedditOption) *RedditClient {
	r := &RedditClient{
		baseURL:   baseURL,
		subreddit: subreddit,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
		backoff:   DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// listing mirrors the subset of the listing payload the monitor needs.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string  `json:"id"`
				Title     string  `json:"title"`
				Selftext  string  `json:"selftext"`
				Author    string  `json:"author"`
				Flair     string  `json:"link_flair_text"`
				Permalink string  `json:"permalink"`
				Created   float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RecentPosts fetches up to limit posts from the subreddit's new listing.
func (r *RedditClient) RecentPosts(ctx context.Context, limit int) ([]model.SocialPost, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new.json?limit=%s",
		r.baseURL, url.PathEscape(r.subreddit), strconv.Itoa(limit))

	var body listing
	err := r.backoff.Do(ctx, func() error {
		return r.getJSON(ctx, endpoint, &body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchPosts, err)
	}

	posts := make([]model.SocialPost, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		d := child.Data
		if d.ID == "" {
			continue
		}
		posts = append(posts, model.SocialPost{
			ID:        d.ID,
			Title:     d.Title,
			Body:      d.Selftext,
			Author:    d.Author,
			Flair:     d.Flair,
			URL:       r.baseURL + d.Permalink,
			CreatedAt: time.Unix(int64(d.Created), 0).UTC(),
		})
	}
	return posts, nil
}

func (r *RedditClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}
	return nil
}
