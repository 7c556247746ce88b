// Package twitterapi implements source.TwitterSource against the Twitter
// API v2 with app-only bearer authentication.
package twitterapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aytch4k/socialz/internal/model"
	"github.com/aytch4k/socialz/internal/source"
)

const defaultBaseURL = "https://api.twitter.com/2"

// The tweets endpoints accept 5..100 results per page.
const (
	minPageSize = 5
	maxPageSize = 100
)

// RateObserver receives the rate-limit headers carried by successful
// responses.
type RateObserver interface {
	Observe(resetAt time.Time, remaining int)
}

// Client talks to the Twitter API v2.
type Client struct {
	http *resty.Client
	obs  RateObserver
}

// New creates a Client authenticated with the given bearer token. A non-nil
// observer is fed the rate-limit state of every successful response.
func New(bearerToken string, obs RateObserver) (*Client, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("twitter bearer token is required")
	}
	c := resty.New().
		SetBaseURL(defaultBaseURL).
		SetAuthToken(bearerToken).
		SetHeader("User-Agent", "socialz/1.0")
	return &Client{http: c, obs: obs}, nil
}

// HTTPClient exposes the underlying HTTP client for test interception.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

type userPayload struct {
	Data *struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		Name          string `json:"name"`
		PublicMetrics struct {
			FollowersCount int `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// ResolveUser looks an account up by username.
func (c *Client) ResolveUser(ctx context.Context, username string) (*source.TwitterUser, error) {
	var payload userPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user.fields", "public_metrics").
		SetResult(&payload).
		Get("/users/by/username/" + username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := c.checkStatus(resp, "user "+username); err != nil {
		return nil, err
	}
	// The API reports unknown usernames as 200 with an empty data object.
	if payload.Data == nil {
		return nil, fmt.Errorf("user %s: %w", username, source.ErrNotFound)
	}
	return &source.TwitterUser{
		ID:        payload.Data.ID,
		Username:  payload.Data.Username,
		Name:      payload.Data.Name,
		Followers: payload.Data.PublicMetrics.FollowersCount,
	}, nil
}

type tweetPayload struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			RetweetCount    int `json:"retweet_count"`
			ReplyCount      int `json:"reply_count"`
			LikeCount       int `json:"like_count"`
			QuoteCount      int `json:"quote_count"`
			ImpressionCount int `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// RecentTweets fetches the account's most recent tweets, newest first.
func (c *Client) RecentTweets(ctx context.Context, userID string, limit int) ([]model.Tweet, error) {
	var payload tweetPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("max_results", strconv.Itoa(clampPageSize(limit))).
		SetQueryParam("tweet.fields", "public_metrics,created_at").
		SetResult(&payload).
		Get("/users/" + userID + "/tweets")
	if err != nil {
		return nil, fmt.Errorf("get tweets: %w", err)
	}
	if err := c.checkStatus(resp, "tweets of "+userID); err != nil {
		return nil, err
	}

	tweets := make([]model.Tweet, 0, len(payload.Data))
	for _, t := range payload.Data {
		tweets = append(tweets, model.Tweet{
			TweetID:     t.ID,
			Content:     t.Text,
			CreatedAt:   t.CreatedAt.UTC(),
			Likes:       t.PublicMetrics.LikeCount,
			Retweets:    t.PublicMetrics.RetweetCount,
			Replies:     t.PublicMetrics.ReplyCount,
			Quotes:      t.PublicMetrics.QuoteCount,
			Impressions: t.PublicMetrics.ImpressionCount,
		})
	}
	return tweets, nil
}

type searchPayload struct {
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

// SearchRecent returns the number of recent tweets matching the query,
// capped at limit results.
func (c *Client) SearchRecent(ctx context.Context, query string, limit int) (int, error) {
	var payload searchPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetQueryParam("max_results", strconv.Itoa(clampPageSize(limit))).
		SetResult(&payload).
		Get("/tweets/search/recent")
	if err != nil {
		return 0, fmt.Errorf("search tweets: %w", err)
	}
	if err := c.checkStatus(resp, "search"); err != nil {
		return 0, err
	}
	return payload.Meta.ResultCount, nil
}

func clampPageSize(limit int) int {
	switch {
	case limit < minPageSize:
		return minPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}

// checkStatus maps Twitter error responses to the source error taxonomy and
// feeds rate-limit headers to the observer.
func (c *Client) checkStatus(resp *resty.Response, resource string) error {
	resetAt := resetTime(resp)
	switch resp.StatusCode() {
	case http.StatusOK:
		if c.obs != nil {
			c.obs.Observe(resetAt, remaining(resp))
		}
		return nil
	case http.StatusForbidden:
		return &source.AccessDeniedError{Resource: resource}
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", resource, source.ErrNotFound)
	case http.StatusTooManyRequests:
		return &source.ThrottledError{ResetAt: resetAt}
	default:
		return fmt.Errorf("%s: unexpected status %d", resource, resp.StatusCode())
	}
}

// resetTime reads the x-rate-limit-reset header (unix seconds).
func resetTime(resp *resty.Response) time.Time {
	v := resp.Header().Get("X-Rate-Limit-Reset")
	if v == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// remaining reads the x-rate-limit-remaining header, -1 if absent.
func remaining(resp *resty.Response) int {
	v := resp.Header().Get("X-Rate-Limit-Remaining")
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
