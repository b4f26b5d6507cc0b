package moviepilot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client interacts with MoviePilot's v1 API using a bearer token obtained
// from the configured credentials.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        *slog.Logger

	mu    sync.Mutex
	token string
}

// NewClient creates a new MoviePilot client.
func NewClient(baseURL, username, password string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		log:      log.With("component", "moviepilot"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	form := url.Values{"username": {c.username}, "password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/login/access-token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("login failed", "error", err)
		return "", ErrUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: unexpected status: %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrUnauthorized
	}
	c.token = tok.AccessToken
	return c.token, nil
}

func (c *Client) resetToken(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == stale {
		c.token = ""
	}
}

// doRequest sends a JSON request, logging in first and once more if the
// token has expired. A nil result discards the body.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		token, err := c.login(ctx)
		if err != nil {
			return err
		}

		reqURL := c.baseURL + path
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Debug("api request failed", "path", path, "error", err)
			return ErrUnavailable
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.resetToken(token)
			if attempt == 0 {
				continue
			}
			return ErrUnauthorized
		}
		if resp.StatusCode != http.StatusOK {
			c.log.Debug("api unexpected status", "path", path, "status", resp.StatusCode)
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		if result != nil && len(data) > 0 {
			if err := json.Unmarshal(data, result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		c.log.Debug("api request complete", "path", path, "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
}

func checked(resp apiResponse, what string) error {
	if !resp.Success {
		return fmt.Errorf("%w: %s: %s", ErrRejected, what, resp.Message)
	}
	return nil
}

// FindSubscription returns the subscription for a series season, or nil when
// none exists.
func (c *Client) FindSubscription(ctx context.Context, tmdbID int64, season int) (*Subscription, error) {
	var sub Subscription
	path := "/api/v1/subscribe/media/tmdb:" + strconv.FormatInt(tmdbID, 10)
	params := url.Values{"season": {strconv.Itoa(season)}}
	if err := c.doRequest(ctx, http.MethodGet, path, params, nil, &sub); err != nil {
		return nil, fmt.Errorf("find subscription %d S%02d: %w", tmdbID, season, err)
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

// Subscribe creates a season subscription and returns its id.
func (c *Client) Subscribe(ctx context.Context, r SubscribeRequest) (int, error) {
	sub := Subscription{
		Name:         r.Name,
		Type:         mediaTypeTV,
		TMDBID:       r.TMDBID,
		Season:       r.Season,
		State:        r.State,
		TotalEpisode: r.TotalEpisode,
	}
	if r.Upgrade {
		sub.BestVersion = 1
	}

	var resp apiResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/subscribe/", nil, sub, &resp); err != nil {
		return 0, fmt.Errorf("subscribe %d S%02d: %w", r.TMDBID, r.Season, err)
	}
	if err := checked(resp, "subscribe"); err != nil {
		return 0, err
	}
	c.log.Info("subscribed", "tmdb_id", r.TMDBID, "season", r.Season, "state", r.State, "upgrade", r.Upgrade)
	return resp.Data.ID, nil
}

// UpdateSubscription sets a subscription's state and, when total is
// positive, overrides its total episode count.
func (c *Client) UpdateSubscription(ctx context.Context, sub *Subscription, state State, total int) error {
	updated := *sub
	updated.State = state
	if total > 0 {
		updated.TotalEpisode = total
	}

	var resp apiResponse
	if err := c.doRequest(ctx, http.MethodPut, "/api/v1/subscribe/", nil, updated, &resp); err != nil {
		return fmt.Errorf("update subscription %d: %w", sub.ID, err)
	}
	if err := checked(resp, "update subscription"); err != nil {
		return err
	}
	*sub = updated
	return nil
}

// CancelSubscription deletes a subscription.
func (c *Client) CancelSubscription(ctx context.Context, id int) error {
	var resp apiResponse
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/subscribe/"+strconv.Itoa(id), nil, nil, &resp); err != nil {
		return fmt.Errorf("cancel subscription %d: %w", id, err)
	}
	return checked(resp, "cancel subscription")
}

// TransferHistory returns transfer records whose title matches.
func (c *Client) TransferHistory(ctx context.Context, title string) ([]TransferRecord, error) {
	params := url.Values{"title": {title}, "page": {"1"}, "count": {"500"}}
	var page historyPage
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/history/transfer", params, nil, &page); err != nil {
		return nil, fmt.Errorf("transfer history %q: %w", title, err)
	}
	return page.Data.List, nil
}

// DeleteTransferHistory removes a transfer record, leaving files in place.
func (c *Client) DeleteTransferHistory(ctx context.Context, rec TransferRecord) error {
	params := url.Values{"deletesrc": {"false"}, "deletedest": {"false"}}
	var resp apiResponse
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/history/transfer", params, rec, &resp); err != nil {
		return fmt.Errorf("delete transfer history %d: %w", rec.ID, err)
	}
	return checked(resp, "delete transfer history")
}

// DeleteDownloadTask removes a download task by torrent hash.
func (c *Client) DeleteDownloadTask(ctx context.Context, hash string) error {
	var resp apiResponse
	err := c.doRequest(ctx, http.MethodDelete, "/api/v1/download/"+url.PathEscape(hash), nil, nil, &resp)
	if err != nil {
		return fmt.Errorf("delete download %s: %w", hash, err)
	}
	return checked(resp, "delete download")
}
