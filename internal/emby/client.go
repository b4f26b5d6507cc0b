package emby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const defaultPageSize = 500

// Sentinel errors for Emby API responses.
var (
	ErrNotFound     = errors.New("emby: not found")
	ErrUnauthorized = errors.New("emby: unauthorized")
	ErrUnavailable  = errors.New("emby: server unavailable")
)

// Client talks to the Emby REST API on behalf of one user.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	pageSize   int
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize sets the page size used for listings.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "emby")
	}
}

// NewClient creates a new Emby client.
func NewClient(baseURL, apiKey, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		userID:   userID,
		pageSize: defaultPageSize,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: slog.Default().With("component", "emby"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "emby",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing item is an answer, not a server failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// do executes one request through the circuit breaker and returns the body.
func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		u := c.baseURL + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, u, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Emby-Token", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return nil, ErrUnauthorized
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return body, err
}

func (c *Client) getItems(ctx context.Context, params url.Values) (*itemsResponse, error) {
	body, err := c.do(ctx, http.MethodGet, "/Users/"+c.userID+"/Items", params)
	if err != nil {
		return nil, err
	}
	var resp itemsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return &resp, nil
}

// Items lists items matching q, one library after another, page by page.
// Pages are fetched as the sequence is consumed; ranging again restarts the
// listing. Iteration stops after the first error is yielded.
func (c *Client) Items(ctx context.Context, q Query) iter.Seq2[Item, error] {
	parents := q.LibraryIDs
	if len(parents) == 0 {
		parents = []string{""}
	}
	return func(yield func(Item, error) bool) {
		for _, parent := range parents {
			params := url.Values{"Recursive": {"true"}}
			if parent != "" {
				params.Set("ParentId", parent)
			}
			setList(params, "IncludeItemTypes", q.Types)
			setList(params, "Fields", q.Fields)
			if !c.page(ctx, params, parent, yield) {
				return
			}
		}
	}
}

// Children lists the seasons and episodes of each series, series by series.
func (c *Client) Children(ctx context.Context, seriesIDs []string, fields []string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for _, id := range seriesIDs {
			params := url.Values{"Recursive": {"true"}, "ParentId": {id}}
			setList(params, "IncludeItemTypes", []ItemType{TypeSeason, TypeEpisode})
			setList(params, "Fields", fields)
			if !c.page(ctx, params, "", yield) {
				return
			}
		}
	}
}

// page walks one paged listing, returning false when the consumer stopped
// or an error was yielded.
func (c *Client) page(ctx context.Context, params url.Values, libraryID string, yield func(Item, error) bool) bool {
	for start := 0; ; {
		if err := ctx.Err(); err != nil {
			yield(Item{}, err)
			return false
		}
		params.Set("StartIndex", strconv.Itoa(start))
		params.Set("Limit", strconv.Itoa(c.pageSize))

		resp, err := c.getItems(ctx, params)
		if err != nil {
			yield(Item{}, fmt.Errorf("list items at %d: %w", start, err))
			return false
		}
		for _, item := range resp.Items {
			item.LibraryID = libraryID
			if !yield(item, nil) {
				return false
			}
		}
		start += len(resp.Items)
		if len(resp.Items) == 0 || start >= resp.TotalRecordCount {
			return true
		}
	}
}

// GetItems fetches full details for ids in one request. Unknown ids are
// silently absent from the result.
func (c *Client) GetItems(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := url.Values{"Ids": {strings.Join(ids, ",")}}
	setList(params, "Fields", DetailFields)
	resp, err := c.getItems(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get %d items: %w", len(ids), err)
	}
	return resp.Items, nil
}

// RefreshItem asks the server to refresh an item's metadata, recursively.
func (c *Client) RefreshItem(ctx context.Context, id string) error {
	params := url.Values{
		"Recursive":           {"true"},
		"MetadataRefreshMode": {"Default"},
		"ImageRefreshMode":    {"Default"},
	}
	if _, err := c.do(ctx, http.MethodPost, "/Items/"+url.PathEscape(id)+"/Refresh", params); err != nil {
		return fmt.Errorf("refresh item %s: %w", id, err)
	}
	return nil
}

// DeleteItem deletes an item and its files from the server.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/Items/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

func setList[T ~string](params url.Values, key string, values []T) {
	if len(values) == 0 {
		return
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	params.Set(key, strings.Join(parts, ","))
}
