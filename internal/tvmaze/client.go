// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package tvmaze is the client for the remote show-catalogue API.
//
// Two request paths exist. The throttled path funnels every call through the
// shared rate limiter, which enforces request spacing and absorbs HTTP 429
// with retries; sync and routine reads use it. The direct path issues a plain
// HTTP request with no queueing and exists only for the read-side fallback,
// where a caller needs one answer now and accepts whatever the remote says.
package tvmaze

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/models"
	"github.com/tomtom215/showdex/internal/ratelimit"
)

const defaultRequestTimeout = 30 * time.Second

// Client talks to a TVMaze-compatible API.
type Client struct {
	baseURL string
	limiter *ratelimit.Limiter
	direct  *http.Client
}

// NewClient builds a client for the API at cfg.BaseURL. Throttled calls go
// through limiter; pass nil to send everything direct (tests mostly).
func NewClient(cfg config.APIConfig, limiter *ratelimit.Limiter) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: limiter,
		direct:  &http.Client{Timeout: timeout},
	}
}

// ShowPage fetches one page of the paginated show listing. Walking past the
// end of the catalogue yields ErrNotFound; an empty 200 page also means done,
// and callers should treat a nil slice accordingly.
func (c *Client) ShowPage(ctx context.Context, page int) ([]models.Show, error) {
	var shows []models.Show
	if err := c.getJSON(ctx, c.pageURL(page), true, &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

// ShowPageDirect is ShowPage without the rate limiter.
func (c *Client) ShowPageDirect(ctx context.Context, page int) ([]models.Show, error) {
	var shows []models.Show
	if err := c.getJSON(ctx, c.pageURL(page), false, &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

// ShowByID fetches a single show record. Unknown ids yield ErrNotFound.
func (c *Client) ShowByID(ctx context.Context, id int) (*models.Show, error) {
	var show models.Show
	if err := c.getJSON(ctx, c.baseURL+"/shows/"+strconv.Itoa(id), true, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// ShowByIDDirect is ShowByID without the rate limiter.
func (c *Client) ShowByIDDirect(ctx context.Context, id int) (*models.Show, error) {
	var show models.Show
	if err := c.getJSON(ctx, c.baseURL+"/shows/"+strconv.Itoa(id), false, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// SearchShows runs a remote fuzzy name search. Results carry the remote's
// relevance score and arrive already ordered by it.
func (c *Client) SearchShows(ctx context.Context, query string) ([]models.SearchResult, error) {
	var results []models.SearchResult
	if err := c.getJSON(ctx, c.searchURL(query), true, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SearchShowsDirect is SearchShows without the rate limiter.
func (c *Client) SearchShowsDirect(ctx context.Context, query string) ([]models.SearchResult, error) {
	var results []models.SearchResult
	if err := c.getJSON(ctx, c.searchURL(query), false, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Updates fetches the catalogue-wide update timestamps, keyed by show id.
// The remote keys the JSON object with stringified ids.
func (c *Client) Updates(ctx context.Context) (map[int]int64, error) {
	reqURL := c.baseURL + "/updates/shows"
	var raw map[string]int64
	if err := c.getJSON(ctx, reqURL, true, &raw); err != nil {
		return nil, err
	}

	updates := make(map[int]int64, len(raw))
	for key, ts := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, &StatusError{
				URL:  reqURL,
				Code: http.StatusOK,
				Err:  fmt.Errorf("non-numeric show id %q in updates payload", key),
			}
		}
		updates[id] = ts
	}
	return updates, nil
}

func (c *Client) pageURL(page int) string {
	return c.baseURL + "/shows?page=" + strconv.Itoa(page)
}

func (c *Client) searchURL(query string) string {
	return c.baseURL + "/search/shows?q=" + url.QueryEscape(query)
}

// getJSON performs a GET and decodes the body into v. Throttled requests go
// through the limiter's queue; either way the status mapping is the same:
// 200 decodes, 404 is ErrNotFound, anything else is a StatusError.
func (c *Client) getJSON(ctx context.Context, reqURL string, throttled bool, v any) error {
	var (
		resp *http.Response
		err  error
	)
	if throttled && c.limiter != nil {
		resp, err = c.limiter.Enqueue(ctx, reqURL)
	} else {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("build request for %s: %w", reqURL, err)
		}
		resp, err = c.direct.Do(req)
	}
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return &StatusError{URL: reqURL, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &StatusError{URL: reqURL, Code: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
