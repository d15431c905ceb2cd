// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

/*
limiter.go - Outbound Request Rate Limiter

Serializes all outbound requests to the remote show API through a single
worker, enforcing a minimum interval between consecutive dispatch starts and
retrying rate-limited or transport-failed requests with exponential backoff.

Queue Discipline:
  - FIFO for fresh requests
  - Retries are reinserted at the queue HEAD so a backed-off request keeps
    priority over requests enqueued after it
  - Backoff sleeps happen inline in the worker, so the whole queue pauses
    while the remote is telling us to slow down

Retry Policy:
  - HTTP 429 and transport errors are retried up to MaxRetries times
  - Backoff for retry n is min(BackoffBase << n, BackoffCap)
  - Any other response resolves as-is; the limiter does not interpret
    HTTP status beyond 429

The worker goroutine starts on first enqueue and exits when the queue
drains, so an idle limiter costs nothing.
*/
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/showdex/internal/logging"
	"github.com/tomtom215/showdex/internal/metrics"
)

// Sentinel errors surfaced to callers of Enqueue.
var (
	// ErrCancelled indicates the request was discarded by CancelAll while
	// still queued.
	ErrCancelled = errors.New("request cancelled")

	// ErrMaxRetries indicates the retry budget was exhausted. The wrapped
	// error chain carries the final cause (429 or transport failure).
	ErrMaxRetries = errors.New("max retries exceeded")
)

// Doer abstracts the HTTP transport so tests can substitute one.
// Satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the limiter policy knobs.
type Config struct {
	// MinInterval is the minimum time between consecutive dispatch starts.
	MinInterval time.Duration

	// MaxRetries bounds retry attempts per request for 429/transport errors.
	MaxRetries int

	// BackoffBase is the delay before the first retry; each further retry
	// doubles it up to BackoffCap.
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// DefaultConfig returns the production policy: 2 requests per second,
// 5 retries, 1s..16s exponential backoff.
func DefaultConfig() Config {
	return Config{
		MinInterval: 500 * time.Millisecond,
		MaxRetries:  5,
		BackoffBase: time.Second,
		BackoffCap:  16 * time.Second,
	}
}

type result struct {
	resp *http.Response
	err  error
}

// request is one queued unit of work. It is created on enqueue and destroyed
// on terminal resolution (success, exhausted retries, or cancellation).
type request struct {
	ctx     context.Context
	url     string
	retries int
	done    chan result // buffered; worker never blocks on resolution
}

func (r *request) resolve(resp *http.Response, err error) {
	r.done <- result{resp: resp, err: err}
}

// Limiter owns its queue exclusively; external components interact only
// through Enqueue and CancelAll.
type Limiter struct {
	client Doer
	cfg    Config
	pacer  *rate.Limiter

	mu     sync.Mutex
	queue  []*request // head at index 0
	active bool
}

// New creates a Limiter dispatching through the given transport.
// A nil client falls back to http.DefaultClient.
func New(client Doer, cfg Config) *Limiter {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultConfig().MinInterval
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	if cfg.BackoffCap < cfg.BackoffBase {
		cfg.BackoffCap = DefaultConfig().BackoffCap
	}
	return &Limiter{
		client: client,
		cfg:    cfg,
		pacer:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// Enqueue appends a GET request for url to the queue tail and blocks until
// it resolves. The response body is the caller's to close. Cancelling ctx
// abandons the wait; a request not yet dispatched is then dropped by the
// worker without touching the network.
func (l *Limiter) Enqueue(ctx context.Context, url string) (*http.Response, error) {
	req := &request{
		ctx:  ctx,
		url:  url,
		done: make(chan result, 1),
	}

	l.mu.Lock()
	l.queue = append(l.queue, req)
	depth := len(l.queue)
	if !l.active {
		l.active = true
		go l.drain()
	}
	l.mu.Unlock()

	metrics.LimiterQueueDepth.Set(float64(depth))

	select {
	case res := <-req.done:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CancelAll synchronously fails every currently queued request with
// ErrCancelled and empties the queue. A request already dispatched is
// not affected.
func (l *Limiter) CancelAll() {
	l.mu.Lock()
	cancelled := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, req := range cancelled {
		req.resolve(nil, ErrCancelled)
		metrics.LimiterDispatches.WithLabelValues("cancelled").Inc()
	}
	metrics.LimiterQueueDepth.Set(0)

	if len(cancelled) > 0 {
		logging.Info().Int("cancelled", len(cancelled)).Msg("rate limiter queue cleared")
	}
}

// PendingCount reports the current queue depth. Observational only.
func (l *Limiter) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// drain processes the queue until empty, then exits. Exactly one drain
// goroutine runs at a time, which is what serializes dispatches.
func (l *Limiter) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.active = false
			l.mu.Unlock()
			metrics.LimiterQueueDepth.Set(0)
			return
		}
		req := l.queue[0]
		l.queue = l.queue[1:]
		depth := len(l.queue)
		l.mu.Unlock()

		metrics.LimiterQueueDepth.Set(float64(depth))
		l.dispatch(req)
	}
}

// dispatch sends one request, handling spacing, retry backoff, and head
// reinsertion. Terminal outcomes resolve the request's done channel.
func (l *Limiter) dispatch(req *request) {
	// Caller may have given up while this request sat in the queue.
	if req.ctx.Err() != nil {
		req.resolve(nil, req.ctx.Err())
		metrics.LimiterDispatches.WithLabelValues("cancelled").Inc()
		return
	}

	// Enforce minimum spacing between dispatch starts.
	if err := l.pacer.Wait(req.ctx); err != nil {
		req.resolve(nil, err)
		metrics.LimiterDispatches.WithLabelValues("cancelled").Inc()
		return
	}

	httpReq, err := http.NewRequestWithContext(req.ctx, http.MethodGet, req.url, http.NoBody)
	if err != nil {
		req.resolve(nil, fmt.Errorf("create request: %w", err))
		metrics.LimiterDispatches.WithLabelValues("failed").Inc()
		return
	}

	resp, err := l.client.Do(httpReq)

	// Transport failure caused by the caller's own cancellation is not
	// retried; it resolves with the context error.
	if err != nil && req.ctx.Err() != nil {
		req.resolve(nil, req.ctx.Err())
		metrics.LimiterDispatches.WithLabelValues("cancelled").Inc()
		return
	}

	rateLimited := err == nil && resp.StatusCode == http.StatusTooManyRequests

	if err == nil && !rateLimited {
		// Any other response, including non-2xx, resolves successfully;
		// interpreting status codes is the caller's job.
		req.resolve(resp, nil)
		metrics.LimiterDispatches.WithLabelValues("resolved").Inc()
		return
	}

	// 429 or transport error: retry with backoff or fail terminally.
	var cause error
	if rateLimited {
		resp.Body.Close()
		cause = fmt.Errorf("rate limited (HTTP 429)")
	} else {
		cause = err
	}

	if req.retries >= l.cfg.MaxRetries {
		req.resolve(nil, fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, req.retries+1, cause))
		metrics.LimiterDispatches.WithLabelValues("failed").Inc()
		return
	}

	delay := l.backoff(req.retries)
	logging.Warn().
		Str("url", req.url).
		Int("attempt", req.retries+1).
		Int("max_retries", l.cfg.MaxRetries).
		Dur("backoff", delay).
		Bool("rate_limited", rateLimited).
		Msg("request failed, backing off before retry")

	// Inline sleep: the whole queue waits while the remote cools down.
	timer := time.NewTimer(delay)
	select {
	case <-timer.C:
	case <-req.ctx.Done():
		timer.Stop()
	}

	req.retries++
	metrics.LimiterRetries.Inc()
	metrics.LimiterDispatches.WithLabelValues("retried").Inc()

	// Reinsert at the queue head so the retry keeps priority over
	// requests enqueued after it.
	l.mu.Lock()
	l.queue = append([]*request{req}, l.queue...)
	l.mu.Unlock()
}

// backoff computes the delay before retry number n (zero-based):
// min(BackoffBase << n, BackoffCap).
func (l *Limiter) backoff(n int) time.Duration {
	d := l.cfg.BackoffBase << uint(n)
	if d > l.cfg.BackoffCap || d <= 0 {
		d = l.cfg.BackoffCap
	}
	return d
}
