// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package tvmaze

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/showdex/internal/logging"
	"github.com/tomtom215/showdex/internal/metrics"
	"github.com/tomtom215/showdex/internal/models"
)

// BreakerClient wraps Client with a circuit breaker so a flapping upstream
// stops the sync path fast instead of burning the retry budget on every call.
//
// The breaker uses real time for its interval and timeout; tests that need
// determinism should exercise the wrapped client directly.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewBreakerClient wraps client. Policy: 3 probe requests in half-open,
// 1 minute measurement window, 2 minutes open before recovery, trips at a
// 60% failure rate over at least 10 requests.
func NewBreakerClient(client *Client) *BreakerClient {
	const cbName = "tvmaze-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// A 404 is an answer from a healthy upstream, not a failure; sync
		// walks pages until it gets one.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// execute runs one API call under the breaker and records outcome metrics.
func (bc *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := bc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else if errors.Is(err, ErrNotFound) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	return result, nil
}

func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func castSlice[T any](result any, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.([]T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ShowPage fetches one listing page with circuit breaker protection.
func (bc *BreakerClient) ShowPage(ctx context.Context, page int) ([]models.Show, error) {
	return castSlice[models.Show](bc.execute(func() (any, error) {
		return bc.client.ShowPage(ctx, page)
	}))
}

// ShowByID fetches a single show with circuit breaker protection.
func (bc *BreakerClient) ShowByID(ctx context.Context, id int) (*models.Show, error) {
	return castResult[models.Show](bc.execute(func() (any, error) {
		return bc.client.ShowByID(ctx, id)
	}))
}

// SearchShows runs a remote search with circuit breaker protection.
func (bc *BreakerClient) SearchShows(ctx context.Context, query string) ([]models.SearchResult, error) {
	return castSlice[models.SearchResult](bc.execute(func() (any, error) {
		return bc.client.SearchShows(ctx, query)
	}))
}

// Updates fetches the update-timestamp map with circuit breaker protection.
func (bc *BreakerClient) Updates(ctx context.Context) (map[int]int64, error) {
	result, err := bc.execute(func() (any, error) {
		return bc.client.Updates(ctx)
	})
	if err != nil {
		return nil, err
	}
	typed, ok := result.(map[int]int64)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}
