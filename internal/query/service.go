// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package query is the read side of Showdex: local-first lookups over the
// store, with network fallbacks and opportunistic background syncs.
//
// The service keeps an in-memory snapshot of the most recently published
// result set. Synchronous operations (SearchShows, GenreMap) work over that
// snapshot; everything touching the store or the network takes a context.
package query

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/logging"
	"github.com/tomtom215/showdex/internal/models"
	"github.com/tomtom215/showdex/internal/store"
	"github.com/tomtom215/showdex/internal/tvmaze"
)

// Remote is the slice of the API client the read side needs. The direct
// variants bypass the rate limiter and exist only for the store-failure
// fallback. Satisfied by *tvmaze.Client.
type Remote interface {
	ShowByID(ctx context.Context, id int) (*models.Show, error)
	SearchShows(ctx context.Context, query string) ([]models.SearchResult, error)
	ShowPageDirect(ctx context.Context, page int) ([]models.Show, error)
}

// Syncer triggers catalogue syncs. Satisfied by *sync.Manager.
type Syncer interface {
	SyncShows(ctx context.Context)
}

// ConnectivitySource reports whether the remote is reachable.
type ConnectivitySource interface {
	Online() bool
}

// Service serves reads. All store access is local-first; the network is a
// fallback, never the default.
type Service struct {
	store  *store.Store
	client Remote
	syncer Syncer
	net    ConnectivitySource
	cfg    config.QueryConfig

	mu     sync.RWMutex
	loaded []models.Show
}

// NewService wires the read side.
func NewService(st *store.Store, client Remote, syncer Syncer, net ConnectivitySource, cfg config.QueryConfig) *Service {
	if cfg.GenreListSize <= 0 {
		cfg.GenreListSize = 20
	}
	if cfg.LocalSearchLimit <= 0 {
		cfg.LocalSearchLimit = 50
	}
	return &Service{
		store:  st,
		client: client,
		syncer: syncer,
		net:    net,
		cfg:    cfg,
	}
}

// Loaded returns the current in-memory snapshot.
func (s *Service) Loaded() []models.Show {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Show, len(s.loaded))
	copy(out, s.loaded)
	return out
}

// publish replaces the in-memory snapshot.
func (s *Service) publish(shows []models.Show) {
	s.mu.Lock()
	s.loaded = shows
	s.mu.Unlock()
}

// FetchShows is the local-first catalogue load. A warm store answers
// immediately and kicks off a background sync; a cold store waits for a
// foreground sync and re-reads. If the store itself fails, the catalogue
// comes straight from the network with a best-effort attempt to cache it.
func (s *Service) FetchShows(ctx context.Context) ([]models.Show, error) {
	shows, err := s.store.AllShows(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Local store read failed, falling back to network")
		return s.fetchDirect(ctx)
	}

	if len(shows) > 0 {
		// Fire-and-forget warm-up. Its failures surface in logs and sync
		// status, never here; detach from the request context so a fast
		// caller does not cancel it.
		go s.syncer.SyncShows(context.WithoutCancel(ctx))
		s.publish(shows)
		return shows, nil
	}

	s.syncer.SyncShows(ctx)

	shows, err = s.store.AllShows(ctx)
	if err != nil {
		return s.fetchDirect(ctx)
	}
	s.publish(shows)
	return shows, nil
}

// fetchDirect pulls the first listing page without the rate limiter and
// best-effort caches it. Last resort when the store cannot be read.
func (s *Service) fetchDirect(ctx context.Context) ([]models.Show, error) {
	shows, err := s.client.ShowPageDirect(ctx, 0)
	if err != nil {
		return nil, err
	}
	if err := s.store.BulkUpsertShows(ctx, shows); err != nil {
		logging.Warn().Err(err).Msg("Best-effort cache of direct fetch failed")
	}
	s.publish(shows)
	return shows, nil
}

// FetchShowByID resolves one show. A cache hit never touches the network.
// A miss while offline is an absent result, not an error; a miss online
// fetches through the rate limiter and persists the answer.
func (s *Service) FetchShowByID(ctx context.Context, id int) (*models.Show, error) {
	show, err := s.store.GetShow(ctx, id)
	if err == nil {
		return show, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if !s.net.Online() {
		return nil, nil
	}

	show, err = s.client.ShowByID(ctx, id)
	if errors.Is(err, tvmaze.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		if !s.net.Online() {
			// Connectivity dropped mid-fetch; same absent answer as a
			// known-offline miss.
			return nil, nil
		}
		return nil, err
	}

	if err := s.store.UpsertShow(ctx, show); err != nil {
		logging.Warn().Err(err).Int("id", id).Msg("Best-effort cache of fetched show failed")
	}
	return show, nil
}

// SearchShows is the synchronous in-memory search over the loaded snapshot.
// Case-insensitive substring on name; an empty query matches nothing.
func (s *Service) SearchShows(query string) []models.Show {
	if query == "" {
		return nil
	}
	needle := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []models.Show
	for _, show := range s.loaded {
		if strings.Contains(strings.ToLower(show.Name), needle) {
			matches = append(matches, show)
		}
	}
	return matches
}

// SearchShowsLocal searches the full store rather than the loaded snapshot,
// capped at the configured limit.
func (s *Service) SearchShowsLocal(ctx context.Context, query string) ([]models.Show, error) {
	return s.store.SearchShowsByName(ctx, query, s.cfg.LocalSearchLimit)
}

// SearchShowsAPI runs a remote fuzzy search, falling back to the local store
// when offline or when the network fails. The fallback swallows the network
// error on purpose: a degraded answer beats none.
func (s *Service) SearchShowsAPI(ctx context.Context, query string) ([]models.Show, error) {
	if !s.net.Online() {
		return s.SearchShowsLocal(ctx, query)
	}

	results, err := s.client.SearchShows(ctx, query)
	if err != nil {
		logging.Warn().Err(err).Str("query", query).Msg("Remote search failed, falling back to local")
		return s.SearchShowsLocal(ctx, query)
	}

	shows := make([]models.Show, 0, len(results))
	for _, r := range results {
		shows = append(shows, r.Show)
	}
	if len(shows) > 0 {
		if err := s.store.BulkUpsertShows(ctx, shows); err != nil {
			logging.Warn().Err(err).Msg("Best-effort cache of search results failed")
		}
	}
	s.publish(shows)
	return shows, nil
}

// FetchShowsByGenre queries the store's genre index and ranks by rating.
// An empty genre yields an empty result without touching the store.
func (s *Service) FetchShowsByGenre(ctx context.Context, genre string) ([]models.Show, error) {
	if genre == "" {
		return nil, nil
	}
	shows, err := s.store.ShowsByGenre(ctx, genre)
	if err != nil {
		return nil, err
	}
	rankByRating(shows)
	s.publish(shows)
	return shows, nil
}
