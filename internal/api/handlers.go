// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/showdex/internal/models"
	"github.com/tomtom215/showdex/internal/netstatus"
	"github.com/tomtom215/showdex/internal/query"
	"github.com/tomtom215/showdex/internal/store"
	showsync "github.com/tomtom215/showdex/internal/sync"
	"github.com/tomtom215/showdex/internal/websocket"
)

// Handler bundles the services the HTTP layer exposes.
type Handler struct {
	query   *query.Service
	sync    *showsync.Manager
	net     *netstatus.Observer
	hub     *websocket.Hub
	store   *store.Store
	started time.Time
}

// NewHandler creates the API handler set.
func NewHandler(q *query.Service, m *showsync.Manager, net *netstatus.Observer, hub *websocket.Hub, st *store.Store) *Handler {
	return &Handler{
		query:   q,
		sync:    m,
		net:     net,
		hub:     hub,
		store:   st,
		started: time.Now(),
	}
}

// Shows returns the full dashboard listing. Local-first: cached shows are
// served immediately and a background sync refreshes them when stale.
func (h *Handler) Shows(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	shows, err := h.query.FetchShows(r.Context())
	if err != nil {
		if !h.net.Online() {
			rw.ServiceUnavailable(ErrCodeOffline, "Offline and no cached shows available")
			return
		}
		rw.UpstreamError(err)
		return
	}
	rw.SuccessWithCount(shows, len(shows))
}

// ShowByID returns a single show, from the cache when possible.
func (h *Handler) ShowByID(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		rw.BadRequest("show id must be a positive integer")
		return
	}

	show, err := h.query.FetchShowByID(r.Context(), id)
	if err != nil {
		rw.UpstreamError(err)
		return
	}
	if show == nil {
		rw.NotFound("show not found")
		return
	}
	rw.Success(show)
}

// Genres returns the per-genre top lists built from the loaded snapshot.
func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	// The genre map is derived from the loaded set; populate it first when a
	// client hits this endpoint before the listing one.
	if len(h.query.Loaded()) == 0 {
		if _, err := h.query.FetchShows(r.Context()); err != nil && !h.net.Online() {
			rw.ServiceUnavailable(ErrCodeOffline, "Offline and no cached shows available")
			return
		}
	}
	genres := h.query.GenreMap()
	rw.SuccessWithCount(genres, len(genres))
}

// ShowsByGenre returns shows carrying one genre, ranked by rating.
func (h *Handler) ShowsByGenre(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	genre := chi.URLParam(r, "genre")
	req := GenreRequest{Genre: genre}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	shows, err := h.query.FetchShowsByGenre(r.Context(), genre)
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.SuccessWithCount(shows, len(shows))
}

// Search answers show searches. The mode parameter picks the tier:
// "memory" scans the loaded snapshot, "local" scans the whole store, and
// "api" asks the remote with graceful fallback to local results.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := SearchRequest{
		Query: r.URL.Query().Get("q"),
		Mode:  r.URL.Query().Get("mode"),
	}
	if req.Mode == "" {
		req.Mode = "memory"
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	var (
		shows []models.Show
		err   error
	)
	switch req.Mode {
	case "memory":
		shows = h.query.SearchShows(req.Query)
	case "local":
		shows, err = h.query.SearchShowsLocal(r.Context(), req.Query)
	case "api":
		shows, err = h.query.SearchShowsAPI(r.Context(), req.Query)
	}
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.SuccessWithCount(shows, len(shows))
}

// WebSocket upgrades the connection and attaches it to the status hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(h.hub, w, r)
}

// backgroundContext detaches a request-scoped context for work that must
// outlive the HTTP response.
func backgroundContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
