// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package api

import (
	"net/http"
	"time"

	showsync "github.com/tomtom215/showdex/internal/sync"
)

// SyncStatusResponse is the payload of GET /sync/status.
type SyncStatusResponse struct {
	showsync.StatusSnapshot

	LastSync   *time.Time `json:"last_sync,omitempty"`
	CacheStale bool       `json:"cache_stale"`
}

// SyncStatus returns the current sync state plus cache freshness.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	resp := SyncStatusResponse{
		StatusSnapshot: h.sync.Status(),
		CacheStale:     h.sync.IsCacheStale(r.Context()),
	}
	if last, ok := h.sync.LastSyncTime(r.Context()); ok {
		resp.LastSync = &last
	}
	rw.Success(resp)
}

// TriggerSync starts a sync cycle in the background. Calls made while a
// cycle is already running coalesce into it.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	go h.sync.SyncShows(backgroundContext(r))
	rw.Accepted(map[string]string{"status": "sync started"})
}

// SyncRefresh forces a refetch by invalidating the freshness timestamp.
// Refused while offline: a refresh that cannot reach the remote would only
// destroy a valid cache timestamp.
func (h *Handler) SyncRefresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.net.Online() {
		h.sync.RefreshDashboard(r.Context())
		rw.ServiceUnavailable(ErrCodeOffline, showsync.MsgRefreshDenied)
		return
	}

	go h.sync.RefreshDashboard(backgroundContext(r))
	rw.Accepted(map[string]string{"status": "refresh started"})
}

// SyncClear wipes the local store and starts a fresh full sync. Destructive
// and therefore refused while offline, same rule as SyncRefresh.
func (h *Handler) SyncClear(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.net.Online() {
		h.sync.ClearAndSync(r.Context())
		rw.ServiceUnavailable(ErrCodeOffline, showsync.MsgRefreshDenied)
		return
	}

	go h.sync.ClearAndSync(backgroundContext(r))
	rw.Accepted(map[string]string{"status": "clear and sync started"})
}

// SyncUpdates compares remote update stamps against stored shows and
// returns the IDs whose cached copies are stale.
func (h *Handler) SyncUpdates(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stale, err := h.sync.CheckUpdates(r.Context())
	if err != nil {
		rw.UpstreamError(err)
		return
	}
	if stale == nil {
		stale = []int{}
	}
	rw.SuccessWithCount(stale, len(stale))
}
