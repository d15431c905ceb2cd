// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package api

import (
	"net/http"
	"time"
)

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Online        bool   `json:"online"`
	ShowCount     int    `json:"show_count"`
	StoreOK       bool   `json:"store_ok"`
}

// StatusResponse is the payload of GET /status: the single call a frontend
// needs to render its connection and data-state indicators.
type StatusResponse struct {
	Online     bool               `json:"online"`
	ShowCount  int                `json:"show_count"`
	CacheStale bool               `json:"cache_stale"`
	LastSync   *time.Time         `json:"last_sync,omitempty"`
	Sync       SyncStatusSnapshot `json:"sync"`
	Clients    int                `json:"websocket_clients"`
}

// SyncStatusSnapshot aliases the sync state for the status payload.
type SyncStatusSnapshot struct {
	IsSyncing bool   `json:"is_syncing"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// Health reports overall service health. Degraded when the store is
// unreachable; offline alone is not unhealthy, it is the expected state of a
// local-first service without connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	count, err := h.store.CountShows(r.Context())
	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Online:        h.net.Online(),
		ShowCount:     count,
		StoreOK:       err == nil,
	}
	if err != nil {
		resp.Status = "degraded"
	}
	rw.Success(resp)
}

// HealthLive is the liveness probe: the process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe: ready once the store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if _, err := h.store.CountShows(r.Context()); err != nil {
		rw.ServiceUnavailable(ErrCodeStoreError, "local store not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// Status returns the combined network, cache and sync state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	count, err := h.store.CountShows(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}

	snap := h.sync.Status()
	resp := StatusResponse{
		Online:     h.net.Online(),
		ShowCount:  count,
		CacheStale: h.sync.IsCacheStale(r.Context()),
		Sync: SyncStatusSnapshot{
			IsSyncing: snap.IsSyncing,
			Progress:  snap.Progress,
			Message:   snap.Message,
			Error:     snap.Error,
		},
		Clients: h.hub.ClientCount(),
	}
	if last, ok := h.sync.LastSyncTime(r.Context()); ok {
		resp.LastSync = &last
	}
	rw.Success(resp)
}
