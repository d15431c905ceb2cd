// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package sync

import (
	"sync"
)

// Broadcaster pushes status snapshots to connected frontends.
// Implemented by internal/websocket.Hub.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// StatusSnapshot is the read-only view of sync state handed to observers.
type StatusSnapshot struct {
	IsSyncing bool   `json:"is_syncing"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// Status is the one-per-process sync state object. The manager is its only
// writer; everyone else reads snapshots. It doubles as the concurrency guard:
// begin is a test-and-set, so overlapping sync attempts coalesce to one.
type Status struct {
	mu        sync.Mutex
	isSyncing bool
	progress  int
	message   string
	errMsg    string
	hub       Broadcaster
}

// NewStatus builds a status object. hub may be nil; snapshots are then
// available by polling only.
func NewStatus(hub Broadcaster) *Status {
	return &Status{hub: hub}
}

// Snapshot returns the current state.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Status) snapshotLocked() StatusSnapshot {
	return StatusSnapshot{
		IsSyncing: s.isSyncing,
		Progress:  s.progress,
		Message:   s.message,
		Error:     s.errMsg,
	}
}

// begin attempts to claim the sync slot. On success the error is cleared and
// progress resets to 0, per-attempt. Returns false if a sync is already in
// flight, in which case nothing is touched.
func (s *Status) begin(message string) bool {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return false
	}
	s.isSyncing = true
	s.progress = 0
	s.message = message
	s.errMsg = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return true
}

// set publishes intermediate progress. Only meaningful between begin and a
// terminal call.
func (s *Status) set(progress int, message string) {
	s.mu.Lock()
	s.progress = progress
	s.message = message
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

// finish ends the attempt cleanly: progress is forced to 100 whether the
// cycle fetched data, found the cache fresh, or skipped for being offline.
func (s *Status) finish(message string) {
	s.mu.Lock()
	s.isSyncing = false
	s.progress = 100
	s.message = message
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

// fail ends the attempt with an error. Progress stays wherever the cycle
// left it.
func (s *Status) fail(errMsg string) {
	s.mu.Lock()
	s.isSyncing = false
	s.errMsg = errMsg
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

// SetError publishes an error outside a sync attempt, e.g. refusing a forced
// refresh while offline.
func (s *Status) SetError(errMsg string) {
	s.mu.Lock()
	s.errMsg = errMsg
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

func (s *Status) broadcast(snap StatusSnapshot) {
	if s.hub != nil {
		s.hub.BroadcastJSON("sync_status", snap)
	}
}
