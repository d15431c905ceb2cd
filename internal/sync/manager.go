// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

/*
manager.go - Sync Manager Lifecycle and Orchestration

This file contains the sync manager that keeps the local store warm from the
remote show catalogue.

Manager Components:
  - ShowSource: Remote catalogue client (rate-limited, optionally circuit-broken)
  - ConnectivitySource: Online/offline flag from the netstatus observer
  - Store: Local persistent store for show records and sync metadata
  - Status: Process-wide sync state, broadcast to frontends

Sync policy:
  - SyncShows coalesces concurrent callers (second caller is a no-op)
  - Offline is an expected state: the attempt ends with an offline message,
    never an error, and touches no network
  - A prior full sync within the freshness window short-circuits to
    "using cached data" when the store is non-empty
  - A fetch cycle walks at most MaxPages listing pages; 404 or an empty page
    ends the catalogue; connectivity loss mid-cycle pauses rather than fails
  - Metadata (last-sync timestamp, total count) is persisted only when the
    cycle stored at least one record

Thread safety: the Status object is the only shared mutable state; its
internal mutex and the begin() test-and-set serialize attempts.
*/
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/logging"
	"github.com/tomtom215/showdex/internal/metrics"
	"github.com/tomtom215/showdex/internal/models"
	"github.com/tomtom215/showdex/internal/store"
	"github.com/tomtom215/showdex/internal/tvmaze"
)

// Status messages observed by frontends. Tests assert on these.
const (
	MsgOffline       = "Offline mode - using cached data"
	MsgCacheFresh    = "Using cached data"
	MsgSyncComplete  = "Sync complete"
	MsgSyncPaused    = "Sync paused - connection lost"
	MsgRefreshDenied = "Cannot refresh while offline"
)

// ShowSource is the remote catalogue consumed by the manager. Satisfied by
// both *tvmaze.Client and *tvmaze.BreakerClient.
type ShowSource interface {
	ShowPage(ctx context.Context, page int) ([]models.Show, error)
	ShowByID(ctx context.Context, id int) (*models.Show, error)
	SearchShows(ctx context.Context, query string) ([]models.SearchResult, error)
	Updates(ctx context.Context) (map[int]int64, error)
}

// ConnectivitySource reports whether the remote is reachable.
// Satisfied by *netstatus.Observer.
type ConnectivitySource interface {
	Online() bool
}

// Manager orchestrates synchronization from the remote catalogue into the
// local store.
type Manager struct {
	store  *store.Store
	client ShowSource
	net    ConnectivitySource
	cfg    config.SyncConfig
	status *Status

	// now is swappable so staleness tests can move the clock.
	now func() time.Time
}

// NewManager wires a sync manager. status must be the process-wide instance;
// sharing it is what makes concurrent SyncShows calls coalesce.
func NewManager(st *store.Store, client ShowSource, net ConnectivitySource, cfg config.SyncConfig, status *Status) *Manager {
	logging.Info().
		Dur("freshness_window", cfg.FreshnessWindow).
		Int("max_pages", cfg.MaxPages).
		Dur("interval", cfg.Interval).
		Msg("Sync manager config loaded")

	return &Manager{
		store:  st,
		client: client,
		net:    net,
		cfg:    cfg,
		status: status,
		now:    time.Now,
	}
}

// Status returns the current sync state snapshot.
func (m *Manager) Status() StatusSnapshot {
	return m.status.Snapshot()
}

// SyncShows runs one sync attempt. Idempotent and safe to call concurrently:
// if an attempt is already in flight the call returns immediately. All
// outcomes, including failures, surface through the shared Status object;
// nothing is returned because background callers have nowhere to put an
// error anyway.
func (m *Manager) SyncShows(ctx context.Context) {
	if !m.status.begin("Checking local data...") {
		logging.Debug().Msg("Sync already in progress, skipping")
		return
	}

	runID := uuid.NewString()
	log := logging.With().Str("run_id", runID).Logger()
	started := m.now()

	if !m.net.Online() {
		log.Info().Msg("Offline, serving cached data")
		m.status.finish(MsgOffline)
		return
	}

	count, err := m.store.CountShows(ctx)
	if err != nil {
		m.fail(log, fmt.Errorf("count local shows: %w", err), "store")
		return
	}
	if !m.isStale(ctx) && count > 0 {
		log.Info().Int("count", count).Msg("Cache fresh, skipping sync")
		m.status.finish(MsgCacheFresh)
		return
	}

	log.Info().Int("local_count", count).Msg("Starting fetch cycle")
	m.status.set(5, "Syncing show catalogue...")

	total := 0
	paused := false
	for page := 0; page < m.cfg.MaxPages; page++ {
		if !m.net.Online() {
			log.Info().Int("page", page).Msg("Connection lost mid-cycle, pausing")
			paused = true
			break
		}

		shows, err := m.client.ShowPage(ctx, page)
		if errors.Is(err, tvmaze.ErrNotFound) {
			log.Debug().Int("page", page).Msg("End of catalogue")
			break
		}
		if err != nil {
			m.fail(log, fmt.Errorf("fetch page %d: %w", page, err), "remote")
			return
		}
		if len(shows) == 0 {
			log.Debug().Int("page", page).Msg("Empty page, end of catalogue")
			break
		}

		if err := m.store.BulkUpsertShows(ctx, shows); err != nil {
			m.fail(log, fmt.Errorf("store page %d: %w", page, err), "store")
			return
		}
		total += len(shows)
		metrics.SyncRecordsProcessed.Add(float64(len(shows)))

		// Progress stays below 100 until the whole cycle is done.
		progress := 5 + (page+1)*90/m.cfg.MaxPages
		if progress > 95 {
			progress = 95
		}
		m.status.set(progress, fmt.Sprintf("Synced %d shows...", total))
	}

	// A fully empty fetch leaves prior metadata untouched so a previously
	// good timestamp is never overwritten by a no-op cycle.
	if total > 0 {
		if err := m.store.SetMetaInt64(ctx, store.MetaLastFullSync, m.now().UnixMilli()); err != nil {
			m.fail(log, fmt.Errorf("persist sync timestamp: %w", err), "store")
			return
		}
		stored, err := m.store.CountShows(ctx)
		if err != nil {
			m.fail(log, fmt.Errorf("count after sync: %w", err), "store")
			return
		}
		if err := m.store.SetMetaInt64(ctx, store.MetaTotalShowsSynced, int64(stored)); err != nil {
			m.fail(log, fmt.Errorf("persist total count: %w", err), "store")
			return
		}
		metrics.StoreShowCount.Set(float64(stored))
		metrics.SyncLastSuccess.SetToCurrentTime()
	}

	elapsed := m.now().Sub(started)
	metrics.SyncDuration.Observe(elapsed.Seconds())

	if paused {
		m.status.finish(MsgSyncPaused)
		return
	}
	log.Info().Int("fetched", total).Dur("elapsed", elapsed).Msg("Sync complete")
	m.status.finish(MsgSyncComplete)
}

// RefreshDashboard forces a full refetch by zeroing the stored sync
// timestamp, then runs a sync. Refusing to refresh while offline is an
// explicit error, unlike a routine sync where offline is a quiet skip: the
// caller asked for fresh data and cannot have it.
func (m *Manager) RefreshDashboard(ctx context.Context) {
	if !m.net.Online() {
		logging.Info().Msg("Refresh requested while offline, refusing")
		m.status.SetError(MsgRefreshDenied)
		return
	}
	if err := m.store.SetMetaInt64(ctx, store.MetaLastFullSync, 0); err != nil {
		metrics.SyncErrors.WithLabelValues("store").Inc()
		m.status.SetError(fmt.Sprintf("reset sync timestamp: %v", err))
		return
	}
	m.SyncShows(ctx)
}

// ClearAndSync wipes the local store, records and sync markers alike, then
// runs a full sync from scratch. The escape hatch for a corrupted or
// suspect cache. Offline it refuses like RefreshDashboard does: clearing
// with no refill available would swap a usable stale cache for an empty one.
func (m *Manager) ClearAndSync(ctx context.Context) {
	if !m.net.Online() {
		logging.Info().Msg("Clear-and-sync requested while offline, refusing")
		m.status.SetError(MsgRefreshDenied)
		return
	}
	if err := m.store.Clear(ctx); err != nil {
		metrics.SyncErrors.WithLabelValues("store").Inc()
		m.status.SetError(fmt.Sprintf("clear store: %v", err))
		return
	}
	logging.Info().Msg("Local store cleared, starting fresh sync")
	m.SyncShows(ctx)
}

// IsCacheStale reports whether a sync is due: no prior sync recorded, or the
// freshness window has elapsed since the last one.
func (m *Manager) IsCacheStale(ctx context.Context) bool {
	return m.isStale(ctx)
}

func (m *Manager) isStale(ctx context.Context) bool {
	last, ok := m.LastSyncTime(ctx)
	if !ok {
		return true
	}
	return m.now().Sub(last) > m.cfg.FreshnessWindow
}

// LastSyncTime returns the last successful full-sync time. ok is false when
// no sync has ever completed (or the timestamp was zeroed by a forced
// refresh).
func (m *Manager) LastSyncTime(ctx context.Context) (time.Time, bool) {
	ms, err := m.store.GetMetaInt64(ctx, store.MetaLastFullSync)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// CheckUpdates probes the remote updates endpoint and reports the ids of
// locally stored shows whose upstream copy changed since we stored them. It
// is a read-only staleness probe: it fetches nothing and never touches the
// full-sync timestamp, only the update-check one.
func (m *Manager) CheckUpdates(ctx context.Context) ([]int, error) {
	if !m.net.Online() {
		return nil, nil
	}

	updates, err := m.client.Updates(ctx)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("remote").Inc()
		return nil, fmt.Errorf("fetch updates: %w", err)
	}

	var stale []int
	for id, remoteTS := range updates {
		show, err := m.store.GetShow(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue // not in our slice of the catalogue
		}
		if err != nil {
			return nil, fmt.Errorf("read show %d: %w", id, err)
		}
		if remoteTS > show.Updated {
			stale = append(stale, id)
		}
	}

	if err := m.store.SetMetaInt64(ctx, store.MetaLastUpdateCheck, m.now().UnixMilli()); err != nil {
		return nil, fmt.Errorf("persist update-check timestamp: %w", err)
	}
	logging.Debug().Int("stale", len(stale)).Int("remote_entries", len(updates)).Msg("Update check complete")
	return stale, nil
}

// fail ends the attempt. Online failures publish the error; offline ones are
// suppressed since the connectivity drop is the real cause.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (m *Manager) fail(log zerolog.Logger, err error, errType string) {
	if !m.net.Online() {
		log.Info().Err(err).Msg("Sync interrupted by connection loss")
		m.status.finish(MsgSyncPaused)
		return
	}
	log.Error().Err(err).Msg("Sync failed")
	metrics.SyncErrors.WithLabelValues(errType).Inc()
	m.status.fail(err.Error())
}

// Serve implements suture.Service: an immediate warm-up sync, then periodic
// re-syncs on the configured interval. A zero interval means on-demand only.
func (m *Manager) Serve(ctx context.Context) error {
	m.SyncShows(ctx)

	if m.cfg.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.SyncShows(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (m *Manager) String() string {
	return "sync-manager"
}
