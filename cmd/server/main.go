// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package main is the entry point for the Showdex server.
//
// Showdex is a local-first data service for TV show browsing. It keeps an
// indexed local catalogue (BadgerDB) warm from a remote show API through a
// rate-limited client, serves reads from the local store whether or not the
// network is up, and pushes sync and connectivity status to clients over
// WebSocket.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, and environment (Koanf v2)
//  2. Local store: BadgerDB with genre and sync-metadata indexes
//  3. Rate limiter and remote API client (optional circuit breaker)
//  4. Network observer: connectivity probing with subscriber notifications
//  5. WebSocket hub: real-time sync and network status broadcasts
//  6. Sync manager and query service
//  7. HTTP server: REST API under /api/v1 plus /metrics
//
// Everything long-running goes under a suture supervisor tree, so a crashing
// sync loop restarts without taking down the API layer.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority
// wins): environment variables (HTTP_PORT, TVMAZE_URL, SYNC_MAX_PAGES, ...),
// config.yaml, built-in defaults. See internal/config for the full key list.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP server
// drains in-flight requests with a bounded timeout, the limiter cancels
// queued requests, and the store closes last.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/showdex/internal/api"
	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/logging"
	"github.com/tomtom215/showdex/internal/netstatus"
	"github.com/tomtom215/showdex/internal/query"
	"github.com/tomtom215/showdex/internal/ratelimit"
	"github.com/tomtom215/showdex/internal/store"
	"github.com/tomtom215/showdex/internal/supervisor"
	"github.com/tomtom215/showdex/internal/supervisor/services"
	showsync "github.com/tomtom215/showdex/internal/sync"
	"github.com/tomtom215/showdex/internal/tvmaze"
	ws "github.com/tomtom215/showdex/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("api_base_url", cfg.API.BaseURL).
		Str("store_path", cfg.Store.Path).
		Bool("store_in_memory", cfg.Store.InMemory).
		Msg("Starting Showdex")

	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	// Outbound HTTP stack: shared client, rate limiter, API client. All
	// remote traffic funnels through the limiter's single dispatch queue.
	httpClient := &http.Client{Timeout: cfg.API.RequestTimeout}
	limiter := ratelimit.New(httpClient, ratelimit.Config{
		MinInterval: cfg.API.MinRequestInterval,
		MaxRetries:  cfg.API.MaxRetries,
		BackoffBase: cfg.API.BackoffBase,
		BackoffCap:  cfg.API.BackoffCap,
	})
	defer limiter.CancelAll()

	apiClient := tvmaze.NewClient(cfg.API, limiter)

	// The breaker wraps bulk sync traffic only. The read side keeps the
	// plain client because its store-failure fallback needs the direct
	// (unthrottled) variants.
	var syncSource showsync.ShowSource = apiClient
	if cfg.API.BreakerEnabled {
		syncSource = tvmaze.NewBreakerClient(apiClient)
		logging.Info().Msg("Circuit breaker enabled for remote API")
	}

	observer := netstatus.New(cfg.Network)
	hub := ws.NewHub()

	// Push connectivity flips to browser clients as they happen.
	unsubscribe := observer.Subscribe(hub.BroadcastNetworkStatus)
	defer unsubscribe()

	syncStatus := showsync.NewStatus(hub)
	syncManager := showsync.NewManager(st, syncSource, observer, cfg.Sync, syncStatus)
	queryService := query.NewService(st, apiClient, syncManager, observer, cfg.Query)

	handler := api.NewHandler(queryService, syncManager, observer, hub, st)
	router := api.NewRouter(handler, cfg.Server)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Data layer: store maintenance. Value-log GC only applies on disk.
	if !cfg.Store.InMemory {
		tree.AddDataService(services.NewStoreGCService(st, cfg.Store.GCInterval))
	}

	// Sync layer: connectivity probing, the sync loop, and the hub.
	tree.AddSyncService(observer)
	tree.AddSyncService(hub)
	tree.AddSyncService(syncManager)

	// API layer.
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel; it closes when the supervisor has stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Showdex stopped gracefully")
}
