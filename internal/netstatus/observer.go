// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package netstatus tracks whether the remote API is reachable.
//
// The observer holds a single online/offline flag, updated by a periodic
// HEAD probe of the API host, and notifies subscribers on every transition.
// Consumers read the flag before deciding between the network path and the
// local store; going offline is an expected state, never an error.
package netstatus

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/logging"
	"github.com/tomtom215/showdex/internal/metrics"
)

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// Observer tracks connectivity and fans transitions out to subscribers.
type Observer struct {
	cfg    config.NetworkConfig
	client *http.Client
	online atomic.Bool

	mu     sync.Mutex
	nextID int
	subs   map[int]func(online bool)
}

// New builds an observer. The flag starts optimistic: callers get the
// network path until the first probe says otherwise, mirroring how a fresh
// browser session trusts navigator.onLine.
func New(cfg config.NetworkConfig) *Observer {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	o := &Observer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ProbeTimeout},
		subs:   make(map[int]func(bool)),
	}
	o.online.Store(true)
	metrics.NetworkOnline.Set(1)
	return o
}

// Online reports the current connectivity flag.
func (o *Observer) Online() bool {
	return o.online.Load()
}

// Subscribe registers fn to run on every online/offline transition. The
// returned function removes the subscription. Callbacks run synchronously on
// the goroutine that flips the flag and must not block.
func (o *Observer) Subscribe(fn func(online bool)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// SetOnline overrides the flag, firing subscribers if it changed. The probe
// loop also reports through here, so manual overrides and probe results share
// one transition path.
func (o *Observer) SetOnline(online bool) {
	if o.online.Swap(online) == online {
		return
	}

	direction := "offline"
	gauge := 0.0
	if online {
		direction = "online"
		gauge = 1.0
	}
	metrics.NetworkOnline.Set(gauge)
	metrics.NetworkTransitions.WithLabelValues(direction).Inc()
	logging.Info().Bool("online", online).Msg("Network status changed")

	o.mu.Lock()
	fns := make([]func(bool), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Serve implements suture.Service: probe on a ticker until the context ends.
// In AssumeOnline mode there is nothing to probe; the loop just waits for
// shutdown so the supervisor still owns a running service.
func (o *Observer) Serve(ctx context.Context) error {
	if o.cfg.AssumeOnline {
		o.SetOnline(true)
		<-ctx.Done()
		return ctx.Err()
	}

	// Probe once at startup rather than waiting a full interval.
	o.SetOnline(o.probe(ctx))

	ticker := time.NewTicker(o.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.SetOnline(o.probe(ctx))
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (o *Observer) String() string {
	return "netstatus-observer"
}

// probe sends one HEAD request to the configured URL. Any response at all
// counts as online; only transport failures mean the network is down.
func (o *Observer) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, o.cfg.ProbeURL, nil)
	if err != nil {
		logging.Error().Err(err).Str("url", o.cfg.ProbeURL).Msg("Invalid probe URL")
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
