// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package services

import (
	"context"
	"time"

	"github.com/tomtom215/showdex/internal/store"
)

const defaultGCInterval = 10 * time.Minute

// StoreGCService runs the store's value-log garbage collection on a timer.
// Badger does not reclaim value-log space on its own; something has to call
// GC periodically, and under supervision is the right place for it.
type StoreGCService struct {
	store    *store.Store
	interval time.Duration
}

// NewStoreGCService creates the GC service with the configured interval.
func NewStoreGCService(st *store.Store, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &StoreGCService{store: st, interval: interval}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	return s.store.RunGC(ctx, s.interval)
}

// String implements fmt.Stringer for supervisor logging.
func (s *StoreGCService) String() string {
	return "store-gc"
}
