// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package store implements the local persistent store on BadgerDB.
//
// Two logical record sets share one key space:
//   - show:<id>       JSON-encoded show records
//   - meta:<key>      small sync-metadata values
//
// Secondary indexes are maintained transactionally alongside the records:
//   - idx:genre:<genre>:<id>   one entry per genre a show carries; the
//     genre is query-escaped so delimiter characters stay unambiguous
//   - idx:name:<name>:<id>     one entry per show, keyed by lowercased name
//
// The genre index is multi-valued: a show with N genres contributes N index
// entries, which makes query-by-genre O(matching records) instead of a full
// scan. Every upsert rewrites the record and its derived index entries in a
// single Badger transaction, so the index can never disagree with the record.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/logging"
	"github.com/tomtom215/showdex/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Key prefixes for the shared BadgerDB key space.
const (
	showKeyPrefix  = "show:"
	metaKeyPrefix  = "meta:"
	genreKeyPrefix = "idx:genre:"
	nameKeyPrefix  = "idx:name:"
)

// Metadata keys written by the sync orchestrator.
const (
	MetaLastFullSync     = "lastFullSync"
	MetaLastUpdateCheck  = "lastUpdateCheck"
	MetaTotalShowsSynced = "totalShowsSynced"
)

// Store is the durable local-first source of truth for show records.
// All operations are safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at the configured path. With
// cfg.InMemory set, the store lives entirely in memory, which is the mode
// tests use.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Badger's own logging is too chatty; we log around it

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("local store opened")
	return &Store{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Clear wipes all records, metadata, and index entries.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// RunGC runs Badger value-log garbage collection on the given interval until
// the context is cancelled. Designed to run under supervision.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Badger recommends calling repeatedly until it reports
			// nothing left to collect.
			for {
				err := s.db.RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Warn().Err(err).Msg("value log GC failed")
					}
					break
				}
			}
		}
	}
}

// showKey builds the primary key for a show id. The id is zero-padded so
// lexicographic key order matches numeric id order.
func showKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%010d", showKeyPrefix, id))
}

// genreIndexKey builds one multi-valued index entry for (genre, id). The
// genre is query-escaped so a literal ":" in a genre cannot collide with the
// key delimiter: without it, the scan prefix for "a" would also match every
// entry of a genre "a:b".
func genreIndexKey(genre string, id int) []byte {
	return []byte(fmt.Sprintf("%s%s:%010d", genreKeyPrefix, url.QueryEscape(strings.ToLower(genre)), id))
}

// genreIndexPrefix is the scan prefix for all shows carrying a genre.
func genreIndexPrefix(genre string) []byte {
	return []byte(genreKeyPrefix + url.QueryEscape(strings.ToLower(genre)) + ":")
}

// nameIndexKey builds the single-valued name index entry for a show.
func nameIndexKey(name string, id int) []byte {
	return []byte(fmt.Sprintf("%s%s:%010d", nameKeyPrefix, strings.ToLower(name), id))
}

func metaKey(key string) []byte {
	return []byte(metaKeyPrefix + key)
}

func decodeShow(item *badger.Item) (*models.Show, error) {
	var show models.Show
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &show)
	})
	if err != nil {
		return nil, fmt.Errorf("decode show: %w", err)
	}
	return &show, nil
}
