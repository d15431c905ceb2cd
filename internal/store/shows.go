// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/showdex/internal/metrics"
	"github.com/tomtom215/showdex/internal/models"
)

// GetShow retrieves a show by primary key. Returns ErrNotFound if absent.
func (s *Store) GetShow(ctx context.Context, id int) (*models.Show, error) {
	var show *models.Show

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(showKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get show %d: %w", id, err)
		}
		show, err = decodeShow(item)
		return err
	})

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.StoreErrors.WithLabelValues("get").Inc()
		}
		return nil, err
	}
	metrics.StoreOperations.WithLabelValues("get").Inc()
	return show, nil
}

// UpsertShow stores one show, fully replacing any existing record with the
// same id and rewriting its derived index entries in the same transaction.
func (s *Store) UpsertShow(ctx context.Context, show *models.Show) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return upsertShowTxn(txn, show)
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("upsert").Inc()
		return err
	}
	metrics.StoreOperations.WithLabelValues("upsert").Inc()
	return nil
}

// BulkUpsertShows stores a batch of shows in one transaction. The batch is
// atomic from the caller's perspective: either every record and its index
// entries land, or none do.
func (s *Store) BulkUpsertShows(ctx context.Context, shows []models.Show) error {
	if len(shows) == 0 {
		return nil
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range shows {
			if err := upsertShowTxn(txn, &shows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("bulk_upsert").Inc()
		return fmt.Errorf("bulk upsert %d shows: %w", len(shows), err)
	}
	metrics.StoreOperations.WithLabelValues("bulk_upsert").Inc()
	return nil
}

// upsertShowTxn writes one show and reconciles its index entries inside an
// open transaction. Stale entries from a prior version are removed first.
func upsertShowTxn(txn *badger.Txn, show *models.Show) error {
	key := showKey(show.ID)

	// Drop index entries derived from the previous version, if any.
	if item, err := txn.Get(key); err == nil {
		prev, err := decodeShow(item)
		if err != nil {
			return err
		}
		for _, genre := range prev.Genres {
			if err := txn.Delete(genreIndexKey(genre, prev.ID)); err != nil {
				return fmt.Errorf("delete stale genre entry: %w", err)
			}
		}
		if prev.Name != "" {
			if err := txn.Delete(nameIndexKey(prev.Name, prev.ID)); err != nil {
				return fmt.Errorf("delete stale name entry: %w", err)
			}
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("read prior show %d: %w", show.ID, err)
	}

	data, err := json.Marshal(show)
	if err != nil {
		return fmt.Errorf("marshal show %d: %w", show.ID, err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set show %d: %w", show.ID, err)
	}

	// A show with an empty genre list contributes no genre entries.
	for _, genre := range show.Genres {
		if err := txn.Set(genreIndexKey(genre, show.ID), nil); err != nil {
			return fmt.Errorf("set genre entry: %w", err)
		}
	}
	if show.Name != "" {
		if err := txn.Set(nameIndexKey(show.Name, show.ID), nil); err != nil {
			return fmt.Errorf("set name entry: %w", err)
		}
	}

	return nil
}

// DeleteShow removes a show and its index entries. Deleting an absent id
// is a no-op.
func (s *Store) DeleteShow(ctx context.Context, id int) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(showKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get show %d: %w", id, err)
		}

		show, err := decodeShow(item)
		if err != nil {
			return err
		}

		for _, genre := range show.Genres {
			if err := txn.Delete(genreIndexKey(genre, id)); err != nil {
				return fmt.Errorf("delete genre entry: %w", err)
			}
		}
		if show.Name != "" {
			if err := txn.Delete(nameIndexKey(show.Name, id)); err != nil {
				return fmt.Errorf("delete name entry: %w", err)
			}
		}
		return txn.Delete(showKey(id))
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("delete").Inc()
		return err
	}
	metrics.StoreOperations.WithLabelValues("delete").Inc()
	return nil
}

// CountShows returns the number of stored show records.
func (s *Store) CountShows(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(showKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("scan").Inc()
		return 0, fmt.Errorf("count shows: %w", err)
	}
	return count, nil
}

// AllShows returns every stored show in ascending id order.
func (s *Store) AllShows(ctx context.Context) ([]models.Show, error) {
	return s.FilterShows(ctx, nil, 0)
}

// FilterShows scans stored shows in id order, keeping those the predicate
// accepts, up to limit matches (0 = unlimited). A nil predicate accepts all.
func (s *Store) FilterShows(ctx context.Context, pred func(*models.Show) bool, limit int) ([]models.Show, error) {
	var shows []models.Show

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(showKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			show, err := decodeShow(it.Item())
			if err != nil {
				return err
			}
			if pred != nil && !pred(show) {
				continue
			}
			shows = append(shows, *show)
			if limit > 0 && len(shows) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("scan").Inc()
		return nil, fmt.Errorf("scan shows: %w", err)
	}
	metrics.StoreOperations.WithLabelValues("scan").Inc()
	return shows, nil
}

// ShowsByGenre returns every show whose genre list contains the given genre,
// in ascending id order, via the multi-valued genre index. Cost is
// proportional to the number of matches, not the store size.
func (s *Store) ShowsByGenre(ctx context.Context, genre string) ([]models.Show, error) {
	if genre == "" {
		return nil, nil
	}

	var shows []models.Show
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := genreIndexPrefix(genre)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			// Index keys end in the zero-padded show id.
			key := string(it.Item().Key())
			var id int
			if _, err := fmt.Sscanf(key[len(prefix):], "%d", &id); err != nil {
				return fmt.Errorf("malformed genre index key %q: %w", key, err)
			}

			item, err := txn.Get(showKey(id))
			if err != nil {
				// The record and its index entries are written in one
				// transaction, so a dangling entry means corruption.
				return fmt.Errorf("genre index points at missing show %d: %w", id, err)
			}
			show, err := decodeShow(item)
			if err != nil {
				return err
			}
			shows = append(shows, *show)
		}
		return nil
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("index_query").Inc()
		return nil, fmt.Errorf("shows by genre %q: %w", genre, err)
	}
	metrics.StoreOperations.WithLabelValues("index_query").Inc()
	return shows, nil
}

// SearchShowsByName scans the full store for names containing the query,
// case-insensitively, up to limit matches. An empty query yields an empty
// result rather than matching everything.
func (s *Store) SearchShowsByName(ctx context.Context, query string, limit int) ([]models.Show, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	return s.FilterShows(ctx, func(show *models.Show) bool {
		return strings.Contains(strings.ToLower(show.Name), query)
	}, limit)
}
