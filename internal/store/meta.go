// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// GetMeta reads a sync-metadata value. Returns ErrNotFound if the key has
// never been written.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get meta %q: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMeta writes a sync-metadata value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

// GetMetaInt64 reads a numeric metadata value. Missing keys return
// ErrNotFound; unparseable values are reported, not silently zeroed.
func (s *Store) GetMetaInt64(ctx context.Context, key string) (int64, error) {
	raw, err := s.GetMeta(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("meta %q holds non-numeric value %q: %w", key, raw, err)
	}
	return n, nil
}

// SetMetaInt64 writes a numeric metadata value.
func (s *Store) SetMetaInt64(ctx context.Context, key string, value int64) error {
	return s.SetMeta(ctx, key, strconv.FormatInt(value, 10))
}

// DeleteMeta removes a metadata key. Deleting an absent key is a no-op.
func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(metaKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete meta %q: %w", key, err)
	}
	return nil
}
