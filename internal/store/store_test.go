// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rating(avg float64) models.ShowRating {
	return models.ShowRating{Average: &avg}
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	show := &models.Show{ID: 1, Name: "Under the Dome", Genres: []string{"Drama", "Science-Fiction"}, Rating: rating(6.5)}
	if err := s.UpsertShow(ctx, show); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetShow(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Under the Dome" || len(got.Genres) != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, err := s.GetShow(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestUpsert_ReplacesNotMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertShow(ctx, &models.Show{ID: 7, Name: "Old Name", Genres: []string{"Drama"}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertShow(ctx, &models.Show{ID: 7, Name: "New Name", Genres: []string{"Comedy"}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetShow(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("name = %q, want latest write", got.Name)
	}

	count, err := s.CountShows(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want exactly 1 record after double upsert", count)
	}

	// Stale genre index entries must be gone
	drama, err := s.ShowsByGenre(ctx, "Drama")
	if err != nil {
		t.Fatalf("by genre: %v", err)
	}
	if len(drama) != 0 {
		t.Errorf("stale Drama index entry survived the upsert: %v", drama)
	}
	comedy, err := s.ShowsByGenre(ctx, "Comedy")
	if err != nil {
		t.Fatalf("by genre: %v", err)
	}
	if len(comedy) != 1 || comedy[0].ID != 7 {
		t.Errorf("Comedy index = %v, want show 7", comedy)
	}
}

func TestShowsByGenre_MultiValuedIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	show := &models.Show{ID: 3, Name: "Dual", Genres: []string{"Drama", "Comedy"}}
	if err := s.UpsertShow(ctx, show); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for _, genre := range []string{"Drama", "Comedy"} {
		got, err := s.ShowsByGenre(ctx, genre)
		if err != nil {
			t.Fatalf("by genre %s: %v", genre, err)
		}
		if len(got) != 1 || got[0].ID != 3 {
			t.Errorf("ShowsByGenre(%q) = %v, want exactly show 3", genre, got)
		}
	}

	got, err := s.ShowsByGenre(ctx, "Western")
	if err != nil {
		t.Fatalf("by genre Western: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("never-assigned genre returned %v, want empty", got)
	}
}

func TestShowsByGenre_DelimiterInGenreDoesNotBleedAcrossIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// "Action" and "Action:Live" must index as distinct genres even though
	// one is a key-delimiter-separated extension of the other.
	plain := &models.Show{ID: 1, Name: "Plain", Genres: []string{"Action"}}
	colon := &models.Show{ID: 2, Name: "Colon", Genres: []string{"Action:Live"}}
	if err := s.UpsertShow(ctx, plain); err != nil {
		t.Fatalf("upsert plain: %v", err)
	}
	if err := s.UpsertShow(ctx, colon); err != nil {
		t.Fatalf("upsert colon: %v", err)
	}

	got, err := s.ShowsByGenre(ctx, "Action")
	if err != nil {
		t.Fatalf("by genre Action: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("ShowsByGenre(Action) = %v, want exactly show 1", got)
	}

	got, err = s.ShowsByGenre(ctx, "Action:Live")
	if err != nil {
		t.Fatalf("by genre Action:Live: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("ShowsByGenre(Action:Live) = %v, want exactly show 2", got)
	}
}

func TestShowsByGenre_CaseInsensitiveAndEmptyInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertShow(ctx, &models.Show{ID: 1, Name: "A", Genres: []string{"Drama"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.ShowsByGenre(ctx, "dRaMa")
	if err != nil {
		t.Fatalf("by genre: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("genre lookup should be case-insensitive, got %v", got)
	}

	got, err = s.ShowsByGenre(ctx, "")
	if err != nil {
		t.Fatalf("by empty genre: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty genre returned %v, want empty", got)
	}
}

func TestUpsert_EmptyGenreListContributesNoEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertShow(ctx, &models.Show{ID: 9, Name: "No Genres"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// The record is findable by id but appears under no genre
	if _, err := s.GetShow(ctx, 9); err != nil {
		t.Fatalf("get: %v", err)
	}
}

func TestBulkUpsertShows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var batch []models.Show
	for i := 1; i <= 6; i++ {
		batch = append(batch, models.Show{ID: i, Name: fmt.Sprintf("Show %d", i), Genres: []string{"Drama"}})
	}
	if err := s.BulkUpsertShows(ctx, batch); err != nil {
		t.Fatalf("bulk upsert: %v", err)
	}

	count, err := s.CountShows(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 6 {
		t.Errorf("count = %d, want 6", count)
	}

	drama, err := s.ShowsByGenre(ctx, "Drama")
	if err != nil {
		t.Fatalf("by genre: %v", err)
	}
	if len(drama) != 6 {
		t.Errorf("Drama index has %d entries, want 6", len(drama))
	}

	// Empty batch is a no-op, not an error
	if err := s.BulkUpsertShows(ctx, nil); err != nil {
		t.Errorf("empty bulk upsert: %v", err)
	}
}

func TestAllShows_AscendingIDOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int{42, 3, 117} {
		if err := s.UpsertShow(ctx, &models.Show{ID: id, Name: fmt.Sprintf("S%d", id)}); err != nil {
			t.Fatalf("upsert %d: %v", id, err)
		}
	}

	all, err := s.AllShows(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	want := []int{3, 42, 117}
	if len(all) != len(want) {
		t.Fatalf("got %d shows, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d: id = %d, want %d", i, all[i].ID, id)
		}
	}
}

func TestDeleteShow_RemovesIndexEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertShow(ctx, &models.Show{ID: 5, Name: "Gone", Genres: []string{"Horror"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteShow(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.GetShow(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted show still readable: %v", err)
	}
	horror, err := s.ShowsByGenre(ctx, "Horror")
	if err != nil {
		t.Fatalf("by genre: %v", err)
	}
	if len(horror) != 0 {
		t.Errorf("genre entry survived delete: %v", horror)
	}

	// Deleting an absent id is a no-op
	if err := s.DeleteShow(ctx, 12345); err != nil {
		t.Errorf("delete of missing id: %v", err)
	}
}

func TestSearchShowsByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	names := []string{"Breaking Bad", "Better Call Saul", "The Wire", "Band of Brothers"}
	for i, name := range names {
		if err := s.UpsertShow(ctx, &models.Show{ID: i + 1, Name: name}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := s.SearchShowsByName(ctx, "b", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("search 'b' found %d, want 3 (case-insensitive substring)", len(got))
	}

	got, err = s.SearchShowsByName(ctx, "WIRE", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "The Wire" {
		t.Errorf("search 'WIRE' = %v, want The Wire", got)
	}

	got, err = s.SearchShowsByName(ctx, "", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty query returned %d results, want 0", len(got))
	}

	got, err = s.SearchShowsByName(ctx, "b", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limited search returned %d, want 2", len(got))
	}
}

func TestMeta_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetMeta(ctx, MetaLastFullSync); !errors.Is(err, ErrNotFound) {
		t.Errorf("unwritten meta: err = %v, want ErrNotFound", err)
	}

	if err := s.SetMetaInt64(ctx, MetaLastFullSync, 1700000000000); err != nil {
		t.Fatalf("set meta: %v", err)
	}
	got, err := s.GetMetaInt64(ctx, MetaLastFullSync)
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if got != 1700000000000 {
		t.Errorf("meta = %d, want 1700000000000", got)
	}

	if err := s.SetMeta(ctx, "note", "hello"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := s.GetMetaInt64(ctx, "note"); err == nil {
		t.Error("expected error reading non-numeric meta as int64")
	}

	if err := s.DeleteMeta(ctx, MetaLastFullSync); err != nil {
		t.Fatalf("delete meta: %v", err)
	}
	if _, err := s.GetMeta(ctx, MetaLastFullSync); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted meta still readable: %v", err)
	}
}

func TestClear_WipesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertShow(ctx, &models.Show{ID: 1, Name: "X", Genres: []string{"Drama"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SetMetaInt64(ctx, MetaTotalShowsSynced, 1); err != nil {
		t.Fatalf("set meta: %v", err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	count, err := s.CountShows(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count after clear = %d, want 0", count)
	}
	if _, err := s.GetMeta(ctx, MetaTotalShowsSynced); !errors.Is(err, ErrNotFound) {
		t.Errorf("meta survived clear: %v", err)
	}
}
