// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/showdex/internal/config"
	"github.com/tomtom215/showdex/internal/models"
	"github.com/tomtom215/showdex/internal/store"
	"github.com/tomtom215/showdex/internal/tvmaze"
)

type fakeRemote struct {
	showByID   func(ctx context.Context, id int) (*models.Show, error)
	search     func(ctx context.Context, query string) ([]models.SearchResult, error)
	pageDirect func(ctx context.Context, page int) ([]models.Show, error)

	calls atomic.Int32
}

func (f *fakeRemote) ShowByID(ctx context.Context, id int) (*models.Show, error) {
	f.calls.Add(1)
	if f.showByID == nil {
		return nil, tvmaze.ErrNotFound
	}
	return f.showByID(ctx, id)
}

func (f *fakeRemote) SearchShows(ctx context.Context, query string) ([]models.SearchResult, error) {
	f.calls.Add(1)
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, query)
}

func (f *fakeRemote) ShowPageDirect(ctx context.Context, page int) ([]models.Show, error) {
	f.calls.Add(1)
	if f.pageDirect == nil {
		return nil, tvmaze.ErrNotFound
	}
	return f.pageDirect(ctx, page)
}

type fakeSyncer struct {
	fn    func(ctx context.Context)
	calls atomic.Int32
}

func (f *fakeSyncer) SyncShows(ctx context.Context) {
	f.calls.Add(1)
	if f.fn != nil {
		f.fn(ctx)
	}
}

type fakeNet struct{ online atomic.Bool }

func (f *fakeNet) Online() bool { return f.online.Load() }

func newFakeNet(online bool) *fakeNet {
	f := &fakeNet{}
	f.online.Store(online)
	return f
}

func rating(avg float64) models.ShowRating {
	return models.ShowRating{Average: &avg}
}

func newTestService(t *testing.T, remote Remote, syncer Syncer, net ConnectivitySource) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	svc := NewService(st, remote, syncer, net, config.QueryConfig{GenreListSize: 20, LocalSearchLimit: 50})
	return svc, st
}

func TestFetchShows_WarmStoreAnswersAndSyncsInBackground(t *testing.T) {
	synced := make(chan struct{})
	syncer := &fakeSyncer{fn: func(context.Context) { close(synced) }}
	svc, st := newTestService(t, &fakeRemote{}, syncer, newFakeNet(true))
	ctx := context.Background()

	seed := []models.Show{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	if err := st.BulkUpsertShows(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	shows, err := svc.FetchShows(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(shows) != 2 {
		t.Errorf("got %d shows, want 2 from warm store", len(shows))
	}

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Error("background sync never triggered")
	}
}

func TestFetchShows_ColdStoreWaitsForSync(t *testing.T) {
	var svc *Service
	var st *store.Store
	syncer := &fakeSyncer{fn: func(ctx context.Context) {
		if err := st.BulkUpsertShows(ctx, []models.Show{{ID: 10, Name: "Synced"}}); err != nil {
			t.Errorf("sync write: %v", err)
		}
	}}
	svc, st = newTestService(t, &fakeRemote{}, syncer, newFakeNet(true))

	shows, err := svc.FetchShows(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(shows) != 1 || shows[0].Name != "Synced" {
		t.Errorf("shows = %v, want the record written by the foreground sync", shows)
	}
	if got := syncer.calls.Load(); got != 1 {
		t.Errorf("sync calls = %d, want 1 foreground", got)
	}
}

func TestFetchShows_StoreFailureFallsBackToDirectFetch(t *testing.T) {
	remote := &fakeRemote{pageDirect: func(ctx context.Context, page int) ([]models.Show, error) {
		return []models.Show{{ID: 1, Name: "From network"}}, nil
	}}
	svc, st := newTestService(t, remote, &fakeSyncer{}, newFakeNet(true))

	// A closed store fails every read, which is the store-failure path.
	st.Close()

	shows, err := svc.FetchShows(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(shows) != 1 || shows[0].Name != "From network" {
		t.Errorf("shows = %v, want the direct network result", shows)
	}
}

func TestFetchShowByID_CacheHitSkipsNetwork(t *testing.T) {
	remote := &fakeRemote{}
	svc, st := newTestService(t, remote, &fakeSyncer{}, newFakeNet(true))
	ctx := context.Background()

	if err := st.UpsertShow(ctx, &models.Show{ID: 7, Name: "Cached"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	show, err := svc.FetchShowByID(ctx, 7)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if show == nil || show.Name != "Cached" {
		t.Errorf("show = %v", show)
	}
	if got := remote.calls.Load(); got != 0 {
		t.Errorf("cache hit made %d network calls", got)
	}
}

func TestFetchShowByID_MissOfflineIsAbsentNotError(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(t, remote, &fakeSyncer{}, newFakeNet(false))

	show, err := svc.FetchShowByID(context.Background(), 404)
	if err != nil {
		t.Errorf("offline miss returned error %v", err)
	}
	if show != nil {
		t.Errorf("offline miss returned %v, want absent", show)
	}
	if got := remote.calls.Load(); got != 0 {
		t.Errorf("offline miss made %d network calls", got)
	}
}

func TestFetchShowByID_MissOnlineFetchesAndPersists(t *testing.T) {
	remote := &fakeRemote{showByID: func(ctx context.Context, id int) (*models.Show, error) {
		return &models.Show{ID: id, Name: "Fetched", Genres: []string{"Drama"}}, nil
	}}
	svc, st := newTestService(t, remote, &fakeSyncer{}, newFakeNet(true))
	ctx := context.Background()

	show, err := svc.FetchShowByID(ctx, 9)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if show == nil || show.Name != "Fetched" {
		t.Fatalf("show = %v", show)
	}

	// The fetched record must now be cached, index included.
	cached, err := st.GetShow(ctx, 9)
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if cached.Name != "Fetched" {
		t.Errorf("cached = %+v", cached)
	}
	byGenre, err := st.ShowsByGenre(ctx, "Drama")
	if err != nil || len(byGenre) != 1 {
		t.Errorf("genre index after persist: %v %v", byGenre, err)
	}
}

func TestFetchShowByID_RemoteUnknownIsAbsent(t *testing.T) {
	svc, _ := newTestService(t, &fakeRemote{}, &fakeSyncer{}, newFakeNet(true))

	show, err := svc.FetchShowByID(context.Background(), 12345)
	if err != nil {
		t.Errorf("remote 404 returned error %v", err)
	}
	if show != nil {
		t.Errorf("remote 404 returned %v, want absent", show)
	}
}

func TestFetchShowByID_RemoteFailureOnlineIsError(t *testing.T) {
	remote := &fakeRemote{showByID: func(ctx context.Context, id int) (*models.Show, error) {
		return nil, &tvmaze.StatusError{URL: "http://remote", Code: 500}
	}}
	svc, _ := newTestService(t, remote, &fakeSyncer{}, newFakeNet(true))

	_, err := svc.FetchShowByID(context.Background(), 1)
	var statusErr *tvmaze.StatusError
	if !errors.As(err, &statusErr) {
		t.Errorf("err = %v, want the remote StatusError surfaced", err)
	}
}

func TestSearchShows_InMemorySnapshot(t *testing.T) {
	svc, st := newTestService(t, &fakeRemote{}, &fakeSyncer{}, newFakeNet(true))
	ctx := context.Background()

	seed := []models.Show{
		{ID: 1, Name: "Breaking Bad"},
		{ID: 2, Name: "Better Call Saul"},
		{ID: 3, Name: "The Wire"},
	}
	if err := st.BulkUpsertShows(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.FetchShows(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := svc.SearchShows("bReAk"); len(got) != 1 || got[0].Name != "Breaking Bad" {
		t.Errorf("search = %v", got)
	}
	if got := svc.SearchShows(""); got != nil {
		t.Errorf("empty query matched %d shows, want none", len(got))
	}
	if got := svc.SearchShows("zzz"); len(got) != 0 {
		t.Errorf("no-match query returned %v", got)
	}
}

func TestSearchShowsAPI_OfflineDelegatesToLocal(t *testing.T) {
	remote := &fakeRemote{}
	svc, st := newTestService(t, remote, &fakeSyncer{}, newFakeNet(false))
	ctx := context.Background()

	if err := st.UpsertShow(ctx, &models.Show{ID: 1, Name: "Local Hit"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	shows, err := svc.SearchShowsAPI(ctx, "local")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(shows) != 1 || shows[0].Name != "Local Hit" {
		t.Errorf("shows = %v", shows)
	}
	if got := remote.calls.Load(); got != 0 {
		t.Errorf("offline search made %d network calls", got)
	}
}

func TestSearchShowsAPI_SuccessExtractsAndCaches(t *testing.T) {
	remote := &fakeRemote{search: func(ctx context.Context, query string) ([]models.SearchResult, error) {
		return []models.SearchResult{
			{Score: 0.9, Show: models.Show{ID: 11, Name: "Girls"}},
			{Score: 0.4, Show: models.Show{ID: 12, Name: "Gilmore Girls"}},
		}, nil
	}}
	svc, st := newTestService(t, remote, &fakeSyncer{}, newFakeNet(true))
	ctx := context.Background()

	shows, err := svc.SearchShowsAPI(ctx, "girls")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(shows) != 2 || shows[0].ID != 11 {
		t.Errorf("shows = %v", shows)
	}

	if _, err := st.GetShow(ctx, 11); err != nil {
		t.Errorf("search result not cached: %v", err)
	}
}

func TestSearchShowsAPI_NetworkFailureFallsBackToLocal(t *testing.T) {
	remote := &fakeRemote{search: func(ctx context.Context, query string) ([]models.SearchResult, error) {
		return nil, &tvmaze.StatusError{URL: "http://remote", Code: 503}
	}}
	svc, st := newTestService(t, remote, &fakeSyncer{}, newFakeNet(true))
	ctx := context.Background()

	if err := st.UpsertShow(ctx, &models.Show{ID: 1, Name: "Fallback"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	shows, err := svc.SearchShowsAPI(ctx, "fall")
	if err != nil {
		t.Fatalf("fallback search errored: %v", err)
	}
	if len(shows) != 1 || shows[0].Name != "Fallback" {
		t.Errorf("shows = %v, want local fallback result", shows)
	}
}

func TestFetchShowsByGenre(t *testing.T) {
	svc, st := newTestService(t, &fakeRemote{}, &fakeSyncer{}, newFakeNet(true))
	ctx := context.Background()

	seed := []models.Show{
		{ID: 1, Name: "Low", Genres: []string{"Drama"}, Rating: rating(5.0)},
		{ID: 2, Name: "High", Genres: []string{"Drama"}, Rating: rating(9.0)},
		{ID: 3, Name: "Other", Genres: []string{"Comedy"}, Rating: rating(8.0)},
	}
	if err := st.BulkUpsertShows(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	shows, err := svc.FetchShowsByGenre(ctx, "Drama")
	if err != nil {
		t.Fatalf("by genre: %v", err)
	}
	if len(shows) != 2 || shows[0].Name != "High" || shows[1].Name != "Low" {
		t.Errorf("shows = %v, want descending rating order", shows)
	}

	empty, err := svc.FetchShowsByGenre(ctx, "")
	if err != nil || empty != nil {
		t.Errorf("empty genre = (%v, %v), want (nil, nil)", empty, err)
	}
}
