// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestShow_RatingValue(t *testing.T) {
	avg := 8.5
	rated := Show{Rating: ShowRating{Average: &avg}}
	if got := rated.RatingValue(); got != 8.5 {
		t.Errorf("RatingValue() = %v, want 8.5", got)
	}

	unrated := Show{}
	if got := unrated.RatingValue(); got != 0 {
		t.Errorf("RatingValue() for nil rating = %v, want 0", got)
	}
}

func TestShow_NullRatingOnWire(t *testing.T) {
	// The remote API delivers "rating": {"average": null} for unrated shows.
	raw := `{"id":1,"name":"Test","genres":["Drama"],"rating":{"average":null}}`

	var s Show
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Rating.Average != nil {
		t.Errorf("expected nil rating average, got %v", *s.Rating.Average)
	}
	if s.RatingValue() != 0 {
		t.Errorf("RatingValue() = %v, want 0", s.RatingValue())
	}
}

func TestSearchResult_Decode(t *testing.T) {
	raw := `[{"score":17.6,"show":{"id":139,"name":"Girls","genres":["Drama","Romance"]}}]`

	var results []SearchResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Show.ID != 139 || results[0].Show.Name != "Girls" {
		t.Errorf("unexpected show decoded: %+v", results[0].Show)
	}
	if results[0].Score != 17.6 {
		t.Errorf("score = %v, want 17.6", results[0].Score)
	}
}
