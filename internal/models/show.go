// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package models defines the data structures shared across Showdex packages.
package models

// ShowImage holds the two optional artwork size variants provided by the API.
type ShowImage struct {
	Medium   string `json:"medium,omitempty"`
	Original string `json:"original,omitempty"`
}

// ShowRating wraps the nullable average rating as delivered on the wire.
type ShowRating struct {
	Average *float64 `json:"average"`
}

// Show is a TV series record. ID is the stable primary key assigned by the
// remote API; a write with an existing ID fully replaces the prior record.
type Show struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Genres    []string   `json:"genres"`
	Rating    ShowRating `json:"rating"`
	Image     *ShowImage `json:"image,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Premiered string     `json:"premiered,omitempty"`

	// Updated is the epoch-seconds timestamp of the last upstream change,
	// used for change detection against the updates endpoint.
	Updated int64 `json:"updated,omitempty"`
}

// RatingValue returns the rating average with a missing rating treated as 0.
// Sorting by descending RatingValue places unrated shows last.
func (s *Show) RatingValue() float64 {
	if s.Rating.Average == nil {
		return 0
	}
	return *s.Rating.Average
}

// SearchResult is one entry of the fuzzy-search endpoint response:
// a relevance score paired with the matched show.
type SearchResult struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`
}
