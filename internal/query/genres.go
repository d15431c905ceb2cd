// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package query

import (
	"sort"

	"github.com/tomtom215/showdex/internal/models"
)

// GenreMap groups the loaded snapshot by genre. A show with N genres appears
// in N lists. Each list is ordered by descending rating with a missing rating
// treated as 0, ties keeping their original relative order, and is truncated
// to the configured top size.
func (s *Service) GenreMap() map[string][]models.Show {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()

	byGenre := make(map[string][]models.Show)
	for _, show := range loaded {
		for _, genre := range show.Genres {
			byGenre[genre] = append(byGenre[genre], show)
		}
	}

	for genre, shows := range byGenre {
		rankByRating(shows)
		if len(shows) > s.cfg.GenreListSize {
			byGenre[genre] = shows[:s.cfg.GenreListSize]
		}
	}
	return byGenre
}

// rankByRating sorts in place by descending rating. The stable sort is what
// keeps equal-rated shows in their original relative order.
func rankByRating(shows []models.Show) {
	sort.SliceStable(shows, func(i, j int) bool {
		return shows[i].RatingValue() > shows[j].RatingValue()
	})
}
