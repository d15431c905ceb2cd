// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package api

import (
	"github.com/tomtom215/showdex/internal/validation"
)

// SearchRequest represents the validated query parameters for /search.
//
// Fields:
//   - Query: the search term (1-256 characters)
//   - Mode: search tier; memory scans the loaded snapshot, local scans the
//     whole store, api queries the remote with local fallback
type SearchRequest struct {
	Query string `validate:"required,min=1,max=256"`
	Mode  string `validate:"required,oneof=memory local api"`
}

// GenreRequest represents the validated path parameter for /shows/genre/{genre}.
type GenreRequest struct {
	Genre string `validate:"required,min=1,max=64"`
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes.
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}
