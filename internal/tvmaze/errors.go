// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package tvmaze

import (
	"errors"
	"fmt"
)

// ErrNotFound means the remote answered 404: an unknown show id, or a listing
// page past the end of the catalogue.
var ErrNotFound = errors.New("not found")

// StatusError reports a remote answer we cannot use: an unexpected HTTP
// status, or a body that does not decode. It is returned to the caller as
// data, never escalated; rate-limit (429) handling happens below this layer.
type StatusError struct {
	URL  string
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote data error from %s (status %d): %v", e.URL, e.Code, e.Err)
	}
	return fmt.Sprintf("remote data error from %s: unexpected status %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }
