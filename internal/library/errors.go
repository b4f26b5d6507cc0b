package library

import "errors"

// Store errors. Each is wrapped with the key or series id it concerns.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrConstraint = errors.New("constraint violation")

	// ErrOffline is returned when a series that is no longer in the media
	// server library would be put on the watchlist.
	ErrOffline = errors.New("not in library")
)
