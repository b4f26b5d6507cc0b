package moviepilot

import "errors"

// Sentinel errors for the moviepilot package.
var (
	// ErrUnavailable is returned when MoviePilot cannot be reached.
	ErrUnavailable = errors.New("moviepilot unavailable")

	// ErrUnauthorized is returned when the credentials are rejected.
	ErrUnauthorized = errors.New("moviepilot: invalid credentials")

	// ErrRejected is returned when MoviePilot answers with success=false.
	ErrRejected = errors.New("moviepilot: request rejected")
)
