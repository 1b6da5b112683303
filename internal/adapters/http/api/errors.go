package api

import "errors"

// maxHistoryLimit bounds ?limit=N on the history endpoints.
const maxHistoryLimit = 500

// Sentinel kinds for API errors.
var (
	ErrBadLimit      = errors.New("limit must be a positive integer")
	ErrLimitExceeded = errors.New("limit exceeds maximum")
)
