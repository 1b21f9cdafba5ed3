package store

import "github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"

// NotFound classifies a missing-row lookup so callers can branch on it
// with errors.As instead of comparing to sql.ErrNoRows directly.
func NotFound(where string) error {
	return bridgeerr.New(bridgeerr.NotFound, "%s: not found", where)
}

// AlreadyExists classifies a unique-constraint violation on insert.
func AlreadyExists(where string) error {
	return bridgeerr.New(bridgeerr.Duplicate, "%s: already exists", where)
}
