package storage

import "errors"

var (
	// ErrGameExists is returned by InsertGame when the game id is already recorded.
	ErrGameExists = errors.New("game already exists")

	// ErrNotFound is returned when a game, user, or stats row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt signals that stored rows violate a ledger invariant, e.g. a
	// game with a participant count outside 3-4. It is distinct from ErrNotFound
	// and means either the maintenance path has a bug or the file was written
	// out-of-band. FixUserStats is the designated repair path for the stats table.
	ErrCorrupt = errors.New("database is corrupted")

	// ErrInvalidSortKey is returned by ListUserStats for unrecognized sort keys.
	ErrInvalidSortKey = errors.New("invalid sort key")
)
