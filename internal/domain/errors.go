package domain

import "errors"

var (
	// ErrDuplicateUser is returned when the same participant appears twice in one game.
	ErrDuplicateUser = errors.New("duplicate participant")

	// ErrPlayerCount is returned when a game has a participant count outside 3-4.
	ErrPlayerCount = errors.New("a game requires 3 or 4 players")

	// ErrScoreCount is returned when users and scores have different lengths.
	ErrScoreCount = errors.New("users and scores must have the same length")

	// ErrBadTimestamp is returned for date strings not in the "unix:<seconds>" format.
	ErrBadTimestamp = errors.New("unrecognized timestamp format")
)
