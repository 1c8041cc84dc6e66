// Package game holds the in-memory representation of a live table, the
// object the chat command layer assembles before the result is persisted.
package game

// Session is a finished table: the game id, the unix time it ended, and each
// seat's raw final score. Scores are unordered; ranking happens when the
// session is converted into a ledger record.
type Session struct {
	gameID string
	date   int64
	scores map[string]int
}

// NewSession creates an empty session for a game that ended at the given
// unix time.
func NewSession(gameID string, date int64) *Session {
	return &Session{
		gameID: gameID,
		date:   date,
		scores: make(map[string]int),
	}
}

// GameID returns the caller-supplied game identifier.
func (s *Session) GameID() string {
	return s.gameID
}

// Date returns the end time as unix seconds.
func (s *Session) Date() int64 {
	return s.date
}

// SetScore records one seat's final score, replacing any earlier value.
func (s *Session) SetScore(userID string, score int) {
	s.scores[userID] = score
}

// RawScores returns a copy of the user to score mapping.
func (s *Session) RawScores() map[string]int {
	out := make(map[string]int, len(s.scores))
	for u, v := range s.scores {
		out[u] = v
	}
	return out
}
