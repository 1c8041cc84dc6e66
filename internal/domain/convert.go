package domain

import (
	"sort"

	"github.com/hazuki/ronlog/internal/game"
)

// FromSession converts a finished live table into a normalized GameRecord.
// Seats are walked in user-id order so that tied scores rank deterministically.
func FromSession(s *game.Session) (*GameRecord, error) {
	raw := s.RawScores()
	users := make([]string, 0, len(raw))
	for u := range raw {
		users = append(users, u)
	}
	sort.Strings(users)

	scores := make([]int, len(users))
	for i, u := range users {
		scores[i] = raw[u]
	}
	return NewGameRecord(s.GameID(), UnixTimestamp(s.Date()).String(), users, scores)
}

// IntoSession rebuilds the live-table representation from the stored arrays.
// The user to score mapping round-trips exactly; seat order does not.
func (r *GameRecord) IntoSession() *game.Session {
	s := game.NewSession(r.GameID, r.Date.Seconds)
	for i, u := range r.Users {
		s.SetScore(u, r.FinalScores[i])
	}
	return s
}
