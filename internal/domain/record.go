package domain

import (
	"fmt"
	"slices"
	"sort"
)

// GameRecord is one completed game. Users and FinalScores are index-aligned
// and always sorted from high score to low score, so Users[0] is the winner
// and a participant's rank is their index plus one.
type GameRecord struct {
	GameID      string    `json:"game_id"`
	Date        Timestamp `json:"date"`
	Users       []string  `json:"users"`
	FinalScores []int     `json:"final_scores"`
}

// NewGameRecord validates raw game data and builds the normalized record.
// The (user, score) pairs are re-sorted together by score descending; ties
// keep the relative order they had in the input.
func NewGameRecord(gameID, date string, users []string, scores []int) (*GameRecord, error) {
	if len(users) != len(scores) {
		return nil, fmt.Errorf("%w: %d users, %d scores", ErrScoreCount, len(users), len(scores))
	}
	if len(users) != 3 && len(users) != 4 {
		return nil, fmt.Errorf("%w: got %d", ErrPlayerCount, len(users))
	}

	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if seen[u] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUser, u)
		}
		seen[u] = true
	}

	ts, err := ParseTimestamp(date)
	if err != nil {
		return nil, err
	}

	type pair struct {
		user  string
		score int
	}
	pairs := make([]pair, len(users))
	for i := range users {
		pairs[i] = pair{user: users[i], score: scores[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	rec := &GameRecord{
		GameID:      gameID,
		Date:        ts,
		Users:       make([]string, len(pairs)),
		FinalScores: make([]int, len(pairs)),
	}
	for i, p := range pairs {
		rec.Users[i] = p.user
		rec.FinalScores[i] = p.score
	}
	return rec, nil
}

// Winner returns the user id that placed first.
func (r *GameRecord) Winner() string {
	return r.Users[0]
}

// Rank returns a participant's 1-indexed rank, or false if they did not play.
func (r *GameRecord) Rank(userID string) (int, bool) {
	for i, u := range r.Users {
		if u == userID {
			return i + 1, true
		}
	}
	return 0, false
}

// Equal reports structural equality over game id, timestamp, and the
// normalized user/score arrays.
func (r *GameRecord) Equal(other *GameRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.GameID == other.GameID &&
		r.Date.Seconds == other.Date.Seconds &&
		slices.Equal(r.Users, other.Users) &&
		slices.Equal(r.FinalScores, other.FinalScores)
}

// Less orders records by game id, for deterministic listings only.
func (r *GameRecord) Less(other *GameRecord) bool {
	return r.GameID < other.GameID
}

// ScoreRecords expands the game into one UserScoreRecord per participant.
func (r *GameRecord) ScoreRecords() []UserScoreRecord {
	records := make([]UserScoreRecord, len(r.Users))
	for i, u := range r.Users {
		records[i] = UserScoreRecord{
			UserID:     u,
			GameID:     r.GameID,
			Date:       r.Date,
			Rank:       i + 1,
			FinalScore: r.FinalScores[i],
		}
	}
	return records
}
