package domain

// UserScoreRecord is one user's row within a game: their placement and raw
// final score. Score records are derived from stored rows and never persisted
// independently of a GameRecord.
type UserScoreRecord struct {
	UserID     string    `json:"user_id"`
	GameID     string    `json:"game_id"`
	Date       Timestamp `json:"date"`
	Rank       int       `json:"rank"` // 1-indexed, 1 = winner
	FinalScore int       `json:"final_score"`
}

// Less orders score records by game id, for deterministic listings only.
func (r UserScoreRecord) Less(other UserScoreRecord) bool {
	return r.GameID < other.GameID
}
