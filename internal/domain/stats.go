package domain

// UserStatsRecord is one user's lifetime aggregate, incrementally maintained
// by the storage engine. Invariants: GamesWon <= GamesPlayed and
// SumRanks >= GamesPlayed (the minimum rank is 1).
type UserStatsRecord struct {
	UserID      string `json:"user_id"`
	GamesPlayed int64  `json:"games_played"`
	GamesWon    int64  `json:"games_won"`
	SumRanks    int64  `json:"sum_ranks"`
}

// AvgRank computes the user's average placement; lower is better.
// Zero games played yields 0.
func (r UserStatsRecord) AvgRank() float64 {
	if r.GamesPlayed == 0 {
		return 0
	}
	return float64(r.SumRanks) / float64(r.GamesPlayed)
}

// Less orders stats records by user id, for deterministic listings only.
func (r UserStatsRecord) Less(other UserStatsRecord) bool {
	return r.UserID < other.UserID
}
