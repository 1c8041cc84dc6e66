package storage

import (
	"context"
	"fmt"
	"io"
)

// CSV header lines, fixed for compatibility with existing consumers.
const (
	ScoresCSVHeader = "game_id,user_id,date,rank,score"
	StatsCSVHeader  = "user_id,games_played,games_won,sum_ranks"
)

// ExportCSV streams every score row and every stats row as comma-separated
// text, one header line each.
//
// Warning: values are written with naive string conversion and no escaping,
// so the output is only safe while no field contains a comma or quote. Ids
// and scores are numeric in practice; do not export free-text fields this way.
func (s *Store) ExportCSV(ctx context.Context, scoresW, statsW io.Writer) error {
	if err := s.exportScores(ctx, scoresW); err != nil {
		return fmt.Errorf("exporting scores: %w", err)
	}
	if err := s.exportStats(ctx, statsW); err != nil {
		return fmt.Errorf("exporting stats: %w", err)
	}
	return nil
}

// ExportScoresCSV streams only the score table.
func (s *Store) ExportScoresCSV(ctx context.Context, w io.Writer) error {
	if err := s.exportScores(ctx, w); err != nil {
		return fmt.Errorf("exporting scores: %w", err)
	}
	return nil
}

// ExportStatsCSV streams only the stats table.
func (s *Store) ExportStatsCSV(ctx context.Context, w io.Writer) error {
	if err := s.exportStats(ctx, w); err != nil {
		return fmt.Errorf("exporting stats: %w", err)
	}
	return nil
}

func (s *Store) exportScores(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, user_id, date, rank, score FROM user_scores
		ORDER BY game_id, rank
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	if _, err := fmt.Fprintln(w, ScoresCSVHeader); err != nil {
		return err
	}
	for rows.Next() {
		var gameID, userID, date string
		var rank, score int
		if err := rows.Scan(&gameID, &userID, &date, &rank, &score); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s,%s,%s,%d,%d\n", gameID, userID, date, rank, score); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) exportStats(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, games_played, games_won, sum_ranks FROM user_stats
		ORDER BY user_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	if _, err := fmt.Fprintln(w, StatsCSVHeader); err != nil {
		return err
	}
	for rows.Next() {
		var userID string
		var played, won, sumRanks int64
		if err := rows.Scan(&userID, &played, &won, &sumRanks); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s,%d,%d,%d\n", userID, played, won, sumRanks); err != nil {
			return err
		}
	}
	return rows.Err()
}
