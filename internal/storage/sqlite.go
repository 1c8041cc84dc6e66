package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/hazuki/ronlog/internal/domain"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Store owns the durable game ledger: the score-event table and the stats
// table it keeps consistent. All mutations go through Store; the stats table
// is only correct as long as nothing writes the file out-of-band.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Game methods ---

// InsertGame records a completed game: one score row per participant plus a
// stats upsert for each, all in one transaction. Fails with ErrGameExists
// before touching anything if the game id is already recorded.
func (s *Store) InsertGame(ctx context.Context, rec *domain.GameRecord) error {
	var existing int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_scores WHERE game_id = ?", rec.GameID,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("checking for existing game: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("%w: %s", ErrGameExists, rec.GameID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	date := rec.Date.String()
	for i, userID := range rec.Users {
		rank := i + 1
		won := 0
		if rank == 1 {
			won = 1
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_scores (game_id, user_id, date, rank, score)
			VALUES (?, ?, ?, ?, ?)
		`, rec.GameID, userID, date, rank, rec.FinalScores[i]); err != nil {
			return fmt.Errorf("inserting score row for %s: %w", userID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_stats (user_id, games_played, games_won, sum_ranks)
			VALUES (?, 1, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				games_played = games_played + 1,
				games_won = games_won + excluded.games_won,
				sum_ranks = sum_ranks + excluded.sum_ranks
		`, userID, won, rank); err != nil {
			return fmt.Errorf("updating stats for %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetGame reconstructs a game from its score rows. ErrNotFound if the game
// id has no rows; ErrCorrupt if the stored rows cannot form a valid game.
func (s *Store) GetGame(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, date, score FROM user_scores WHERE game_id = ? ORDER BY rank
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	var dates []string
	var scores []int
	for rows.Next() {
		var user, date string
		var score int
		if err := rows.Scan(&user, &date, &score); err != nil {
			return nil, err
		}
		users = append(users, user)
		dates = append(dates, date)
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	if len(users) != 3 && len(users) != 4 {
		return nil, fmt.Errorf("%w: game %s has %d score rows", ErrCorrupt, gameID, len(users))
	}
	for _, d := range dates {
		if d != dates[0] {
			return nil, fmt.Errorf("%w: game %s has mismatched dates", ErrCorrupt, gameID)
		}
	}

	rec, err := domain.NewGameRecord(gameID, dates[0], users, scores)
	if err != nil {
		return nil, fmt.Errorf("%w: game %s: %v", ErrCorrupt, gameID, err)
	}
	return rec, nil
}

// GetUserGames returns every score row for a user, one per game played.
// No ordering is guaranteed.
func (s *Store) GetUserGames(ctx context.Context, userID string) ([]domain.UserScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, date, rank, score FROM user_scores WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.UserScoreRecord
	for rows.Next() {
		var gameID, date string
		var rank, score int
		if err := rows.Scan(&gameID, &date, &rank, &score); err != nil {
			return nil, err
		}
		ts, err := domain.ParseTimestamp(date)
		if err != nil {
			return nil, fmt.Errorf("%w: game %s: %v", ErrCorrupt, gameID, err)
		}
		records = append(records, domain.UserScoreRecord{
			UserID:     userID,
			GameID:     gameID,
			Date:       ts,
			Rank:       rank,
			FinalScore: score,
		})
	}
	return records, rows.Err()
}

// GetUserStats returns a user's aggregate row, or ErrNotFound if they have
// no recorded games.
func (s *Store) GetUserStats(ctx context.Context, userID string) (*domain.UserStatsRecord, error) {
	var rec domain.UserStatsRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT games_played, games_won, sum_ranks FROM user_stats WHERE user_id = ?
	`, userID).Scan(&rec.GamesPlayed, &rec.GamesWon, &rec.SumRanks)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	rec.UserID = userID
	return &rec, nil
}

// DeleteGame removes a game and reverses its effect on every participant's
// stats row, all in one transaction. A stats row decremented to zero games is
// dropped, so insert and delete are exact inverses on the stats table.
func (s *Store) DeleteGame(ctx context.Context, gameID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT user_id, rank FROM user_scores WHERE game_id = ?
	`, gameID)
	if err != nil {
		return err
	}
	type participant struct {
		userID string
		rank   int
	}
	var participants []participant
	for rows.Next() {
		var p participant
		if err := rows.Scan(&p.userID, &p.rank); err != nil {
			rows.Close()
			return err
		}
		participants = append(participants, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(participants) == 0 {
		return fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	if len(participants) != 3 && len(participants) != 4 {
		return fmt.Errorf("%w: game %s has %d score rows", ErrCorrupt, gameID, len(participants))
	}

	for _, p := range participants {
		won := 0
		if p.rank == 1 {
			won = 1
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_stats
			SET games_played = games_played - 1, games_won = games_won - ?, sum_ranks = sum_ranks - ?
			WHERE user_id = ?
		`, won, p.rank, p.userID); err != nil {
			return fmt.Errorf("reversing stats for %s: %w", p.userID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM user_stats WHERE user_id = ? AND games_played <= 0
		`, p.userID); err != nil {
			return fmt.Errorf("dropping empty stats row for %s: %w", p.userID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_scores WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("deleting score rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListUserStats returns the leaderboard for a sort key: "games_played" and
// "games_won" rank high-to-low, "avg_rank" low-to-high. Ties break by user id
// ascending. A negative limit means unbounded.
func (s *Store) ListUserStats(ctx context.Context, sortKey string, limit int) ([]domain.UserStatsRecord, error) {
	var orderBy string
	switch sortKey {
	case "games_played":
		orderBy = "games_played DESC, user_id ASC"
	case "games_won":
		orderBy = "games_won DESC, user_id ASC"
	case "avg_rank":
		orderBy = "CAST(sum_ranks AS REAL) / CAST(games_played AS REAL) ASC, user_id ASC"
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortKey, sortKey)
	}

	if limit < 0 {
		limit = -1 // no limit in SQLite
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, games_played, games_won, sum_ranks FROM user_stats
		ORDER BY `+orderBy+`
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.UserStatsRecord
	for rows.Next() {
		var rec domain.UserStatsRecord
		if err := rows.Scan(&rec.UserID, &rec.GamesPlayed, &rec.GamesWon, &rec.SumRanks); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FixUserStats rebuilds the entire stats table by replaying every score row.
// The rebuild is a swap inside one transaction, not an incremental patch, so
// it is safe to run as a repair after any detected inconsistency.
func (s *Store) FixUserStats(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_stats`); err != nil {
		return fmt.Errorf("clearing stats table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, games_played, games_won, sum_ranks)
		SELECT user_id,
		       COUNT(*),
		       SUM(CASE WHEN rank = 1 THEN 1 ELSE 0 END),
		       SUM(rank)
		FROM user_scores
		GROUP BY user_id
	`); err != nil {
		return fmt.Errorf("rebuilding stats table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// --- User methods ---

// User represents an authenticated web/API user
type User struct {
	ID                     int64
	Username               string
	PasswordHash           string
	IsAdmin                bool
	PasswordChangeRequired bool
	CreatedAt              time.Time
	LastLogin              *time.Time
}

// CreateUser creates a new user account
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin, password_change_required)
		VALUES (?, ?, ?, TRUE)
	`, username, passwordHash, isAdmin)
	return err
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, password_change_required, created_at, last_login
		FROM users WHERE username = ?
	`, username)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, password_change_required, created_at, last_login
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

// DeleteUser removes a user by username
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, username)
	}
	return nil
}

// ListUsers returns all users with details
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, is_admin, password_change_required, created_at, last_login
		FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUserLastLogin updates the last login timestamp
func (s *Store) UpdateUserLastLogin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?
	`, userID)
	return err
}

// UpdateUserPassword updates a user's password and clears the password_change_required flag
func (s *Store) UpdateUserPassword(ctx context.Context, userID int64, newPasswordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, password_change_required = FALSE WHERE id = ?
	`, newPasswordHash, userID)
	return err
}

// ResetUserPassword sets a new temporary password (admin action)
func (s *Store) ResetUserPassword(ctx context.Context, userID int64, newPasswordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, password_change_required = TRUE WHERE id = ?
	`, newPasswordHash, userID)
	return err
}

// UpdateUserAdmin updates the admin status of a user
func (s *Store) UpdateUserAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_admin = ? WHERE id = ?
	`, isAdmin, userID)
	return err
}
