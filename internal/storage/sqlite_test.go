package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazuki/ronlog/internal/domain"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustRecord(t *testing.T, gameID, date string, users []string, scores []int) *domain.GameRecord {
	t.Helper()
	rec, err := domain.NewGameRecord(gameID, date, users, scores)
	if err != nil {
		t.Fatalf("NewGameRecord: %v", err)
	}
	return rec
}

func mustInsert(t *testing.T, s *Store, rec *domain.GameRecord) {
	t.Helper()
	if err := s.InsertGame(context.Background(), rec); err != nil {
		t.Fatalf("InsertGame(%s): %v", rec.GameID, err)
	}
}

// snapshot captures both exported tables for before/after comparison.
func snapshot(t *testing.T, s *Store) string {
	t.Helper()
	var scores, stats bytes.Buffer
	if err := s.ExportCSV(context.Background(), &scores, &stats); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	return scores.String() + "\n---\n" + stats.String()
}

func TestInsertAndGetGame(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	rec := mustRecord(t, "g1", "unix:1000",
		[]string{"a", "b", "c"}, []int{25000, 30000, 45000})
	mustInsert(t, store, rec)

	got, err := store.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if !got.Equal(rec) {
		t.Errorf("GetGame = %+v, want %+v", got, rec)
	}
}

func TestInsertAndGetFourPlayerGame(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	rec := mustRecord(t, "g1", "unix:42",
		[]string{"a", "b", "c", "d"}, []int{10000, 40000, 30000, 20000})
	mustInsert(t, store, rec)

	got, err := store.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if !got.Equal(rec) {
		t.Errorf("GetGame = %+v, want %+v", got, rec)
	}
}

func TestGetGameNotFound(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	if _, err := store.GetGame(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGame error = %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicateGameChangesNothing(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	mustInsert(t, store, mustRecord(t, "g1", "unix:1000",
		[]string{"a", "b", "c"}, []int{1, 2, 3}))
	before := snapshot(t, store)

	err := store.InsertGame(ctx, mustRecord(t, "g1", "unix:2000",
		[]string{"x", "y", "z"}, []int{4, 5, 6}))
	if !errors.Is(err, ErrGameExists) {
		t.Fatalf("InsertGame error = %v, want ErrGameExists", err)
	}

	if after := snapshot(t, store); after != before {
		t.Errorf("duplicate insert modified the tables:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestStatsAccumulate(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	// a wins g1, b wins g2, a places second in g2
	mustInsert(t, store, mustRecord(t, "g1", "unix:1",
		[]string{"a", "b", "c"}, []int{45000, 30000, 25000}))
	mustInsert(t, store, mustRecord(t, "g2", "unix:2",
		[]string{"a", "b", "c"}, []int{30000, 45000, 25000}))

	stats, err := store.GetUserStats(ctx, "a")
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats.GamesPlayed != 2 || stats.GamesWon != 1 || stats.SumRanks != 3 {
		t.Errorf("stats for a = %+v, want played=2 won=1 sum_ranks=3", stats)
	}

	stats, err = store.GetUserStats(ctx, "c")
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats.GamesPlayed != 2 || stats.GamesWon != 0 || stats.SumRanks != 6 {
		t.Errorf("stats for c = %+v, want played=2 won=0 sum_ranks=6", stats)
	}
}

func TestGetUserStatsNotFound(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	if _, err := store.GetUserStats(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserStats error = %v, want ErrNotFound", err)
	}
}

func TestDeleteGameReversesInsert(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	// d only appears in g2, so deleting g2 must drop d's stats row entirely
	mustInsert(t, store, mustRecord(t, "g1", "unix:1",
		[]string{"a", "b", "c"}, []int{3, 2, 1}))
	before := snapshot(t, store)

	mustInsert(t, store, mustRecord(t, "g2", "unix:2",
		[]string{"a", "b", "d"}, []int{1, 2, 3}))
	if err := store.DeleteGame(ctx, "g2"); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}

	if after := snapshot(t, store); after != before {
		t.Errorf("insert then delete is not a no-op:\nbefore:\n%s\nafter:\n%s", before, after)
	}
	if _, err := store.GetUserStats(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stats for d after delete = %v, want ErrNotFound", err)
	}
	if _, err := store.GetGame(ctx, "g2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGame(g2) after delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteGameNotFound(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	if err := store.DeleteGame(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteGame error = %v, want ErrNotFound", err)
	}
}

func TestGetUserGames(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	mustInsert(t, store, mustRecord(t, "g1", "unix:1",
		[]string{"a", "b", "c"}, []int{45000, 30000, 25000}))
	mustInsert(t, store, mustRecord(t, "g2", "unix:2",
		[]string{"a", "b", "c"}, []int{25000, 45000, 30000}))

	games, err := store.GetUserGames(ctx, "a")
	if err != nil {
		t.Fatalf("GetUserGames: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("len(games) = %d, want 2", len(games))
	}
	byGame := map[string]int{}
	for _, g := range games {
		if g.UserID != "a" {
			t.Errorf("UserID = %q, want a", g.UserID)
		}
		byGame[g.GameID] = g.Rank
	}
	if byGame["g1"] != 1 || byGame["g2"] != 3 {
		t.Errorf("ranks = %v, want g1:1 g2:3", byGame)
	}

	games, err = store.GetUserGames(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUserGames: %v", err)
	}
	if len(games) != 0 {
		t.Errorf("games for unknown user = %v, want empty", games)
	}
}

func TestListUserStats(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	// a: 2 wins, avg rank 1.0; b: 0 wins, avg 2.0; c: 0 wins, avg 3.0
	mustInsert(t, store, mustRecord(t, "g1", "unix:1",
		[]string{"a", "b", "c"}, []int{3, 2, 1}))
	mustInsert(t, store, mustRecord(t, "g2", "unix:2",
		[]string{"a", "b", "c"}, []int{3, 2, 1}))

	stats, err := store.ListUserStats(ctx, "games_won", -1)
	if err != nil {
		t.Fatalf("ListUserStats: %v", err)
	}
	if len(stats) != 3 || stats[0].UserID != "a" {
		t.Errorf("games_won order = %v", userIDs(stats))
	}
	// b and c tie on games_won, so user id breaks the tie
	if stats[1].UserID != "b" || stats[2].UserID != "c" {
		t.Errorf("tie break order = %v, want [a b c]", userIDs(stats))
	}

	stats, err = store.ListUserStats(ctx, "avg_rank", -1)
	if err != nil {
		t.Fatalf("ListUserStats: %v", err)
	}
	// avg_rank sorts ascending: the best (lowest) average first
	if got := userIDs(stats); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("avg_rank order = %v, want [a b c]", got)
	}

	stats, err = store.ListUserStats(ctx, "games_played", 2)
	if err != nil {
		t.Fatalf("ListUserStats: %v", err)
	}
	if len(stats) != 2 {
		t.Errorf("limit 2 returned %d rows", len(stats))
	}
}

func TestListUserStatsInvalidSortKey(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	if _, err := store.ListUserStats(context.Background(), "kd_ratio", -1); !errors.Is(err, ErrInvalidSortKey) {
		t.Errorf("ListUserStats error = %v, want ErrInvalidSortKey", err)
	}
}

func TestGetGameCorruptRowCount(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	// Write a two-row game behind the store's back
	for i, user := range []string{"a", "b"} {
		if _, err := store.db.ExecContext(ctx, `
			INSERT INTO user_scores (game_id, user_id, date, rank, score)
			VALUES ('bad', ?, 'unix:0', ?, 0)
		`, user, i+1); err != nil {
			t.Fatalf("raw insert: %v", err)
		}
	}

	if _, err := store.GetGame(ctx, "bad"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("GetGame error = %v, want ErrCorrupt", err)
	}
	if err := store.DeleteGame(ctx, "bad"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("DeleteGame error = %v, want ErrCorrupt", err)
	}
}

func TestGetGameCorruptDate(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	for i, user := range []string{"a", "b", "c"} {
		if _, err := store.db.ExecContext(ctx, `
			INSERT INTO user_scores (game_id, user_id, date, rank, score)
			VALUES ('bad', ?, 'not-a-timestamp', ?, 0)
		`, user, i+1); err != nil {
			t.Fatalf("raw insert: %v", err)
		}
	}

	if _, err := store.GetGame(ctx, "bad"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("GetGame error = %v, want ErrCorrupt", err)
	}
	if _, err := store.GetUserGames(ctx, "a"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("GetUserGames error = %v, want ErrCorrupt", err)
	}
}

func TestFixUserStatsRebuilds(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)
	ctx := context.Background()

	mustInsert(t, store, mustRecord(t, "g1", "unix:1",
		[]string{"a", "b", "c"}, []int{3, 2, 1}))
	mustInsert(t, store, mustRecord(t, "g2", "unix:2",
		[]string{"a", "b", "d"}, []int{1, 3, 2}))
	want := snapshot(t, store)

	// Corrupt the stats table: break one row, add a phantom user
	if _, err := store.db.ExecContext(ctx, `
		UPDATE user_stats SET games_won = 99, sum_ranks = 0 WHERE user_id = 'a'
	`); err != nil {
		t.Fatalf("corrupting stats: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, games_played, games_won, sum_ranks)
		VALUES ('ghost', 5, 5, 5)
	`); err != nil {
		t.Fatalf("inserting phantom row: %v", err)
	}

	if err := store.FixUserStats(ctx); err != nil {
		t.Fatalf("FixUserStats: %v", err)
	}

	if got := snapshot(t, store); got != want {
		t.Errorf("rebuild did not restore the tables:\nwant:\n%s\ngot:\n%s", want, got)
	}
	if _, err := store.GetUserStats(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("phantom row survived the rebuild: %v", err)
	}
}

func TestFixUserStatsEmptyDatabase(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	if err := store.FixUserStats(context.Background()); err != nil {
		t.Fatalf("FixUserStats on empty db: %v", err)
	}
}

func userIDs(stats []domain.UserStatsRecord) []string {
	ids := make([]string, len(stats))
	for i, s := range stats {
		ids[i] = s.UserID
	}
	return ids
}
