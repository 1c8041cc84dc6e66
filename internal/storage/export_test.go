package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestExportCSV(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	mustInsert(t, store, mustRecord(t, "g1", "unix:1000",
		[]string{"a", "b", "c"}, []int{25000, 30000, 45000}))

	var scores, stats bytes.Buffer
	if err := store.ExportCSV(context.Background(), &scores, &stats); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	wantScores := strings.Join([]string{
		"game_id,user_id,date,rank,score",
		"g1,c,unix:1000,1,45000",
		"g1,b,unix:1000,2,30000",
		"g1,a,unix:1000,3,25000",
		"",
	}, "\n")
	if scores.String() != wantScores {
		t.Errorf("scores export:\n%s\nwant:\n%s", scores.String(), wantScores)
	}

	wantStats := strings.Join([]string{
		"user_id,games_played,games_won,sum_ranks",
		"a,1,0,3",
		"b,1,0,2",
		"c,1,1,1",
		"",
	}, "\n")
	if stats.String() != wantStats {
		t.Errorf("stats export:\n%s\nwant:\n%s", stats.String(), wantStats)
	}
}

func TestExportCSVEmpty(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	var scores, stats bytes.Buffer
	if err := store.ExportCSV(context.Background(), &scores, &stats); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if scores.String() != ScoresCSVHeader+"\n" {
		t.Errorf("empty scores export = %q", scores.String())
	}
	if stats.String() != StatsCSVHeader+"\n" {
		t.Errorf("empty stats export = %q", stats.String())
	}
}
