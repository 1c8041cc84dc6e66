package domain

import (
	"slices"
	"testing"

	"github.com/hazuki/ronlog/internal/game"
)

func TestFromSession(t *testing.T) {
	t.Parallel()

	s := game.NewSession("table-7", 9000)
	s.SetScore("kana", 30000)
	s.SetScore("rin", 45000)
	s.SetScore("yui", 25000)

	rec, err := FromSession(s)
	if err != nil {
		t.Fatalf("FromSession: %v", err)
	}

	if rec.GameID != "table-7" {
		t.Errorf("GameID = %q", rec.GameID)
	}
	if rec.Date.Seconds != 9000 {
		t.Errorf("Date.Seconds = %d", rec.Date.Seconds)
	}
	if got, want := rec.Users, []string{"rin", "kana", "yui"}; !slices.Equal(got, want) {
		t.Errorf("Users = %v, want %v", got, want)
	}
}

func TestFromSessionTiesRankByUserID(t *testing.T) {
	t.Parallel()

	s := game.NewSession("t", 0)
	s.SetScore("zoe", 25000)
	s.SetScore("ann", 25000)
	s.SetScore("mia", 25000)

	rec, err := FromSession(s)
	if err != nil {
		t.Fatalf("FromSession: %v", err)
	}

	// Map iteration order must not leak into tie ranking
	if got, want := rec.Users, []string{"ann", "mia", "zoe"}; !slices.Equal(got, want) {
		t.Errorf("Users = %v, want %v", got, want)
	}
}

func TestFromSessionRejectsBadPlayerCount(t *testing.T) {
	t.Parallel()

	s := game.NewSession("t", 0)
	s.SetScore("a", 1)
	s.SetScore("b", 2)

	if _, err := FromSession(s); err == nil {
		t.Error("FromSession accepted a two-seat session")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	rec, err := NewGameRecord("g1", "unix:77",
		[]string{"a", "b", "c", "d"}, []int{10000, 40000, 30000, 20000})
	if err != nil {
		t.Fatalf("NewGameRecord: %v", err)
	}

	back, err := FromSession(rec.IntoSession())
	if err != nil {
		t.Fatalf("FromSession: %v", err)
	}
	if !rec.Equal(back) {
		t.Errorf("round trip mismatch: %+v vs %+v", rec, back)
	}
}
