package game

import "testing"

func TestSessionScores(t *testing.T) {
	t.Parallel()

	s := NewSession("g1", 500)
	s.SetScore("a", 25000)
	s.SetScore("b", 30000)
	s.SetScore("a", 45000) // overwrite

	if s.GameID() != "g1" {
		t.Errorf("GameID() = %q", s.GameID())
	}
	if s.Date() != 500 {
		t.Errorf("Date() = %d", s.Date())
	}

	raw := s.RawScores()
	if len(raw) != 2 {
		t.Fatalf("len(RawScores()) = %d, want 2", len(raw))
	}
	if raw["a"] != 45000 {
		t.Errorf("score for a = %d, want 45000", raw["a"])
	}
}

func TestRawScoresIsACopy(t *testing.T) {
	t.Parallel()

	s := NewSession("g1", 0)
	s.SetScore("a", 1)

	raw := s.RawScores()
	raw["a"] = 999

	if s.RawScores()["a"] != 1 {
		t.Error("mutating the returned map changed the session")
	}
}
