package triage

import "testing"

func TestScores_OverwriteKeepsSingleEntry(t *testing.T) {
	var s Scores
	first := ScoreEntry{IssueNumber: 7, Title: "Bug", Rating: Rating{Type: "fix", Ambiguity: "1", Scale: "1", Novelty: "1"}}
	second := ScoreEntry{IssueNumber: 7, Title: "Bug", Rating: Rating{Type: "feat", Ambiguity: "x", Scale: "2", Novelty: "3"}}

	s = s.With(first).With(second)

	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
	got, ok := s.Get(7)
	if !ok {
		t.Fatal("entry for #7 missing")
	}
	if got != second {
		t.Errorf("expected second commit to win, got %+v", got)
	}
	if s.ValidCount() != 0 {
		t.Errorf("expected overwritten entry to be invalid, got valid count %d", s.ValidCount())
	}
}

func TestScores_InsertionOrder(t *testing.T) {
	var s Scores
	for _, n := range []int{5, 2, 9} {
		s = s.With(ScoreEntry{IssueNumber: n})
	}
	s = s.With(ScoreEntry{IssueNumber: 2, Title: "updated"})

	entries := s.Entries()
	want := []int{5, 2, 9}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, n := range want {
		if entries[i].IssueNumber != n {
			t.Errorf("entry %d = #%d, want #%d", i, entries[i].IssueNumber, n)
		}
	}
	if entries[1].Title != "updated" {
		t.Errorf("overwrite should replace the value in place, got %q", entries[1].Title)
	}
}

func TestScores_WithDoesNotMutate(t *testing.T) {
	var base Scores
	base = base.With(ScoreEntry{IssueNumber: 1, Rating: Rating{Ambiguity: "1", Scale: "1", Novelty: "1"}})

	_ = base.With(ScoreEntry{IssueNumber: 2})
	_ = base.With(ScoreEntry{IssueNumber: 1, Rating: Rating{Ambiguity: "x"}})

	if base.Len() != 1 {
		t.Errorf("base should still have 1 entry, got %d", base.Len())
	}
	if e, _ := base.Get(1); e.Ambiguity != "1" {
		t.Errorf("base entry was modified: %+v", e)
	}
}

func TestScores_ZeroValue(t *testing.T) {
	var s Scores
	if s.Len() != 0 || s.ValidCount() != 0 || len(s.Entries()) != 0 {
		t.Error("zero Scores should be empty")
	}
	if _, ok := s.Get(1); ok {
		t.Error("zero Scores should have no entries")
	}
}
