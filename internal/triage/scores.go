package triage

// Scores is an insertion-ordered map of issue number to ScoreEntry. The
// zero value is empty and ready to use. Values are never mutated in place:
// With returns a new Scores sharing nothing with the receiver.
type Scores struct {
	order   []int
	entries map[int]ScoreEntry
}

// With returns a copy of s with e recorded. An existing entry for the same
// issue is replaced and keeps its original position.
func (s Scores) With(e ScoreEntry) Scores {
	next := Scores{
		order:   make([]int, len(s.order), len(s.order)+1),
		entries: make(map[int]ScoreEntry, len(s.entries)+1),
	}
	copy(next.order, s.order)
	for k, v := range s.entries {
		next.entries[k] = v
	}

	if _, exists := next.entries[e.IssueNumber]; !exists {
		next.order = append(next.order, e.IssueNumber)
	}
	next.entries[e.IssueNumber] = e
	return next
}

// Get returns the entry for an issue number.
func (s Scores) Get(issueNumber int) (ScoreEntry, bool) {
	e, ok := s.entries[issueNumber]
	return e, ok
}

// Len returns the number of entries.
func (s Scores) Len() int {
	return len(s.order)
}

// Entries returns the entries in insertion order.
func (s Scores) Entries() []ScoreEntry {
	out := make([]ScoreEntry, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.entries[n])
	}
	return out
}

// ValidCount returns how many entries satisfy IsValid.
func (s Scores) ValidCount() int {
	n := 0
	for _, e := range s.entries {
		if IsValid(e) {
			n++
		}
	}
	return n
}
