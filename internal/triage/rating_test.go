package triage

import "testing"

func TestIsValid(t *testing.T) {
	values := []Score{"x", "1", "2", "3", "4", "5"}

	for _, a := range values {
		for _, s := range values {
			for _, n := range values {
				entry := ScoreEntry{IssueNumber: 1, Rating: Rating{Type: "fix", Ambiguity: a, Scale: s, Novelty: n}}
				want := a != ScoreX && s != ScoreX && n != ScoreX
				if got := IsValid(entry); got != want {
					t.Errorf("IsValid(%s,%s,%s) = %v, want %v", a, s, n, got, want)
				}
			}
		}
	}
}

func TestIsValid_TypeIgnored(t *testing.T) {
	entry := ScoreEntry{Rating: Rating{Ambiguity: "3", Scale: "3", Novelty: "3"}}
	if !IsValid(entry) {
		t.Error("type should not affect validity")
	}
	entry.Type = "docs"
	if !IsValid(entry) {
		t.Error("type should not affect validity")
	}
}

func TestIsValid_UnsetFieldsInvalid(t *testing.T) {
	entry := ScoreEntry{Rating: Rating{Ambiguity: "3", Scale: "3"}}
	if IsValid(entry) {
		t.Error("unset novelty should be invalid")
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in      string
		want    Score
		wantErr bool
	}{
		{"x", ScoreX, false},
		{"X", ScoreX, false},
		{" 3 ", "3", false},
		{"5", "5", false},
		{"0", "", true},
		{"6", "", true},
		{"three", "", true},
	}
	for _, tt := range tests {
		got, err := ParseScore(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScore(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScore(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCommitType(t *testing.T) {
	for _, ct := range CommitTypes {
		if got, err := ParseCommitType(string(ct)); err != nil || got != ct {
			t.Errorf("ParseCommitType(%q) = %q, %v", ct, got, err)
		}
	}
	if got, err := ParseCommitType("FEAT"); err != nil || got != "feat" {
		t.Errorf("expected case-insensitive parse, got %q, %v", got, err)
	}
	if _, err := ParseCommitType("feature"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestRatingWith(t *testing.T) {
	var r Rating
	if r.Complete() {
		t.Fatal("zero rating should be incomplete")
	}

	steps := []struct {
		field Field
		value string
	}{
		{FieldType, "feat"},
		{FieldAmbiguity, "2"},
		{FieldScale, "x"},
		{FieldNovelty, "5"},
	}
	for _, st := range steps {
		var err error
		r, err = r.With(st.field, st.value)
		if err != nil {
			t.Fatalf("With(%s, %q): %v", st.field, st.value, err)
		}
		if got := r.Get(st.field); got != st.value {
			t.Errorf("Get(%s) = %q, want %q", st.field, got, st.value)
		}
	}
	if !r.Complete() {
		t.Error("rating with all four fields should be complete")
	}

	cleared, err := r.With(FieldScale, "")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.Complete() || cleared.Scale != ScoreUnset {
		t.Error("clearing a field should make the rating incomplete")
	}
	if r.Scale != ScoreX {
		t.Error("With must not modify the receiver")
	}

	if _, err := r.With(FieldNovelty, "9"); err == nil {
		t.Error("expected error for out-of-range score")
	}
	if _, err := r.With(FieldType, "bogus"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestFieldString(t *testing.T) {
	want := []string{"Type", "Ambiguity", "Scale", "Novelty"}
	for i, f := range Fields {
		if f.String() != want[i] {
			t.Errorf("Field %d = %q, want %q", i, f.String(), want[i])
		}
	}
}
