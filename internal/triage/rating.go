package triage

import (
	"fmt"
	"strings"
)

// Score is one of the three numeric rating fields. The empty value means
// the field has not been set yet.
type Score string

const (
	ScoreUnset Score = ""
	// ScoreX marks a field the operator could not rate. Any X excludes the
	// entry from the completion count.
	ScoreX Score = "x"
)

// ScoreValues lists the settable scores in display order.
var ScoreValues = []Score{"x", "1", "2", "3", "4", "5"}

// Counted reports whether s is one of "1".."5".
func (s Score) Counted() bool {
	switch s {
	case "1", "2", "3", "4", "5":
		return true
	}
	return false
}

// ParseScore accepts "x" (any case) or "1".."5".
func ParseScore(v string) (Score, error) {
	s := Score(strings.ToLower(strings.TrimSpace(v)))
	if s == ScoreX || s.Counted() {
		return s, nil
	}
	return ScoreUnset, fmt.Errorf("invalid score %q (want x or 1-5)", v)
}

// CommitType classifies an issue by the conventional-commit type its fix
// would carry.
type CommitType string

// CommitTypes is the fixed classification set, in display order.
var CommitTypes = []CommitType{
	"feat", "fix", "docs", "style", "refactor", "perf",
	"test", "ci", "build", "chore", "revert",
}

// ParseCommitType accepts one of CommitTypes.
func ParseCommitType(v string) (CommitType, error) {
	c := CommitType(strings.ToLower(strings.TrimSpace(v)))
	for _, t := range CommitTypes {
		if c == t {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid type %q", v)
}

// Field names a rating field.
type Field int

const (
	FieldType Field = iota
	FieldAmbiguity
	FieldScale
	FieldNovelty
)

// Fields lists the rating fields in form order.
var Fields = []Field{FieldType, FieldAmbiguity, FieldScale, FieldNovelty}

func (f Field) String() string {
	switch f {
	case FieldType:
		return "Type"
	case FieldAmbiguity:
		return "Ambiguity"
	case FieldScale:
		return "Scale"
	case FieldNovelty:
		return "Novelty"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Rating is the operator's assessment of one issue.
type Rating struct {
	Type      CommitType
	Ambiguity Score
	Scale     Score
	Novelty   Score
}

// Complete reports whether all four fields are set. Type is required here
// even though it never affects validity.
func (r Rating) Complete() bool {
	return r.Type != "" && r.Ambiguity != ScoreUnset && r.Scale != ScoreUnset && r.Novelty != ScoreUnset
}

// Get returns the current value of f as a string.
func (r Rating) Get(f Field) string {
	switch f {
	case FieldType:
		return string(r.Type)
	case FieldAmbiguity:
		return string(r.Ambiguity)
	case FieldScale:
		return string(r.Scale)
	case FieldNovelty:
		return string(r.Novelty)
	}
	return ""
}

// With returns a copy of r with f set to value. An empty value clears the
// field.
func (r Rating) With(f Field, value string) (Rating, error) {
	if strings.TrimSpace(value) == "" {
		return r.set(f, "", ScoreUnset), nil
	}

	if f == FieldType {
		t, err := ParseCommitType(value)
		if err != nil {
			return r, err
		}
		return r.set(f, t, ScoreUnset), nil
	}

	s, err := ParseScore(value)
	if err != nil {
		return r, err
	}
	return r.set(f, "", s), nil
}

func (r Rating) set(f Field, t CommitType, s Score) Rating {
	switch f {
	case FieldType:
		r.Type = t
	case FieldAmbiguity:
		r.Ambiguity = s
	case FieldScale:
		r.Scale = s
	case FieldNovelty:
		r.Novelty = s
	}
	return r
}

// ScoreEntry is a committed rating for one issue.
type ScoreEntry struct {
	IssueNumber int
	Title       string
	URL         string
	Rating
}

// IsValid reports whether e counts toward the session target: ambiguity,
// scale and novelty are each "1".."5". Type is ignored.
func IsValid(e ScoreEntry) bool {
	return e.Ambiguity.Counted() && e.Scale.Counted() && e.Novelty.Counted()
}
