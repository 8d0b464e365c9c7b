package triage

import (
	"errors"
	"fmt"
)

// DegradedSummary replaces the summary when the summarizer gave up.
const DegradedSummary = "Summary unavailable. Read the raw issue on GitHub before rating."

var (
	// ErrMissingAPIKey blocks a fetch without a summarizer key.
	ErrMissingAPIKey = errors.New("a Gemini API key is required")
	// ErrIncompleteRating blocks Advance until all four fields are set.
	ErrIncompleteRating = errors.New("set type, ambiguity, scale and novelty before moving on")
	// ErrCheckInFlight blocks Advance while the PR check may still skip the
	// issue.
	ErrCheckInFlight = errors.New("still checking for open pull requests")
)

// UserInputError is a problem the operator fixes by editing input. It
// blocks the action that caused it and changes nothing else.
type UserInputError struct {
	Field string
	Err   error
}

func (e *UserInputError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *UserInputError) Unwrap() error { return e.Err }

func inputError(field string, err error) *UserInputError {
	return &UserInputError{Field: field, Err: err}
}
