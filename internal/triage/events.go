package triage

import "github.com/alaws-scottlogic/issue-scoring/internal/github"

// Event is an input to State.Apply: an operator action or the result of an
// Effect.
type Event interface {
	isEvent()
}

// Effect is work State.Apply asks the Engine to perform. Its result comes
// back as an Event.
type Effect interface {
	isEffect()
}

// Task keys a per-issue pipeline step. A result whose Task no longer
// matches the state's current issue is discarded.
type Task struct {
	SessionID   string
	Index       int
	IssueNumber int
}

// Credentials are the secrets a session's backend is built from.
type Credentials struct {
	Token  string
	APIKey string
}

// FetchRequested starts a session from the input form. SessionID may be
// left empty, in which case one is generated.
type FetchRequested struct {
	SessionID string
	RepoURL   string
	Token     string
	APIKey    string
}

// IssuesFetched carries the search result for a session.
type IssuesFetched struct {
	SessionID string
	Issues    []github.Issue
	Err       error
}

// PRChecked carries the PR-liveness result for a task.
type PRChecked struct {
	Task   Task
	Result github.Result
}

// SummaryReady carries the summarizer outcome for a task.
type SummaryReady struct {
	Task Task
	Text string
	Err  error
}

// RatingSet edits one field of the draft rating. An empty Value clears it.
type RatingSet struct {
	Field Field
	Value string
}

// Advance commits the draft and moves on.
type Advance struct{}

// FinishEarly ends triage, keeping committed scores.
type FinishEarly struct{}

// ExitRequested asks to abandon the session; it must be confirmed.
type ExitRequested struct{}

// ExitCancelled dismisses the exit confirmation.
type ExitCancelled struct{}

// ExitConfirmed discards the session and returns to input.
type ExitConfirmed struct{}

// NewSession leaves the completion screen for a fresh input form.
type NewSession struct{}

func (FetchRequested) isEvent() {}
func (IssuesFetched) isEvent()  {}
func (PRChecked) isEvent()      {}
func (SummaryReady) isEvent()   {}
func (RatingSet) isEvent()      {}
func (Advance) isEvent()        {}
func (FinishEarly) isEvent()    {}
func (ExitRequested) isEvent()  {}
func (ExitCancelled) isEvent()  {}
func (ExitConfirmed) isEvent()  {}
func (NewSession) isEvent()     {}

// FetchIssues runs the batch search for a new session.
type FetchIssues struct {
	SessionID   string
	Repo        github.RepoRef
	Credentials Credentials
}

// CheckPR runs the PR-liveness check for the current issue.
type CheckPR struct {
	Task  Task
	Issue github.Issue
}

// Summarize fetches comments and summarizes the current issue.
type Summarize struct {
	Task  Task
	Issue github.Issue
}

func (FetchIssues) isEffect() {}
func (CheckPR) isEffect()     {}
func (Summarize) isEffect()   {}
