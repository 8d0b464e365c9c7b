// Package triage implements the triage session: a reducer over explicit
// events that drives each issue through the PR-liveness check,
// summarization and human rating, and an Engine that performs the
// resulting effects against GitHub and the summarizer.
package triage

import (
	"strings"

	"github.com/google/uuid"

	"github.com/alaws-scottlogic/issue-scoring/internal/github"
)

// DefaultTarget is the number of valid ratings that completes a session.
const DefaultTarget = 15

// Phase is the session's position in Input → Fetching → Triage → Complete.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseFetching
	PhaseTriage
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseFetching:
		return "fetching"
	case PhaseTriage:
		return "triage"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Outcome records why a session reached Complete.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeTargetReached  Outcome = "target_reached"
	OutcomeBatchExhausted Outcome = "batch_exhausted"
	OutcomeFinishedEarly  Outcome = "finished_early"
)

// State is a triage session. It is a value: Apply returns a new State and
// never mutates the receiver's slices or scores.
type State struct {
	SessionID string
	Phase     Phase
	Target    int
	Repo      github.RepoRef

	Issues  []github.Issue
	Index   int
	Scores  Scores
	Skipped []int

	Draft       Rating
	Summary     string
	SummaryErr  error
	CheckingPR  bool
	Summarizing bool

	Err            error
	ConfirmingExit bool
	Outcome        Outcome
}

// NewState returns an empty session at the input phase. A target outside
// 1..100 falls back to DefaultTarget.
func NewState(target int) State {
	if target < 1 || target > github.BatchSize {
		target = DefaultTarget
	}
	return State{Phase: PhaseInput, Target: target}
}

// Current returns the issue at Index while triaging.
func (s State) Current() (github.Issue, bool) {
	if s.Phase != PhaseTriage || s.Index < 0 || s.Index >= len(s.Issues) {
		return github.Issue{}, false
	}
	return s.Issues[s.Index], true
}

// CurrentTask returns the key of the current issue's pipeline.
func (s State) CurrentTask() Task {
	t := Task{SessionID: s.SessionID, Index: s.Index}
	if issue, ok := s.Current(); ok {
		t.IssueNumber = issue.Number
	}
	return t
}

// ValidCount returns the number of committed entries that count toward the
// target.
func (s State) ValidCount() int {
	return s.Scores.ValidCount()
}

// Apply returns the state after ev and the effects to run. Events that do
// not apply to the current phase, and stale effect results, leave the
// state unchanged and produce no effects.
func (s State) Apply(ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case FetchRequested:
		return s.fetch(ev)
	case IssuesFetched:
		return s.issuesFetched(ev)
	case PRChecked:
		return s.prChecked(ev)
	case SummaryReady:
		return s.summaryReady(ev)
	case RatingSet:
		return s.rate(ev)
	case Advance:
		return s.advance()
	case FinishEarly:
		if s.Phase != PhaseTriage || s.ConfirmingExit {
			return s, nil
		}
		return s.complete(OutcomeFinishedEarly), nil
	case ExitRequested:
		if s.Phase != PhaseTriage {
			return s, nil
		}
		s.ConfirmingExit = true
		return s, nil
	case ExitCancelled:
		s.ConfirmingExit = false
		return s, nil
	case ExitConfirmed:
		if s.Phase != PhaseTriage || !s.ConfirmingExit {
			return s, nil
		}
		return s.reset(), nil
	case NewSession:
		if s.Phase != PhaseComplete {
			return s, nil
		}
		return s.reset(), nil
	}
	return s, nil
}

func (s State) fetch(ev FetchRequested) (State, []Effect) {
	if s.Phase != PhaseInput && s.Phase != PhaseComplete {
		return s, nil
	}

	ref, err := github.ParseRepoURL(ev.RepoURL)
	if err != nil {
		s.Err = inputError("repository URL", err)
		return s, nil
	}
	apiKey := strings.TrimSpace(ev.APIKey)
	if apiKey == "" {
		s.Err = inputError("API key", ErrMissingAPIKey)
		return s, nil
	}

	next := s.reset()
	next.SessionID = ev.SessionID
	if next.SessionID == "" {
		next.SessionID = uuid.New().String()
	}
	next.Phase = PhaseFetching
	next.Repo = ref

	return next, []Effect{FetchIssues{
		SessionID: next.SessionID,
		Repo:      ref,
		Credentials: Credentials{
			Token:  strings.TrimSpace(ev.Token),
			APIKey: apiKey,
		},
	}}
}

func (s State) issuesFetched(ev IssuesFetched) (State, []Effect) {
	if s.Phase != PhaseFetching || ev.SessionID != s.SessionID {
		return s, nil
	}

	if ev.Err == nil && len(ev.Issues) == 0 {
		ev.Err = github.ErrNoIssues
	}
	if ev.Err != nil {
		s.Phase = PhaseInput
		s.Err = ev.Err
		return s, nil
	}

	issues := ev.Issues
	if len(issues) > github.BatchSize {
		issues = issues[:github.BatchSize]
	}
	s.Phase = PhaseTriage
	s.Issues = append([]github.Issue(nil), issues...)
	return s.enter(0)
}

// enter starts the pipeline for index i: reset per-issue state and check
// for an open pull request.
func (s State) enter(i int) (State, []Effect) {
	s.Index = i
	s.Draft = Rating{}
	s.Summary = ""
	s.SummaryErr = nil
	s.Err = nil
	s.CheckingPR = true
	s.Summarizing = false

	return s, []Effect{CheckPR{Task: s.CurrentTask(), Issue: s.Issues[i]}}
}

// current reports whether t is the pipeline of the issue on screen.
func (s State) current(t Task) bool {
	return s.Phase == PhaseTriage && t == s.CurrentTask()
}

func (s State) prChecked(ev PRChecked) (State, []Effect) {
	if !s.current(ev.Task) || !s.CheckingPR {
		return s, nil
	}
	s.CheckingPR = false

	if ev.Result.Blocked {
		s.Skipped = append(append([]int(nil), s.Skipped...), ev.Task.IssueNumber)
		return s.next(OutcomeBatchExhausted)
	}

	s.Summarizing = true
	return s, []Effect{Summarize{Task: ev.Task, Issue: s.Issues[s.Index]}}
}

func (s State) summaryReady(ev SummaryReady) (State, []Effect) {
	if !s.current(ev.Task) || !s.Summarizing {
		return s, nil
	}
	s.Summarizing = false

	if ev.Err != nil {
		s.Summary = DegradedSummary
		s.SummaryErr = ev.Err
		return s, nil
	}
	s.Summary = ev.Text
	return s, nil
}

func (s State) rate(ev RatingSet) (State, []Effect) {
	if s.Phase != PhaseTriage || s.ConfirmingExit {
		return s, nil
	}
	draft, err := s.Draft.With(ev.Field, ev.Value)
	if err != nil {
		s.Err = inputError(ev.Field.String(), err)
		return s, nil
	}
	s.Draft = draft
	s.Err = nil
	return s, nil
}

func (s State) advance() (State, []Effect) {
	if s.Phase != PhaseTriage || s.ConfirmingExit {
		return s, nil
	}
	if s.CheckingPR {
		s.Err = inputError("", ErrCheckInFlight)
		return s, nil
	}
	if !s.Draft.Complete() {
		s.Err = inputError("", ErrIncompleteRating)
		return s, nil
	}

	issue := s.Issues[s.Index]
	s.Scores = s.Scores.With(ScoreEntry{
		IssueNumber: issue.Number,
		Title:       issue.Title,
		URL:         issue.HTMLURL,
		Rating:      s.Draft,
	})

	if s.Scores.ValidCount() >= s.target() {
		return s.complete(OutcomeTargetReached), nil
	}
	return s.next(OutcomeBatchExhausted)
}

// next moves to the following issue, or completes with outcome when the
// batch is exhausted.
func (s State) next(outcome Outcome) (State, []Effect) {
	if s.Index+1 < len(s.Issues) {
		return s.enter(s.Index + 1)
	}
	return s.complete(outcome), nil
}

func (s State) complete(outcome Outcome) State {
	s.Phase = PhaseComplete
	s.Outcome = outcome
	s.Draft = Rating{}
	s.CheckingPR = false
	s.Summarizing = false
	s.ConfirmingExit = false
	s.Err = nil
	return s
}

// reset discards the session, keeping only the target.
func (s State) reset() State {
	return NewState(s.Target)
}

func (s State) target() int {
	if s.Target < 1 {
		return DefaultTarget
	}
	return s.Target
}
