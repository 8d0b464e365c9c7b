package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/alaws-scottlogic/issue-scoring/internal/cloud/gcp"
	"github.com/alaws-scottlogic/issue-scoring/internal/github"
	"github.com/alaws-scottlogic/issue-scoring/internal/observability"
	"github.com/alaws-scottlogic/issue-scoring/internal/security"
	"github.com/alaws-scottlogic/issue-scoring/internal/summarizer"
)

// errNoBackend is reported for effects whose session backend is gone, for
// example after the operator exited while a request was in flight.
var errNoBackend = errors.New("session backend not available")

// IssueSource is the GitHub side of a session.
type IssueSource interface {
	SearchIssues(ctx context.Context, ref github.RepoRef) ([]github.Issue, error)
	HasOpenPR(ctx context.Context, issue github.Issue) github.Result
	ListComments(ctx context.Context, issue github.Issue) ([]github.Comment, error)
}

// Summarizer produces the issue digest shown while rating.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	Model() string
}

// Backend is the set of collaborators one session talks to.
type Backend struct {
	Issues     IssueSource
	Summarizer Summarizer
}

// BackendFactory builds a Backend from the credentials entered for a
// session.
type BackendFactory func(ctx context.Context, creds Credentials) (Backend, error)

type spanRecord struct {
	span    observability.SpanContext
	started time.Time
}

type sessionRecord struct {
	backend     Backend
	trace       observability.TraceContext
	traced      bool
	generations int
}

// Engine performs the effects State.Apply emits and keeps the per-session
// resources (backend, trace, spans) in step with state transitions. Run is
// safe to call from multiple goroutines; Transition must be called in the
// same order as Apply.
type Engine struct {
	factory     BackendFactory
	logger      *log.Logger
	cloudLogger gcp.LoggerInterface
	tracer      observability.Tracer
	now         func() time.Time

	logMu     sync.Mutex
	sanitizer *security.LogSanitizer

	mu       sync.Mutex
	sessions map[string]*sessionRecord
	spans    map[Task]spanRecord
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the local logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCloudLogger adds a structured log sink.
func WithCloudLogger(l gcp.LoggerInterface) EngineOption {
	return func(e *Engine) {
		e.cloudLogger = l
	}
}

// WithTracer sets the session tracer.
func WithTracer(t observability.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithClock replaces time.Now for span and generation durations.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine that builds backends with factory.
func NewEngine(factory BackendFactory, opts ...EngineOption) *Engine {
	e := &Engine{
		factory:   factory,
		logger:    log.New(io.Discard, "", 0),
		tracer:    &observability.NoOpTracer{},
		now:       time.Now,
		sanitizer: security.NewLogSanitizer(),
		sessions:  make(map[string]*sessionRecord),
		spans:     make(map[Task]spanRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs eff and returns the event carrying its result. Failures of
// the PR check, comment fetch and summarizer are logged and folded into
// the event; they never stop the session.
func (e *Engine) Run(ctx context.Context, eff Effect) Event {
	switch eff := eff.(type) {
	case FetchIssues:
		return e.fetchIssues(ctx, eff)
	case CheckPR:
		return e.checkPR(ctx, eff)
	case Summarize:
		return e.summarize(ctx, eff)
	}
	panic(fmt.Sprintf("triage: unknown effect %T", eff))
}

func (e *Engine) fetchIssues(ctx context.Context, eff FetchIssues) Event {
	e.addSecrets(eff.Credentials)
	e.logInfo("Session %s: fetching open issues for %s", eff.SessionID, eff.Repo)

	backend, err := e.factory(ctx, eff.Credentials)
	if err != nil {
		e.logError("Session %s: could not set up clients: %v", eff.SessionID, err)
		return IssuesFetched{SessionID: eff.SessionID, Err: err}
	}

	e.mu.Lock()
	e.sessions[eff.SessionID] = &sessionRecord{backend: backend}
	e.mu.Unlock()

	issues, err := backend.Issues.SearchIssues(ctx, eff.Repo)
	if err != nil {
		e.logError("Session %s: fetch failed for %s: %v", eff.SessionID, eff.Repo, err)
		return IssuesFetched{SessionID: eff.SessionID, Err: err}
	}

	e.logInfo("Session %s: fetched %d issues for %s", eff.SessionID, len(issues), eff.Repo)
	return IssuesFetched{SessionID: eff.SessionID, Issues: issues}
}

func (e *Engine) checkPR(ctx context.Context, eff CheckPR) Event {
	backend, ok := e.backend(eff.Task.SessionID)
	if !ok {
		return PRChecked{Task: eff.Task, Result: github.Result{Err: errNoBackend}}
	}

	res := backend.Issues.HasOpenPR(ctx, eff.Issue)
	switch {
	case res.Err != nil:
		e.logWarning("PR check for #%d failed, treating it as not in progress: %v", eff.Issue.Number, res.Err)
	case res.Blocked:
		e.logInfo("Skipping #%d: an open pull request references it", eff.Issue.Number)
		if span, ok := e.span(eff.Task); ok {
			e.tracer.RecordSkipped(span.span, "PR check", "open pull request references the issue")
		}
	}
	return PRChecked{Task: eff.Task, Result: res}
}

func (e *Engine) summarize(ctx context.Context, eff Summarize) Event {
	backend, ok := e.backend(eff.Task.SessionID)
	if !ok {
		return SummaryReady{Task: eff.Task, Err: errNoBackend}
	}

	comments, err := backend.Issues.ListComments(ctx, eff.Issue)
	if err != nil {
		e.logWarning("Comments for #%d unavailable, summarizing without them: %v", eff.Issue.Number, err)
		comments = nil
	}

	input := summarizer.BuildInput(eff.Issue, comments)
	start := e.now()
	text, err := backend.Summarizer.Summarize(ctx, input)
	duration := e.now().Sub(start)

	status := "completed"
	if err != nil {
		status = "error"
		e.logWarning("Summary for #%d unavailable after retries: %v", eff.Issue.Number, err)
	}

	e.mu.Lock()
	if rec, ok := e.sessions[eff.Task.SessionID]; ok {
		rec.generations++
	}
	e.mu.Unlock()

	if span, ok := e.span(eff.Task); ok {
		e.tracer.RecordGeneration(span.span, observability.GenerationInput{
			Name:       "Summarizer",
			Model:      backend.Summarizer.Model(),
			Input:      input,
			Output:     text,
			Status:     status,
			DurationMs: duration.Milliseconds(),
		})
	}

	return SummaryReady{Task: eff.Task, Text: text, Err: err}
}

// Transition updates traces, spans and backends for the move from prev to
// next. Call it after every Apply, before running the returned effects.
func (e *Engine) Transition(prev, next State) {
	leftTriage := prev.Phase == PhaseTriage && (next.Phase != PhaseTriage || next.SessionID != prev.SessionID)
	movedIssue := prev.Phase == PhaseTriage && next.Phase == PhaseTriage &&
		next.SessionID == prev.SessionID && next.Index != prev.Index

	if leftTriage || movedIssue {
		e.endIssue(prev, next)
	}

	if leftTriage {
		e.finishSession(prev, next)
	} else if prev.Phase == PhaseFetching && (next.Phase == PhaseInput || next.SessionID != prev.SessionID) {
		e.dropSession(prev.SessionID)
	}

	enteredTriage := next.Phase == PhaseTriage && (prev.Phase != PhaseTriage || prev.SessionID != next.SessionID)
	if enteredTriage {
		e.startSession(next)
	}
	if enteredTriage || movedIssue {
		e.startIssue(next)
	}
}

func (e *Engine) startSession(s State) {
	if e.cloudLogger != nil {
		e.cloudLogger.SetSessionID(s.SessionID)
	}
	trace := e.tracer.StartTrace(s.SessionID, observability.TraceOptions{
		Repository: s.Repo.String(),
		Target:     s.Target,
		IssueCount: len(s.Issues),
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.sessions[s.SessionID]
	if !ok {
		rec = &sessionRecord{}
		e.sessions[s.SessionID] = rec
	}
	rec.trace = trace
	rec.traced = true
}

func (e *Engine) startIssue(s State) {
	issue, ok := s.Current()
	if !ok {
		return
	}

	e.mu.Lock()
	rec, ok := e.sessions[s.SessionID]
	e.mu.Unlock()
	if !ok || !rec.traced {
		return
	}

	span := e.tracer.StartIssue(rec.trace, issue.Number, observability.SpanOptions{
		Index: s.Index,
		Title: issue.Title,
	})

	e.mu.Lock()
	e.spans[s.CurrentTask()] = spanRecord{span: span, started: e.now()}
	e.mu.Unlock()
}

func (e *Engine) endIssue(prev, next State) {
	task := prev.CurrentTask()

	e.mu.Lock()
	rec, ok := e.spans[task]
	delete(e.spans, task)
	e.mu.Unlock()
	if !ok {
		return
	}

	status := "abandoned"
	switch {
	case containsInt(next.Skipped, task.IssueNumber) && !containsInt(prev.Skipped, task.IssueNumber):
		status = "skipped"
	case next.SessionID == prev.SessionID && scoreChanged(prev.Scores, next.Scores, task.IssueNumber):
		status = "rated"
	}
	e.tracer.EndIssue(rec.span, status, e.now().Sub(rec.started).Milliseconds())
}

func (e *Engine) finishSession(prev, next State) {
	e.mu.Lock()
	rec, ok := e.sessions[prev.SessionID]
	delete(e.sessions, prev.SessionID)
	e.mu.Unlock()

	status := "exited"
	scores := prev.Scores
	skipped := prev.Skipped
	if next.Phase == PhaseComplete && next.SessionID == prev.SessionID {
		status = string(next.Outcome)
		scores = next.Scores
		skipped = next.Skipped
	}

	e.logInfo("Session %s ended (%s): %d rated, %d valid, %d skipped",
		prev.SessionID, status, scores.Len(), scores.ValidCount(), len(skipped))

	if !ok || !rec.traced {
		return
	}
	e.tracer.CompleteTrace(rec.trace, observability.CompleteOptions{
		Status:      status,
		Rated:       scores.Len(),
		Valid:       scores.ValidCount(),
		Skipped:     len(skipped),
		Generations: rec.generations,
	})
}

func (e *Engine) dropSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, sessionID)
}

func (e *Engine) backend(sessionID string) (Backend, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.sessions[sessionID]
	if !ok || rec.backend.Issues == nil {
		return Backend{}, false
	}
	return rec.backend, true
}

func (e *Engine) span(t Task) (spanRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.spans[t]
	return rec, ok
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func scoreChanged(prev, next Scores, issueNumber int) bool {
	a, okA := prev.Get(issueNumber)
	b, okB := next.Get(issueNumber)
	return okB && (!okA || a != b)
}

// Drive applies ev and then every event produced by running the resulting
// effects, depth-first, until no effects remain. It runs the pipeline
// synchronously and is used by the non-interactive paths and tests.
func Drive(ctx context.Context, e *Engine, s State, ev Event) State {
	next, effects := s.Apply(ev)
	e.Transition(s, next)
	s = next

	for _, eff := range effects {
		s = Drive(ctx, e, s, e.Run(ctx, eff))
	}
	return s
}
