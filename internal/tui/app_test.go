package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alaws-scottlogic/issue-scoring/internal/github"
	"github.com/alaws-scottlogic/issue-scoring/internal/settings"
	"github.com/alaws-scottlogic/issue-scoring/internal/triage"
)

type stubIssues struct {
	issues  []github.Issue
	blocked map[int]bool
	err     error
}

func (s *stubIssues) SearchIssues(context.Context, github.RepoRef) ([]github.Issue, error) {
	return s.issues, s.err
}

func (s *stubIssues) HasOpenPR(_ context.Context, issue github.Issue) github.Result {
	return github.Result{Blocked: s.blocked[issue.Number]}
}

func (s *stubIssues) ListComments(context.Context, github.Issue) ([]github.Comment, error) {
	return nil, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, text string) (string, error) {
	return "Summary: " + strings.SplitN(text, "\n", 2)[0], nil
}

func (stubSummarizer) Model() string { return "stub" }

type memoryStore struct {
	values settings.Settings
	sets   int
}

func (m *memoryStore) Settings() settings.Settings { return m.values }

func (m *memoryStore) Set(key, value string) error {
	m.sets++
	switch key {
	case settings.KeyRepoURL:
		m.values.RepoURL = value
	case settings.KeyGitHubToken:
		m.values.GitHubToken = value
	case settings.KeyGeminiAPIKey:
		m.values.GeminiAPIKey = value
	default:
		return settings.ErrUnknownKey
	}
	return nil
}

func testIssues(n int) []github.Issue {
	out := make([]github.Issue, n)
	for i := range out {
		num := i + 1
		out[i] = github.Issue{
			Number:  num,
			Title:   fmt.Sprintf("Issue %d", num),
			HTMLURL: fmt.Sprintf("https://github.com/acme/widget/issues/%d", num),
		}
	}
	return out
}

func newTestModel(t *testing.T, source *stubIssues, opts Options) Model {
	t.Helper()
	factory := func(context.Context, triage.Credentials) (triage.Backend, error) {
		return triage.Backend{Issues: source, Summarizer: stubSummarizer{}}, nil
	}
	opts.Engine = triage.NewEngine(factory)
	if opts.Settings == nil {
		opts.Settings = &memoryStore{}
	}
	return New(context.Background(), opts)
}

// send delivers msg and runs every resulting command to completion.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type: %T", next)
	}
	return runCommands(t, model, cmd)
}

func runCommands(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = runCommands(t, m, c)
		}
		return m
	case tea.QuitMsg:
		return m
	default:
		return send(t, m, msg)
	}
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m = send(t, m, msg)
	}
	return m
}

// startSession fills the form from the store and fetches.
func startSession(t *testing.T, source *stubIssues, opts Options) Model {
	t.Helper()
	opts.RepoURL = "https://github.com/acme/widget"
	opts.APIKey = "gemini-key"
	m := newTestModel(t, source, opts)
	m = press(t, m, "tab", "tab", "enter")
	if m.state.Phase != triage.PhaseTriage {
		t.Fatalf("expected triage, got %s (err %v)", m.state.Phase, m.state.Err)
	}
	return m
}

// rateCurrent sets the type with → and three scores, then advances.
func rateCurrent(t *testing.T, m Model, scores string) Model {
	t.Helper()
	m = press(t, m, "right", "tab")
	for _, r := range scores {
		m = press(t, m, string(r))
	}
	return press(t, m, "enter")
}

func TestInputPersistsEdits(t *testing.T) {
	store := &memoryStore{values: settings.Settings{GeminiAPIKey: "stored-key"}}
	m := newTestModel(t, &stubIssues{}, Options{Settings: store})

	if got := m.inputs[inputAPIKey].Value(); got != "stored-key" {
		t.Errorf("expected stored API key in form, got %q", got)
	}

	m = typeText(t, m, "https://github.com/acme/widget")
	if store.values.RepoURL != "https://github.com/acme/widget" {
		t.Errorf("expected repo URL persisted, got %q", store.values.RepoURL)
	}

	m = press(t, m, "tab")
	m = typeText(t, m, "ghp_abc")
	if store.values.GitHubToken != "ghp_abc" {
		t.Errorf("expected token persisted, got %q", store.values.GitHubToken)
	}
	if m.focus != inputToken {
		t.Errorf("expected token field focused, got %d", m.focus)
	}
}

func TestInputValidationErrorsStayOnForm(t *testing.T) {
	m := newTestModel(t, &stubIssues{}, Options{RepoURL: "not-a-url", APIKey: "k"})
	m = press(t, m, "tab", "tab", "enter")

	if m.state.Phase != triage.PhaseInput {
		t.Fatalf("expected input phase, got %s", m.state.Phase)
	}
	var inputErr *triage.UserInputError
	if !errors.As(m.state.Err, &inputErr) {
		t.Fatalf("expected UserInputError, got %v", m.state.Err)
	}
	if !strings.Contains(m.View(), "repository URL") {
		t.Errorf("expected inline error in view:\n%s", m.View())
	}
}

func TestFetchErrorReturnsToForm(t *testing.T) {
	source := &stubIssues{err: &github.APIError{Kind: github.KindNotFound, StatusCode: 404}}
	m := newTestModel(t, source, Options{RepoURL: "https://github.com/acme/missing", APIKey: "k"})
	m = press(t, m, "tab", "tab", "enter")

	if m.state.Phase != triage.PhaseInput {
		t.Fatalf("expected input phase, got %s", m.state.Phase)
	}
	if !strings.Contains(m.View(), "repository not found") {
		t.Errorf("expected not found message in view:\n%s", m.View())
	}
}

func TestTriageFlowSkipsAndCompletes(t *testing.T) {
	source := &stubIssues{issues: testIssues(3), blocked: map[int]bool{2: true}}
	m := startSession(t, source, Options{Target: 2})

	if m.state.Summary != "Summary: Title: Issue 1" {
		t.Errorf("unexpected summary %q", m.state.Summary)
	}
	if !strings.Contains(m.View(), "#1 Issue 1") {
		t.Errorf("expected issue header in view:\n%s", m.View())
	}

	m = rateCurrent(t, m, "123")
	cur, _ := m.state.Current()
	if cur.Number != 3 {
		t.Fatalf("expected #2 to be skipped, on #%d", cur.Number)
	}
	if m.field != triage.FieldType {
		t.Errorf("rating focus should reset on a new issue, got %s", m.field)
	}

	m = rateCurrent(t, m, "454")
	if m.state.Phase != triage.PhaseComplete || m.state.Outcome != triage.OutcomeTargetReached {
		t.Fatalf("expected target reached, got %s/%s", m.state.Phase, m.state.Outcome)
	}
	if !strings.Contains(m.View(), "Target reached") {
		t.Errorf("expected completion headline:\n%s", m.View())
	}

	entry, _ := m.state.Scores.Get(1)
	if entry.Type != "feat" || entry.Ambiguity != "1" || entry.Scale != "2" || entry.Novelty != "3" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestRatingKeys(t *testing.T) {
	m := startSession(t, &stubIssues{issues: testIssues(2)}, Options{})

	m = press(t, m, "left")
	if m.state.Draft.Type != "revert" {
		t.Errorf("← from unset should wrap to the last type, got %q", m.state.Draft.Type)
	}
	m = press(t, m, "backspace")
	if m.state.Draft.Type != "" {
		t.Errorf("backspace should clear, got %q", m.state.Draft.Type)
	}

	m = press(t, m, "x")
	if m.state.Draft.Type != "" || m.field != triage.FieldType {
		t.Error("score keys are ignored on the type field")
	}

	m = press(t, m, "tab", "x")
	if m.state.Draft.Ambiguity != triage.ScoreX || m.field != triage.FieldScale {
		t.Errorf("expected x on ambiguity and focus on scale, got %q / %s", m.state.Draft.Ambiguity, m.field)
	}

	m = press(t, m, "shift+tab", "right")
	if m.state.Draft.Ambiguity != "1" {
		t.Errorf("→ after x should give 1, got %q", m.state.Draft.Ambiguity)
	}

	m = press(t, m, "enter")
	if !errors.Is(m.state.Err, triage.ErrIncompleteRating) {
		t.Errorf("expected incomplete rating error, got %v", m.state.Err)
	}
}

func TestExitRequiresConfirmation(t *testing.T) {
	m := startSession(t, &stubIssues{issues: testIssues(2)}, Options{})
	m = rateCurrent(t, m, "111")

	m = press(t, m, "esc")
	if !m.state.ConfirmingExit || !strings.Contains(m.View(), "Exit session?") {
		t.Fatal("expected exit confirmation modal")
	}

	m = press(t, m, "n")
	if m.state.ConfirmingExit || m.state.Scores.Len() != 1 {
		t.Fatal("cancel should keep the session")
	}

	m = press(t, m, "esc", "y")
	if m.state.Phase != triage.PhaseInput || m.state.Scores.Len() != 0 {
		t.Fatalf("expected discarded session, got %s with %d scores", m.state.Phase, m.state.Scores.Len())
	}
	if m.inputs[inputRepo].Value() != "https://github.com/acme/widget" {
		t.Error("form values should survive an exit")
	}
}

func TestFinishEarlyAndExport(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	m := startSession(t, &stubIssues{issues: testIssues(3)}, Options{
		ReportDir: dir,
		Now:       func() time.Time { return now },
	})

	m = rateCurrent(t, m, "1x2")
	m = press(t, m, "f")
	if m.state.Phase != triage.PhaseComplete || m.state.Outcome != triage.OutcomeFinishedEarly {
		t.Fatalf("expected finished early, got %s/%s", m.state.Phase, m.state.Outcome)
	}

	m = press(t, m, "e")
	path := filepath.Join(dir, "issue-scores-2026-10-19.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected report at %s: %v", path, err)
	}
	if !strings.Contains(string(data), `1,"Issue 1",https://github.com/acme/widget/issues/1,feat,1,x,2,No`) {
		t.Errorf("unexpected report:\n%s", data)
	}
	if !strings.Contains(m.View(), "Saved "+path) {
		t.Errorf("expected export notice:\n%s", m.View())
	}

	m = press(t, m, "n")
	if m.state.Phase != triage.PhaseInput {
		t.Errorf("expected new session form, got %s", m.state.Phase)
	}
}

func TestOpenIssueInBrowser(t *testing.T) {
	var opened []string
	m := startSession(t, &stubIssues{issues: testIssues(1)}, Options{
		OpenURL: func(url string) error {
			opened = append(opened, url)
			return errors.New("no browser")
		},
	})

	m = press(t, m, "o")
	if len(opened) != 1 || opened[0] != "https://github.com/acme/widget/issues/1" {
		t.Errorf("unexpected opened URLs %v", opened)
	}
	if !strings.Contains(m.View(), "Could not open browser") {
		t.Errorf("expected open failure notice:\n%s", m.View())
	}
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t, &stubIssues{}, Options{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestStaleEffectResultIgnored(t *testing.T) {
	m := startSession(t, &stubIssues{issues: testIssues(2)}, Options{})
	stale := triage.Task{SessionID: m.state.SessionID, Index: 5, IssueNumber: 99}

	m = send(t, m, eventMsg{ev: triage.SummaryReady{Task: stale, Text: "stale"}})
	if m.state.Summary == "stale" {
		t.Error("stale summary must be dropped")
	}
}

func TestWindowResize(t *testing.T) {
	m := startSession(t, &stubIssues{issues: testIssues(1)}, Options{})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.summary.Width != 116 || m.summary.Height != summaryHeight(40) {
		t.Errorf("unexpected viewport size %dx%d", m.summary.Width, m.summary.Height)
	}
	if m.View() == "" {
		t.Error("expected a rendered view")
	}
}
