// Package tui is the interactive triage session: an input form, the
// per-issue rating screen and the completion screen with CSV export.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alaws-scottlogic/issue-scoring/internal/settings"
	"github.com/alaws-scottlogic/issue-scoring/internal/triage"
)

const (
	inputRepo = iota
	inputToken
	inputAPIKey
)

var inputKeys = [...]string{
	inputRepo:   settings.KeyRepoURL,
	inputToken:  settings.KeyGitHubToken,
	inputAPIKey: settings.KeyGeminiAPIKey,
}

// SettingsStore persists the input form.
type SettingsStore interface {
	Settings() settings.Settings
	Set(key, value string) error
}

// Options configures New.
type Options struct {
	Engine    *triage.Engine
	Settings  SettingsStore
	Target    int
	ReportDir string

	// Initial values override the stored settings for this run.
	RepoURL string
	Token   string
	APIKey  string

	Now     func() time.Time
	OpenURL func(url string) error
}

// — model ———————————————————————————————————————————————————————————————————

type Model struct {
	ctx    context.Context
	engine *triage.Engine
	state  triage.State

	store     SettingsStore
	reportDir string
	now       func() time.Time
	openURL   func(string) error

	inputs []textinput.Model
	focus  int
	field  triage.Field

	spinner  spinner.Model
	summary  viewport.Model
	progress progress.Model

	width  int
	height int

	notice    string
	noticeErr bool
}

// New returns the session model. The form starts from the stored settings
// with any non-empty Options values on top.
func New(ctx context.Context, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OpenURL == nil {
		opts.OpenURL = openInBrowser
	}

	var stored settings.Settings
	if opts.Settings != nil {
		stored = opts.Settings.Settings()
	}

	m := Model{
		ctx:       ctx,
		engine:    opts.Engine,
		state:     triage.NewState(opts.Target),
		store:     opts.Settings,
		reportDir: opts.ReportDir,
		now:       opts.Now,
		openURL:   opts.OpenURL,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		summary:   viewport.New(defaultWidth-4, summaryHeight(defaultHeight)),
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:     defaultWidth,
		height:    defaultHeight,
	}

	m.inputs = make([]textinput.Model, len(inputKeys))
	for i := range m.inputs {
		ti := textinput.New()
		ti.CharLimit = 200
		ti.Width = 56
		ti.Cursor.SetMode(cursor.CursorStatic)
		m.inputs[i] = ti
	}
	m.inputs[inputRepo].Placeholder = "https://github.com/owner/repo"
	m.inputs[inputToken].Placeholder = "optional, raises the rate limit"
	m.inputs[inputAPIKey].Placeholder = "required"
	for _, i := range []int{inputToken, inputAPIKey} {
		m.inputs[i].EchoMode = textinput.EchoPassword
		m.inputs[i].EchoCharacter = '•'
	}

	m.inputs[inputRepo].SetValue(firstNonEmpty(opts.RepoURL, stored.RepoURL))
	m.inputs[inputToken].SetValue(firstNonEmpty(opts.Token, stored.GitHubToken))
	m.inputs[inputAPIKey].SetValue(firstNonEmpty(opts.APIKey, stored.GeminiAPIKey))
	m.inputs[inputRepo].Focus()

	return m
}

// Run starts the program in the alternate screen and blocks until the
// operator quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// State returns the current session state.
func (m Model) State() triage.State {
	return m.state
}

// — tea.Model ———————————————————————————————————————————————————————————————

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.summary.Width = msg.Width - 4
		m.summary.Height = summaryHeight(msg.Height)
		m.summary.SetContent(m.wrapSummary())
		m.progress.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		return m.apply(msg.ev)

	case exportedMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("Export failed: %v", msg.err), true)
		} else {
			m.setNotice("Saved "+msg.path, false)
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("Could not open browser: %v", msg.err), true)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	switch m.state.Phase {
	case triage.PhaseInput:
		return m.updateInput(msg)
	case triage.PhaseTriage:
		if m.state.ConfirmingExit {
			return m.updateExitConfirm(msg)
		}
		return m.updateTriage(msg)
	case triage.PhaseComplete:
		return m.updateComplete(msg)
	}
	return m, nil
}

// apply runs ev through the reducer, keeps the engine in step and
// schedules the resulting effects.
func (m Model) apply(ev triage.Event) (tea.Model, tea.Cmd) {
	prev := m.state
	next, effects := prev.Apply(ev)
	m.engine.Transition(prev, next)
	m.state = next

	if next.Summary != prev.Summary || next.Index != prev.Index || next.SessionID != prev.SessionID {
		m.summary.SetContent(m.wrapSummary())
		m.summary.GotoTop()
	}
	if next.Index != prev.Index || next.SessionID != prev.SessionID {
		m.field = triage.FieldType
	}

	var focusCmd tea.Cmd
	if next.Phase == triage.PhaseInput && prev.Phase != triage.PhaseInput {
		focusCmd = m.focusInput(m.focus)
	}
	if next.Phase != prev.Phase {
		m.notice = ""
	}

	cmds := make([]tea.Cmd, 0, len(effects)+1)
	for _, eff := range effects {
		cmds = append(cmds, runEffectCmd(m.ctx, m.engine, eff))
	}
	if focusCmd != nil {
		cmds = append(cmds, focusCmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return m, tea.Quit
		case "tab", "down":
			return m, m.focusInput((m.focus + 1) % len(m.inputs))
		case "shift+tab", "up":
			return m, m.focusInput((m.focus + len(m.inputs) - 1) % len(m.inputs))
		case "enter":
			if m.focus < inputAPIKey && strings.TrimSpace(m.inputs[m.focus+1].Value()) == "" {
				return m, m.focusInput(m.focus + 1)
			}
			return m.apply(triage.FetchRequested{
				RepoURL: m.inputs[inputRepo].Value(),
				Token:   m.inputs[inputToken].Value(),
				APIKey:  m.inputs[inputAPIKey].Value(),
			})
		}
	}

	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		m.persist(m.focus, after)
	}
	return m, cmd
}

// persist writes one form field through to the settings store.
func (m *Model) persist(input int, value string) {
	if m.store == nil {
		return
	}
	if err := m.store.Set(inputKeys[input], value); err != nil {
		m.setNotice(fmt.Sprintf("Could not save settings: %v", err), true)
	}
}

func (m *Model) focusInput(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

func (m Model) updateTriage(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch s := key.String(); s {
	case "esc":
		return m.apply(triage.ExitRequested{})
	case "enter":
		return m.apply(triage.Advance{})
	case "f":
		return m.apply(triage.FinishEarly{})
	case "o":
		if issue, ok := m.state.Current(); ok && issue.HTMLURL != "" {
			return m, openURLCmd(m.openURL, issue.HTMLURL)
		}
		return m, nil
	case "tab":
		m.field = (m.field + 1) % triage.Field(len(triage.Fields))
		return m, nil
	case "shift+tab":
		m.field = (m.field + triage.Field(len(triage.Fields)) - 1) % triage.Field(len(triage.Fields))
		return m, nil
	case "left", "h":
		return m.apply(triage.RatingSet{Field: m.field, Value: m.cycle(-1)})
	case "right", "l":
		return m.apply(triage.RatingSet{Field: m.field, Value: m.cycle(1)})
	case "backspace", "delete":
		return m.apply(triage.RatingSet{Field: m.field})
	case "x", "X", "1", "2", "3", "4", "5":
		if m.field == triage.FieldType {
			return m, nil
		}
		model, cmd := m.apply(triage.RatingSet{Field: m.field, Value: s})
		next := model.(Model)
		if next.state.Err == nil && next.field < triage.FieldNovelty {
			next.field++
		}
		return next, cmd
	}

	var cmd tea.Cmd
	m.summary, cmd = m.summary.Update(msg)
	return m, cmd
}

// cycle returns the value dir steps away from the focused field's current
// value, wrapping through unset.
func (m Model) cycle(dir int) string {
	var options []string
	if m.field == triage.FieldType {
		for _, t := range triage.CommitTypes {
			options = append(options, string(t))
		}
	} else {
		for _, s := range triage.ScoreValues {
			options = append(options, string(s))
		}
	}
	options = append([]string{""}, options...)

	current := m.state.Draft.Get(m.field)
	idx := 0
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(options)) % len(options)
	return options[idx]
}

func (m Model) updateExitConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		return m.apply(triage.ExitConfirmed{})
	case "esc", "n", "N":
		return m.apply(triage.ExitCancelled{})
	}
	return m, nil
}

func (m Model) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "esc":
		return m, tea.Quit
	case "e":
		return m, exportCmd(m.reportDir, m.now(), m.state.Scores)
	case "n":
		return m.apply(triage.NewSession{})
	}
	return m, nil
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
