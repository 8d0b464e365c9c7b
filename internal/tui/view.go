package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alaws-scottlogic/issue-scoring/internal/triage"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// — styles ——————————————————————————————————————————————————————————————————

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	labelStyle  = lipgloss.NewStyle().Faint(true).Width(12)

	helpStyle = lipgloss.NewStyle().
			Faint(true).
			PaddingLeft(2)

	fieldStyle = lipgloss.NewStyle().
			Padding(0, 1)

	focusedFieldStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))

	blurredFieldStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false).
			BorderForeground(lipgloss.Color("240"))

	exitModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 3).
			Width(58)
)

// summaryHeight leaves room for the header, rating row, progress and help.
func summaryHeight(total int) int {
	return max(3, total-14)
}

func (m Model) wrapSummary() string {
	if m.state.Summary == "" {
		return ""
	}
	return lipgloss.NewStyle().Width(max(20, m.summary.Width)).Render(m.state.Summary)
}

// — views ———————————————————————————————————————————————————————————————————

func (m Model) View() string {
	var body string
	switch m.state.Phase {
	case triage.PhaseInput:
		body = m.viewInput()
	case triage.PhaseFetching:
		body = m.viewFetching()
	case triage.PhaseTriage:
		body = m.viewTriage()
	case triage.PhaseComplete:
		body = m.viewComplete()
	}

	base := lipgloss.NewStyle().Padding(1, 2).Render(body)
	if m.state.Phase == triage.PhaseTriage && m.state.ConfirmingExit {
		return m.renderExitConfirmOver(base)
	}
	return base
}

func (m Model) viewInput() string {
	labels := [...]string{
		inputRepo:   "Repository URL",
		inputToken:  "GitHub token",
		inputAPIKey: "Gemini API key",
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Issue Scoring") + "\n\n")
	for i, ti := range m.inputs {
		label := labels[i]
		if i == m.focus {
			label = accentStyle.Render(label)
		}
		b.WriteString(label + "\n" + ti.View() + "\n\n")
	}

	if m.state.Err != nil {
		b.WriteString(errStyle.Render(m.state.Err.Error()) + "\n\n")
	}
	b.WriteString(m.renderNotice())
	b.WriteString(helpStyle.Render("Tab next field   Enter fetch issues   Esc quit"))
	return b.String()
}

func (m Model) viewFetching() string {
	return fmt.Sprintf("%s Fetching open issues for %s…\n\n%s",
		m.spinner.View(), boldStyle.Render(m.state.Repo.String()),
		dimStyle.Render(fmt.Sprintf("Target: %d fully scored issues", m.state.Target)))
}

func (m Model) viewTriage() string {
	issue, ok := m.state.Current()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s   Issue %d of %d", m.state.Repo, m.state.Index+1, len(m.state.Issues))) + "\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("#%d %s", issue.Number, issue.Title)) + "\n")
	b.WriteString(dimStyle.Render(issue.HTMLURL) + "\n\n")

	switch {
	case m.state.CheckingPR:
		b.WriteString(m.spinner.View() + " Checking for open pull requests…\n")
	case m.state.Summarizing:
		b.WriteString(m.spinner.View() + " Summarizing discussion…\n")
	case m.state.SummaryErr != nil:
		b.WriteString(warnStyle.Render(m.state.Summary) + "\n")
	default:
		b.WriteString(summaryStyle.Render(m.summary.View()) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderRating() + "\n\n")
	b.WriteString(m.renderProgress() + "\n")

	if m.state.Err != nil {
		b.WriteString("\n" + errStyle.Render(m.state.Err.Error()) + "\n")
	}
	b.WriteString(m.renderNotice())
	b.WriteString("\n" + helpStyle.Render("Tab field   ←/→ change   x/1-5 score   Enter next   o open   f finish   Esc exit"))
	return b.String()
}

func (m Model) renderRating() string {
	cells := make([]string, 0, len(triage.Fields))
	for _, f := range triage.Fields {
		value := m.state.Draft.Get(f)
		if value == "" {
			value = dimStyle.Render("—")
		}
		cell := fieldStyle.Render(dimStyle.Render(f.String()) + "\n" + value)
		if f == m.field {
			cell = focusedFieldStyle.Render(cell)
		} else {
			cell = blurredFieldStyle.Render(cell)
		}
		cells = append(cells, cell)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m Model) renderProgress() string {
	valid := m.state.ValidCount()
	pct := float64(valid) / float64(m.state.Target)
	if pct > 1 {
		pct = 1
	}
	stats := fmt.Sprintf("%d/%d fully scored   %d rated   %d skipped",
		valid, m.state.Target, m.state.Scores.Len(), len(m.state.Skipped))
	return m.progress.ViewAs(pct) + "  " + dimStyle.Render(stats)
}

func (m Model) viewComplete() string {
	var headline string
	switch m.state.Outcome {
	case triage.OutcomeTargetReached:
		headline = okStyle.Render(fmt.Sprintf("Target reached: %d issues fully scored.", m.state.ValidCount()))
	case triage.OutcomeBatchExhausted:
		headline = warnStyle.Render("No more issues in this batch.")
	default:
		headline = boldStyle.Render("Session finished early.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Session complete") + "\n\n")
	b.WriteString(headline + "\n\n")
	b.WriteString(labelStyle.Render("Rated") + fmt.Sprint(m.state.Scores.Len()) + "\n")
	b.WriteString(labelStyle.Render("Scored") + fmt.Sprint(m.state.ValidCount()) + "\n")
	b.WriteString(labelStyle.Render("Skipped") + fmt.Sprint(len(m.state.Skipped)) + "\n\n")

	for _, e := range m.state.Scores.Entries() {
		mark := okStyle.Render("✓")
		if !triage.IsValid(e) {
			mark = dimStyle.Render("x")
		}
		typ := string(e.Type)
		if typ == "" {
			typ = "-"
		}
		b.WriteString(fmt.Sprintf("%s #%-6d %-9s %s/%s/%s  %s\n", mark, e.IssueNumber, typ,
			e.Ambiguity, e.Scale, e.Novelty, truncate(e.Title, m.width-40)))
	}
	b.WriteString("\n")

	b.WriteString(m.renderNotice())
	b.WriteString(helpStyle.Render("e export CSV   n new session   q quit"))
	return b.String()
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	if m.noticeErr {
		return errStyle.Render(m.notice) + "\n\n"
	}
	return okStyle.Render(m.notice) + "\n\n"
}

func (m Model) renderExitConfirmOver(base string) string {
	var b strings.Builder
	b.WriteString(errStyle.Render("Exit session?") + "\n\n")
	b.WriteString(fmt.Sprintf("%d ratings and the fetched issues will be discarded.\n", m.state.Scores.Len()))
	b.WriteString("Cancel and finish early (f) to keep them for export.\n")
	b.WriteString("\n" + dimStyle.Render("y to confirm · Esc/n to cancel"))

	modal := exitModalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("0")),
	)
}

func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
