package tui

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alaws-scottlogic/issue-scoring/internal/report"
	"github.com/alaws-scottlogic/issue-scoring/internal/triage"
)

// — messages ————————————————————————————————————————————————————————————————

// eventMsg carries the result of an effect back into Update.
type eventMsg struct {
	ev triage.Event
}

type exportedMsg struct {
	path string
	err  error
}

type openedMsg struct {
	err error
}

// — commands ————————————————————————————————————————————————————————————————

func runEffectCmd(ctx context.Context, engine *triage.Engine, eff triage.Effect) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{ev: engine.Run(ctx, eff)}
	}
}

func exportCmd(dir string, now time.Time, scores triage.Scores) tea.Cmd {
	return func() tea.Msg {
		path, err := report.Export(dir, now, scores)
		return exportedMsg{path: path, err: err}
	}
}

func openURLCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: open(url)}
	}
}

// openInBrowser hands url to the platform's default handler.
func openInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Run()
}
