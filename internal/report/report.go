// Package report renders committed ratings as the session's CSV artifact.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alaws-scottlogic/issue-scoring/internal/triage"
)

// Header is the fixed first row of every report.
const Header = "Issue Number,Title,URL,Type,Ambiguity,Scale,Novelty,Is Scored (Not X)"

// WriteCSV writes one row per entry in insertion order. The title is
// always quoted; other fields are quoted only when they need it.
func WriteCSV(w io.Writer, scores triage.Scores) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return err
	}

	for _, e := range scores.Entries() {
		scored := "No"
		if triage.IsValid(e) {
			scored = "Yes"
		}
		row := []string{
			strconv.Itoa(e.IssueNumber),
			quote(e.Title),
			field(e.URL),
			field(string(e.Type)),
			field(string(e.Ambiguity)),
			field(string(e.Scale)),
			field(string(e.Novelty)),
			scored,
		}
		if _, err := bw.WriteString(strings.Join(row, ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func field(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

// FileName returns the report name for the calendar date of now.
func FileName(now time.Time) string {
	return fmt.Sprintf("issue-scores-%s.csv", now.Format("2006-01-02"))
}

// Export writes the report for scores into dir and returns its path. An
// existing report for the same day is replaced.
func Export(dir string, now time.Time, scores triage.Scores) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := WriteCSV(f, scores); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
