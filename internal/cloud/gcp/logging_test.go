package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/logging"
)

type fakeEntryWriter struct {
	entries []logging.Entry
	flushes int
	flushFn func() error
}

func (f *fakeEntryWriter) Log(e logging.Entry) {
	f.entries = append(f.entries, e)
}

func (f *fakeEntryWriter) Flush() error {
	f.flushes++
	if f.flushFn != nil {
		return f.flushFn()
	}
	return nil
}

func TestCloudLogger_Log(t *testing.T) {
	w := &fakeEntryWriter{}
	logger := newCloudLogger(w, WithLabels(map[string]string{"repository": "acme/widget"}))
	logger.SetSessionID("sess-1")

	logger.Log(SeverityWarning, "PR check failed", map[string]interface{}{"issue": 4})

	if len(w.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(w.entries))
	}
	entry := w.entries[0]
	if entry.Severity != logging.Warning {
		t.Errorf("Severity = %v, want Warning", entry.Severity)
	}
	if entry.Labels["session_id"] != "sess-1" {
		t.Errorf("session_id label = %q", entry.Labels["session_id"])
	}
	if entry.Labels["repository"] != "acme/widget" || entry.Labels["component"] != "issue-scoring" {
		t.Errorf("unexpected labels %v", entry.Labels)
	}
	payload, ok := entry.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map payload, got %T", entry.Payload)
	}
	if payload["message"] != "PR check failed" {
		t.Errorf("message = %v", payload["message"])
	}
	if fields, ok := payload["fields"].(map[string]interface{}); !ok || fields["issue"] != 4 {
		t.Errorf("unexpected fields %v", payload["fields"])
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestCloudLogger_SeverityHelpers(t *testing.T) {
	w := &fakeEntryWriter{}
	logger := newCloudLogger(w)

	logger.LogInfo("info")
	logger.LogWarning("warning")
	logger.LogError("error")

	want := []logging.Severity{logging.Info, logging.Warning, logging.Error}
	if len(w.entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(w.entries))
	}
	for i, sev := range want {
		if w.entries[i].Severity != sev {
			t.Errorf("entry %d severity = %v, want %v", i, w.entries[i].Severity, sev)
		}
		if _, ok := w.entries[i].Labels["session_id"]; ok {
			t.Errorf("entry %d should carry no session_id before SetSessionID", i)
		}
	}
}

func TestCloudLogger_Close(t *testing.T) {
	w := &fakeEntryWriter{}
	closed := 0
	logger := newCloudLogger(w, WithCloseFunc(func() error {
		closed++
		return nil
	}))

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if closed != 1 || w.flushes != 1 {
		t.Errorf("expected one flush and one close, got flushes=%d closes=%d", w.flushes, closed)
	}

	logger.LogInfo("after close")
	if len(w.entries) != 0 {
		t.Error("entries after Close should be dropped")
	}
	if err := logger.Flush(); err != nil {
		t.Errorf("Flush after Close should be a no-op, got %v", err)
	}
}

func TestCloudLogger_FlushError(t *testing.T) {
	w := &fakeEntryWriter{flushFn: func() error { return errors.New("quota") }}
	logger := newCloudLogger(w, WithCloseFunc(func() error { return nil }))

	if err := logger.Flush(); err == nil {
		t.Error("expected flush error")
	}
	if err := logger.Close(); err == nil || err.Error() != "quota" {
		t.Errorf("expected Close to report flush error, got %v", err)
	}
}

func TestNewCloudLogger_RequiresProject(t *testing.T) {
	if _, err := NewCloudLogger(context.Background(), CloudLoggingConfig{}); err == nil {
		t.Error("expected error without project ID")
	}
}

func TestFallbackLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFallbackLogger(&buf)
	logger.SetSessionID("sess-2")

	logger.LogInfo("fetched 3 issues")
	logger.Log(SeverityError, "summarizer exhausted retries", map[string]interface{}{"issue": 7})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("parse first entry: %v", err)
	}
	if first.Severity != SeverityInfo || first.Message != "fetched 3 issues" || first.SessionID != "sess-2" {
		t.Errorf("unexpected first entry %+v", first)
	}

	var second LogEntry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("parse second entry: %v", err)
	}
	if second.Severity != SeverityError {
		t.Errorf("Severity = %q, want ERROR", second.Severity)
	}
	if second.Fields["issue"] != float64(7) {
		t.Errorf("expected issue field, got %v", second.Fields)
	}

	if err := logger.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewLogger_FallbackWithoutProject(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(context.Background(), CloudLoggingConfig{}, &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if _, ok := logger.(*FallbackLogger); !ok {
		t.Errorf("expected FallbackLogger, got %T", logger)
	}
}
