package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alaws-scottlogic/issue-scoring/internal/cloud/gcp"
	"github.com/alaws-scottlogic/issue-scoring/internal/config"
)

// sessionLogs holds the sinks a triage run writes to. The terminal belongs
// to the TUI, so nothing here writes to stdout or stderr.
type sessionLogs struct {
	logger *log.Logger
	cloud  gcp.LoggerInterface
	files  []io.Closer
}

// openLogs opens the plain log file and, when configured, the structured
// sink. With a GCP project entries go to Cloud Logging; with --verbose and no
// project they are written as JSON lines next to the log file.
func openLogs(ctx context.Context, cfg config.LoggingConfig) (*sessionLogs, error) {
	logs := &sessionLogs{}

	path := cfg.File
	if path == "" {
		path = config.DefaultLogFile()
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	logs.files = append(logs.files, f)
	logs.logger = log.New(f, "[issue-scoring] ", log.LstdFlags)

	if cfg.GCPProject == "" && !cfg.Verbose {
		return logs, nil
	}

	var fallback io.Writer = io.Discard
	if cfg.Verbose {
		jf, err := openAppend(structuredPath(path))
		if err != nil {
			logs.Close()
			return nil, err
		}
		logs.files = append(logs.files, jf)
		fallback = jf
	}

	cloud, err := gcp.NewLogger(ctx, gcp.CloudLoggingConfig{
		ProjectID:       cfg.GCPProject,
		LogID:           cfg.LogID,
		CredentialsFile: cfg.CredentialsFile,
	}, fallback, gcp.WithLabels(map[string]string{"component": "triage"}))
	if err != nil {
		logs.logger.Printf("Warning: Cloud Logging unavailable, using local structured log: %v", err)
	}
	logs.cloud = cloud
	return logs, nil
}

// Close flushes the structured sink and closes the log files.
func (l *sessionLogs) Close() {
	if l.cloud != nil {
		if err := l.cloud.Close(); err != nil && l.logger != nil {
			l.logger.Printf("Warning: failed to close structured log: %v", err)
		}
	}
	for _, f := range l.files {
		_ = f.Close()
	}
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func structuredPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl"
}
