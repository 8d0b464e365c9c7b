package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

// Severity levels for structured logs
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// DefaultLogID names the Cloud Logging log written by the triage tool.
const DefaultLogID = "issue-scoring"

// LogEntry is the JSON shape written by FallbackLogger and the payload sent
// by CloudLogger.
type LogEntry struct {
	Severity  Severity               `json:"severity"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id,omitempty"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LoggerInterface defines the structured logging operations the triage
// engine uses.
type LoggerInterface interface {
	Log(severity Severity, message string, fields map[string]interface{})
	LogInfo(message string)
	LogWarning(message string)
	LogError(message string)
	SetSessionID(sessionID string)
	Flush() error
	Close() error
}

// entryWriter is the subset of *logging.Logger used by CloudLogger.
type entryWriter interface {
	Log(e logging.Entry)
	Flush() error
}

// CloudLogger sends structured entries to Cloud Logging through the
// cloud.google.com/go/logging client.
type CloudLogger struct {
	writer    entryWriter
	closeFn   func() error
	sessionID string
	labels    map[string]string
	mu        sync.Mutex
	closed    bool
}

// CloudLoggerOption allows configuring the CloudLogger
type CloudLoggerOption func(*CloudLogger)

// WithLabels adds custom labels to all log entries
func WithLabels(labels map[string]string) CloudLoggerOption {
	return func(cl *CloudLogger) {
		for k, v := range labels {
			cl.labels[k] = v
		}
	}
}

// WithCloseFunc sets the function run once by Close after the final flush.
func WithCloseFunc(fn func() error) CloudLoggerOption {
	return func(cl *CloudLogger) {
		cl.closeFn = fn
	}
}

func newCloudLogger(w entryWriter, opts ...CloudLoggerOption) *CloudLogger {
	cl := &CloudLogger{
		writer: w,
		labels: map[string]string{"component": "issue-scoring"},
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// CloudLoggingConfig selects the project and log for NewCloudLogger.
type CloudLoggingConfig struct {
	ProjectID       string
	LogID           string
	CredentialsFile string
}

// NewCloudLogger dials Cloud Logging for cfg.ProjectID.
func NewCloudLogger(ctx context.Context, cfg CloudLoggingConfig, opts ...CloudLoggerOption) (*CloudLogger, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("cloud logging requires a project ID")
	}
	if cfg.LogID == "" {
		cfg.LogID = DefaultLogID
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := logging.NewClient(ctx, "projects/"+cfg.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud logging client: %w", err)
	}

	opts = append([]CloudLoggerOption{WithCloseFunc(client.Close)}, opts...)
	return newCloudLogger(client.Logger(cfg.LogID), opts...), nil
}

// Log sends a structured entry. Entries logged after Close are dropped.
func (cl *CloudLogger) Log(severity Severity, message string, fields map[string]interface{}) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return
	}

	labels := make(map[string]string, len(cl.labels)+1)
	for k, v := range cl.labels {
		labels[k] = v
	}
	if cl.sessionID != "" {
		labels["session_id"] = cl.sessionID
	}

	payload := map[string]interface{}{"message": message}
	if len(fields) > 0 {
		payload["fields"] = fields
	}

	cl.writer.Log(logging.Entry{
		Timestamp: time.Now().UTC(),
		Severity:  logging.ParseSeverity(string(severity)),
		Payload:   payload,
		Labels:    labels,
	})
}

// LogInfo writes an INFO level log entry
func (cl *CloudLogger) LogInfo(message string) {
	cl.Log(SeverityInfo, message, nil)
}

// LogWarning writes a WARNING level log entry
func (cl *CloudLogger) LogWarning(message string) {
	cl.Log(SeverityWarning, message, nil)
}

// LogError writes an ERROR level log entry
func (cl *CloudLogger) LogError(message string) {
	cl.Log(SeverityError, message, nil)
}

// SetSessionID labels subsequent entries with sessionID.
func (cl *CloudLogger) SetSessionID(sessionID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.sessionID = sessionID
}

// Flush blocks until buffered entries are sent.
func (cl *CloudLogger) Flush() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil
	}
	return cl.writer.Flush()
}

// Close flushes remaining entries and releases the client.
func (cl *CloudLogger) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil
	}
	cl.closed = true

	err := cl.writer.Flush()
	if cl.closeFn != nil {
		if cerr := cl.closeFn(); err == nil {
			err = cerr
		}
	}
	return err
}

// FallbackLogger writes the same structured entries as JSON lines to a
// local io.Writer.
type FallbackLogger struct {
	writer    io.Writer
	sessionID string
	labels    map[string]string
	mu        sync.Mutex
}

// NewFallbackLogger creates a logger that writes structured JSON to writer.
func NewFallbackLogger(writer io.Writer) *FallbackLogger {
	return &FallbackLogger{
		writer: writer,
		labels: map[string]string{"component": "issue-scoring"},
	}
}

// Log writes a structured log entry to the writer
func (fl *FallbackLogger) Log(severity Severity, message string, fields map[string]interface{}) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	entry := LogEntry{
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
		SessionID: fl.sessionID,
		Labels:    fl.labels,
		Fields:    fields,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(fl.writer, `{"severity":"ERROR","message":"failed to marshal log entry: %v"}`+"\n", err)
		return
	}
	fmt.Fprintf(fl.writer, "%s\n", data)
}

// LogInfo writes an INFO level log entry
func (fl *FallbackLogger) LogInfo(message string) {
	fl.Log(SeverityInfo, message, nil)
}

// LogWarning writes a WARNING level log entry
func (fl *FallbackLogger) LogWarning(message string) {
	fl.Log(SeverityWarning, message, nil)
}

// LogError writes an ERROR level log entry
func (fl *FallbackLogger) LogError(message string) {
	fl.Log(SeverityError, message, nil)
}

// SetSessionID tags subsequent entries with sessionID.
func (fl *FallbackLogger) SetSessionID(sessionID string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.sessionID = sessionID
}

// Flush is a no-op; writes are synchronous.
func (fl *FallbackLogger) Flush() error {
	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (fl *FallbackLogger) Close() error {
	return nil
}

// NewLogger returns a CloudLogger when cfg names a project and the client
// can be created, and a FallbackLogger on w otherwise. A non-nil error
// explains why the fallback was chosen when a project was configured.
func NewLogger(ctx context.Context, cfg CloudLoggingConfig, w io.Writer, opts ...CloudLoggerOption) (LoggerInterface, error) {
	if cfg.ProjectID == "" {
		return NewFallbackLogger(w), nil
	}
	cl, err := NewCloudLogger(ctx, cfg, opts...)
	if err != nil {
		return NewFallbackLogger(w), err
	}
	return cl, nil
}

var (
	_ LoggerInterface = (*CloudLogger)(nil)
	_ LoggerInterface = (*FallbackLogger)(nil)
)
