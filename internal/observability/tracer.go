// Package observability records triage sessions as traces.
package observability

import "context"

// Tracer records the lifecycle of a triage session: one trace per session,
// one span per processed issue, a generation per summarizer call and an
// event per issue skipped because an open pull request references it.
//
// Trace hierarchy:
//
//	Session (Trace)
//	  └── Issue #N (Span)
//	        ├── Summarizer (Generation)
//	        └── PR check (Event, when the issue is skipped)
type Tracer interface {
	StartTrace(sessionID string, opts TraceOptions) TraceContext
	StartIssue(trace TraceContext, issueNumber int, opts SpanOptions) SpanContext
	RecordGeneration(span SpanContext, gen GenerationInput)
	RecordSkipped(span SpanContext, component string, reason string)
	EndIssue(span SpanContext, status string, durationMs int64)
	CompleteTrace(trace TraceContext, opts CompleteOptions)
	Flush(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TraceContext holds the context for an active session trace.
type TraceContext struct {
	TraceID   string
	SessionID string
	Metadata  map[string]string
}

// SpanContext holds the context for an active issue span.
type SpanContext struct {
	SpanID      string
	IssueNumber int
	TraceID     string
}

// TraceOptions configures a new trace.
type TraceOptions struct {
	Repository string
	Target     int
	IssueCount int
}

// SpanOptions configures a new span.
type SpanOptions struct {
	Index    int
	Title    string
	Metadata map[string]string
}

// GenerationInput describes a summarizer invocation to record.
type GenerationInput struct {
	Name       string
	Model      string
	Input      string
	Output     string
	Status     string // "completed" or "error"
	DurationMs int64
}

// CompleteOptions configures trace completion.
type CompleteOptions struct {
	Status      string // "completed", "finished_early", "exited"
	Rated       int
	Valid       int
	Skipped     int
	Generations int
}
