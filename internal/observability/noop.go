package observability

import "context"

// NoOpTracer is used when Langfuse is not configured.
type NoOpTracer struct{}

func (n *NoOpTracer) StartTrace(sessionID string, _ TraceOptions) TraceContext {
	return TraceContext{SessionID: sessionID}
}

func (n *NoOpTracer) StartIssue(_ TraceContext, issueNumber int, _ SpanOptions) SpanContext {
	return SpanContext{IssueNumber: issueNumber}
}

func (n *NoOpTracer) RecordGeneration(_ SpanContext, _ GenerationInput) {}

func (n *NoOpTracer) RecordSkipped(_ SpanContext, _ string, _ string) {}

func (n *NoOpTracer) EndIssue(_ SpanContext, _ string, _ int64) {}

func (n *NoOpTracer) CompleteTrace(_ TraceContext, _ CompleteOptions) {}

func (n *NoOpTracer) Flush(_ context.Context) error { return nil }

func (n *NoOpTracer) Stop(_ context.Context) error { return nil }
