package observability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alaws-scottlogic/issue-scoring/internal/retry"
)

const (
	// DefaultBaseURL is the Langfuse Cloud ingestion endpoint.
	DefaultBaseURL = "https://cloud.langfuse.com"

	// ingestionPath is the batched ingestion API path.
	ingestionPath = "/api/public/ingestion"

	// flushInterval is how often the background goroutine flushes events.
	flushInterval = 5 * time.Second

	// maxBatchSize is the maximum number of events to send in one request.
	maxBatchSize = 50

	// eventBufferSize is the channel buffer size for incoming events.
	eventBufferSize = 1024

	// retryDelay is the delay before the single resend of a failed batch.
	retryDelay = 500 * time.Millisecond
)

// LangfuseConfig holds Langfuse connection parameters.
type LangfuseConfig struct {
	PublicKey string
	SecretKey string
	BaseURL   string // Defaults to https://cloud.langfuse.com
	Timeout   time.Duration
}

// Enabled reports whether both keys are present.
func (c LangfuseConfig) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// LangfuseTracer sends trace, span and generation events to the Langfuse
// ingestion API in batches. Events are buffered in a channel and flushed
// periodically or on explicit Flush calls.
type LangfuseTracer struct {
	config     LangfuseConfig
	authHeader string
	client     *http.Client
	events     chan ingestionEvent
	logger     *log.Logger
	policy     retry.Policy

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
	flushMu  sync.Mutex // serializes drains
}

// NewLangfuseTracer creates a LangfuseTracer and starts its background
// flush goroutine. Call Stop before exit so buffered events are sent.
func NewLangfuseTracer(cfg LangfuseConfig, logger *log.Logger) *LangfuseTracer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	auth := base64.StdEncoding.EncodeToString([]byte(cfg.PublicKey + ":" + cfg.SecretKey))

	t := &LangfuseTracer{
		config:     cfg,
		authHeader: "Basic " + auth,
		client:     &http.Client{Timeout: cfg.Timeout},
		events:     make(chan ingestionEvent, eventBufferSize),
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
	t.policy = retry.Policy{
		Delays: []time.Duration{retryDelay},
		Clock:  retry.RealClock{},
		OnRetry: func(_ int, _ time.Duration, err error) {
			t.logger.Printf("Warning: Langfuse batch send failed, retrying: %v", err)
		},
	}

	t.wg.Add(1)
	go t.flushLoop()

	return t
}

// NewTracer returns a LangfuseTracer when cfg carries keys and a NoOpTracer
// otherwise.
func NewTracer(cfg LangfuseConfig, logger *log.Logger) Tracer {
	if !cfg.Enabled() {
		return &NoOpTracer{}
	}
	return NewLangfuseTracer(cfg, logger)
}

// StartTrace creates a Langfuse trace for a session. The session ID doubles
// as the trace ID.
func (t *LangfuseTracer) StartTrace(sessionID string, opts TraceOptions) TraceContext {
	t.enqueue(ingestionEvent{
		Type: "trace-create",
		Body: map[string]interface{}{
			"id":        sessionID,
			"name":      "triage-session",
			"sessionId": sessionID,
			"metadata": map[string]interface{}{
				"repository":  opts.Repository,
				"target":      opts.Target,
				"issue_count": opts.IssueCount,
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	})

	return TraceContext{
		TraceID:   sessionID,
		SessionID: sessionID,
		Metadata: map[string]string{
			"repository": opts.Repository,
		},
	}
}

// StartIssue opens a span for one issue of the batch.
func (t *LangfuseTracer) StartIssue(trace TraceContext, issueNumber int, opts SpanOptions) SpanContext {
	spanID := uuid.New().String()

	metadata := map[string]interface{}{
		"index": opts.Index,
		"title": opts.Title,
	}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	t.enqueue(ingestionEvent{
		Type: "span-create",
		Body: map[string]interface{}{
			"id":        spanID,
			"traceId":   trace.TraceID,
			"name":      "Issue #" + strconv.Itoa(issueNumber),
			"metadata":  metadata,
			"startTime": time.Now().UTC().Format(time.RFC3339Nano),
		},
	})

	return SpanContext{
		SpanID:      spanID,
		IssueNumber: issueNumber,
		TraceID:     trace.TraceID,
	}
}

// RecordGeneration records a summarizer call as a Langfuse generation.
func (t *LangfuseTracer) RecordGeneration(span SpanContext, gen GenerationInput) {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(gen.DurationMs) * time.Millisecond)

	t.enqueue(ingestionEvent{
		Type: "generation-create",
		Body: map[string]interface{}{
			"id":                  uuid.New().String(),
			"traceId":             span.TraceID,
			"parentObservationId": span.SpanID,
			"name":                gen.Name,
			"model":               gen.Model,
			"input":               gen.Input,
			"output":              gen.Output,
			"metadata": map[string]interface{}{
				"status":      gen.Status,
				"duration_ms": gen.DurationMs,
			},
			"startTime": start.Format(time.RFC3339Nano),
			"endTime":   end.Format(time.RFC3339Nano),
		},
	})
}

// RecordSkipped records a skipped issue as a Langfuse event.
func (t *LangfuseTracer) RecordSkipped(span SpanContext, component string, reason string) {
	t.enqueue(ingestionEvent{
		Type: "event-create",
		Body: map[string]interface{}{
			"id":                  uuid.New().String(),
			"traceId":             span.TraceID,
			"parentObservationId": span.SpanID,
			"name":                component + " Skipped",
			"metadata": map[string]interface{}{
				"skip_reason": reason,
			},
			"startTime": time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
}

// EndIssue closes an issue span with a status and duration.
func (t *LangfuseTracer) EndIssue(span SpanContext, status string, durationMs int64) {
	t.enqueue(ingestionEvent{
		Type: "span-update",
		Body: map[string]interface{}{
			"id":      span.SpanID,
			"traceId": span.TraceID,
			"metadata": map[string]interface{}{
				"status":      status,
				"duration_ms": durationMs,
			},
			"endTime": time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
}

// CompleteTrace updates the session trace with its final tallies.
func (t *LangfuseTracer) CompleteTrace(trace TraceContext, opts CompleteOptions) {
	t.enqueue(ingestionEvent{
		Type: "trace-create",
		Body: map[string]interface{}{
			"id": trace.TraceID,
			"metadata": map[string]interface{}{
				"status":      opts.Status,
				"rated":       opts.Rated,
				"valid":       opts.Valid,
				"skipped":     opts.Skipped,
				"generations": opts.Generations,
			},
		},
	})
}

// Flush sends all buffered events and waits for completion. Safe to call
// concurrently with the background flush loop.
func (t *LangfuseTracer) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	batch := t.drain(0)
	if len(batch) == 0 {
		return nil
	}
	if err := t.sendBatchWithRetry(ctx, batch); err != nil {
		return fmt.Errorf("langfuse flush: %w", err)
	}
	return nil
}

// Stop shuts down the background flush goroutine and flushes remaining
// events. Subsequent calls only flush.
func (t *LangfuseTracer) Stop(ctx context.Context) error {
	t.stopOnce.Do(func() { close(t.stopCh) })
	t.wg.Wait()
	return t.Flush(ctx)
}

// BaseURL returns the configured Langfuse base URL.
func (t *LangfuseTracer) BaseURL() string {
	return t.config.BaseURL
}

// enqueue adds an event to the buffer, dropping it with a warning when the
// buffer is full.
func (t *LangfuseTracer) enqueue(evt ingestionEvent) {
	evt.ID = uuid.New().String()
	evt.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	select {
	case t.events <- evt:
	default:
		t.logger.Printf("Warning: Langfuse event buffer full, dropping event: %s", evt.Type)
	}
}

// drain empties the buffer without blocking. limit > 0 caps the batch.
func (t *LangfuseTracer) drain(limit int) []ingestionEvent {
	var batch []ingestionEvent
	for limit <= 0 || len(batch) < limit {
		select {
		case evt := <-t.events:
			batch = append(batch, evt)
		default:
			return batch
		}
	}
	return batch
}

func (t *LangfuseTracer) flushLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			t.drainAndSend()
			return
		case <-ticker.C:
			t.drainAndSend()
		}
	}
}

func (t *LangfuseTracer) drainAndSend() {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.config.Timeout)
	defer cancel()

	for {
		batch := t.drain(maxBatchSize)
		if len(batch) == 0 {
			return
		}
		if err := t.sendBatchWithRetry(ctx, batch); err != nil {
			t.logger.Printf("Warning: Langfuse batch send failed: %v", err)
		}
	}
}

func (t *LangfuseTracer) sendBatchWithRetry(ctx context.Context, batch []ingestionEvent) error {
	_, err := retry.Do(ctx, t.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.sendBatch(ctx, batch)
	})
	return err
}

func (t *LangfuseTracer) sendBatch(ctx context.Context, batch []ingestionEvent) error {
	body, err := json.Marshal(ingestionPayload{Batch: batch})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL+ingestionPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", t.authHeader)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("langfuse API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result ingestionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.logger.Printf("Warning: Langfuse: could not parse response body: %v", err)
		return nil
	}
	for _, e := range result.Errors {
		t.logger.Printf("Warning: Langfuse: event %s rejected (status=%d): %s", e.ID, e.Status, e.Message)
	}
	return nil
}

// ingestionEvent is a single event in an ingestion batch.
type ingestionEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Body      map[string]interface{} `json:"body"`
}

type ingestionPayload struct {
	Batch []ingestionEvent `json:"batch"`
}

type ingestionResponse struct {
	Successes []ingestionResult `json:"successes"`
	Errors    []ingestionResult `json:"errors"`
}

type ingestionResult struct {
	ID      string `json:"id"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}
