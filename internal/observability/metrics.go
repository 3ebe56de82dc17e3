package observability

import (
	"context"
	"fmt"
	"time"

	"niena/internal/ai"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Toggles switches groups of custom instruments on and off
type Toggles struct {
	AIOperations   bool
	TokenUsage     bool
	Business       bool
	Infrastructure bool
}

// Metrics holds all custom instruments. The zero value records nothing, so
// callers never need to check whether observability is enabled.
type Metrics struct {
	toggles Toggles

	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business metrics
	WorkflowRuns    metric.Int64Counter
	CreditsConsumed metric.Int64Counter
	JobsIngested    metric.Int64Counter

	// Infrastructure metrics
	RateLimitHits metric.Int64Counter
}

// Interfaces the metrics satisfy, checked here so a signature drift fails to compile
var _ ai.OperationObserver = (*Metrics)(nil)

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter, toggles Toggles) (*Metrics, error) {
	m := &Metrics{toggles: toggles}

	if err := m.createAIMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createBusinessMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createInfrastructureMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createAIMetrics(meter metric.Meter) error {
	var err error

	m.AIProcessingTime, err = meter.Float64Histogram(
		"niena_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AIRequestCount, err = meter.Int64Counter(
		"niena_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	m.AIErrorCount, err = meter.Int64Counter(
		"niena_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"niena_ai_token_usage",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI token usage metric: %w", err)
	}
	return nil
}

func (m *Metrics) createBusinessMetrics(meter metric.Meter) error {
	var err error

	m.WorkflowRuns, err = meter.Int64Counter(
		"niena_workflow_runs_total",
		metric.WithDescription("Background workflow runs by workflow and outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow runs metric: %w", err)
	}

	m.CreditsConsumed, err = meter.Int64Counter(
		"niena_credits_consumed_total",
		metric.WithDescription("Credits charged by operation"),
	)
	if err != nil {
		return fmt.Errorf("failed to create credits consumed metric: %w", err)
	}

	m.JobsIngested, err = meter.Int64Counter(
		"niena_jobs_ingested_total",
		metric.WithDescription("Job postings processed by ingestion, by outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create jobs ingested metric: %w", err)
	}
	return nil
}

func (m *Metrics) createInfrastructureMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"niena_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}
	return nil
}

// ObserveAIOperation records duration, outcome and token usage of one AI stage call
func (m *Metrics) ObserveAIOperation(ctx context.Context, stage string, duration time.Duration, usage *ai.TokenUsage, err error) {
	if m.AIRequestCount == nil || !m.toggles.AIOperations {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", stage),
		attribute.Bool("success", err == nil),
	}
	m.AIProcessingTime.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if usage == nil {
		return
	}
	// Token counts always go on the span for debugging
	oteltrace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
	if m.toggles.TokenUsage {
		m.recordTokens(ctx, stage, usage)
	}
}

func (m *Metrics) recordTokens(ctx context.Context, stage string, usage *ai.TokenUsage) {
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}
	for _, tt := range tokenTypes {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", stage),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordWorkflow counts one finished background workflow
func (m *Metrics) RecordWorkflow(ctx context.Context, workflow string, success bool) {
	if m.WorkflowRuns == nil || !m.toggles.Business {
		return
	}
	m.WorkflowRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.Bool("success", success),
	))
}

// RecordJobsIngested counts the outcome of one ingestion run
func (m *Metrics) RecordJobsIngested(ctx context.Context, stored, skipped, failed int) {
	if m.JobsIngested == nil || !m.toggles.Business {
		return
	}
	for outcome, n := range map[string]int{"stored": stored, "skipped": skipped, "failed": failed} {
		if n > 0 {
			m.JobsIngested.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}
}

// RecordCreditsConsumed counts credits charged for operation
func (m *Metrics) RecordCreditsConsumed(ctx context.Context, operation string, amount int) {
	if m.CreditsConsumed == nil || !m.toggles.Business {
		return
	}
	m.CreditsConsumed.Add(ctx, int64(amount), metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordRateLimitHit counts one rejected request; limiter names the key kind (ip, api_key, user)
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limiter string) {
	if m.RateLimitHits == nil || !m.toggles.Infrastructure {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", limiter)))
}
