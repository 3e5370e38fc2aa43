// Package telemetry wraps Sentry tracing behind a small span API.
package telemetry

import (
	"context"
	"time"

	"github.com/cloo-solutions/finsight/internal/logger"
	"github.com/getsentry/sentry-go"
)

const serviceName = "finsight"

// flushTimeout bounds how long shutdown waits for buffered events.
const flushTimeout = 5 * time.Second

// Config holds Sentry initialization settings.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client with tracing enabled and returns
// a shutdown function that flushes buffered events. An empty DSN yields a
// no-op shutdown so the daemon runs untraced.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler:    sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		return func() {}, err
	}

	logger.Named("telemetry").Infow("sentry tracing initialized",
		"environment", cfg.Environment,
		"sample_rate", cfg.TracesSampleRate)

	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops health checks and makes child spans follow their parent's
// sampling decision.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span.Name == "GET /health" {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes tags a span with the identifiers of the operation it
// covers. Zero fields are skipped.
type SpanAttributes struct {
	Symbol     string
	DocumentID string
	QueryID    string
	Operation  string
}

// Span is a nil-safe handle over a Sentry span.
type Span struct {
	inner *sentry.Span
}

// StartSpan opens a child span under the transaction in ctx, or a new
// transaction when there is none, and tags it with attrs.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.Symbol != "" {
		span.SetTag("symbol", attrs.Symbol)
	}
	if attrs.DocumentID != "" {
		span.SetTag("document_id", attrs.DocumentID)
	}
	if attrs.QueryID != "" {
		span.SetTag("query_id", attrs.QueryID)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports the error.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// CaptureError reports err against the hub in ctx, falling back to the
// global hub outside a request.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
