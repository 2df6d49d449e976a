package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/kindflow/errors"
)

// ComputeContext tracks one plugin compute call.
type ComputeContext struct {
	Plugin    string
	Batch     int
	StartTime time.Time
	Metrics   *StreamMetrics

	span trace.Span
}

// StartCompute opens the compute span for batch number batch of plugin.
// If metrics is nil, metric recording is silently skipped.
func StartCompute(ctx context.Context, metrics *StreamMetrics, plugin, kind string, batch int) (context.Context, *ComputeContext) {
	ctx, span := StartSpan(ctx, SpanCompute, trace.WithAttributes(
		attribute.String(AttrPlugin, plugin),
		attribute.String(AttrKind, kind),
		attribute.Int(AttrBatch, batch),
	))
	return ctx, &ComputeContext{
		Plugin:    plugin,
		Batch:     batch,
		StartTime: time.Now(),
		Metrics:   metrics,
		span:      span,
	}
}

// End closes the span and records the outcome.
func (cc *ComputeContext) End(ctx context.Context, rows int, err error) {
	duration := time.Since(cc.StartTime)
	if err != nil {
		cc.span.RecordError(err)
		cc.span.SetStatus(codes.Error, err.Error())
		cc.span.SetAttributes(attribute.String(AttrStatus, "error"))
	} else {
		cc.span.SetAttributes(
			attribute.String(AttrStatus, "ok"),
			attribute.Int(AttrRows, rows),
		)
	}
	cc.span.End()

	if cc.Metrics == nil {
		return
	}
	if err != nil {
		code := string(errors.ErrCodeInternal)
		if appErr, ok := errors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		cc.Metrics.RecordError(ctx, cc.Plugin, code)
		return
	}
	cc.Metrics.RecordCompute(ctx, cc.Plugin, rows, duration)
}

// Duration returns the elapsed time since the call started.
func (cc *ComputeContext) Duration() time.Duration {
	return time.Since(cc.StartTime)
}
