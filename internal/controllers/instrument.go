package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrumentation wraps every operation in a span and a latency observation
type instrumentation struct {
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

// start opens a span for op. The returned func must be deferred with a
// pointer to the operation's named error result.
func (i instrumentation) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	started := time.Now()
	ctx, span := i.tracer.Start(ctx, op, trace.WithAttributes(attrs...))

	return ctx, func(errp *error) {
		i.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())

		if err := *errp; err != nil && isFault(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			i.metrics.OperationErrors.WithLabelValues(op).Inc()
		}
		span.End()
	}
}

// isFault separates genuine failures from expected domain outcomes
func isFault(err error) bool {
	return !errors.Is(err, models.ErrNotFound) &&
		!errors.Is(err, models.ErrInvalidInput) &&
		!errors.Is(err, models.ErrAlreadyInList)
}
