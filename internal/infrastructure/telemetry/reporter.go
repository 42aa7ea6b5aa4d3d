package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/logger"
)

// ErrorReporter logs operation failures, marks the active span as failed and
// counts the failure. metrics may be nil.
type ErrorReporter struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewErrorReporter creates an ErrorReporter
func NewErrorReporter(log *zap.Logger, metrics *Metrics) *ErrorReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorReporter{logger: log.Named("sync"), metrics: metrics}
}

// Report implements the application ErrorReporter port
func (r *ErrorReporter) Report(ctx context.Context, operation fulfillment.SyncOperation, err error) {
	if err == nil {
		return
	}

	log := logger.WithTraceContext(ctx, r.logger)
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	log.Error("Sync operation failed",
		zap.String("operation", string(operation)),
		zap.Error(err),
	)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("sync.operation", string(operation))))
	span.SetStatus(codes.Error, string(operation)+" failed")

	if r.metrics != nil {
		r.metrics.countError(operation)
	}
}
