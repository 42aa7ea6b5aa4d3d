package fulfillment

import (
	"context"
	"time"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// ErrorReporter receives every error that turns an operation into a failure
type ErrorReporter interface {
	Report(ctx context.Context, operation fulfillment.SyncOperation, err error)
}

// SyncObserver is notified once per finished operation
type SyncObserver interface {
	ObserveSync(operation fulfillment.SyncOperation, outcome fulfillment.SyncOutcome, elapsed time.Duration)
}

// NopErrorReporter discards reports
type NopErrorReporter struct{}

// Report implements ErrorReporter
func (NopErrorReporter) Report(context.Context, fulfillment.SyncOperation, error) {}

// NopSyncObserver discards observations
type NopSyncObserver struct{}

// ObserveSync implements SyncObserver
func (NopSyncObserver) ObserveSync(fulfillment.SyncOperation, fulfillment.SyncOutcome, time.Duration) {
}
