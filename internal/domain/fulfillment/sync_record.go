package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Records
// ---------------------------------------------------------------------------

// SyncOperation identifies the flow that produced a sync record
type SyncOperation string

const (
	SyncOperationCreateOrder    SyncOperation = "create_order"
	SyncOperationMapTracking    SyncOperation = "map_tracking"
	SyncOperationCreateShipment SyncOperation = "create_shipment"
	SyncOperationUpdateShipment SyncOperation = "update_shipment"
	SyncOperationPollShipments  SyncOperation = "poll_shipments"
)

// Direction returns the sync direction of the operation
func (o SyncOperation) Direction() SyncDirection {
	switch o {
	case SyncOperationMapTracking, SyncOperationPollShipments:
		return SyncDirectionInbound
	default:
		return SyncDirectionOutbound
	}
}

// SyncDirection represents the direction of a sync operation
type SyncDirection string

const (
	// SyncDirectionOutbound pushes hub records to the remote service
	SyncDirectionOutbound SyncDirection = "OUTBOUND"
	// SyncDirectionInbound reflects remote records back to the hub
	SyncDirectionInbound SyncDirection = "INBOUND"
)

// SyncOutcome is the result class of an operation
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "SUCCESS"
	SyncOutcomeSkipped SyncOutcome = "SKIPPED"
	SyncOutcomeFailed  SyncOutcome = "FAILED"
)

// IsValid returns true if the outcome is known
func (o SyncOutcome) IsValid() bool {
	switch o {
	case SyncOutcomeSuccess, SyncOutcomeSkipped, SyncOutcomeFailed:
		return true
	default:
		return false
	}
}

// SyncRecord is the audit entry written for every sync operation.
// Sync flows write records but never read them.
type SyncRecord struct {
	ID            uuid.UUID
	Operation     SyncOperation
	Direction     SyncDirection
	OrderNumber   string
	RemoteOrderID *int64
	Outcome       SyncOutcome
	Message       string
	CreatedAt     time.Time
}

// NewSyncRecord creates a record for operation stamped at now
func NewSyncRecord(operation SyncOperation, orderNumber string, outcome SyncOutcome, message string, now time.Time) *SyncRecord {
	return &SyncRecord{
		ID:          uuid.New(),
		Operation:   operation,
		Direction:   operation.Direction(),
		OrderNumber: orderNumber,
		Outcome:     outcome,
		Message:     message,
		CreatedAt:   now.UTC(),
	}
}

// SyncRecordRepository stores sync records
type SyncRecordRepository interface {
	Save(ctx context.Context, record *SyncRecord) error
	// FindRecent returns up to limit records, newest first
	FindRecent(ctx context.Context, limit int) ([]SyncRecord, error)
	// DeleteBefore removes records created before cutoff and returns how many were removed
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
