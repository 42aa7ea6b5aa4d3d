package fulfillment

import "context"

// ---------------------------------------------------------------------------
// Remote Session Port
// ---------------------------------------------------------------------------

// Credentials authenticate a session against the remote service
type Credentials struct {
	Username string
	Password string
}

// IsComplete returns true if both username and password are set
func (c Credentials) IsComplete() bool {
	return c.Username != "" && c.Password != ""
}

// Session is a per-request unit of work against the remote service.
// Queries run immediately; Insert, Update and Delete only queue a change
// until Commit. A Session is not safe for concurrent use.
type Session interface {
	LookupSource

	QueryOrders(ctx context.Context, filter Filter) ([]RemoteOrder, error)
	QueryOrderItems(ctx context.Context, filter Filter) ([]RemoteOrderItem, error)
	QueryShipments(ctx context.Context, filter Filter) ([]RemoteShipment, error)

	// Insert queues entity for creation. After a successful Commit the
	// remote-assigned key is written back into entity.
	Insert(entity Entity) error
	// Update queues entity for replacement; its key must be set
	Update(entity Entity) error
	// Delete queues entity for removal; its key must be set
	Delete(entity Entity) error
	// Commit flushes every change queued since the last commit as one unit
	Commit(ctx context.Context) error
}

// SessionFactory opens sessions
type SessionFactory interface {
	Open(ctx context.Context, creds Credentials) (Session, error)
}
