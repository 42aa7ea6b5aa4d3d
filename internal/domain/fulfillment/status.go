package fulfillment

import (
	"regexp"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// MappedStatus is the closed set of remote statuses a hub shipment can map to
type MappedStatus string

const (
	MappedStatusOnHold           MappedStatus = "on_hold"
	MappedStatusCancelled        MappedStatus = "cancelled"
	MappedStatusAwaitingShipment MappedStatus = "awaiting_shipment"
)

// OrderStatusID returns the remote status code for the mapped status
func (s MappedStatus) OrderStatusID() OrderStatusID {
	switch s {
	case MappedStatusOnHold:
		return OrderStatusOnHold
	case MappedStatusCancelled:
		return OrderStatusCancelled
	default:
		return OrderStatusAwaitingShipment
	}
}

// HubStatusHold is the hub status that puts a remote order on hold
const HubStatusHold = "hold"

var cancelledPattern = regexp.MustCompile(`(?i)^\s*cancell?ed\s*$`)

// StatusMapping is the result of mapping a hub status
type StatusMapping struct {
	Status    MappedStatus
	HoldUntil *time.Time
}

// MapStatus maps a free-form hub shipment status. The mapping is total:
// unknown and empty statuses fall back to awaiting shipment.
func MapStatus(status string, holdUntil *time.Time) StatusMapping {
	switch {
	case status == HubStatusHold:
		return StatusMapping{Status: MappedStatusOnHold, HoldUntil: holdUntil}
	case IsCancelledStatus(status):
		return StatusMapping{Status: MappedStatusCancelled}
	default:
		return StatusMapping{Status: MappedStatusAwaitingShipment}
	}
}

// IsCancelledStatus returns true for any spelling of "cancelled". The whole
// status must match, so "not cancelled" is not a cancellation.
func IsCancelledStatus(status string) bool {
	return cancelledPattern.MatchString(status)
}

// IsTerminalHubStatus returns true if the hub already considers the shipment
// shipped or cancelled. Updates for such shipments are not sent to the remote
// service, which keeps poll results from echoing back as updates.
func IsTerminalHubStatus(status string) bool {
	return strings.EqualFold(status, HubShipmentStatusShipped) || IsCancelledStatus(status)
}
