package fulfillment

import "errors"

// ---------------------------------------------------------------------------
// Fulfillment Errors
// ---------------------------------------------------------------------------

var (
	// Input errors abort an operation before any remote I/O
	ErrShippingAddressRequired = errors.New("fulfillment: shipping_address required")
	ErrShipToNameIncomplete    = errors.New("fulfillment: shipping_address firstname and lastname required")
	ErrInvalidStoreID          = errors.New("fulfillment: invalid store id")
	ErrInvalidMarketplaceID    = errors.New("fulfillment: invalid marketplace id")
	ErrInvalidOrderReference   = errors.New("fulfillment: invalid remote order reference")
	ErrInvalidWatermark        = errors.New("fulfillment: invalid since watermark")

	// Lookup errors (strict strategy only)
	ErrCarrierNotFound = errors.New("fulfillment: carrier not found")
	ErrServiceNotFound = errors.New("fulfillment: shipping service not found")

	// Remote errors
	ErrRemoteOrderNotFound   = errors.New("fulfillment: remote order not found")
	ErrMissingAssignedID     = errors.New("fulfillment: remote service did not assign an id")
	ErrRemoteUnavailable     = errors.New("fulfillment: remote service unavailable")
	ErrRemoteRequestFailed   = errors.New("fulfillment: remote request failed")
	ErrRemoteInvalidResponse = errors.New("fulfillment: invalid remote response")
	ErrRemoteAuthFailed      = errors.New("fulfillment: remote authentication failed")
	ErrUnsupportedEntity     = errors.New("fulfillment: unsupported entity")
	ErrEntityKeyRequired     = errors.New("fulfillment: entity key required")
)
