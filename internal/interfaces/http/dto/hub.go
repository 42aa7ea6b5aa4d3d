package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// Hub parameter names
const (
	ParamUsername      = "username"
	ParamPassword      = "password"
	ParamStoreID       = "shipstation_store_id"
	ParamMarketplaceID = "marketplace_id"
	ParamSince         = "since"
)

// Parameters holds the per-request hub parameters. Scalar JSON values are
// kept as their text form so numeric store ids and string ones read alike.
type Parameters map[string]string

// UnmarshalJSON decodes a flat JSON object of scalar values; null values are skipped
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Parameters, len(raw))
	for key, value := range raw {
		value = bytes.TrimSpace(value)
		switch {
		case bytes.Equal(value, []byte("null")):
			continue
		case len(value) > 0 && value[0] == '"':
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return err
			}
			out[key] = s
		case len(value) > 0 && (value[0] == '{' || value[0] == '['):
			return fmt.Errorf("parameter %q must be a scalar value", key)
		default:
			out[key] = string(value)
		}
	}
	*p = out
	return nil
}

// Get returns the trimmed value of key, or "" when absent
func (p Parameters) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// Credentials returns the remote credentials carried by the request
func (p Parameters) Credentials() fulfillment.Credentials {
	return fulfillment.Credentials{
		Username: p.Get(ParamUsername),
		Password: p.Get(ParamPassword),
	}
}

// Channel merges request parameters over the configured channel defaults
func (p Parameters) Channel(defaults fulfillment.ChannelConfig) fulfillment.ChannelConfig {
	channel := defaults
	if v := p.Get(ParamStoreID); v != "" {
		channel.StoreID = v
	}
	if v := p.Get(ParamMarketplaceID); v != "" {
		channel.MarketplaceID = v
	}
	return channel
}

// ---------------------------------------------------------------------------
// Request Envelopes
// ---------------------------------------------------------------------------

// HubRequest is the part shared by every hub webhook body
type HubRequest struct {
	RequestID  string     `json:"request_id"`
	Parameters Parameters `json:"parameters"`
}

// OrderRequest is the add_order webhook body
type OrderRequest struct {
	HubRequest
	Order *fulfillment.HubOrder `json:"order" binding:"required"`
}

// ShipmentRequest is the add_shipment and update_shipment webhook body
type ShipmentRequest struct {
	HubRequest
	Shipment *fulfillment.HubShipment `json:"shipment" binding:"required"`
}

// TrackingRequest is the map_tracking webhook body
type TrackingRequest struct {
	HubRequest
	Shipment *fulfillment.TrackingReference `json:"shipment" binding:"required"`
}

// PollRequest is the get_shipments webhook body
type PollRequest struct {
	HubRequest
}

// ---------------------------------------------------------------------------
// Response Envelope
// ---------------------------------------------------------------------------

// HubResponse is the body returned to the hub for every webhook
type HubResponse struct {
	RequestID  string                          `json:"request_id"`
	Summary    string                          `json:"summary"`
	Orders     []fulfillment.HubOrderUpdate    `json:"orders,omitempty"`
	Shipments  []fulfillment.HubShipmentUpdate `json:"shipments,omitempty"`
	Parameters map[string]string               `json:"parameters,omitempty"`
	Error      *ErrorInfo                      `json:"error,omitempty"`
}

// NewHubErrorResponse creates a hub response for a request rejected before
// any sync operation ran
func NewHubErrorResponse(requestID, code, message string, details []ValidationDetail) HubResponse {
	return HubResponse{
		RequestID: requestID,
		Summary:   message,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
