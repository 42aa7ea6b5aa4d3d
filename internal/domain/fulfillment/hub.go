package fulfillment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Hub Value Objects
// ---------------------------------------------------------------------------

// HubShipmentStatusShipped is the status reported to the hub for every polled shipment
const HubShipmentStatusShipped = "shipped"

// ShippingAddress represents a hub shipping address
type ShippingAddress struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// ShipName synthesizes the single remote ship-to name field.
// Both names are required; no other normalization is applied.
func (a *ShippingAddress) ShipName() (string, error) {
	if a.Firstname == "" || a.Lastname == "" {
		return "", ErrShipToNameIncomplete
	}
	return a.Firstname + " " + a.Lastname, nil
}

// HubTotals holds the monetary totals of a hub order
type HubTotals struct {
	Order decimal.Decimal `json:"order"`
}

// HubOrder represents an order delivered by the hub's add-order webhook
type HubOrder struct {
	ID                   string           `json:"id"`
	Email                string           `json:"email"`
	DeliveryInstructions string           `json:"delivery_instructions"`
	PlacedOn             time.Time        `json:"placed_on"`
	Totals               HubTotals        `json:"totals"`
	MarketplaceID        string           `json:"marketplace_id"`
	ShippingAddress      *ShippingAddress `json:"shipping_address"`
	ShippingCarrier      string           `json:"shipping_carrier"`
	ShippingMethod       string           `json:"shipping_method"`
	CustomField1         string           `json:"custom_field1"`
	CustomField2         string           `json:"custom_field2"`
	CustomField3         string           `json:"custom_field3"`
	LineItems            []HubLineItem    `json:"line_items"`
}

// HubShipment represents a hub shipment: the part of an order split off for shipping.
// It corresponds 1:1 with a RemoteOrder.
type HubShipment struct {
	ID                   string           `json:"id"`
	Email                string           `json:"email"`
	DeliveryInstructions string           `json:"delivery_instructions"`
	CreatedAt            time.Time        `json:"created_at"`
	OrderTotal           decimal.Decimal  `json:"order_total"`
	Status               string           `json:"status"`
	HoldUntil            *time.Time       `json:"hold_until,omitempty"`
	ShippingAddress      *ShippingAddress `json:"shipping_address"`
	ShippingCarrier      string           `json:"shipping_carrier"`
	ShippingMethod       string           `json:"shipping_method"`
	Items                []HubLineItem    `json:"items"`
}

// HubLineItem represents a single line of a hub order or shipment
type HubLineItem struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   string          `json:"image_url"`
	Properties Properties      `json:"properties,omitempty"`
}

// TrackingReference is the shipment reference sent back by the hub after a poll:
// OrderID is the remote-assigned order id, not the business order number.
type TrackingReference struct {
	OrderID  string `json:"order_id"`
	Tracking string `json:"tracking"`
}

// HubOrderUpdate is the partial order object emitted back to the hub
type HubOrderUpdate struct {
	ID             string `json:"id"`
	ShipStationID  string `json:"shipstation_id,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	ShippingStatus string `json:"shipping_status,omitempty"`
}

// HubShipmentUpdate is the shipment object emitted to the hub by the poll flow
type HubShipmentUpdate struct {
	ID              string          `json:"id"`
	Tracking        string          `json:"tracking"`
	ShipStationID   string          `json:"shipstation_id"`
	Status          string          `json:"status"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

// Property is a single key/value pair of line item properties
type Property struct {
	Key   string
	Value string
}

// Properties is an order-preserving string mapping.
// A nil Properties means the hub sent none; an empty non-nil value means it sent {}.
type Properties []Property

// Get returns the value stored for key
func (p Properties) Get(key string) (string, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

// UnmarshalJSON decodes a JSON object keeping the key order of the document.
// Non-string values are kept as their raw JSON text.
func (p *Properties) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fulfillment: properties must be a JSON object")
	}

	props := Properties{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fulfillment: invalid property key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		props = append(props, Property{Key: key, Value: rawPropertyValue(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = props
	return nil
}

// MarshalJSON encodes the properties as a JSON object in stored order
func (p Properties) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func rawPropertyValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}
