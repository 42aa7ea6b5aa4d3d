package shipstation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// ---------------------------------------------------------------------------
// Envelope Types
// ---------------------------------------------------------------------------

// feed is the verbose JSON envelope of a collection response. Older services
// return d as a bare array, newer ones as {results, __next}.
type feed[T any] struct {
	Results []T
	Next    string
}

func (f *feed[T]) UnmarshalJSON(data []byte) error {
	var env struct {
		D json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	d := bytes.TrimSpace(env.D)
	if len(d) == 0 || bytes.Equal(d, []byte("null")) {
		return fmt.Errorf("missing d envelope")
	}
	if d[0] == '[' {
		return json.Unmarshal(d, &f.Results)
	}
	var page struct {
		Results []T    `json:"results"`
		Next    string `json:"__next"`
	}
	if err := json.Unmarshal(d, &page); err != nil {
		return err
	}
	f.Results, f.Next = page.Results, page.Next
	return nil
}

// entry is the verbose JSON envelope of a single entity
type entry[T any] struct {
	D T `json:"d"`
}

// odataError is the error body returned by the service
type odataError struct {
	Error struct {
		Code string `json:"code"`
		Message struct {
			Value string `json:"value"`
		} `json:"message"`
	} `json:"error"`
}

func parseErrorMessage(body []byte) string {
	var e odataError
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message.Value != "" {
		return e.Error.Message.Value
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// ---------------------------------------------------------------------------
// Date Codec
// ---------------------------------------------------------------------------

var msDatePattern = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

// textDateLayouts lists the textual timestamps the service has been seen to send
var textDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Date is an Edm.DateTime value. It is written as /Date(ms)/ and read from
// that or any of the textual layouts.
type Date struct {
	time.Time
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("/Date(%d)/", d.UTC().UnixMilli()))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("shipstation: invalid date %s", data)
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(s string) (time.Time, error) {
	if m := msDatePattern.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("shipstation: invalid date %q", s)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("shipstation: invalid date %q", s)
}

func dateOf(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

func timeOf(d *Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// ---------------------------------------------------------------------------
// Entity Wire Types
// ---------------------------------------------------------------------------

// Order is the wire form of an Orders entity
type Order struct {
	OrderID         int64  `json:"OrderID,omitempty"`
	OrderNumber     string `json:"OrderNumber"`
	OrderStatusID   int    `json:"OrderStatusID,omitempty"`
	StoreID         *int64 `json:"StoreID,omitempty"`
	MarketplaceID   *int64 `json:"MarketplaceID,omitempty"`
	ProviderID      *int64 `json:"ProviderID"`
	ServiceID       *int64 `json:"ServiceID"`
	BuyerEmail      string `json:"BuyerEmail,omitempty"`
	NotesFromBuyer  string `json:"NotesFromBuyer,omitempty"`
	OrderDate       *Date  `json:"OrderDate,omitempty"`
	PayDate         *Date  `json:"PayDate,omitempty"`
	HoldUntil       *Date  `json:"HoldUntil"`
	PackageTypeID   int    `json:"PackageTypeID,omitempty"`
	OrderTotal      string `json:"OrderTotal,omitempty"`
	ShipName        string `json:"ShipName,omitempty"`
	ShipStreet1     string `json:"ShipStreet1,omitempty"`
	ShipStreet2     string `json:"ShipStreet2,omitempty"`
	ShipCity        string `json:"ShipCity,omitempty"`
	ShipState       string `json:"ShipState,omitempty"`
	ShipPostalCode  string `json:"ShipPostalCode,omitempty"`
	ShipCountryCode string `json:"ShipCountryCode,omitempty"`
	ShipPhone       string `json:"ShipPhone,omitempty"`
	CustomField1    string `json:"CustomField1,omitempty"`
	CustomField2    string `json:"CustomField2,omitempty"`
	CustomField3    string `json:"CustomField3,omitempty"`
	CreateDate      *Date  `json:"CreateDate,omitempty"`
	ModifyDate      *Date  `json:"ModifyDate,omitempty"`
}

// OrderItem is the wire form of an OrderItems entity
type OrderItem struct {
	OrderItemID  int64   `json:"OrderItemID,omitempty"`
	OrderID      int64   `json:"OrderID"`
	SKU          string  `json:"SKU"`
	Description  string  `json:"Description"`
	Quantity     int     `json:"Quantity"`
	UnitPrice    string  `json:"UnitPrice"`
	ThumbnailURL string  `json:"ThumbnailUrl,omitempty"`
	Options      *string `json:"Options,omitempty"`
}

// Shipment is the wire form of a Shipments entity
type Shipment struct {
	ShipmentID     int64  `json:"ShipmentID"`
	OrderID        int64  `json:"OrderID"`
	TrackingNumber string `json:"TrackingNumber"`
	ProviderID     *int64 `json:"ProviderID"`
	ServiceID      *int64 `json:"ServiceID"`
	CreateDate     *Date  `json:"CreateDate"`
	ModifyDate     *Date  `json:"ModifyDate"`
	ShipDate       *Date  `json:"ShipDate"`
}

// Provider is the wire form of a Providers entity
type Provider struct {
	ProviderID int64  `json:"ProviderID"`
	Name       string `json:"Name"`
}

// Service is the wire form of a Services entity
type Service struct {
	ServiceID  int64  `json:"ServiceID"`
	ProviderID int64  `json:"ProviderID"`
	Name       string `json:"Name"`
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func toWireOrder(o *fulfillment.RemoteOrder) Order {
	w := Order{
		OrderID:         o.OrderID,
		OrderNumber:     o.OrderNumber,
		OrderStatusID:   int(o.OrderStatusID),
		StoreID:         o.StoreID,
		MarketplaceID:   o.MarketplaceID,
		BuyerEmail:      o.BuyerEmail,
		NotesFromBuyer:  o.NotesFromBuyer,
		OrderDate:       dateOf(o.OrderDate),
		PayDate:         dateOf(o.PayDate),
		HoldUntil:       dateOf(o.HoldUntil),
		PackageTypeID:   o.PackageTypeID,
		OrderTotal:      o.OrderTotal,
		ShipName:        o.ShipName,
		ShipStreet1:     o.ShipStreet1,
		ShipStreet2:     o.ShipStreet2,
		ShipCity:        o.ShipCity,
		ShipState:       o.ShipState,
		ShipPostalCode:  o.ShipPostalCode,
		ShipCountryCode: o.ShipCountryCode,
		ShipPhone:       o.ShipPhone,
		CustomField1:    o.CustomField1,
		CustomField2:    o.CustomField2,
		CustomField3:    o.CustomField3,
	}
	if o.ProviderID != fulfillment.CarrierUnknown {
		id := int64(o.ProviderID)
		w.ProviderID = &id
	}
	if o.ServiceID != nil {
		id := int64(*o.ServiceID)
		w.ServiceID = &id
	}
	return w
}

func fromWireOrder(w Order) fulfillment.RemoteOrder {
	o := fulfillment.RemoteOrder{
		OrderID:         w.OrderID,
		OrderNumber:     w.OrderNumber,
		OrderStatusID:   fulfillment.OrderStatusID(w.OrderStatusID),
		StoreID:         w.StoreID,
		MarketplaceID:   w.MarketplaceID,
		BuyerEmail:      w.BuyerEmail,
		NotesFromBuyer:  w.NotesFromBuyer,
		OrderDate:       timeOf(w.OrderDate),
		PayDate:         timeOf(w.PayDate),
		HoldUntil:       timeOf(w.HoldUntil),
		PackageTypeID:   w.PackageTypeID,
		OrderTotal:      w.OrderTotal,
		ShipName:        w.ShipName,
		ShipStreet1:     w.ShipStreet1,
		ShipStreet2:     w.ShipStreet2,
		ShipCity:        w.ShipCity,
		ShipState:       w.ShipState,
		ShipPostalCode:  w.ShipPostalCode,
		ShipCountryCode: w.ShipCountryCode,
		ShipPhone:       w.ShipPhone,
		CustomField1:    w.CustomField1,
		CustomField2:    w.CustomField2,
		CustomField3:    w.CustomField3,
		CreateDate:      timeOf(w.CreateDate),
		ModifyDate:      timeOf(w.ModifyDate),
	}
	if w.ProviderID != nil {
		o.ProviderID = fulfillment.CarrierID(*w.ProviderID)
	}
	if w.ServiceID != nil {
		id := fulfillment.ServiceID(*w.ServiceID)
		o.ServiceID = &id
	}
	return o
}

func toWireOrderItem(i *fulfillment.RemoteOrderItem) OrderItem {
	return OrderItem{
		OrderItemID:  i.OrderItemID,
		OrderID:      i.OrderID,
		SKU:          i.SKU,
		Description:  i.Description,
		Quantity:     i.Quantity,
		UnitPrice:    i.UnitPrice,
		ThumbnailURL: i.ThumbnailURL,
		Options:      i.Options,
	}
}

func fromWireOrderItem(w OrderItem) fulfillment.RemoteOrderItem {
	return fulfillment.RemoteOrderItem{
		OrderItemID:  w.OrderItemID,
		OrderID:      w.OrderID,
		SKU:          w.SKU,
		Description:  w.Description,
		Quantity:     w.Quantity,
		UnitPrice:    w.UnitPrice,
		ThumbnailURL: w.ThumbnailURL,
		Options:      w.Options,
	}
}

func fromWireShipment(w Shipment) fulfillment.RemoteShipment {
	return fulfillment.RemoteShipment{
		ShipmentID:     w.ShipmentID,
		OrderID:        w.OrderID,
		TrackingNumber: w.TrackingNumber,
		ProviderID:     w.ProviderID,
		ServiceID:      w.ServiceID,
		CreateDate:     timeOf(w.CreateDate),
		ModifyDate:     timeOf(w.ModifyDate),
		ShipDate:       timeOf(w.ShipDate),
	}
}
