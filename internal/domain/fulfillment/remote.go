package fulfillment

import (
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Remote Entity Sets
// ---------------------------------------------------------------------------

// Entity set names exposed by the remote entity-query API
const (
	EntitySetOrders     = "Orders"
	EntitySetOrderItems = "OrderItems"
	EntitySetShipments  = "Shipments"
	EntitySetProviders  = "Providers"
	EntitySetServices   = "Services"
)

// Remote field names used in filters
const (
	FieldOrderID     = "OrderID"
	FieldOrderNumber = "OrderNumber"
	FieldCreateDate  = "CreateDate"
	FieldModifyDate  = "ModifyDate"
	FieldShipDate    = "ShipDate"
	FieldName        = "Name"
)

// PackageTypePackage is the remote package type for a plain package
const PackageTypePackage = 3

// ---------------------------------------------------------------------------
// OrderStatusID
// ---------------------------------------------------------------------------

// OrderStatusID is the remote order status code
type OrderStatusID int

const (
	OrderStatusAwaitingPayment  OrderStatusID = 1
	OrderStatusAwaitingShipment OrderStatusID = 2
	OrderStatusShipped          OrderStatusID = 3
	OrderStatusCancelled        OrderStatusID = 4
	OrderStatusOnHold           OrderStatusID = 5
)

// IsValid returns true if the code is a known remote status
func (s OrderStatusID) IsValid() bool {
	return s >= OrderStatusAwaitingPayment && s <= OrderStatusOnHold
}

// CarrierID is the remote provider identifier
type CarrierID int64

// CarrierUnknown is the lenient sentinel for an unrecognized carrier name
const CarrierUnknown CarrierID = 0

// ServiceID is the remote shipping service identifier
type ServiceID int64

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Entity is a remote record that can be queued on a Session
type Entity interface {
	// EntitySet returns the remote collection the entity belongs to
	EntitySet() string
	// EntityKey returns the remote-assigned key, 0 before insertion
	EntityKey() int64
}

// RemoteOrder is the remote representation of an order (or of a hub shipment).
// OrderNumber is the business key; OrderID is assigned by the remote service on insert.
type RemoteOrder struct {
	OrderID         int64
	OrderNumber     string
	OrderStatusID   OrderStatusID
	StoreID         *int64
	MarketplaceID   *int64
	ProviderID      CarrierID
	ServiceID       *ServiceID
	BuyerEmail      string
	NotesFromBuyer  string
	OrderDate       *time.Time
	PayDate         *time.Time
	HoldUntil       *time.Time
	PackageTypeID   int
	OrderTotal      string
	ShipName        string
	ShipStreet1     string
	ShipStreet2     string
	ShipCity        string
	ShipState       string
	ShipPostalCode  string
	ShipCountryCode string
	ShipPhone       string
	CustomField1    string
	CustomField2    string
	CustomField3    string
	CreateDate      *time.Time
	ModifyDate      *time.Time
}

// EntitySet implements Entity
func (o *RemoteOrder) EntitySet() string { return EntitySetOrders }

// EntityKey implements Entity
func (o *RemoteOrder) EntityKey() int64 { return o.OrderID }

// ShippingAddress rebuilds a hub address from the ship-to fields.
// ShipName is split on its first space.
func (o *RemoteOrder) ShippingAddress() ShippingAddress {
	first, last, _ := strings.Cut(o.ShipName, " ")
	return ShippingAddress{
		Firstname: first,
		Lastname:  last,
		Address1:  o.ShipStreet1,
		Address2:  o.ShipStreet2,
		City:      o.ShipCity,
		State:     o.ShipState,
		Zipcode:   o.ShipPostalCode,
		Country:   o.ShipCountryCode,
		Phone:     o.ShipPhone,
	}
}

// RemoteOrderItem is a remote order line. Items are never diffed: an update
// deletes every item of the order and inserts the new set.
type RemoteOrderItem struct {
	OrderItemID  int64
	OrderID      int64
	SKU          string
	Description  string
	Quantity     int
	UnitPrice    string
	ThumbnailURL string
	Options      *string
}

// EntitySet implements Entity
func (i *RemoteOrderItem) EntitySet() string { return EntitySetOrderItems }

// EntityKey implements Entity
func (i *RemoteOrderItem) EntityKey() int64 { return i.OrderItemID }

// RemoteShipment is a shipment recorded by the remote service. It carries the
// owning OrderID but neither the order number nor the address.
type RemoteShipment struct {
	ShipmentID     int64
	OrderID        int64
	TrackingNumber string
	ProviderID     *int64
	ServiceID      *int64
	CreateDate     *time.Time
	ModifyDate     *time.Time
	ShipDate       *time.Time
}

// EntitySet implements Entity
func (s *RemoteShipment) EntitySet() string { return EntitySetShipments }

// EntityKey implements Entity
func (s *RemoteShipment) EntityKey() int64 { return s.ShipmentID }

// RemoteCarrier is a remote shipping provider
type RemoteCarrier struct {
	ProviderID int64
	Name       string
}

// RemoteService is a remote shipping service of a provider
type RemoteService struct {
	ServiceID  int64
	ProviderID int64
	Name       string
}
