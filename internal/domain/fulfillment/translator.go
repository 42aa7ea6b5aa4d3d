package fulfillment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Order Translation
// ---------------------------------------------------------------------------

// OrderSource is a hub record that can be translated into a RemoteOrder.
// Only *HubOrder and *HubShipment implement it.
type OrderSource interface {
	OrderNumber() string
	isOrderSource()
}

// OrderNumber implements OrderSource
func (o *HubOrder) OrderNumber() string { return o.ID }

func (*HubOrder) isOrderSource() {}

// OrderNumber implements OrderSource
func (s *HubShipment) OrderNumber() string { return s.ID }

func (*HubShipment) isOrderSource() {}

// ShippingRefs carries the resolved carrier and service of a source
type ShippingRefs struct {
	ProviderID CarrierID
	// HasProvider is set when the source named a carrier. A patch leaves the
	// existing ProviderID alone otherwise.
	HasProvider bool
	ServiceID   *ServiceID
}

// ChannelConfig carries the per-request store settings
type ChannelConfig struct {
	// StoreID restricts the order to one remote store; blank leaves it visible in all stores
	StoreID string
	// MarketplaceID is used for orders that do not carry their own
	MarketplaceID string
}

// ParseStoreID returns the configured store id, or nil when none is configured
func (c ChannelConfig) ParseStoreID() (*int64, error) {
	return parseOptionalID(c.StoreID, ErrInvalidStoreID)
}

// BuildOrPatch translates src into a RemoteOrder. When existing is nil a new
// order is built; otherwise existing is patched in place and returned, keeping
// its values for fields the source leaves empty.
func BuildOrPatch(src OrderSource, refs ShippingRefs, channel ChannelConfig, existing *RemoteOrder) (*RemoteOrder, error) {
	if err := ValidateOrderSource(src, channel); err != nil {
		return nil, err
	}
	addr := shippingAddressOf(src)
	shipName, _ := addr.ShipName()
	storeID, _ := channel.ParseStoreID()

	order := existing
	if order == nil {
		order = &RemoteOrder{PackageTypeID: PackageTypePackage}
	}
	order.OrderNumber = src.OrderNumber()
	if existing == nil || refs.HasProvider {
		order.ProviderID = refs.ProviderID
	}
	if refs.ServiceID != nil {
		id := *refs.ServiceID
		order.ServiceID = &id
	}
	if storeID != nil {
		order.StoreID = storeID
	}
	applyShippingAddress(order, shipName, addr)

	switch s := src.(type) {
	case *HubOrder:
		return order, patchFromOrder(order, s, channel)
	case *HubShipment:
		patchFromShipment(order, s)
	}
	return order, nil
}

// ValidateOrderSource checks the input preconditions of BuildOrPatch without
// building anything, so callers can reject bad input before remote I/O.
func ValidateOrderSource(src OrderSource, channel ChannelConfig) error {
	switch src.(type) {
	case *HubOrder, *HubShipment:
	default:
		return fmt.Errorf("fulfillment: unsupported order source %T", src)
	}
	addr := shippingAddressOf(src)
	if addr == nil {
		return ErrShippingAddressRequired
	}
	if _, err := addr.ShipName(); err != nil {
		return err
	}
	if _, err := channel.ParseStoreID(); err != nil {
		return err
	}
	if o, ok := src.(*HubOrder); ok {
		if _, err := parseOptionalID(marketplaceOf(o, channel), ErrInvalidMarketplaceID); err != nil {
			return err
		}
	}
	return nil
}

func shippingAddressOf(src OrderSource) *ShippingAddress {
	switch s := src.(type) {
	case *HubOrder:
		return s.ShippingAddress
	case *HubShipment:
		return s.ShippingAddress
	}
	return nil
}

func marketplaceOf(o *HubOrder, channel ChannelConfig) string {
	if strings.TrimSpace(o.MarketplaceID) != "" {
		return o.MarketplaceID
	}
	return channel.MarketplaceID
}

func patchFromOrder(order *RemoteOrder, src *HubOrder, channel ChannelConfig) error {
	marketplaceID, err := parseOptionalID(marketplaceOf(src, channel), ErrInvalidMarketplaceID)
	if err != nil {
		return err
	}
	if marketplaceID != nil {
		order.MarketplaceID = marketplaceID
	}

	order.OrderStatusID = OrderStatusAwaitingShipment
	order.OrderTotal = src.Totals.Order.String()
	setString(&order.BuyerEmail, src.Email)
	setString(&order.NotesFromBuyer, src.DeliveryInstructions)
	setTime(&order.OrderDate, src.PlacedOn)
	setTime(&order.PayDate, src.PlacedOn)
	setString(&order.CustomField1, src.CustomField1)
	setString(&order.CustomField2, src.CustomField2)
	setString(&order.CustomField3, src.CustomField3)
	return nil
}

func patchFromShipment(order *RemoteOrder, src *HubShipment) {
	mapped := MapStatus(src.Status, src.HoldUntil)
	order.OrderStatusID = mapped.Status.OrderStatusID()
	order.HoldUntil = mapped.HoldUntil

	setString(&order.BuyerEmail, src.Email)
	setString(&order.NotesFromBuyer, src.DeliveryInstructions)
	setTime(&order.OrderDate, src.CreatedAt)
	setTime(&order.PayDate, src.CreatedAt)
}

func applyShippingAddress(order *RemoteOrder, shipName string, addr *ShippingAddress) {
	order.ShipName = shipName
	setString(&order.ShipStreet1, addr.Address1)
	setString(&order.ShipStreet2, addr.Address2)
	setString(&order.ShipCity, addr.City)
	setString(&order.ShipState, addr.State)
	setString(&order.ShipPostalCode, addr.Zipcode)
	setString(&order.ShipCountryCode, addr.Country)
	setString(&order.ShipPhone, addr.Phone)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setTime(dst **time.Time, v time.Time) {
	if !v.IsZero() {
		t := v
		*dst = &t
	}
}

func parseOptionalID(raw string, invalid error) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", invalid, raw)
	}
	return &id, nil
}
