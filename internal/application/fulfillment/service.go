package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"go.uber.org/zap"
)

// SyncService runs the hub synchronization flows against a remote session.
// Every flow validates its input, translates it, talks to the remote service
// and folds the result into an Outcome. Sessions are passed per call and
// never stored, so one SyncService serves concurrent requests.
type SyncService struct {
	lookups   LookupFactory
	watermark fulfillment.WatermarkTracker
	reporter  ErrorReporter
	observer  SyncObserver
	records   fulfillment.SyncRecordRepository
	logger    *zap.Logger
	now       func() time.Time
}

// ServiceOption configures a SyncService
type ServiceOption func(*SyncService)

// WithErrorReporter sets the reporter for failed operations
func WithErrorReporter(r ErrorReporter) ServiceOption {
	return func(s *SyncService) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithSyncObserver sets the observer for finished operations
func WithSyncObserver(o SyncObserver) ServiceOption {
	return func(s *SyncService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSyncRecords enables the sync record audit trail
func WithSyncRecords(repo fulfillment.SyncRecordRepository) ServiceOption {
	return func(s *SyncService) {
		s.records = repo
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *SyncService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSyncService creates a SyncService
func NewSyncService(
	lookups LookupFactory,
	watermark fulfillment.WatermarkTracker,
	logger *zap.Logger,
	opts ...ServiceOption,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if watermark == nil {
		watermark = fulfillment.ShipDateWatermark{}
	}
	s := &SyncService{
		lookups:   lookups,
		watermark: watermark,
		reporter:  NopErrorReporter{},
		observer:  NopSyncObserver{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Create Order
// ---------------------------------------------------------------------------

// CreateOrder inserts a hub order and its line items.
// The order and its items are committed separately; a failure after the first
// commit leaves the order without items and is reported as a failure.
func (s *SyncService) CreateOrder(
	ctx context.Context,
	session fulfillment.Session,
	order *fulfillment.HubOrder,
	channel fulfillment.ChannelConfig,
) Outcome {
	op := s.begin(fulfillment.SyncOperationCreateOrder, order.ID)

	orderID, err := s.insertWithItems(ctx, session, order, order.LineItems, channel)
	if err != nil {
		return s.fail(ctx, op, "Unable to create ShipStation order", err)
	}
	op.remoteOrderID = &orderID

	out := succeeded(fmt.Sprintf("Order created in ShipStation: %d", orderID))
	out.Orders = []fulfillment.HubOrderUpdate{{
		ID:            order.ID,
		ShipStationID: strconv.FormatInt(orderID, 10),
	}}
	return s.finish(ctx, op, fulfillment.SyncOutcomeSuccess, out)
}

// ---------------------------------------------------------------------------
// Map Tracking
// ---------------------------------------------------------------------------

// MapTracking resolves the business order number for a polled shipment reference
// and emits its tracking update. Orders from other stores are skipped.
func (s *SyncService) MapTracking(
	ctx context.Context,
	session fulfillment.Session,
	ref fulfillment.TrackingReference,
	channel fulfillment.ChannelConfig,
) Outcome {
	op := s.begin(fulfillment.SyncOperationMapTracking, "")
	const failure = "Unable to get order from ShipStation"

	orderID, err := strconv.ParseInt(strings.TrimSpace(ref.OrderID), 10, 64)
	if err != nil {
		return s.fail(ctx, op, failure, fmt.Errorf("%w: %q", fulfillment.ErrInvalidOrderReference, ref.OrderID))
	}
	op.remoteOrderID = &orderID
	storeID, err := channel.ParseStoreID()
	if err != nil {
		return s.fail(ctx, op, failure, err)
	}

	order, err := s.findOrder(ctx, session, fulfillment.Where(fulfillment.FieldOrderID, fulfillment.OpEq, fulfillment.Int(orderID)))
	if err != nil {
		return s.fail(ctx, op, failure, err)
	}
	if order == nil {
		return s.fail(ctx, op, failure, fmt.Errorf("%w: OrderID %d", fulfillment.ErrRemoteOrderNotFound, orderID))
	}
	op.orderNumber = order.OrderNumber

	if storeID != nil && (order.StoreID == nil || *order.StoreID != *storeID) {
		out := succeeded(fmt.Sprintf("Order does not match the specified store id: %s", strings.TrimSpace(channel.StoreID)))
		return s.finish(ctx, op, fulfillment.SyncOutcomeSkipped, out)
	}

	out := succeeded(fmt.Sprintf("Order %s has shipped with tracking: %s", order.OrderNumber, ref.Tracking))
	out.Orders = []fulfillment.HubOrderUpdate{{
		ID:             order.OrderNumber,
		TrackingNumber: ref.Tracking,
		ShippingStatus: fulfillment.HubShipmentStatusShipped,
	}}
	return s.finish(ctx, op, fulfillment.SyncOutcomeSuccess, out)
}

// ---------------------------------------------------------------------------
// Create Shipment
// ---------------------------------------------------------------------------

// CreateShipment inserts a hub shipment as a remote order with its items.
// Unlike CreateOrder it emits no order object back to the hub.
func (s *SyncService) CreateShipment(
	ctx context.Context,
	session fulfillment.Session,
	shipment *fulfillment.HubShipment,
	channel fulfillment.ChannelConfig,
) Outcome {
	op := s.begin(fulfillment.SyncOperationCreateShipment, shipment.ID)

	orderID, err := s.insertWithItems(ctx, session, shipment, shipment.Items, channel)
	if err != nil {
		return s.fail(ctx, op, "Unable to create ShipStation shipment", err)
	}
	op.remoteOrderID = &orderID

	out := succeeded(fmt.Sprintf("Shipment transmitted to ShipStation: %d", orderID))
	return s.finish(ctx, op, fulfillment.SyncOutcomeSuccess, out)
}

// ---------------------------------------------------------------------------
// Update Shipment
// ---------------------------------------------------------------------------

// UpdateShipment patches the remote order of a hub shipment and replaces all
// of its items. Shipped or cancelled shipments are not sent, and a shipment
// without a remote order is skipped. The read and the write are not isolated:
// concurrent updates of the same shipment may interleave.
func (s *SyncService) UpdateShipment(
	ctx context.Context,
	session fulfillment.Session,
	shipment *fulfillment.HubShipment,
	channel fulfillment.ChannelConfig,
) Outcome {
	op := s.begin(fulfillment.SyncOperationUpdateShipment, shipment.ID)
	const failure = "Unable to update ShipStation shipment"

	if fulfillment.IsTerminalHubStatus(shipment.Status) {
		out := succeeded(fmt.Sprintf("Shipment %s has status %s, no update sent to ShipStation", shipment.ID, shipment.Status))
		return s.finish(ctx, op, fulfillment.SyncOutcomeSkipped, out)
	}
	if err := fulfillment.ValidateOrderSource(shipment, channel); err != nil {
		return s.fail(ctx, op, failure, err)
	}

	existing, err := s.findOrder(ctx, session, fulfillment.Where(fulfillment.FieldOrderNumber, fulfillment.OpEq, fulfillment.String(shipment.ID)))
	if err != nil {
		return s.fail(ctx, op, failure, err)
	}
	if existing == nil {
		out := succeeded(fmt.Sprintf("Order %s was not found in ShipStation", shipment.ID))
		return s.finish(ctx, op, fulfillment.SyncOutcomeSkipped, out)
	}
	op.remoteOrderID = &existing.OrderID

	refs, err := s.resolveRefs(ctx, session, shipment.ShippingCarrier, shipment.ShippingMethod)
	if err != nil {
		return s.fail(ctx, op, failure, err)
	}
	order, err := fulfillment.BuildOrPatch(shipment, refs, channel, existing)
	if err != nil {
		return s.fail(ctx, op, failure, err)
	}
	if err := session.Update(order); err != nil {
		return s.fail(ctx, op, failure, err)
	}
	if err := session.Commit(ctx); err != nil {
		return s.fail(ctx, op, failure, err)
	}

	if err := s.replaceItems(ctx, session, order.OrderID, shipment.Items); err != nil {
		return s.fail(ctx, op, failure, err)
	}

	out := succeeded(fmt.Sprintf("Shipment %s updated in ShipStation", shipment.ID))
	return s.finish(ctx, op, fulfillment.SyncOutcomeSuccess, out)
}

// ---------------------------------------------------------------------------
// Poll Shipments
// ---------------------------------------------------------------------------

// PollShipments reads the shipments recorded since the watermark and reports
// each one to the hub as shipped. The next watermark is always emitted.
func (s *SyncService) PollShipments(ctx context.Context, session fulfillment.Session, since string) Outcome {
	op := s.begin(fulfillment.SyncOperationPollShipments, "")
	const failure = "Unable to get shipments from ShipStation"

	from, err := fulfillment.ParseWatermark(since)
	if err != nil {
		return s.fail(ctx, op, failure, err)
	}

	shipments, err := session.QueryShipments(ctx, s.watermark.Filter(from))
	if err != nil {
		return s.fail(ctx, op, failure, err)
	}

	orders := make(map[int64]*fulfillment.RemoteOrder)
	updates := make([]fulfillment.HubShipmentUpdate, 0, len(shipments))
	for _, shipment := range shipments {
		order, ok := orders[shipment.OrderID]
		if !ok {
			order, err = s.findOrder(ctx, session, fulfillment.Where(fulfillment.FieldOrderID, fulfillment.OpEq, fulfillment.Int(shipment.OrderID)))
			if err != nil {
				return s.fail(ctx, op, failure, err)
			}
			if order == nil {
				return s.fail(ctx, op, failure, fmt.Errorf("%w: OrderID %d of shipment %d", fulfillment.ErrRemoteOrderNotFound, shipment.OrderID, shipment.ShipmentID))
			}
			orders[shipment.OrderID] = order
		}

		updates = append(updates, fulfillment.HubShipmentUpdate{
			ID:              order.OrderNumber,
			Tracking:        shipment.TrackingNumber,
			ShipStationID:   strconv.FormatInt(shipment.OrderID, 10),
			Status:          fulfillment.HubShipmentStatusShipped,
			ShippingAddress: order.ShippingAddress(),
		})
	}

	next := s.watermark.Next(s.now(), from)
	out := succeeded(fmt.Sprintf("Retrieved %d shipments from ShipStation", len(updates)))
	out.Shipments = updates
	out.Parameters = map[string]string{"since": fulfillment.FormatWatermark(next)}
	return s.finish(ctx, op, fulfillment.SyncOutcomeSuccess, out)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *SyncService) insertWithItems(
	ctx context.Context,
	session fulfillment.Session,
	src fulfillment.OrderSource,
	items []fulfillment.HubLineItem,
	channel fulfillment.ChannelConfig,
) (int64, error) {
	if err := fulfillment.ValidateOrderSource(src, channel); err != nil {
		return 0, err
	}

	var carrier, method string
	switch v := src.(type) {
	case *fulfillment.HubOrder:
		carrier, method = v.ShippingCarrier, v.ShippingMethod
	case *fulfillment.HubShipment:
		carrier, method = v.ShippingCarrier, v.ShippingMethod
	}
	refs, err := s.resolveRefs(ctx, session, carrier, method)
	if err != nil {
		return 0, err
	}

	order, err := fulfillment.BuildOrPatch(src, refs, channel, nil)
	if err != nil {
		return 0, err
	}
	if err := session.Insert(order); err != nil {
		return 0, err
	}
	if err := session.Commit(ctx); err != nil {
		return 0, err
	}
	if order.OrderID == 0 {
		return 0, fulfillment.ErrMissingAssignedID
	}

	if err := s.insertItems(session, order.OrderID, items); err != nil {
		return order.OrderID, err
	}
	if err := session.Commit(ctx); err != nil {
		return order.OrderID, err
	}
	return order.OrderID, nil
}

func (s *SyncService) insertItems(session fulfillment.Session, orderID int64, items []fulfillment.HubLineItem) error {
	remote := fulfillment.BuildItems(items, orderID)
	for i := range remote {
		if err := session.Insert(&remote[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) replaceItems(ctx context.Context, session fulfillment.Session, orderID int64, items []fulfillment.HubLineItem) error {
	current, err := session.QueryOrderItems(ctx, fulfillment.Where(fulfillment.FieldOrderID, fulfillment.OpEq, fulfillment.Int(orderID)))
	if err != nil {
		return err
	}
	for i := range current {
		if err := session.Delete(&current[i]); err != nil {
			return err
		}
	}
	if err := s.insertItems(session, orderID, items); err != nil {
		return err
	}
	return session.Commit(ctx)
}

// resolveRefs resolves the carrier and service names. Blank names are not
// looked up: they yield an unknown carrier and no service.
func (s *SyncService) resolveRefs(ctx context.Context, session fulfillment.Session, carrier, method string) (fulfillment.ShippingRefs, error) {
	var refs fulfillment.ShippingRefs
	lookup := s.lookups(session)

	if strings.TrimSpace(carrier) != "" {
		id, err := lookup.ResolveCarrier(ctx, carrier)
		if err != nil {
			return refs, err
		}
		refs.ProviderID = id
		refs.HasProvider = true
	}
	if strings.TrimSpace(method) != "" {
		id, ok, err := lookup.ResolveService(ctx, method)
		if err != nil {
			return refs, err
		}
		if ok {
			refs.ServiceID = &id
		}
	}
	return refs, nil
}

func (s *SyncService) findOrder(ctx context.Context, session fulfillment.Session, filter fulfillment.Filter) (*fulfillment.RemoteOrder, error) {
	orders, err := session.QueryOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// ---------------------------------------------------------------------------
// Outcome bookkeeping
// ---------------------------------------------------------------------------

type operation struct {
	name          fulfillment.SyncOperation
	orderNumber   string
	remoteOrderID *int64
	started       time.Time
}

func (s *SyncService) begin(name fulfillment.SyncOperation, orderNumber string) *operation {
	return &operation{name: name, orderNumber: orderNumber, started: s.now()}
}

func (s *SyncService) fail(ctx context.Context, op *operation, prefix string, err error) Outcome {
	s.reporter.Report(ctx, op.name, err)
	log := s.logger.Error
	if IsInputError(err) {
		log = s.logger.Warn
	}
	log("sync operation failed",
		zap.String("operation", string(op.name)),
		zap.String("order_number", op.orderNumber),
		zap.Error(err),
	)
	out := failed(fmt.Sprintf("%s. Error: %s", prefix, err.Error()))
	return s.finish(ctx, op, fulfillment.SyncOutcomeFailed, out)
}

func (s *SyncService) finish(ctx context.Context, op *operation, outcome fulfillment.SyncOutcome, out Outcome) Outcome {
	s.observer.ObserveSync(op.name, outcome, s.now().Sub(op.started))
	if outcome != fulfillment.SyncOutcomeFailed {
		s.logger.Info("sync operation finished",
			zap.String("operation", string(op.name)),
			zap.String("order_number", op.orderNumber),
			zap.String("outcome", string(outcome)),
			zap.String("message", out.Message),
		)
	}

	if s.records != nil {
		record := fulfillment.NewSyncRecord(op.name, op.orderNumber, outcome, out.Message, s.now())
		record.RemoteOrderID = op.remoteOrderID
		if err := s.records.Save(ctx, record); err != nil {
			s.logger.Warn("failed to save sync record",
				zap.String("operation", string(op.name)),
				zap.Error(err),
			)
		}
	}
	return out
}

// IsInputError returns true if err is a validation failure of hub input
func IsInputError(err error) bool {
	for _, target := range []error{
		fulfillment.ErrShippingAddressRequired,
		fulfillment.ErrShipToNameIncomplete,
		fulfillment.ErrInvalidStoreID,
		fulfillment.ErrInvalidMarketplaceID,
		fulfillment.ErrInvalidOrderReference,
		fulfillment.ErrInvalidWatermark,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
