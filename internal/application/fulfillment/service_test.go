package fulfillment

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockErrorReporter is a mock implementation of ErrorReporter
type MockErrorReporter struct {
	mock.Mock
}

func (m *MockErrorReporter) Report(ctx context.Context, operation fulfillment.SyncOperation, err error) {
	m.Called(ctx, operation, err)
}

// MockSyncRecordRepository is a mock implementation of SyncRecordRepository
type MockSyncRecordRepository struct {
	mock.Mock
}

func (m *MockSyncRecordRepository) Save(ctx context.Context, record *fulfillment.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSyncRecordRepository) FindRecent(ctx context.Context, limit int) ([]fulfillment.SyncRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type recordingObserver struct {
	outcomes []fulfillment.SyncOutcome
}

func (o *recordingObserver) ObserveSync(_ fulfillment.SyncOperation, outcome fulfillment.SyncOutcome, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

var fixedNow = time.Date(2023, 1, 10, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, strategy fulfillment.LookupStrategy, opts ...ServiceOption) *SyncService {
	t.Helper()
	lookups, err := NewLookupFactory(strategy, nil)
	require.NoError(t, err)
	opts = append([]ServiceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewSyncService(lookups, fulfillment.ShipDateWatermark{}, zap.NewNop(), opts...)
}

func testAddress() *fulfillment.ShippingAddress {
	return &fulfillment.ShippingAddress{
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Address1:  "1 Main St",
		City:      "Reno",
		State:     "NV",
		Zipcode:   "89501",
		Country:   "US",
	}
}

func testOrder() *fulfillment.HubOrder {
	return &fulfillment.HubOrder{
		ID:              "R100",
		Email:           "ada@example.com",
		PlacedOn:        time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Totals:          fulfillment.HubTotals{Order: decimal.RequireFromString("19.80")},
		ShippingAddress: testAddress(),
		ShippingCarrier: "UPS",
		ShippingMethod:  "UPS Ground",
		LineItems: []fulfillment.HubLineItem{
			{ProductID: "SKU-1", Name: "Mug", Quantity: 2, Price: decimal.RequireFromString("9.90")},
			{ProductID: "SKU-2", Name: "Cap", Quantity: 1, Price: decimal.NewFromInt(5),
				Properties: fulfillment.Properties{{Key: "size", Value: "L"}}},
		},
	}
}

func testShipment(status string, items ...fulfillment.HubLineItem) *fulfillment.HubShipment {
	return &fulfillment.HubShipment{
		ID:              "H200",
		Email:           "ada@example.com",
		CreatedAt:       time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
		Status:          status,
		ShippingAddress: testAddress(),
		ShippingCarrier: "USPS",
		ShippingMethod:  "USPS First Class Mail",
		Items:           items,
	}
}

func item(sku string, qty int) fulfillment.HubLineItem {
	return fulfillment.HubLineItem{ProductID: sku, Name: sku, Quantity: qty, Price: decimal.NewFromInt(1)}
}

// ---------------------------------------------------------------------------
// CreateOrder
// ---------------------------------------------------------------------------

func TestSyncService_CreateOrder(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)
	order := testOrder()

	out := svc.CreateOrder(context.Background(), session, order, fulfillment.ChannelConfig{StoreID: "7"})

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "Order created in ShipStation: 1", out.Message)
	require.Len(t, out.Orders, 1)
	assert.Equal(t, fulfillment.HubOrderUpdate{ID: "R100", ShipStationID: "1"}, out.Orders[0])
	assert.Equal(t, 2, session.commits)

	items := session.itemsOf(1)
	require.Len(t, items, 2)
	assert.Equal(t, "SKU-1", items[0].SKU)
	assert.Equal(t, "9.9", items[0].UnitPrice)
	assert.Nil(t, items[0].Options)
	require.NotNil(t, items[1].Options)
	assert.Equal(t, "size:L\n", *items[1].Options)
}

func TestSyncService_CreateOrder_StoredOrderMatchesTranslation(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)
	channel := fulfillment.ChannelConfig{StoreID: "7", MarketplaceID: "2"}

	out := svc.CreateOrder(context.Background(), session, testOrder(), channel)
	require.True(t, out.IsSuccess())

	stored, err := session.QueryOrders(context.Background(),
		fulfillment.Where(fulfillment.FieldOrderNumber, fulfillment.OpEq, fulfillment.String("R100")))
	require.NoError(t, err)
	require.Len(t, stored, 1)

	service := fulfillment.ServiceID(26)
	expected, err := fulfillment.BuildOrPatch(testOrder(), fulfillment.ShippingRefs{ProviderID: 3, ServiceID: &service}, channel, nil)
	require.NoError(t, err)
	expected.OrderID = stored[0].OrderID

	assert.Equal(t, *expected, stored[0])
}

func TestSyncService_CreateOrder_InputErrorsSkipRemote(t *testing.T) {
	noAddress := testOrder()
	noAddress.ShippingAddress = nil
	noName := testOrder()
	noName.ShippingAddress.Firstname = ""

	tests := []struct {
		name    string
		order   *fulfillment.HubOrder
		channel fulfillment.ChannelConfig
		err     error
		message string
	}{
		{"missing address", noAddress, fulfillment.ChannelConfig{}, fulfillment.ErrShippingAddressRequired,
			"Unable to create ShipStation order. Error: fulfillment: shipping_address required"},
		{"missing name", noName, fulfillment.ChannelConfig{}, fulfillment.ErrShipToNameIncomplete, ""},
		{"invalid store", testOrder(), fulfillment.ChannelConfig{StoreID: "abc"}, fulfillment.ErrInvalidStoreID, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession()
			reporter := new(MockErrorReporter)
			reporter.On("Report", mock.Anything, fulfillment.SyncOperationCreateOrder,
				mock.MatchedBy(func(err error) bool { return errors.Is(err, tt.err) })).Once()

			svc := newTestService(t, fulfillment.LookupStrategyRemote, WithErrorReporter(reporter))
			out := svc.CreateOrder(context.Background(), session, tt.order, tt.channel)

			assert.Equal(t, http.StatusInternalServerError, out.Status)
			if tt.message != "" {
				assert.Equal(t, tt.message, out.Message)
			}
			assert.Empty(t, out.Orders)
			assert.Zero(t, session.calls)
			reporter.AssertExpectations(t)
		})
	}
}

func TestSyncService_CreateOrder_StrictLookupFailure(t *testing.T) {
	session := newFakeSession()
	session.carriers = []fulfillment.RemoteCarrier{{ProviderID: 3, Name: "UPS"}}
	svc := newTestService(t, fulfillment.LookupStrategyRemote)

	out := svc.CreateOrder(context.Background(), session, testOrder(), fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Contains(t, out.Message, "shipping service not found")
	assert.Zero(t, session.commits)
	assert.Empty(t, session.orders)
}

func TestSyncService_CreateOrder_RemoteLookupResolvesIDs(t *testing.T) {
	session := newFakeSession()
	session.carriers = []fulfillment.RemoteCarrier{{ProviderID: 77, Name: "UPS"}}
	session.services = []fulfillment.RemoteService{{ServiceID: 88, ProviderID: 77, Name: "UPS Ground"}}
	svc := newTestService(t, fulfillment.LookupStrategyRemote)

	out := svc.CreateOrder(context.Background(), session, testOrder(), fulfillment.ChannelConfig{})
	require.True(t, out.IsSuccess(), out.Message)

	stored := session.orders[1]
	assert.Equal(t, fulfillment.CarrierID(77), stored.ProviderID)
	require.NotNil(t, stored.ServiceID)
	assert.Equal(t, fulfillment.ServiceID(88), *stored.ServiceID)
	assert.Contains(t, session.filters, "Name eq 'UPS'")
	assert.Contains(t, session.filters, "Name eq 'UPS Ground'")
}

func TestSyncService_CreateOrder_ItemCommitFailureLeavesOrder(t *testing.T) {
	session := newFakeSession()
	session.commitErrs[1] = fulfillment.ErrRemoteUnavailable
	reporter := new(MockErrorReporter)
	reporter.On("Report", mock.Anything, fulfillment.SyncOperationCreateOrder, fulfillment.ErrRemoteUnavailable).Once()
	svc := newTestService(t, fulfillment.LookupStrategyStatic, WithErrorReporter(reporter))

	out := svc.CreateOrder(context.Background(), session, testOrder(), fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Equal(t, "Unable to create ShipStation order. Error: fulfillment: remote service unavailable", out.Message)
	assert.Empty(t, out.Orders)
	assert.Len(t, session.orders, 1)
	assert.Empty(t, session.items)
	reporter.AssertExpectations(t)
}

func TestSyncService_CreateOrder_MissingAssignedID(t *testing.T) {
	session := newFakeSession()
	// first commit "succeeds" without applying the insert
	session.commitErrs[0] = nil
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	out := svc.CreateOrder(context.Background(), session, testOrder(), fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Contains(t, out.Message, fulfillment.ErrMissingAssignedID.Error())
}

// ---------------------------------------------------------------------------
// MapTracking
// ---------------------------------------------------------------------------

func TestSyncService_MapTracking(t *testing.T) {
	storeID := int64(7)
	session := newFakeSession()
	session.seedOrder(fulfillment.RemoteOrder{OrderID: 55, OrderNumber: "ORD-9", StoreID: &storeID})
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	ref := fulfillment.TrackingReference{OrderID: "55", Tracking: "1Z999"}
	for _, store := range []string{"", "7"} {
		out := svc.MapTracking(context.Background(), session, ref, fulfillment.ChannelConfig{StoreID: store})

		assert.Equal(t, http.StatusOK, out.Status)
		assert.Equal(t, "Order ORD-9 has shipped with tracking: 1Z999", out.Message)
		require.Len(t, out.Orders, 1)
		assert.Equal(t, fulfillment.HubOrderUpdate{ID: "ORD-9", TrackingNumber: "1Z999", ShippingStatus: "shipped"}, out.Orders[0])
	}
	assert.Equal(t, []string{"OrderID eq 55", "OrderID eq 55"}, session.filters)
}

func TestSyncService_MapTracking_StoreMismatchIsSkipped(t *testing.T) {
	storeID := int64(9)
	session := newFakeSession()
	session.seedOrder(fulfillment.RemoteOrder{OrderID: 55, OrderNumber: "ORD-9", StoreID: &storeID})
	session.seedOrder(fulfillment.RemoteOrder{OrderID: 56, OrderNumber: "ORD-10"})

	reporter := new(MockErrorReporter)
	observer := &recordingObserver{}
	svc := newTestService(t, fulfillment.LookupStrategyStatic, WithErrorReporter(reporter), WithSyncObserver(observer))

	for _, id := range []string{"55", "56"} {
		out := svc.MapTracking(context.Background(), session,
			fulfillment.TrackingReference{OrderID: id, Tracking: "1Z999"},
			fulfillment.ChannelConfig{StoreID: "7"})

		assert.Equal(t, http.StatusOK, out.Status)
		assert.Equal(t, "Order does not match the specified store id: 7", out.Message)
		assert.Empty(t, out.Orders)
	}
	assert.Equal(t, []fulfillment.SyncOutcome{fulfillment.SyncOutcomeSkipped, fulfillment.SyncOutcomeSkipped}, observer.outcomes)
	reporter.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncService_MapTracking_Failures(t *testing.T) {
	tests := []struct {
		name    string
		ref     fulfillment.TrackingReference
		channel fulfillment.ChannelConfig
		err     error
		calls   int
	}{
		{"order not found", fulfillment.TrackingReference{OrderID: "404"}, fulfillment.ChannelConfig{}, fulfillment.ErrRemoteOrderNotFound, 1},
		{"non numeric order id", fulfillment.TrackingReference{OrderID: "55' or 1 eq 1"}, fulfillment.ChannelConfig{}, fulfillment.ErrInvalidOrderReference, 0},
		{"invalid store id", fulfillment.TrackingReference{OrderID: "55"}, fulfillment.ChannelConfig{StoreID: "x"}, fulfillment.ErrInvalidStoreID, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession()
			reporter := new(MockErrorReporter)
			reporter.On("Report", mock.Anything, fulfillment.SyncOperationMapTracking,
				mock.MatchedBy(func(err error) bool { return errors.Is(err, tt.err) })).Once()
			svc := newTestService(t, fulfillment.LookupStrategyStatic, WithErrorReporter(reporter))

			out := svc.MapTracking(context.Background(), session, tt.ref, tt.channel)

			assert.Equal(t, http.StatusInternalServerError, out.Status)
			assert.Contains(t, out.Message, "Unable to get order from ShipStation. Error: ")
			assert.Equal(t, tt.calls, session.calls)
			reporter.AssertExpectations(t)
		})
	}
}

// ---------------------------------------------------------------------------
// CreateShipment
// ---------------------------------------------------------------------------

func TestSyncService_CreateShipment(t *testing.T) {
	holdUntil := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)
	shipment := testShipment("hold", item("A", 1), item("B", 2))
	shipment.HoldUntil = &holdUntil

	out := svc.CreateShipment(context.Background(), session, shipment, fulfillment.ChannelConfig{MarketplaceID: "2"})

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "Shipment transmitted to ShipStation: 1", out.Message)
	assert.Empty(t, out.Orders)
	assert.Empty(t, out.Shipments)

	stored := session.orders[1]
	assert.Equal(t, "H200", stored.OrderNumber)
	assert.Equal(t, fulfillment.OrderStatusOnHold, stored.OrderStatusID)
	assert.Equal(t, &holdUntil, stored.HoldUntil)
	assert.Equal(t, fulfillment.CarrierID(1), stored.ProviderID)
	assert.Nil(t, stored.MarketplaceID)
	assert.Empty(t, stored.OrderTotal)
	assert.Len(t, session.itemsOf(1), 2)
}

func TestSyncService_CreateShipment_Failure(t *testing.T) {
	session := newFakeSession()
	session.commitErrs[0] = errors.New("HTTP 400: bad OrderDate")
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	out := svc.CreateShipment(context.Background(), session, testShipment("ready"), fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Equal(t, "Unable to create ShipStation shipment. Error: HTTP 400: bad OrderDate", out.Message)
}

// ---------------------------------------------------------------------------
// UpdateShipment
// ---------------------------------------------------------------------------

func TestSyncService_UpdateShipment_TerminalStatusPerformsNoIO(t *testing.T) {
	for _, status := range []string{"shipped", "cancelled", "canceled", "CANCELED"} {
		t.Run(status, func(t *testing.T) {
			session := newFakeSession()
			noAddress := testShipment(status)
			noAddress.ShippingAddress = nil
			svc := newTestService(t, fulfillment.LookupStrategyRemote)

			out := svc.UpdateShipment(context.Background(), session, noAddress, fulfillment.ChannelConfig{})

			assert.Equal(t, http.StatusOK, out.Status)
			assert.Equal(t, "Shipment H200 has status "+status+", no update sent to ShipStation", out.Message)
			assert.Zero(t, session.calls)
		})
	}
}

func TestSyncService_UpdateShipment_NotFound(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	out := svc.UpdateShipment(context.Background(), session, testShipment("ready", item("A", 1)), fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "Order H200 was not found in ShipStation", out.Message)
	assert.Zero(t, session.commits)
	assert.Equal(t, []string{"OrderNumber eq 'H200'"}, session.filters)
}

func TestSyncService_UpdateShipment_ReplacesItems(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)
	ctx := context.Background()

	created := svc.CreateShipment(ctx, session, testShipment("ready", item("A", 1), item("B", 1)), fulfillment.ChannelConfig{})
	require.True(t, created.IsSuccess())

	update := testShipment("hold", item("C", 3))
	update.ShippingAddress.City = "Sparks"
	out := svc.UpdateShipment(ctx, session, update, fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "Shipment H200 updated in ShipStation", out.Message)

	stored := session.orders[1]
	assert.Equal(t, fulfillment.OrderStatusOnHold, stored.OrderStatusID)
	assert.Equal(t, "Sparks", stored.ShipCity)

	items := session.itemsOf(1)
	require.Len(t, items, 1)
	assert.Equal(t, "C", items[0].SKU)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestSyncService_UpdateShipment_KeepsStoredCarrierWhenOmitted(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)
	ctx := context.Background()

	require.True(t, svc.CreateShipment(ctx, session, testShipment("ready", item("A", 1)), fulfillment.ChannelConfig{}).IsSuccess())
	before := session.orders[1]
	require.Equal(t, fulfillment.CarrierID(1), before.ProviderID)
	require.NotNil(t, before.ServiceID)

	update := testShipment("ready", item("A", 1))
	update.ShippingCarrier = ""
	update.ShippingMethod = ""
	out := svc.UpdateShipment(ctx, session, update, fulfillment.ChannelConfig{})
	require.True(t, out.IsSuccess())

	after := session.orders[1]
	assert.Equal(t, before.ProviderID, after.ProviderID)
	require.NotNil(t, after.ServiceID)
	assert.Equal(t, *before.ServiceID, *after.ServiceID)
}

func TestSyncService_UpdateShipment_NamedCarrierReplacesStored(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)
	ctx := context.Background()

	require.True(t, svc.CreateShipment(ctx, session, testShipment("ready", item("A", 1)), fulfillment.ChannelConfig{}).IsSuccess())

	update := testShipment("ready", item("A", 1))
	update.ShippingCarrier = "UPS"
	require.True(t, svc.UpdateShipment(ctx, session, update, fulfillment.ChannelConfig{}).IsSuccess())

	assert.Equal(t, fulfillment.CarrierID(3), session.orders[1].ProviderID)
}

func TestSyncService_UpdateShipment_Idempotent(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)
	ctx := context.Background()

	require.True(t, svc.CreateShipment(ctx, session, testShipment("ready", item("OLD", 1)), fulfillment.ChannelConfig{}).IsSuccess())

	first := svc.UpdateShipment(ctx, session, testShipment("ready", item("A", 1), item("B", 2)), fulfillment.ChannelConfig{})
	require.True(t, first.IsSuccess())
	afterFirst := itemSet(session.itemsOf(1))
	orderAfterFirst := session.orders[1]

	second := svc.UpdateShipment(ctx, session, testShipment("ready", item("B", 2), item("A", 1)), fulfillment.ChannelConfig{})
	require.True(t, second.IsSuccess())

	assert.Equal(t, afterFirst, itemSet(session.itemsOf(1)))
	assert.Equal(t, []string{"A:1", "B:2"}, afterFirst)
	assert.Equal(t, orderAfterFirst, session.orders[1])
}

func TestSyncService_UpdateShipment_RemoteFailure(t *testing.T) {
	session := newFakeSession()
	session.seedOrder(fulfillment.RemoteOrder{OrderID: 5, OrderNumber: "H200"})
	session.commitErrs[0] = fulfillment.ErrRemoteRequestFailed
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	out := svc.UpdateShipment(context.Background(), session, testShipment("ready", item("A", 1)), fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Equal(t, "Unable to update ShipStation shipment. Error: fulfillment: remote request failed", out.Message)
	assert.Empty(t, session.items)
}

func itemSet(items []fulfillment.RemoteOrderItem) []string {
	result := make([]string, 0, len(items))
	for _, i := range items {
		result = append(result, i.SKU+":"+strconv.Itoa(i.Quantity))
	}
	sort.Strings(result)
	return result
}

// ---------------------------------------------------------------------------
// PollShipments
// ---------------------------------------------------------------------------

func TestSyncService_PollShipments(t *testing.T) {
	session := newFakeSession()
	session.seedOrder(fulfillment.RemoteOrder{
		OrderID:     55,
		OrderNumber: "ORD-9",
		ShipName:    "Ada Lovelace",
		ShipCity:    "Reno",
	})
	shipDate := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	session.shipments = []fulfillment.RemoteShipment{{ShipmentID: 1, OrderID: 55, TrackingNumber: "1Z999", ShipDate: &shipDate}}
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	out := svc.PollShipments(context.Background(), session, "2023-01-01T00:00:00Z")

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "Retrieved 1 shipments from ShipStation", out.Message)
	require.Len(t, out.Shipments, 1)
	got := out.Shipments[0]
	assert.Equal(t, "ORD-9", got.ID)
	assert.Equal(t, "1Z999", got.Tracking)
	assert.Equal(t, "55", got.ShipStationID)
	assert.Equal(t, "shipped", got.Status)
	assert.Equal(t, "Reno", got.ShippingAddress.City)
	assert.Equal(t, "Ada", got.ShippingAddress.Firstname)
	assert.Equal(t, "Lovelace", got.ShippingAddress.Lastname)

	next, err := time.Parse(time.RFC3339, out.Parameters["since"])
	require.NoError(t, err)
	assert.True(t, next.After(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2023-01-10T00:00:00Z", out.Parameters["since"])
	assert.Equal(t, "ModifyDate ge datetime'2023-01-01T00:00:00' and ShipDate ne null", session.filters[0])
}

func TestSyncService_PollShipments_OrderLookupIsShared(t *testing.T) {
	session := newFakeSession()
	session.seedOrder(fulfillment.RemoteOrder{OrderID: 55, OrderNumber: "ORD-9"})
	session.shipments = []fulfillment.RemoteShipment{
		{ShipmentID: 1, OrderID: 55, TrackingNumber: "T1"},
		{ShipmentID: 2, OrderID: 55, TrackingNumber: "T2"},
	}
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	out := svc.PollShipments(context.Background(), session, "2023-01-01T00:00:00Z")

	require.Len(t, out.Shipments, 2)
	assert.Equal(t, 2, session.calls)
}

func TestSyncService_PollShipments_NoRecordsStillEmitsWatermark(t *testing.T) {
	session := newFakeSession()
	svc := newTestService(t, fulfillment.LookupStrategyStatic)

	for _, since := range []string{"2023-01-01T00:00:00Z", "2023-01-10T12:00:00Z", "2023-02-01T00:00:00Z"} {
		out := svc.PollShipments(context.Background(), session, since)

		assert.Equal(t, http.StatusOK, out.Status)
		assert.Equal(t, "Retrieved 0 shipments from ShipStation", out.Message)
		assert.Empty(t, out.Shipments)

		in, err := time.Parse(time.RFC3339, since)
		require.NoError(t, err)
		next, err := time.Parse(time.RFC3339, out.Parameters["since"])
		require.NoError(t, err)
		assert.False(t, next.Before(in), "since %s produced %s", since, out.Parameters["since"])
	}
}

func TestSyncService_PollShipments_CreationWatermark(t *testing.T) {
	session := newFakeSession()
	lookups, err := NewLookupFactory(fulfillment.LookupStrategyStatic, nil)
	require.NoError(t, err)
	svc := NewSyncService(lookups, fulfillment.CreationWatermark{Offset: fulfillment.DefaultRemoteClockOffset}, nil,
		WithClock(func() time.Time { return fixedNow }))

	out := svc.PollShipments(context.Background(), session, "2023-01-01T00:00:00Z")

	require.True(t, out.IsSuccess())
	assert.Equal(t, "2023-01-10T08:30:00Z", out.Parameters["since"])
	assert.Equal(t, []string{"CreateDate ge datetime'2023-01-01T00:00:00'"}, session.filters)
}

func TestSyncService_PollShipments_Failures(t *testing.T) {
	t.Run("invalid since", func(t *testing.T) {
		session := newFakeSession()
		svc := newTestService(t, fulfillment.LookupStrategyStatic)

		out := svc.PollShipments(context.Background(), session, "last tuesday")
		assert.Equal(t, http.StatusInternalServerError, out.Status)
		assert.Contains(t, out.Message, "Unable to get shipments from ShipStation. Error: ")
		assert.Nil(t, out.Parameters)
		assert.Zero(t, session.calls)
	})

	t.Run("query error", func(t *testing.T) {
		session := newFakeSession()
		session.queryErr = fulfillment.ErrRemoteUnavailable
		svc := newTestService(t, fulfillment.LookupStrategyStatic)

		out := svc.PollShipments(context.Background(), session, "2023-01-01T00:00:00Z")
		assert.Equal(t, http.StatusInternalServerError, out.Status)
		assert.Equal(t, "Unable to get shipments from ShipStation. Error: fulfillment: remote service unavailable", out.Message)
	})

	t.Run("missing owning order", func(t *testing.T) {
		session := newFakeSession()
		session.shipments = []fulfillment.RemoteShipment{{ShipmentID: 1, OrderID: 99}}
		svc := newTestService(t, fulfillment.LookupStrategyStatic)

		out := svc.PollShipments(context.Background(), session, "2023-01-01T00:00:00Z")
		assert.Equal(t, http.StatusInternalServerError, out.Status)
		assert.Contains(t, out.Message, fulfillment.ErrRemoteOrderNotFound.Error())
	})
}

// ---------------------------------------------------------------------------
// Sync records
// ---------------------------------------------------------------------------

func TestSyncService_WritesSyncRecords(t *testing.T) {
	repo := new(MockSyncRecordRepository)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *fulfillment.SyncRecord) bool {
		return r.Operation == fulfillment.SyncOperationCreateOrder &&
			r.Direction == fulfillment.SyncDirectionOutbound &&
			r.Outcome == fulfillment.SyncOutcomeSuccess &&
			r.OrderNumber == "R100" &&
			r.RemoteOrderID != nil && *r.RemoteOrderID == 1 &&
			r.CreatedAt.Equal(fixedNow)
	})).Return(nil).Once()
	svc := newTestService(t, fulfillment.LookupStrategyStatic, WithSyncRecords(repo))

	out := svc.CreateOrder(context.Background(), newFakeSession(), testOrder(), fulfillment.ChannelConfig{})

	assert.True(t, out.IsSuccess())
	repo.AssertExpectations(t)
}

func TestSyncService_SyncRecordFailureDoesNotChangeOutcome(t *testing.T) {
	repo := new(MockSyncRecordRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	svc := newTestService(t, fulfillment.LookupStrategyStatic, WithSyncRecords(repo))

	out := svc.UpdateShipment(context.Background(), newFakeSession(), testShipment("shipped"), fulfillment.ChannelConfig{})

	assert.Equal(t, http.StatusOK, out.Status)
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(fulfillment.ErrShippingAddressRequired))
	assert.True(t, IsInputError(errors.Join(errors.New("x"), fulfillment.ErrInvalidWatermark)))
	assert.False(t, IsInputError(fulfillment.ErrRemoteUnavailable))
	assert.False(t, IsInputError(nil))
}
