package fulfillment

import (
	"context"
	"fmt"
	"sort"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

type change struct {
	kind   changeKind
	entity fulfillment.Entity
}

// fakeSession is an in-memory remote service. Filters are matched by
// rendering the candidate's own key filter and comparing expressions.
type fakeSession struct {
	orders    map[int64]fulfillment.RemoteOrder
	items     map[int64]fulfillment.RemoteOrderItem
	shipments []fulfillment.RemoteShipment
	carriers  []fulfillment.RemoteCarrier
	services  []fulfillment.RemoteService

	pending []change
	nextID  int64

	calls   int
	commits int
	filters []string

	// commitErrs fails the n-th commit (0-based) with the mapped error
	commitErrs map[int]error
	queryErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		orders:     make(map[int64]fulfillment.RemoteOrder),
		items:      make(map[int64]fulfillment.RemoteOrderItem),
		commitErrs: make(map[int]error),
		nextID:     1,
	}
}

func (f *fakeSession) seedOrder(o fulfillment.RemoteOrder) {
	f.orders[o.OrderID] = o
	if o.OrderID >= f.nextID {
		f.nextID = o.OrderID + 1
	}
}

func (f *fakeSession) query(filter fulfillment.Filter) error {
	f.calls++
	f.filters = append(f.filters, filter.String())
	return f.queryErr
}

func (f *fakeSession) QueryOrders(_ context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteOrder, error) {
	if err := f.query(filter); err != nil {
		return nil, err
	}
	var result []fulfillment.RemoteOrder
	for _, id := range f.sortedOrderIDs() {
		o := f.orders[id]
		byID := fulfillment.Where(fulfillment.FieldOrderID, fulfillment.OpEq, fulfillment.Int(o.OrderID)).String()
		byNumber := fulfillment.Where(fulfillment.FieldOrderNumber, fulfillment.OpEq, fulfillment.String(o.OrderNumber)).String()
		if filter.String() == byID || filter.String() == byNumber {
			result = append(result, o)
		}
	}
	return result, nil
}

func (f *fakeSession) QueryOrderItems(_ context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteOrderItem, error) {
	if err := f.query(filter); err != nil {
		return nil, err
	}
	return f.itemsMatching(filter), nil
}

func (f *fakeSession) QueryShipments(_ context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteShipment, error) {
	if err := f.query(filter); err != nil {
		return nil, err
	}
	return append([]fulfillment.RemoteShipment(nil), f.shipments...), nil
}

func (f *fakeSession) QueryCarriers(_ context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteCarrier, error) {
	if err := f.query(filter); err != nil {
		return nil, err
	}
	var result []fulfillment.RemoteCarrier
	for _, c := range f.carriers {
		if filter.String() == fulfillment.Where(fulfillment.FieldName, fulfillment.OpEq, fulfillment.String(c.Name)).String() {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeSession) QueryServices(_ context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteService, error) {
	if err := f.query(filter); err != nil {
		return nil, err
	}
	var result []fulfillment.RemoteService
	for _, s := range f.services {
		if filter.String() == fulfillment.Where(fulfillment.FieldName, fulfillment.OpEq, fulfillment.String(s.Name)).String() {
			result = append(result, s)
		}
	}
	return result, nil
}

func (f *fakeSession) Insert(entity fulfillment.Entity) error {
	f.calls++
	f.pending = append(f.pending, change{kind: changeInsert, entity: entity})
	return nil
}

func (f *fakeSession) Update(entity fulfillment.Entity) error {
	f.calls++
	if entity.EntityKey() == 0 {
		return fulfillment.ErrEntityKeyRequired
	}
	f.pending = append(f.pending, change{kind: changeUpdate, entity: entity})
	return nil
}

func (f *fakeSession) Delete(entity fulfillment.Entity) error {
	f.calls++
	if entity.EntityKey() == 0 {
		return fulfillment.ErrEntityKeyRequired
	}
	f.pending = append(f.pending, change{kind: changeDelete, entity: entity})
	return nil
}

func (f *fakeSession) Commit(context.Context) error {
	f.calls++
	n := f.commits
	f.commits++
	pending := f.pending
	f.pending = nil
	if err, ok := f.commitErrs[n]; ok {
		return err
	}

	for _, c := range pending {
		switch e := c.entity.(type) {
		case *fulfillment.RemoteOrder:
			switch c.kind {
			case changeInsert:
				e.OrderID = f.assignID()
				f.orders[e.OrderID] = *e
			case changeUpdate:
				f.orders[e.OrderID] = *e
			case changeDelete:
				delete(f.orders, e.OrderID)
			}
		case *fulfillment.RemoteOrderItem:
			switch c.kind {
			case changeInsert:
				e.OrderItemID = f.assignID()
				f.items[e.OrderItemID] = *e
			case changeUpdate:
				f.items[e.OrderItemID] = *e
			case changeDelete:
				delete(f.items, e.OrderItemID)
			}
		default:
			return fmt.Errorf("%w: %T", fulfillment.ErrUnsupportedEntity, c.entity)
		}
	}
	return nil
}

func (f *fakeSession) assignID() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeSession) itemsMatching(filter fulfillment.Filter) []fulfillment.RemoteOrderItem {
	var result []fulfillment.RemoteOrderItem
	for _, id := range f.sortedItemIDs() {
		item := f.items[id]
		if filter.String() == fulfillment.Where(fulfillment.FieldOrderID, fulfillment.OpEq, fulfillment.Int(item.OrderID)).String() {
			result = append(result, item)
		}
	}
	return result
}

func (f *fakeSession) itemsOf(orderID int64) []fulfillment.RemoteOrderItem {
	return f.itemsMatching(fulfillment.Where(fulfillment.FieldOrderID, fulfillment.OpEq, fulfillment.Int(orderID)))
}

func (f *fakeSession) sortedOrderIDs() []int64 {
	ids := make([]int64, 0, len(f.orders))
	for id := range f.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeSession) sortedItemIDs() []int64 {
	ids := make([]int64, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var _ fulfillment.Session = (*fakeSession)(nil)
