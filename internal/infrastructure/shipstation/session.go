package shipstation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

func (k changeKind) method() string {
	switch k {
	case changeUpdate:
		return http.MethodPut
	case changeDelete:
		return http.MethodDelete
	default:
		return http.MethodPost
	}
}

// change is one queued modification
type change struct {
	kind   changeKind
	entity fulfillment.Entity
}

// path returns the resource path relative to the service root
func (c change) path() string {
	if c.kind == changeInsert {
		return c.entity.EntitySet()
	}
	return fmt.Sprintf("%s(%d)", c.entity.EntitySet(), c.entity.EntityKey())
}

// session implements fulfillment.Session over the OData API
type session struct {
	client  *Client
	creds   fulfillment.Credentials
	pending []change
}

func newSession(client *Client, creds fulfillment.Credentials) *session {
	return &session{client: client, creds: creds}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// QueryOrders implements fulfillment.Session
func (s *session) QueryOrders(ctx context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteOrder, error) {
	rows, err := query[Order](ctx, s, fulfillment.EntitySetOrders, filter)
	if err != nil {
		return nil, err
	}
	result := make([]fulfillment.RemoteOrder, 0, len(rows))
	for _, row := range rows {
		result = append(result, fromWireOrder(row))
	}
	return result, nil
}

// QueryOrderItems implements fulfillment.Session
func (s *session) QueryOrderItems(ctx context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteOrderItem, error) {
	rows, err := query[OrderItem](ctx, s, fulfillment.EntitySetOrderItems, filter)
	if err != nil {
		return nil, err
	}
	result := make([]fulfillment.RemoteOrderItem, 0, len(rows))
	for _, row := range rows {
		result = append(result, fromWireOrderItem(row))
	}
	return result, nil
}

// QueryShipments implements fulfillment.Session
func (s *session) QueryShipments(ctx context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteShipment, error) {
	rows, err := query[Shipment](ctx, s, fulfillment.EntitySetShipments, filter)
	if err != nil {
		return nil, err
	}
	result := make([]fulfillment.RemoteShipment, 0, len(rows))
	for _, row := range rows {
		result = append(result, fromWireShipment(row))
	}
	return result, nil
}

// QueryCarriers implements fulfillment.LookupSource
func (s *session) QueryCarriers(ctx context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteCarrier, error) {
	rows, err := query[Provider](ctx, s, fulfillment.EntitySetProviders, filter)
	if err != nil {
		return nil, err
	}
	result := make([]fulfillment.RemoteCarrier, 0, len(rows))
	for _, row := range rows {
		result = append(result, fulfillment.RemoteCarrier{ProviderID: row.ProviderID, Name: row.Name})
	}
	return result, nil
}

// QueryServices implements fulfillment.LookupSource
func (s *session) QueryServices(ctx context.Context, filter fulfillment.Filter) ([]fulfillment.RemoteService, error) {
	rows, err := query[Service](ctx, s, fulfillment.EntitySetServices, filter)
	if err != nil {
		return nil, err
	}
	result := make([]fulfillment.RemoteService, 0, len(rows))
	for _, row := range rows {
		result = append(result, fulfillment.RemoteService{ServiceID: row.ServiceID, ProviderID: row.ProviderID, Name: row.Name})
	}
	return result, nil
}

// query fetches every page of an entity set matching filter
func query[T any](ctx context.Context, s *session, set string, filter fulfillment.Filter) ([]T, error) {
	target := s.client.config.BaseURL + "/" + set
	if !filter.IsEmpty() {
		values := url.Values{}
		values.Set("$filter", filter.String())
		target += "?" + strings.ReplaceAll(values.Encode(), "+", "%20")
	}

	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("shipstation: invalid query url: %w", err)
	}

	var rows []T
	for page := 0; ; page++ {
		if page >= s.client.config.MaxPages {
			return nil, fmt.Errorf("%w: %s paging exceeded %d pages", fulfillment.ErrRemoteInvalidResponse, set, s.client.config.MaxPages)
		}

		resp, err := s.client.doRequest(ctx, s.creds, http.MethodGet, target, "", nil)
		if err != nil {
			return nil, err
		}

		var f feed[T]
		if err := json.Unmarshal(resp.body, &f); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s feed: %v", fulfillment.ErrRemoteInvalidResponse, set, err)
		}
		rows = append(rows, f.Results...)

		if f.Next == "" {
			return rows, nil
		}
		next, err := base.Parse(f.Next)
		if err != nil || next.Host != base.Host {
			return nil, fmt.Errorf("%w: unexpected next link %q", fulfillment.ErrRemoteInvalidResponse, f.Next)
		}
		target = next.String()
	}
}

// ---------------------------------------------------------------------------
// Change Tracking
// ---------------------------------------------------------------------------

// Insert implements fulfillment.Session
func (s *session) Insert(entity fulfillment.Entity) error {
	if _, err := encodeEntity(entity); err != nil {
		return err
	}
	s.pending = append(s.pending, change{kind: changeInsert, entity: entity})
	return nil
}

// Update implements fulfillment.Session
func (s *session) Update(entity fulfillment.Entity) error {
	return s.queueKeyed(changeUpdate, entity)
}

// Delete implements fulfillment.Session
func (s *session) Delete(entity fulfillment.Entity) error {
	return s.queueKeyed(changeDelete, entity)
}

func (s *session) queueKeyed(kind changeKind, entity fulfillment.Entity) error {
	if _, err := encodeEntity(entity); err != nil {
		return err
	}
	if entity.EntityKey() == 0 {
		return fmt.Errorf("%w: %s", fulfillment.ErrEntityKeyRequired, entity.EntitySet())
	}
	s.pending = append(s.pending, change{kind: kind, entity: entity})
	return nil
}

// Commit implements fulfillment.Session. A single change is sent as a plain
// request, several as one $batch change set. The queue is cleared either way.
func (s *session) Commit(ctx context.Context) error {
	pending := s.pending
	s.pending = nil

	switch len(pending) {
	case 0:
		return nil
	case 1:
		return s.commitSingle(ctx, pending[0])
	default:
		return s.commitBatch(ctx, pending)
	}
}

func (s *session) commitSingle(ctx context.Context, c change) error {
	var (
		body        io.Reader
		contentType string
	)
	if c.kind != changeDelete {
		data, err := encodeEntity(c.entity)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := s.client.doRequest(ctx, s.creds, c.kind.method(), s.client.config.BaseURL+"/"+c.path(), contentType, body)
	if err != nil {
		return err
	}
	if c.kind == changeInsert {
		return applyCreated(c.entity, resp.body)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Entity Codec
// ---------------------------------------------------------------------------

func encodeEntity(entity fulfillment.Entity) ([]byte, error) {
	switch e := entity.(type) {
	case *fulfillment.RemoteOrder:
		return json.Marshal(toWireOrder(e))
	case *fulfillment.RemoteOrderItem:
		return json.Marshal(toWireOrderItem(e))
	default:
		return nil, fmt.Errorf("%w: %T", fulfillment.ErrUnsupportedEntity, entity)
	}
}

// applyCreated writes the remote-assigned key from a create response into entity
func applyCreated(entity fulfillment.Entity, body []byte) error {
	switch e := entity.(type) {
	case *fulfillment.RemoteOrder:
		var created entry[Order]
		if err := json.Unmarshal(body, &created); err != nil {
			return fmt.Errorf("%w: failed to parse created order: %v", fulfillment.ErrRemoteInvalidResponse, err)
		}
		e.OrderID = created.D.OrderID
		e.CreateDate = timeOf(created.D.CreateDate)
		e.ModifyDate = timeOf(created.D.ModifyDate)
	case *fulfillment.RemoteOrderItem:
		var created entry[OrderItem]
		if err := json.Unmarshal(body, &created); err != nil {
			return fmt.Errorf("%w: failed to parse created item: %v", fulfillment.ErrRemoteInvalidResponse, err)
		}
		e.OrderItemID = created.D.OrderItemID
	default:
		return fmt.Errorf("%w: %T", fulfillment.ErrUnsupportedEntity, entity)
	}
	return nil
}

var _ fulfillment.Session = (*session)(nil)
