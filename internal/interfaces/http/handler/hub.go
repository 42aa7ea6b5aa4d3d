package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appfulfillment "github.com/jeffects/shipstation-endpoint/internal/application/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/logger"
	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/dto"
)

// SyncRunner runs the hub synchronization flows
type SyncRunner interface {
	CreateOrder(ctx context.Context, session fulfillment.Session, order *fulfillment.HubOrder, channel fulfillment.ChannelConfig) appfulfillment.Outcome
	MapTracking(ctx context.Context, session fulfillment.Session, ref fulfillment.TrackingReference, channel fulfillment.ChannelConfig) appfulfillment.Outcome
	CreateShipment(ctx context.Context, session fulfillment.Session, shipment *fulfillment.HubShipment, channel fulfillment.ChannelConfig) appfulfillment.Outcome
	UpdateShipment(ctx context.Context, session fulfillment.Session, shipment *fulfillment.HubShipment, channel fulfillment.ChannelConfig) appfulfillment.Outcome
	PollShipments(ctx context.Context, session fulfillment.Session, since string) appfulfillment.Outcome
}

// HubHandler serves the hub webhooks. Each request opens its own session
// with the request credentials, or the configured ones when it carries none.
type HubHandler struct {
	BaseHandler
	sync     SyncRunner
	sessions fulfillment.SessionFactory
	channel  fulfillment.ChannelConfig
}

// NewHubHandler creates a HubHandler; channel holds the configured defaults
// that request parameters override.
func NewHubHandler(sync SyncRunner, sessions fulfillment.SessionFactory, channel fulfillment.ChannelConfig) *HubHandler {
	return &HubHandler{sync: sync, sessions: sessions, channel: channel}
}

// AddOrder handles POST /add_order
func (h *HubHandler) AddOrder(c *gin.Context) {
	var req dto.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err, req.RequestID)
		return
	}

	ctx, session, ok := h.open(c, req.HubRequest, req.Order.ID)
	if !ok {
		return
	}
	h.respond(c, req.RequestID, h.sync.CreateOrder(ctx, session, req.Order, req.Parameters.Channel(h.channel)))
}

// MapTracking handles POST /map_tracking
func (h *HubHandler) MapTracking(c *gin.Context) {
	var req dto.TrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err, req.RequestID)
		return
	}

	ctx, session, ok := h.open(c, req.HubRequest, "")
	if !ok {
		return
	}
	h.respond(c, req.RequestID, h.sync.MapTracking(ctx, session, *req.Shipment, req.Parameters.Channel(h.channel)))
}

// AddShipment handles POST /add_shipment
func (h *HubHandler) AddShipment(c *gin.Context) {
	var req dto.ShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err, req.RequestID)
		return
	}

	ctx, session, ok := h.open(c, req.HubRequest, req.Shipment.ID)
	if !ok {
		return
	}
	h.respond(c, req.RequestID, h.sync.CreateShipment(ctx, session, req.Shipment, req.Parameters.Channel(h.channel)))
}

// UpdateShipment handles POST /update_shipment
func (h *HubHandler) UpdateShipment(c *gin.Context) {
	var req dto.ShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err, req.RequestID)
		return
	}

	ctx, session, ok := h.open(c, req.HubRequest, req.Shipment.ID)
	if !ok {
		return
	}
	h.respond(c, req.RequestID, h.sync.UpdateShipment(ctx, session, req.Shipment, req.Parameters.Channel(h.channel)))
}

// GetShipments handles POST /get_shipments
func (h *HubHandler) GetShipments(c *gin.Context) {
	var req dto.PollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err, req.RequestID)
		return
	}

	ctx, session, ok := h.open(c, req.HubRequest, "")
	if !ok {
		return
	}
	h.respond(c, req.RequestID, h.sync.PollShipments(ctx, session, req.Parameters.Get(dto.ParamSince)))
}

// open tags the request context with the hub request and opens a session.
// On failure the response has been written and ok is false.
func (h *HubHandler) open(c *gin.Context, req dto.HubRequest, reference string) (context.Context, fulfillment.Session, bool) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx).With(zap.String("hub_request_id", req.RequestID))
	if reference != "" {
		log = log.With(zap.String("reference", reference))
	}
	ctx = logger.WithContext(ctx, log)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("hub.request_id", req.RequestID))
	if reference != "" {
		span.SetAttributes(attribute.String("hub.reference", reference))
	}

	session, err := h.sessions.Open(ctx, req.Parameters.Credentials())
	if err != nil {
		logger.L(ctx).Warn("Unable to open ShipStation session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewHubErrorResponse(
			req.RequestID, dto.ErrCodeSyncFailed, "Unable to connect to ShipStation: "+err.Error(), nil,
		))
		return nil, nil, false
	}
	return ctx, session, true
}

func (h *HubHandler) respond(c *gin.Context, requestID string, out appfulfillment.Outcome) {
	c.JSON(out.Status, dto.HubResponse{
		RequestID:  requestID,
		Summary:    out.Message,
		Orders:     out.Orders,
		Shipments:  out.Shipments,
		Parameters: out.Parameters,
	})
}
