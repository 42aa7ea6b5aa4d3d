package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/handler"
)

// Paths kept out of request logs and traces
const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	basePath   string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithBasePath mounts every registered group under path. The hub expects
// its webhooks at the root, so the default is "".
func WithBasePath(path string) RouterOption {
	return func(r *Router) {
		r.basePath = path
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	base := r.engine.Group(r.basePath)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(base)
	}
}

// ---------------------------------------------------------------------------
// Route Groups
// ---------------------------------------------------------------------------

// HubRoutes returns the webhook routes called by the hub
func HubRoutes(h *handler.HubHandler) *DomainGroup {
	return NewDomainGroup("hub", "").
		POST("/add_order", h.AddOrder).
		POST("/map_tracking", h.MapTracking).
		POST("/add_shipment", h.AddShipment).
		POST("/update_shipment", h.UpdateShipment).
		POST("/get_shipments", h.GetShipments)
}

// SystemRoutes returns the health check, service info and, when metrics is
// not nil, the Prometheus scrape endpoint
func SystemRoutes(h *handler.SystemHandler, metrics http.Handler) *DomainGroup {
	g := NewDomainGroup("system", "").GET(HealthPath, h.Health)
	if metrics != nil {
		g.GET(MetricsPath, gin.WrapH(metrics))
	}
	g.Group("system", "/system").GET("/info", h.GetSystemInfo)
	return g
}

// SyncRecordRoutes returns the read-only sync record listing
func SyncRecordRoutes(h *handler.SyncRecordHandler) *DomainGroup {
	return NewDomainGroup("sync_records", "/sync_records").GET("", h.List)
}

// ---------------------------------------------------------------------------
// Domain Group
// ---------------------------------------------------------------------------

// DomainGroup creates a route group for a specific domain
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
	}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{
		method:   method,
		path:     path,
		handlers: handlers,
	})
	return dg
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}

	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

var _ RouteRegistrar = (*DomainGroup)(nil)
