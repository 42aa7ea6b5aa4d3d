package fulfillment

import (
	"context"
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Lookup Strategies
// ---------------------------------------------------------------------------

// LookupResolver resolves human-readable carrier and shipping method names
// into remote identifiers.
type LookupResolver interface {
	// ResolveCarrier returns the provider id for a carrier name
	ResolveCarrier(ctx context.Context, name string) (CarrierID, error)
	// ResolveService returns the service id for a shipping method name.
	// ok is false when the name has no service.
	ResolveService(ctx context.Context, name string) (id ServiceID, ok bool, err error)
}

// LookupStrategy names a LookupResolver implementation
type LookupStrategy string

const (
	LookupStrategyStatic LookupStrategy = "static"
	LookupStrategyRemote LookupStrategy = "remote"
)

// IsValid returns true if the strategy is known
func (s LookupStrategy) IsValid() bool {
	return s == LookupStrategyStatic || s == LookupStrategyRemote
}

// ---------------------------------------------------------------------------
// StaticLookup
// ---------------------------------------------------------------------------

var staticCarriers = map[string]CarrierID{
	"UPS":   3,
	"DHL":   13,
	"USPS":  1,
	"FedEx": 4,
}

var staticServices = map[string]ServiceID{
	"UPS Ground":                                26,
	"UPS Express":                               31,
	"DHL International":                         148,
	"USPS First Class Mail":                     10,
	"USPS Priority Mail (Endicia)":              21,
	"International Priority Airmail (Endicia)":  89,
	"FedEx SmartPost Parcel Select":             66,
	"FedEx SmartPost Parcel Select Lightweight": 169,
}

// StaticLookup resolves names from a compiled table.
// Unknown carriers resolve to CarrierUnknown and unknown services to no value.
type StaticLookup struct{}

// NewStaticLookup creates the lenient table-driven resolver
func NewStaticLookup() *StaticLookup {
	return &StaticLookup{}
}

// ResolveCarrier implements LookupResolver
func (StaticLookup) ResolveCarrier(_ context.Context, name string) (CarrierID, error) {
	if id, ok := staticCarriers[name]; ok {
		return id, nil
	}
	return CarrierUnknown, nil
}

// ResolveService implements LookupResolver
func (StaticLookup) ResolveService(_ context.Context, name string) (ServiceID, bool, error) {
	id, ok := staticServices[name]
	return id, ok, nil
}

// ---------------------------------------------------------------------------
// RemoteLookup
// ---------------------------------------------------------------------------

// LookupSource is the read capability RemoteLookup needs from the remote service
type LookupSource interface {
	QueryCarriers(ctx context.Context, filter Filter) ([]RemoteCarrier, error)
	QueryServices(ctx context.Context, filter Filter) ([]RemoteService, error)
}

// RemoteLookup resolves names against the remote Providers and Services sets.
// A name without a matching record is a fatal error.
type RemoteLookup struct {
	source LookupSource
}

// NewRemoteLookup creates the strict remote resolver
func NewRemoteLookup(source LookupSource) *RemoteLookup {
	return &RemoteLookup{source: source}
}

// ResolveCarrier implements LookupResolver
func (l *RemoteLookup) ResolveCarrier(ctx context.Context, name string) (CarrierID, error) {
	carriers, err := l.source.QueryCarriers(ctx, Where(FieldName, OpEq, String(name)))
	if err != nil {
		return CarrierUnknown, err
	}
	if len(carriers) == 0 {
		return CarrierUnknown, fmt.Errorf("%w: %q", ErrCarrierNotFound, name)
	}
	return CarrierID(carriers[0].ProviderID), nil
}

// ResolveService implements LookupResolver
func (l *RemoteLookup) ResolveService(ctx context.Context, name string) (ServiceID, bool, error) {
	services, err := l.source.QueryServices(ctx, Where(FieldName, OpEq, String(name)))
	if err != nil {
		return 0, false, err
	}
	if len(services) == 0 {
		return 0, false, fmt.Errorf("%w: %q", ErrServiceNotFound, name)
	}
	return ServiceID(services[0].ServiceID), true, nil
}

// ---------------------------------------------------------------------------
// CachingResolver
// ---------------------------------------------------------------------------

type serviceResult struct {
	id ServiceID
	ok bool
}

// CachingResolver memoizes successful resolutions of the wrapped strategy.
// It is meant to live for a single sync operation.
type CachingResolver struct {
	next     LookupResolver
	mu       sync.Mutex
	carriers map[string]CarrierID
	services map[string]serviceResult
}

// NewCachingResolver wraps next with per-operation memoization
func NewCachingResolver(next LookupResolver) *CachingResolver {
	return &CachingResolver{
		next:     next,
		carriers: make(map[string]CarrierID),
		services: make(map[string]serviceResult),
	}
}

// ResolveCarrier implements LookupResolver
func (c *CachingResolver) ResolveCarrier(ctx context.Context, name string) (CarrierID, error) {
	c.mu.Lock()
	id, ok := c.carriers[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := c.next.ResolveCarrier(ctx, name)
	if err != nil {
		return id, err
	}
	c.mu.Lock()
	c.carriers[name] = id
	c.mu.Unlock()
	return id, nil
}

// ResolveService implements LookupResolver
func (c *CachingResolver) ResolveService(ctx context.Context, name string) (ServiceID, bool, error) {
	c.mu.Lock()
	res, ok := c.services[name]
	c.mu.Unlock()
	if ok {
		return res.id, res.ok, nil
	}

	id, found, err := c.next.ResolveService(ctx, name)
	if err != nil {
		return id, found, err
	}
	c.mu.Lock()
	c.services[name] = serviceResult{id: id, ok: found}
	c.mu.Unlock()
	return id, found, nil
}

// ---------------------------------------------------------------------------
// Shared Lookup Cache
// ---------------------------------------------------------------------------

// LookupKind distinguishes carrier and service entries of a LookupCache
type LookupKind string

const (
	LookupKindCarrier LookupKind = "carrier"
	LookupKindService LookupKind = "service"
)

// LookupCache is a cross-request cache of positive lookup results.
// Implementations must be safe for concurrent use. CachedLookup discards Set
// errors, so implementations report their own write failures.
type LookupCache interface {
	Get(ctx context.Context, kind LookupKind, name string) (id int64, found bool, err error)
	Set(ctx context.Context, kind LookupKind, name string, id int64) error
}

// CachedLookup decorates a strategy with a shared LookupCache.
// Cache failures fall through to the wrapped strategy.
type CachedLookup struct {
	next  LookupResolver
	cache LookupCache
}

// NewCachedLookup wraps next with a shared cache
func NewCachedLookup(next LookupResolver, cache LookupCache) *CachedLookup {
	return &CachedLookup{next: next, cache: cache}
}

// ResolveCarrier implements LookupResolver
func (c *CachedLookup) ResolveCarrier(ctx context.Context, name string) (CarrierID, error) {
	if id, found, err := c.cache.Get(ctx, LookupKindCarrier, name); err == nil && found {
		return CarrierID(id), nil
	}
	id, err := c.next.ResolveCarrier(ctx, name)
	if err != nil {
		return id, err
	}
	if id != CarrierUnknown {
		_ = c.cache.Set(ctx, LookupKindCarrier, name, int64(id))
	}
	return id, nil
}

// ResolveService implements LookupResolver
func (c *CachedLookup) ResolveService(ctx context.Context, name string) (ServiceID, bool, error) {
	if id, found, err := c.cache.Get(ctx, LookupKindService, name); err == nil && found {
		return ServiceID(id), true, nil
	}
	id, ok, err := c.next.ResolveService(ctx, name)
	if err != nil {
		return id, ok, err
	}
	if ok {
		_ = c.cache.Set(ctx, LookupKindService, name, int64(id))
	}
	return id, ok, nil
}

// Ensure implementations satisfy LookupResolver
var (
	_ LookupResolver = (*StaticLookup)(nil)
	_ LookupResolver = (*RemoteLookup)(nil)
	_ LookupResolver = (*CachingResolver)(nil)
	_ LookupResolver = (*CachedLookup)(nil)
)
