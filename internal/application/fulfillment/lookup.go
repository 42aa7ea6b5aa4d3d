package fulfillment

import (
	"fmt"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// LookupFactory builds the resolver used for one operation on a session
type LookupFactory func(session fulfillment.Session) fulfillment.LookupResolver

// NewLookupFactory returns a factory for the configured strategy.
// The shared cache only applies to the remote strategy and may be nil.
func NewLookupFactory(strategy fulfillment.LookupStrategy, cache fulfillment.LookupCache) (LookupFactory, error) {
	switch strategy {
	case fulfillment.LookupStrategyStatic, "":
		static := fulfillment.NewStaticLookup()
		return func(fulfillment.Session) fulfillment.LookupResolver {
			return static
		}, nil
	case fulfillment.LookupStrategyRemote:
		return func(session fulfillment.Session) fulfillment.LookupResolver {
			var resolver fulfillment.LookupResolver = fulfillment.NewRemoteLookup(session)
			if cache != nil {
				resolver = fulfillment.NewCachedLookup(resolver, cache)
			}
			return fulfillment.NewCachingResolver(resolver)
		}, nil
	default:
		return nil, fmt.Errorf("fulfillment: unknown lookup strategy %q", strategy)
	}
}
