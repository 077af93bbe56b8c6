package cache

import (
	"context"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/storage"
)

// ServiceRoutingPolicy governs how the router handles a request for a
// HolonId that may be external to the local space.
type ServiceRoutingPolicy string

const (
	BlockExternal ServiceRoutingPolicy = "BlockExternal"
	Combined      ServiceRoutingPolicy = "Combined"
	ProxyExternal ServiceRoutingPolicy = "ProxyExternal"
)

// ServiceRoute is the resolved destination for a holon request.
type ServiceRoute string

const (
	RouteLocal ServiceRoute = "Local"
	RouteProxy ServiceRoute = "Proxy"
)

// CacheRequestRouter decides, for each HolonId, whether to serve a
// request from the local Cache, reject it, or (not implemented here)
// proxy it to an external space.
type CacheRequestRouter struct {
	local  *Cache
	policy ServiceRoutingPolicy
}

func NewCacheRequestRouter(local *Cache, policy ServiceRoutingPolicy) *CacheRequestRouter {
	return &CacheRequestRouter{local: local, policy: policy}
}

// GetRequestRoute determines the service route for id under policy.
func GetRequestRoute(id holon.HolonId, policy ServiceRoutingPolicy) (ServiceRoute, error) {
	if id.IsLocal() {
		return RouteLocal, nil
	}
	switch policy {
	case BlockExternal:
		return "", holonerr.New(holonerr.InvalidParameter, "this request is invalid for external HolonIds")
	case Combined:
		return RouteLocal, nil
	case ProxyExternal:
		return "", holonerr.New(holonerr.NotImplemented, "service routing is not implemented for external HolonIds")
	default:
		return "", holonerr.New(holonerr.InvalidParameter, "unknown ServiceRoutingPolicy %q", policy)
	}
}

func (router *CacheRequestRouter) Get(ctx context.Context, id holon.HolonId) (*holon.Holon, error) {
	route, err := GetRequestRoute(id, router.policy)
	if err != nil {
		return nil, err
	}
	switch route {
	case RouteLocal:
		return router.local.Get(ctx, id)
	default:
		return nil, holonerr.New(holonerr.NotImplemented, "proxy-based cache access is not yet implemented")
	}
}

// GetRelatedHolons returns the persisted links for
// (sourceID, relationshipName); the caller (pkg/txctx) wraps each
// Link into a SmartReference and assembles the Saved HolonCollection,
// since building references here would cycle back through
// pkg/reference's Resolver into this package.
func (router *CacheRequestRouter) GetRelatedHolons(ctx context.Context, sourceID holon.HolonId, relationshipName holon.RelationshipName) ([]storage.Link, error) {
	route, err := GetRequestRoute(sourceID, router.policy)
	if err != nil {
		return nil, err
	}
	if route != RouteLocal {
		return nil, holonerr.New(holonerr.NotImplemented, "proxy-based related holon access is not yet implemented")
	}
	return router.local.GetRelatedHolons(ctx, sourceID, relationshipName)
}

// Invalidate drops id from the local cache, regardless of route —
// a delete or commit always affects the local space's own copy.
func (router *CacheRequestRouter) Invalidate(id holon.HolonId) {
	router.local.Invalidate(id)
}

// Put primes the local cache, passed through for the Commit Engine
// (pkg/commit) to call right after persisting a node.
func (router *CacheRequestRouter) Put(id holon.HolonId, h *holon.Holon) {
	router.local.Put(id, h)
}
