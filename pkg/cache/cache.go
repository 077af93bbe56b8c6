// Package cache implements the read-through cache of Saved holons and
// their links, plus the request router that decides whether a HolonId
// is served locally or rejected/proxied per ServiceRoutingPolicy.
package cache

import (
	"context"
	"sync"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/metrics"
	"github.com/cuemby/holontx/pkg/storage"
)

// Cache is a per-process, in-memory read-through cache of Saved
// holons indexed by HolonId. A mutation that affects a saved holon
// must call Invalidate so no stale entry is ever read back.
type Cache struct {
	mu          sync.RWMutex
	holons      map[holon.HolonId]*holon.Holon
	adapter     storage.Adapter
	invalidator *Invalidator
}

func New(adapter storage.Adapter, invalidator *Invalidator) *Cache {
	return &Cache{
		holons:      make(map[holon.HolonId]*holon.Holon),
		adapter:     adapter,
		invalidator: invalidator,
	}
}

// Get returns the cached holon for id, fetching and caching it from
// the adapter on a miss.
func (c *Cache) Get(ctx context.Context, id holon.HolonId) (*holon.Holon, error) {
	c.mu.RLock()
	h, ok := c.holons[id]
	c.mu.RUnlock()
	if ok {
		metrics.CacheHitsTotal.Inc()
		return h, nil
	}
	metrics.CacheMissesTotal.Inc()

	h, err := c.adapter.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, holonerr.New(holonerr.HolonNotFound, "for id: %s", id)
	}

	c.mu.Lock()
	c.holons[id] = h
	c.mu.Unlock()
	return h, nil
}

// GetRelatedHolons reads the persistent link index for
// (sourceID, relationshipName) and returns the raw link records;
// pkg/txctx.FetchRelatedHolons wraps them into a Saved HolonCollection
// of SmartReferences, since this package does not import pkg/reference
// (would cycle).
func (c *Cache) GetRelatedHolons(ctx context.Context, sourceID holon.HolonId, relationshipName holon.RelationshipName) ([]storage.Link, error) {
	return c.adapter.GetLinks(ctx, sourceID, relationshipName)
}

// Invalidate removes sourceID's cached holon. Callers that also need
// to drop cached relationship collections having sourceID as source
// should go through Invalidator, which this method notifies.
func (c *Cache) Invalidate(id holon.HolonId) {
	c.mu.Lock()
	delete(c.holons, id)
	c.mu.Unlock()
	metrics.CacheInvalidationsTotal.Inc()
	if c.invalidator != nil {
		c.invalidator.Publish(Event{Type: HolonInvalidated, HolonID: id})
	}
}

// Put primes the cache directly, used by the Commit Engine right
// after a node is persisted so a subsequent read doesn't round-trip
// through the adapter.
func (c *Cache) Put(id holon.HolonId, h *holon.Holon) {
	c.mu.Lock()
	c.holons[id] = h
	c.mu.Unlock()
}
