package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
)

// MemAdapter is an in-memory Adapter, used by tests and the seed
// scenarios in spec §8 so commit-engine tests don't require a
// filesystem.
type MemAdapter struct {
	mu    sync.RWMutex
	nodes map[holon.HolonId]Node
	links map[holon.HolonId][]Link // keyed by source id
}

func NewMemAdapter() *MemAdapter {
	return &MemAdapter{
		nodes: make(map[holon.HolonId]Node),
		links: make(map[holon.HolonId][]Link),
	}
}

func (a *MemAdapter) PersistNode(ctx context.Context, properties holon.PropertyMap, originalID *holon.HolonId) (holon.HolonId, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := holon.Local(uuid.NewString())
	a.nodes[id] = Node{ID: id, Properties: properties.Clone(), OriginalID: originalID}
	return id, nil
}

func (a *MemAdapter) DeleteNode(ctx context.Context, id holon.HolonId) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.nodes[id]; !ok {
		return holonerr.New(holonerr.HolonNotFound, "for id: %s", id)
	}
	delete(a.nodes, id)
	delete(a.links, id)
	return nil
}

func (a *MemAdapter) PersistLink(ctx context.Context, from, to holon.HolonId, name string, smartProps holon.PropertyMap) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.nodes[from]; !ok {
		return holonerr.New(holonerr.HolonNotFound, "link source id: %s", from)
	}
	a.links[from] = append(a.links[from], Link{From: from, To: to, Name: name, SmartProperties: smartProps.Clone()})
	return nil
}

func (a *MemAdapter) GetNode(ctx context.Context, id holon.HolonId) (*holon.Holon, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n, ok := a.nodes[id]
	if !ok {
		return nil, nil
	}
	h := &holon.Holon{
		Phase:           holon.PhaseSaved,
		State:           holon.Immutable,
		Validation:      holon.NoDescriptor,
		PropertyMap:     n.Properties.Clone(),
		RelationshipMap: make(map[holon.RelationshipName]*holon.HolonCollection),
		OriginalID:      n.OriginalID,
		SavedID:         &n.ID,
	}
	return h, nil
}

func (a *MemAdapter) GetLinks(ctx context.Context, from holon.HolonId, name holon.RelationshipName) ([]Link, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	all := a.links[from]
	out := make([]Link, 0, len(all))
	for _, l := range all {
		if l.Name == string(name) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (a *MemAdapter) GetAllNodes(ctx context.Context) ([]Node, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Node, 0, len(a.nodes))
	for _, n := range a.nodes {
		out = append(out, n)
	}
	return out, nil
}

var _ Adapter = (*MemAdapter)(nil)
