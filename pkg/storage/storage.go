// Package storage defines the persistence adapter interface the
// Commit Engine and Cache drive, plus the byte-exact link tag codec
// and two implementations (BoltAdapter, MemAdapter).
package storage

import (
	"context"

	"github.com/cuemby/holontx/pkg/holon"
)

// Node is the persisted form of a holon: its property map plus
// lineage. The adapter owns id assignment.
type Node struct {
	ID         holon.HolonId
	Properties holon.PropertyMap
	OriginalID *holon.HolonId
}

// Link is a persisted edge: a relationship name from a source to a
// target node, with optional smart properties inlined on the link
// tag for the reference fast path (§4.1, §4.5).
type Link struct {
	From            holon.HolonId
	To              holon.HolonId
	Name            string
	SmartProperties holon.PropertyMap
}

// Adapter is the abstract node/link store the Commit Engine and
// Cache are driven through. Implementations must be safe for
// concurrent use: the core issues sequential writes within a single
// commit but multiple transactions' commits may run concurrently.
type Adapter interface {
	PersistNode(ctx context.Context, properties holon.PropertyMap, originalID *holon.HolonId) (holon.HolonId, error)
	DeleteNode(ctx context.Context, id holon.HolonId) error
	PersistLink(ctx context.Context, from, to holon.HolonId, name string, smartProps holon.PropertyMap) error
	GetNode(ctx context.Context, id holon.HolonId) (*holon.Holon, error)
	GetLinks(ctx context.Context, from holon.HolonId, name holon.RelationshipName) ([]Link, error)
	GetAllNodes(ctx context.Context) ([]Node, error)
}
