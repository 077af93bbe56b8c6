// Package reference implements the family of opaque handles
// (TransientReference, StagedReference, SmartReference) through which
// every caller accesses a Holon. Each reference is bound to exactly
// one transaction context (I1); it never holds the holon itself, only
// enough to resolve it through that context on every access.
package reference

import (
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/pool"
)

// Resolver is the narrow surface a reference needs from its owning
// transaction context to resolve itself. TransactionContext
// implements this; defining it here (rather than importing txctx)
// keeps pkg/reference free of a dependency cycle, since txctx in turn
// constructs references.
type Resolver interface {
	TxID() string
	ResolveTransient(id pool.TemporaryId) (*holon.Holon, error)
	ResolveStaged(id pool.TemporaryId) (*holon.Holon, error)
	ResolveSmart(id holon.HolonId) (*holon.Holon, error)
}

// Readable is the read-only façade every HolonReference satisfies,
// regardless of variant (spec §4.1).
type Readable interface {
	Key() (string, error)
	VersionedKey() (string, error)
	PropertyValue(name holon.PropertyName) (holon.PropertyValue, bool, error)
	RelatedHolons(name holon.RelationshipName) (*holon.HolonCollection, error)
	AllRelatedHolons() (map[holon.RelationshipName]*holon.HolonCollection, error)
	EssentialContent() (holon.EssentialHolonContent, error)
	HolonID() (holon.HolonId, error)
	Predecessor() (*holon.HolonId, error)
	CloneHolon() (*holon.Holon, error)
}

// Writable is the mutating façade. All three reference types implement
// it; a write succeeds only on Transient references and on Staged
// references whose underlying holon is still in a writable
// staged_state, and every SmartReference write fails with NotAccessible.
type Writable interface {
	WithPropertyValue(name holon.PropertyName, value holon.PropertyValue) error
	RemovePropertyValue(name holon.PropertyName) error
	AddRelatedHolons(name holon.RelationshipName, refs []holon.HolonReference) error
	RemoveRelatedHolons(name holon.RelationshipName, refs []holon.HolonReference) error
	UpdateOriginalID(id *holon.HolonId) error
}

func checkBinding(refTxID string, r Resolver) error {
	if refTxID != r.TxID() {
		return holonerr.New(holonerr.InvalidHolonRef, "reference bound to tx %s used against tx %s", refTxID, r.TxID())
	}
	return nil
}
