// Package txctx implements the TransactionContext: the owner of one
// transaction's Nursery and TransientHolonManager, its lifecycle
// gate, and the MutationFacade through which every caller mutates
// state. No holon is ever mutated except through a facade method.
package txctx

import (
	"context"
	"sync"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/nursery"
	"github.com/cuemby/holontx/pkg/pool"
	"github.com/cuemby/holontx/pkg/reference"
	"github.com/cuemby/holontx/pkg/storage"
)

// Gate is the transaction lifecycle state machine.
type Gate string

const (
	Open             Gate = "Open"
	CommitInProgress Gate = "CommitInProgress"
	Committed        Gate = "Committed"
)

// TransactionContext owns the Nursery and TransientHolonManager for
// one transaction, pinned to a single tx_id for its lifetime (I1).
// Nursery and TransientManager are private to their owning context;
// only the Cache and persistence Adapter are shared across contexts
// (spec §5).
type TransactionContext struct {
	mu        sync.RWMutex
	txID      string
	gate      Gate
	nursery   *nursery.Nursery
	transient *nursery.TransientManager
	router    *cache.CacheRequestRouter
	adapter   storage.Adapter
}

// New constructs an open TransactionContext bound to txID, sharing
// router and adapter with every other context in the process.
func New(txID string, router *cache.CacheRequestRouter, adapter storage.Adapter) *TransactionContext {
	return &TransactionContext{
		txID:      txID,
		gate:      Open,
		nursery:   nursery.NewNursery(),
		transient: nursery.NewTransientManager(),
		router:    router,
		adapter:   adapter,
	}
}

func (tc *TransactionContext) TxID() string { return tc.txID }

func (tc *TransactionContext) Gate() Gate {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.gate
}

func (tc *TransactionContext) Nursery() *nursery.Nursery { return tc.nursery }

func (tc *TransactionContext) TransientManager() *nursery.TransientManager { return tc.transient }

func (tc *TransactionContext) Adapter() storage.Adapter { return tc.adapter }

// ensureOpenForMutation gates every MutationFacade operation except
// the read-only ones, which spec §4.4 allows regardless of gate.
func (tc *TransactionContext) ensureOpenForMutation() error {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.gate != Open {
		return holonerr.New(holonerr.InvalidTransition, "transaction %s is not open for mutation (state %s)", tc.txID, tc.gate)
	}
	return nil
}

// TryBeginCommit transitions Open -> CommitInProgress, rejecting
// concurrent commit attempts and further external mutation for the
// duration. Called by pkg/commit at the start of a commit attempt.
func (tc *TransactionContext) TryBeginCommit() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.gate != Open {
		return holonerr.New(holonerr.InvalidTransition, "transaction %s cannot begin commit from state %s", tc.txID, tc.gate)
	}
	tc.gate = CommitInProgress
	return nil
}

// FinishCommit transitions CommitInProgress -> Committed, called on a
// Complete commit response.
func (tc *TransactionContext) FinishCommit() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.gate = Committed
}

// AbortCommit returns CommitInProgress -> Open, called on an
// Incomplete commit response (spec §4.4: "on failure returns to
// Open"), permitting the caller to inspect errors and retry.
func (tc *TransactionContext) AbortCommit() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.gate = Open
}

// Resolver implementation (pkg/reference.Resolver), letting every
// TransientReference/StagedReference/SmartReference built against this
// context dereference itself without importing pkg/txctx.

func (tc *TransactionContext) ResolveTransient(id pool.TemporaryId) (*holon.Holon, error) {
	return tc.transient.GetByID(id)
}

func (tc *TransactionContext) ResolveStaged(id pool.TemporaryId) (*holon.Holon, error) {
	return tc.nursery.GetByID(id)
}

// ResolveSmart resolves through the shared cache. Reference reads
// never thread a caller context.Context (spec §4.1 methods take none);
// only the dispatch layer and pkg/commit, which call the cache and
// adapter directly for bulk work, carry one.
func (tc *TransactionContext) ResolveSmart(id holon.HolonId) (*holon.Holon, error) {
	return tc.router.Get(context.Background(), id)
}

var _ reference.Resolver = (*TransactionContext)(nil)

// FetchRelatedHolons reads the persisted link index for
// (sourceID, relationshipName) and returns a Saved HolonCollection of
// SmartReferences (spec §4.5). This is the one place a HolonCollection
// of SmartReferences gets built, since doing it inside pkg/cache would
// require pkg/cache to import pkg/reference, which would cycle back
// through pkg/reference's Resolver.
func (tc *TransactionContext) FetchRelatedHolons(ctx context.Context, sourceID holon.HolonId, relationshipName holon.RelationshipName) (*holon.HolonCollection, error) {
	links, err := tc.router.GetRelatedHolons(ctx, sourceID, relationshipName)
	if err != nil {
		return nil, err
	}
	collection := holon.NewFetchedCollection()
	refs := make([]holon.HolonReference, 0, len(links))
	for _, link := range links {
		refs = append(refs, reference.NewSmart(tc, link.To, link.SmartProperties))
	}
	if err := collection.AddReferences(refs); err != nil {
		return nil, err
	}
	collection.MarkSaved()
	return collection, nil
}

// MutationFacade is the sole legal surface for mutating a
// transaction's state (spec §4.4). Two of the spec-named operations,
// LoadHolons and Commit, are implemented as exported functions in
// sibling packages (pkg/loader.LoadBundle, pkg/commit.Run) rather than
// as methods here: both need pkg/storage (Commit directly; LoadHolons
// transitively via Commit) and Go's package-cycle rules forbid
// pkg/txctx from importing either back. They still operate on this
// same facade/context pair from outside — the façade's ownership of
// mutation is unchanged, only which file hosts the func.
type MutationFacade struct {
	tc *TransactionContext
}

func NewMutationFacade(tc *TransactionContext) *MutationFacade {
	return &MutationFacade{tc: tc}
}

func (f *MutationFacade) Context() *TransactionContext { return f.tc }

// NewHolon creates an empty Transient holon, optionally seeded with a
// key property, in this context's TransientHolonManager.
func (f *MutationFacade) NewHolon(key string) (reference.TransientReference, error) {
	if err := f.tc.ensureOpenForMutation(); err != nil {
		return reference.TransientReference{}, err
	}
	id, h, err := f.tc.transient.NewHolon()
	if err != nil {
		return reference.TransientReference{}, err
	}
	if key != "" {
		if err := h.WithPropertyValue(keyProperty, holon.StringValue(key)); err != nil {
			return reference.TransientReference{}, err
		}
	}
	return reference.NewTransient(f.tc, id), nil
}

const keyProperty holon.PropertyName = "key"

// StageNewHolon deep-clones a Transient holon's content into a fresh
// ForCreate Staged holon in the Nursery (spec §3 "Transient Holon"
// lifecycle note). The transient itself is left untouched; it is not
// consumed or removed from the TransientHolonManager.
func (f *MutationFacade) StageNewHolon(t reference.TransientReference) (reference.StagedReference, error) {
	if err := f.tc.ensureOpenForMutation(); err != nil {
		return reference.StagedReference{}, err
	}
	clone, err := t.CloneHolon()
	if err != nil {
		return reference.StagedReference{}, err
	}
	staged := stageAsCreate(clone)
	id, err := f.tc.nursery.StageNew(staged)
	if err != nil {
		return reference.StagedReference{}, err
	}
	return reference.NewStaged(f.tc, id), nil
}

// StageNewFromClone stages a brand-new ForCreate holon from any
// existing reference's essential content, overriding its key with
// newKey. Used to duplicate a Staged or Saved holon as an independent
// new holon rather than a new version of the source.
func (f *MutationFacade) StageNewFromClone(src reference.Readable, newKey string) (reference.StagedReference, error) {
	if err := f.tc.ensureOpenForMutation(); err != nil {
		return reference.StagedReference{}, err
	}
	clone, err := src.CloneHolon()
	if err != nil {
		return reference.StagedReference{}, err
	}
	if newKey != "" {
		clone.PropertyMap[keyProperty] = holon.StringValue(newKey)
	}
	clone.OriginalID = nil
	staged := stageAsCreate(clone)
	id, err := f.tc.nursery.StageNew(staged)
	if err != nil {
		return reference.StagedReference{}, err
	}
	return reference.NewStaged(f.tc, id), nil
}

// StageNewVersion stages a ForUpdate holon tracking src as its
// predecessor, keeping src's key. The predecessor's HolonID must
// already be resolvable (src must be a SmartReference, or a
// StagedReference whose holon has reached StagedKind Committed).
func (f *MutationFacade) StageNewVersion(src reference.Readable) (reference.StagedReference, error) {
	if err := f.tc.ensureOpenForMutation(); err != nil {
		return reference.StagedReference{}, err
	}
	predecessor, err := src.HolonID()
	if err != nil {
		return reference.StagedReference{}, err
	}
	clone, err := src.CloneHolon()
	if err != nil {
		return reference.StagedReference{}, err
	}
	staged := stageAsUpdate(clone, predecessor)
	id, err := f.tc.nursery.StageNew(staged)
	if err != nil {
		return reference.StagedReference{}, err
	}
	return reference.NewStaged(f.tc, id), nil
}

// StageNewVersionFromID is StageNewVersion starting from a raw
// HolonId rather than an already-resolved reference, for callers that
// only have an id on hand.
func (f *MutationFacade) StageNewVersionFromID(ctx context.Context, id holon.HolonId) (reference.StagedReference, error) {
	if err := f.tc.ensureOpenForMutation(); err != nil {
		return reference.StagedReference{}, err
	}
	src := reference.NewSmart(f.tc, id, nil)
	return f.StageNewVersion(src)
}

// DeleteHolon deletes a Saved holon from the persistence adapter and
// invalidates its cache entry. This takes effect immediately rather
// than through the two-pass commit: deletion is not part of the
// staged-holon creation/update lifecycle spec §4.6 describes.
func (f *MutationFacade) DeleteHolon(ctx context.Context, localID string) error {
	if err := f.tc.ensureOpenForMutation(); err != nil {
		return err
	}
	id := holon.Local(localID)
	if err := f.tc.adapter.DeleteNode(ctx, id); err != nil {
		return err
	}
	f.tc.router.Invalidate(id)
	return nil
}

func stageAsCreate(h *holon.Holon) *holon.Holon {
	h.Phase = holon.PhaseStaged
	h.Version = 1
	h.Staged = holon.StagedPhase{Kind: holon.ForCreate}
	return h
}

func stageAsUpdate(h *holon.Holon, predecessor holon.HolonId) *holon.Holon {
	h.Phase = holon.PhaseStaged
	h.Version = 1
	h.Staged = holon.StagedPhase{Kind: holon.ForUpdate}
	h.OriginalID = &predecessor
	return h
}
