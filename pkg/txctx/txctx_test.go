package txctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/reference"
	"github.com/cuemby/holontx/pkg/storage"
)

func newTestContext(t *testing.T, txID string) (*TransactionContext, storage.Adapter) {
	t.Helper()
	adapter := storage.NewMemAdapter()
	router := cache.NewCacheRequestRouter(cache.New(adapter, nil), cache.BlockExternal)
	return New(txID, router, adapter), adapter
}

// A reference's TemporaryId is only meaningful within the Nursery or
// TransientHolonManager that minted it: handing it to a second,
// unrelated context's resolver under the id's own type fails to
// resolve (the two contexts' pools are disjoint arenas per I1).
func TestReferenceIDNotFoundAcrossUnrelatedContexts(t *testing.T) {
	tcA, _ := newTestContext(t, "tx-a")
	tcB, _ := newTestContext(t, "tx-b")

	facadeA := NewMutationFacade(tcA)
	ref, err := facadeA.NewHolon("Emerging World")
	require.NoError(t, err)

	foreign := reference.NewTransient(tcB, ref.ID())
	_, err = foreign.Key()
	require.Error(t, err)
	kind, ok := holonerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, holonerr.HolonNotFound, kind)
}

// NewHolon followed by StageNewHolon promotes a Transient holon into
// the Nursery as a ForCreate Staged holon, leaving the transient
// itself untouched and independently resolvable.
func TestNewHolonThenStageNewHolon(t *testing.T) {
	tc, _ := newTestContext(t, "tx-1")
	facade := NewMutationFacade(tc)

	transient, err := facade.NewHolon("Emerging World")
	require.NoError(t, err)
	require.NoError(t, transient.WithPropertyValue("pages", holon.IntegerValue(312)))

	staged, err := facade.StageNewHolon(transient)
	require.NoError(t, err)

	key, err := staged.Key()
	require.NoError(t, err)
	assert.Equal(t, "Emerging World", key)

	// the transient survives staging, independently of the staged copy.
	tKey, err := transient.Key()
	require.NoError(t, err)
	assert.Equal(t, "Emerging World", tKey)

	assert.Equal(t, 1, tc.Nursery().Len())
	assert.Equal(t, 1, tc.TransientManager().Len())
}

// StageNewVersion requires its source's HolonID to already be
// resolvable: a SmartReference (Saved) qualifies, a pending
// StagedReference does not.
func TestStageNewVersionRequiresResolvablePredecessor(t *testing.T) {
	tc, adapter := newTestContext(t, "tx-1")
	facade := NewMutationFacade(tc)

	props := holon.PropertyMap{"key": holon.StringValue("Emerging World")}
	savedID, err := adapter.PersistNode(context.Background(), props, nil)
	require.NoError(t, err)

	smart := reference.NewSmart(tc, savedID, nil)
	versioned, err := facade.StageNewVersion(smart)
	require.NoError(t, err)

	pred, err := versioned.Predecessor()
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, savedID, *pred)

	// a pending (uncommitted) staged reference has no resolvable
	// HolonID yet, so it cannot serve as a StageNewVersion source.
	pending, err := facade.NewHolon("Pending")
	require.NoError(t, err)
	stagedPending, err := facade.StageNewHolon(pending)
	require.NoError(t, err)
	_, err = facade.StageNewVersion(stagedPending)
	require.Error(t, err)
}

// DeleteHolon takes effect immediately against the adapter and cache,
// bypassing the two-pass commit entirely.
func TestDeleteHolon(t *testing.T) {
	tc, adapter := newTestContext(t, "tx-1")
	facade := NewMutationFacade(tc)

	id, err := adapter.PersistNode(context.Background(), holon.PropertyMap{}, nil)
	require.NoError(t, err)

	require.NoError(t, facade.DeleteHolon(context.Background(), id.LocalID))

	h, err := adapter.GetNode(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, h)
}

// Every MutationFacade write path is rejected once the gate has left
// Open (e.g. mid-commit).
func TestMutationRejectedOutsideOpenGate(t *testing.T) {
	tc, _ := newTestContext(t, "tx-1")
	facade := NewMutationFacade(tc)
	require.NoError(t, tc.TryBeginCommit())

	_, err := facade.NewHolon("blocked")
	require.Error(t, err)
	kind, ok := holonerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, holonerr.InvalidTransition, kind)
}

func TestGateTransitions(t *testing.T) {
	tc, _ := newTestContext(t, "tx-1")
	assert.Equal(t, Open, tc.Gate())

	require.NoError(t, tc.TryBeginCommit())
	assert.Equal(t, CommitInProgress, tc.Gate())

	// a second concurrent commit attempt is rejected.
	err := tc.TryBeginCommit()
	require.Error(t, err)

	tc.AbortCommit()
	assert.Equal(t, Open, tc.Gate())

	require.NoError(t, tc.TryBeginCommit())
	tc.FinishCommit()
	assert.Equal(t, Committed, tc.Gate())
}
