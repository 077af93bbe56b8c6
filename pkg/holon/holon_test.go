package holon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holontx/pkg/holonerr"
)

func mustKind(t *testing.T, err error) holonerr.Kind {
	t.Helper()
	kind, ok := holonerr.KindOf(err)
	require.True(t, ok, "expected a holonerr.Error, got %v", err)
	return kind
}

// Every writable façade call against an Immutable holon returns
// NotAccessible, regardless of phase.
func TestIsAccessibleImmutableBlocksWrite(t *testing.T) {
	h := NewStagedForCreate()
	require.NoError(t, h.AbandonStagedChanges())

	err := h.WithPropertyValue("title", StringValue("new title"))
	require.Error(t, err)
	assert.Equal(t, holonerr.NotAccessible, mustKind(t, err))

	// reads remain permitted.
	assert.NoError(t, h.IsAccessible(AccessRead))
}

// A Saved holon is read-only except for deletion metadata; no facade
// write path is accessible.
func TestIsAccessibleSavedBlocksWrite(t *testing.T) {
	h := NewStagedForCreate()
	require.NoError(t, h.WithPropertyValue("key", StringValue("Emerging World")))
	require.NoError(t, h.ToCommitted(HolonId{LocalID: "abc"}))
	h.Phase = PhaseSaved

	assert.NoError(t, h.IsAccessible(AccessRead))
	err := h.IsAccessible(AccessWrite)
	require.Error(t, err)
	assert.Equal(t, holonerr.NotAccessible, mustKind(t, err))
}

// After abandon_staged_changes, the holon is terminal: a further
// WithPropertyValue call fails with NotAccessible.
func TestAbandonStagedChangesThenWriteFails(t *testing.T) {
	h := NewStagedForCreate()
	require.NoError(t, h.WithPropertyValue("key", StringValue("draft")))
	require.NoError(t, h.AbandonStagedChanges())
	assert.Equal(t, StagedAbandoned, h.Staged.Kind)
	assert.Equal(t, Immutable, h.State)

	err := h.WithPropertyValue("key", StringValue("changed"))
	require.Error(t, err)
	assert.Equal(t, holonerr.NotAccessible, mustKind(t, err))
}

// Abandoning an already-committed holon is rejected: only uncommitted
// staged kinds can transition to Abandoned.
func TestAbandonCommittedHolonFails(t *testing.T) {
	h := NewStagedForCreate()
	require.NoError(t, h.ToCommitted(HolonId{LocalID: "xyz"}))
	err := h.AbandonStagedChanges()
	require.Error(t, err)
	assert.Equal(t, holonerr.InvalidTransition, mustKind(t, err))
}

// The first mutation on a ForUpdate holon flips it to ForUpdateChanged;
// subsequent mutations leave it there.
func TestMarkChangedTransition(t *testing.T) {
	h := NewStagedForUpdate(HolonId{LocalID: "pred"})
	require.Equal(t, ForUpdate, h.Staged.Kind)

	require.NoError(t, h.WithPropertyValue("title", StringValue("v2")))
	assert.Equal(t, ForUpdateChanged, h.Staged.Kind)

	require.NoError(t, h.WithPropertyValue("title", StringValue("v3")))
	assert.Equal(t, ForUpdateChanged, h.Staged.Kind)
}

func TestVersionedKeyRequiresKey(t *testing.T) {
	h := NewTransient()
	_, err := h.VersionedKey()
	require.Error(t, err)
	assert.Equal(t, holonerr.InvalidParameter, mustKind(t, err))
}

func TestIncrementVersion(t *testing.T) {
	h := NewStagedForCreate()
	require.NoError(t, h.WithPropertyValue("key", StringValue("k")))
	vk1, _ := h.VersionedKey()
	require.NoError(t, h.IncrementVersion())
	vk2, _ := h.VersionedKey()
	assert.NotEqual(t, vk1, vk2)
	assert.Equal(t, 2, h.Version)
}

func TestToCommittedSetsSavedIDAndFreezes(t *testing.T) {
	h := NewStagedForCreate()
	id := HolonId{LocalID: "saved-1"}
	require.NoError(t, h.ToCommitted(id))
	require.NotNil(t, h.SavedID)
	assert.Equal(t, id, *h.SavedID)
	assert.Equal(t, Committed, h.Staged.Kind)
	assert.Equal(t, Immutable, h.State)
}

func TestCloneTransientCarriesProperties(t *testing.T) {
	h := NewStagedForCreate()
	require.NoError(t, h.WithPropertyValue("key", StringValue("original")))
	clone := h.CloneTransient()
	assert.Equal(t, PhaseTransient, clone.Phase)
	key, _ := clone.Key()
	assert.Equal(t, "original", key)

	// the clone's property map must not alias the source's.
	require.NoError(t, clone.WithPropertyValue("key", StringValue("mutated")))
	origKey, _ := h.Key()
	assert.Equal(t, "original", origKey)
}

func TestEssentialContent(t *testing.T) {
	h := NewStagedForCreate()
	require.NoError(t, h.WithPropertyValue("key", StringValue("Emerging World")))
	require.NoError(t, h.WithPropertyValue("pages", IntegerValue(312)))
	essential, err := h.EssentialContent()
	require.NoError(t, err)
	assert.Equal(t, "Emerging World", essential.Key)
	v, ok := essential.PropertyMap.Get("pages")
	require.True(t, ok)
	assert.Equal(t, IntegerValue(312), v)
}
