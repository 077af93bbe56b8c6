package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
)

func newKeyed(key string) *holon.Holon {
	h := holon.NewStagedForCreate()
	_ = h.WithPropertyValue("key", holon.StringValue(key))
	return h
}

// Insert must assign a unique versioned key to every holon sharing a
// base key, incrementing version on collision rather than overwriting.
func TestInsertVersionedKeyUniqueness(t *testing.T) {
	p := New()

	id1, err := p.Insert(newKeyed("Emerging World"))
	require.NoError(t, err)
	id2, err := p.Insert(newKeyed("Emerging World"))
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)

	h1, err := p.GetByID(id1)
	require.NoError(t, err)
	h2, err := p.GetByID(id2)
	require.NoError(t, err)
	assert.Equal(t, 1, h1.Version)
	assert.Equal(t, 2, h2.Version)

	vk1, _ := h1.VersionedKey()
	vk2, _ := h2.VersionedKey()
	assert.NotEqual(t, vk1, vk2)
}

// A holon with no key at all bypasses the versioned-key dance and is
// still insertable without colliding against other unkeyed holons.
func TestInsertUnkeyedHolonsDoNotCollide(t *testing.T) {
	p := New()
	id1, err := p.Insert(holon.NewStagedForCreate())
	require.NoError(t, err)
	id2, err := p.Insert(holon.NewStagedForCreate())
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, p.Len())
}

// IDByBaseKey errors DuplicateError when two staged versions share a
// base key and neither has committed yet.
func TestIDByBaseKeyDuplicateError(t *testing.T) {
	p := New()
	_, err := p.Insert(newKeyed("Emerging World"))
	require.NoError(t, err)
	_, err = p.Insert(newKeyed("Emerging World"))
	require.NoError(t, err)

	_, err = p.IDByBaseKey("Emerging World")
	require.Error(t, err)
	kind, ok := holonerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, holonerr.DuplicateError, kind)

	ids, err := p.IDsByBaseKey("Emerging World")
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestIDByBaseKeyNotFound(t *testing.T) {
	p := New()
	_, err := p.IDByBaseKey("nonexistent")
	require.Error(t, err)
	kind, _ := holonerr.KindOf(err)
	assert.Equal(t, holonerr.HolonNotFound, kind)
}

// Export/Import round-trips a pool's contents, including keyed index
// entries, across a deep copy (the pool used in commit/session tests
// relies on this never aliasing the source pool's property maps).
func TestExportImportRoundTrip(t *testing.T) {
	p := New()
	id, err := p.Insert(newKeyed("Roger Briggs"))
	require.NoError(t, err)

	snap := p.Export()
	restored := New()
	restored.Import(snap)

	h, err := restored.GetByID(id)
	require.NoError(t, err)
	key, _ := h.Key()
	assert.Equal(t, "Roger Briggs", key)

	// mutating the source after export must not affect the snapshot.
	orig, err := p.GetByID(id)
	require.NoError(t, err)
	_ = orig.WithPropertyValue("key", holon.StringValue("mutated"))
	key2, _ := h.Key()
	assert.Equal(t, "Roger Briggs", key2)
}

func TestClear(t *testing.T) {
	p := New()
	_, err := p.Insert(newKeyed("a"))
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.AllHolons())
}
