package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
)

// GetNode reports a miss as (nil, nil), not an error — callers must
// check the returned pointer themselves (pkg/cache.Get relies on
// this to distinguish a cache miss from a genuine adapter failure).
func TestMemAdapterGetNodeMissReturnsNilNil(t *testing.T) {
	a := NewMemAdapter()
	h, err := a.GetNode(context.Background(), holon.Local("missing"))
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestMemAdapterPersistAndGetNode(t *testing.T) {
	a := NewMemAdapter()
	props := holon.PropertyMap{"key": holon.StringValue("Emerging World")}
	id, err := a.PersistNode(context.Background(), props, nil)
	require.NoError(t, err)

	h, err := a.GetNode(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, holon.PhaseSaved, h.Phase)
	assert.Equal(t, holon.Immutable, h.State)
	key, _ := h.Key()
	assert.Equal(t, "Emerging World", key)
}

func TestMemAdapterPersistLinkRequiresExistingSource(t *testing.T) {
	a := NewMemAdapter()
	err := a.PersistLink(context.Background(), holon.Local("ghost"), holon.Local("target"), "AUTHORED_BY", nil)
	require.Error(t, err)
	kind, ok := holonerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, holonerr.HolonNotFound, kind)
}

func TestMemAdapterGetLinksFiltersByName(t *testing.T) {
	a := NewMemAdapter()
	srcProps := holon.PropertyMap{"key": holon.StringValue("Book")}
	src, err := a.PersistNode(context.Background(), srcProps, nil)
	require.NoError(t, err)

	t1, err := a.PersistNode(context.Background(), holon.PropertyMap{"key": holon.StringValue("Person1")}, nil)
	require.NoError(t, err)
	t2, err := a.PersistNode(context.Background(), holon.PropertyMap{"key": holon.StringValue("Person2")}, nil)
	require.NoError(t, err)

	require.NoError(t, a.PersistLink(context.Background(), src, t1, "AUTHORED_BY", nil))
	require.NoError(t, a.PersistLink(context.Background(), src, t2, "AUTHORED_BY", nil))
	require.NoError(t, a.PersistLink(context.Background(), src, t1, "PUBLISHED_BY", nil))

	links, err := a.GetLinks(context.Background(), src, "AUTHORED_BY")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, t1, links[0].To)
	assert.Equal(t, t2, links[1].To)
}

func TestMemAdapterDeleteNode(t *testing.T) {
	a := NewMemAdapter()
	id, err := a.PersistNode(context.Background(), holon.PropertyMap{}, nil)
	require.NoError(t, err)

	require.NoError(t, a.DeleteNode(context.Background(), id))
	h, err := a.GetNode(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, h)

	err = a.DeleteNode(context.Background(), id)
	require.Error(t, err)
}
