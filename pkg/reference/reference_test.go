package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/pool"
)

// fakeResolver is a minimal Resolver double letting these tests drive
// checkBinding without standing up a full TransactionContext.
type fakeResolver struct {
	txID string
	h    *holon.Holon
}

func (f *fakeResolver) TxID() string { return f.txID }
func (f *fakeResolver) ResolveTransient(pool.TemporaryId) (*holon.Holon, error) {
	return f.h, nil
}
func (f *fakeResolver) ResolveStaged(pool.TemporaryId) (*holon.Holon, error) { return f.h, nil }
func (f *fakeResolver) ResolveSmart(holon.HolonId) (*holon.Holon, error)     { return f.h, nil }

// A reference stamped with one tx_id but resolved against a resolver
// reporting a different tx_id yields InvalidHolonReference (P1).
func TestCheckBindingRejectsMismatchedTxID(t *testing.T) {
	h := holon.NewTransient()
	resolver := &fakeResolver{txID: "tx-b", h: h}
	ref := TransientReference{txID: "tx-a", id: pool.TemporaryId{}, r: resolver}

	_, err := ref.Key()
	require.Error(t, err)
	kind, ok := holonerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, holonerr.InvalidHolonRef, kind)
}

func TestCheckBindingAllowsMatchedTxID(t *testing.T) {
	h := holon.NewTransient()
	require.NoError(t, h.WithPropertyValue("key", holon.StringValue("bound")))
	resolver := &fakeResolver{txID: "tx-a", h: h}
	ref := TransientReference{txID: "tx-a", id: pool.TemporaryId{}, r: resolver}

	key, err := ref.Key()
	require.NoError(t, err)
	assert.Equal(t, "bound", key)
}

// StagedReference and SmartReference share the same checkBinding gate.
func TestCheckBindingRejectsMismatchedTxIDForStagedAndSmart(t *testing.T) {
	h := holon.NewTransient()
	resolver := &fakeResolver{txID: "tx-b", h: h}

	staged := StagedReference{txID: "tx-a", id: pool.TemporaryId{}, r: resolver}
	_, err := staged.Key()
	require.Error(t, err)
	kind, _ := holonerr.KindOf(err)
	assert.Equal(t, holonerr.InvalidHolonRef, kind)

	smart := SmartReference{txID: "tx-a", holonID: holon.Local("x"), r: resolver}
	_, err = smart.VersionedKey()
	require.Error(t, err)
	kind, _ = holonerr.KindOf(err)
	assert.Equal(t, holonerr.InvalidHolonRef, kind)
}
