package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/reference"
	"github.com/cuemby/holontx/pkg/storage"
	"github.com/cuemby/holontx/pkg/txctx"
)

func newHarness(t *testing.T) (*txctx.TransactionContext, *txctx.MutationFacade, storage.Adapter, *cache.CacheRequestRouter) {
	t.Helper()
	adapter := storage.NewMemAdapter()
	router := cache.NewCacheRequestRouter(cache.New(adapter, nil), cache.BlockExternal)
	tc := txctx.New("tx-loader", router, adapter)
	return tc, txctx.NewMutationFacade(tc), adapter, router
}

// buildHolonRef stages a detached LoaderHolonReference carrying only
// holon_key, mirroring what cmd/holonctl's bundle builder produces.
func buildHolonRef(t *testing.T, facade *txctx.MutationFacade, key string) reference.TransientReference {
	t.Helper()
	ref, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, ref.WithPropertyValue(holonKeyProperty, holon.StringValue(key)))
	return ref
}

// buildBundle constructs the transient graph shape LoadBundle expects:
// a bundle with BundleMembers holons, one of which (the book) carries
// a HasRelationshipReference to an AUTHORED_BY reference naming both
// person targets.
func buildBundle(t *testing.T, facade *txctx.MutationFacade) reference.TransientReference {
	t.Helper()

	book, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, book.WithPropertyValue(keyProperty, holon.StringValue("Emerging World")))

	p1, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, p1.WithPropertyValue(keyProperty, holon.StringValue("Roger Briggs")))

	p2, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, p2.WithPropertyValue(keyProperty, holon.StringValue("George Smith")))

	relRef, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, relRef.WithPropertyValue(relationshipNameProperty, holon.StringValue("AUTHORED_BY")))
	require.NoError(t, relRef.WithPropertyValue(isDeclaredProperty, holon.BooleanValue(true)))
	require.NoError(t, relRef.AddRelatedHolons(ReferenceSource, []holon.HolonReference{buildHolonRef(t, facade, "Emerging World")}))
	require.NoError(t, relRef.AddRelatedHolons(ReferenceTarget, []holon.HolonReference{
		buildHolonRef(t, facade, "Roger Briggs"),
		buildHolonRef(t, facade, "George Smith"),
	}))
	require.NoError(t, book.AddRelatedHolons(HasRelationshipReference, []holon.HolonReference{relRef}))

	bundle, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, bundle.AddRelatedHolons(BundleMembers, []holon.HolonReference{book, p1, p2}))
	return bundle
}

// S7: loading the bundle stages 3 holons, wires AUTHORED_BY between
// Book and both Persons, and commits Complete.
func TestLoadBundleStagesAndResolvesRelationships(t *testing.T) {
	tc, facade, adapter, router := newHarness(t)
	bundle := buildBundle(t, facade)

	result, err := LoadBundle(context.Background(), facade, adapter, router, bundle, nil)
	require.NoError(t, err)
	require.Equal(t, Complete, result.Status)
	require.NotNil(t, result.CommitResponse)
	assert.True(t, result.CommitResponse.IsComplete())
	assert.Len(t, result.CommitResponse.SavedHolons, 3)

	bookID, err := result.CommitResponse.FindHolonIDByKey("Emerging World")
	require.NoError(t, err)
	links, err := adapter.GetLinks(context.Background(), bookID, "AUTHORED_BY")
	require.NoError(t, err)
	assert.Len(t, links, 2)

	assert.Equal(t, 0, tc.Nursery().Len())
}

// A bundle with no BundleMembers is Skipped, not an error.
func TestLoadBundleSkippedWhenEmpty(t *testing.T) {
	_, facade, adapter, router := newHarness(t)
	bundle, err := facade.NewHolon("")
	require.NoError(t, err)

	result, err := LoadBundle(context.Background(), facade, adapter, router, bundle, nil)
	require.NoError(t, err)
	assert.Equal(t, Skipped, result.Status)
	assert.Nil(t, result.CommitResponse)
}

// skipProperties named properties are never copied onto the staged
// target during Pass 1.
func TestLoadBundleSkipsNamedProperties(t *testing.T) {
	_, facade, adapter, router := newHarness(t)

	loaderHolon, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, loaderHolon.WithPropertyValue(keyProperty, holon.StringValue("Book")))
	require.NoError(t, loaderHolon.WithPropertyValue(holon.PropertyName("StartUtf8ByteOffset"), holon.IntegerValue(12)))

	bundle, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, bundle.AddRelatedHolons(BundleMembers, []holon.HolonReference{loaderHolon}))

	skip := map[holon.PropertyName]bool{"StartUtf8ByteOffset": true}
	result, err := LoadBundle(context.Background(), facade, adapter, router, bundle, skip)
	require.NoError(t, err)
	require.Equal(t, Complete, result.Status)

	bookID, err := result.CommitResponse.FindHolonIDByKey("Book")
	require.NoError(t, err)
	saved, err := adapter.GetNode(context.Background(), bookID)
	require.NoError(t, err)
	_, ok := saved.PropertyValue("StartUtf8ByteOffset")
	assert.False(t, ok)
}

// P9: re-running Pass 2 (resolveAll) on the same queued references
// twice yields the same relationship set (the resolved target is a
// StagedReference keyed "Roger Briggs", so the second pass's
// AddRelatedHolons skips it as a duplicate key).
func TestResolveAllIdempotent(t *testing.T) {
	_, facade, _, _ := newHarness(t)

	book, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, book.WithPropertyValue(keyProperty, holon.StringValue("Emerging World")))
	stagedBook, err := facade.StageNewHolon(book)
	require.NoError(t, err)

	p1, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, p1.WithPropertyValue(keyProperty, holon.StringValue("Roger Briggs")))
	_, err = facade.StageNewHolon(p1)
	require.NoError(t, err)

	relRef, err := facade.NewHolon("")
	require.NoError(t, err)
	require.NoError(t, relRef.WithPropertyValue(relationshipNameProperty, holon.StringValue("AUTHORED_BY")))
	require.NoError(t, relRef.AddRelatedHolons(ReferenceSource, []holon.HolonReference{buildHolonRef(t, facade, "Emerging World")}))
	require.NoError(t, relRef.AddRelatedHolons(ReferenceTarget, []holon.HolonReference{buildHolonRef(t, facade, "Roger Briggs")}))

	queued := []reference.TransientReference{relRef}

	errs1 := resolveAll(facade, queued)
	assert.Empty(t, errs1)
	errs2 := resolveAll(facade, queued)
	assert.Empty(t, errs2)

	related, err := stagedBook.RelatedHolons("AUTHORED_BY")
	require.NoError(t, err)
	assert.Equal(t, 1, related.GetCount())
}
