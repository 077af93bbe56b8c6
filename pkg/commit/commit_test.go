package commit

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
	"github.com/cuemby/holontx/pkg/txctx"
)

func newHarness(t *testing.T) (*txctx.TransactionContext, *txctx.MutationFacade, storage.Adapter, *cache.CacheRequestRouter) {
	t.Helper()
	adapter := storage.NewMemAdapter()
	router := cache.NewCacheRequestRouter(cache.New(adapter, nil), cache.BlockExternal)
	tc := txctx.New("tx-1", router, adapter)
	return tc, txctx.NewMutationFacade(tc), adapter, router
}

// S1: staging a Book related to two Persons via AUTHORED_BY commits
// Complete with 3 new SavedIds, and get_related_holons returns both
// targets in insertion order.
func TestRunCommitsGraphAndPreservesRelationshipOrder(t *testing.T) {
	tc, facade, adapter, router := newHarness(t)

	book, err := facade.NewHolon("Emerging World")
	require.NoError(t, err)
	p1, err := facade.NewHolon("Roger Briggs")
	require.NoError(t, err)
	p2, err := facade.NewHolon("George Smith")
	require.NoError(t, err)

	stagedBook, err := facade.StageNewHolon(book)
	require.NoError(t, err)
	stagedP1, err := facade.StageNewHolon(p1)
	require.NoError(t, err)
	stagedP2, err := facade.StageNewHolon(p2)
	require.NoError(t, err)

	require.NoError(t, stagedBook.AddRelatedHolons("AUTHORED_BY", []holon.HolonReference{stagedP1, stagedP2}))

	resp, err := Run(context.Background(), tc, adapter, router)
	require.NoError(t, err)
	require.True(t, resp.IsComplete())
	assert.Len(t, resp.SavedHolons, 3)

	bookID, err := resp.FindHolonIDByKey("Emerging World")
	require.NoError(t, err)

	links, err := adapter.GetLinks(context.Background(), bookID, "AUTHORED_BY")
	require.NoError(t, err)
	require.Len(t, links, 2)

	p1ID, err := resp.FindHolonIDByKey("Roger Briggs")
	require.NoError(t, err)
	p2ID, err := resp.FindHolonIDByKey("George Smith")
	require.NoError(t, err)
	assert.Equal(t, p1ID, links[0].To)
	assert.Equal(t, p2ID, links[1].To)

	// P5: the Nursery is empty after a Complete commit.
	assert.Equal(t, 0, tc.Nursery().Len())
	assert.Equal(t, txctx.Committed, tc.Gate())
}

// S3: staging a new version of a committed Book tracks the original
// as predecessor.
func TestStageNewVersionTracksPredecessor(t *testing.T) {
	tc, facade, adapter, router := newHarness(t)

	book, err := facade.NewHolon("Emerging World")
	require.NoError(t, err)
	staged, err := facade.StageNewHolon(book)
	require.NoError(t, err)
	require.NoError(t, staged.WithPropertyValue("edition", holon.IntegerValue(1)))

	resp, err := Run(context.Background(), tc, adapter, router)
	require.NoError(t, err)
	require.True(t, resp.IsComplete())

	originalID, err := resp.FindHolonIDByKey("Emerging World")
	require.NoError(t, err)

	// a fresh MutationFacade call on the same (now Committed) context is
	// rejected; seed a second open context sharing the adapter/router to
	// model the next transaction that stages a new version.
	tc2 := txctx.New("tx-2", router, adapter)
	facade2 := txctx.NewMutationFacade(tc2)

	smart := reference.NewSmart(tc2, originalID, nil)
	versioned, err := facade2.StageNewVersion(smart)
	require.NoError(t, err)
	require.NoError(t, versioned.WithPropertyValue("edition", holon.IntegerValue(2)))

	assert.Equal(t, 1, tc2.Nursery().Len())
	pred, err := versioned.Predecessor()
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, originalID, *pred)

	resp2, err := Run(context.Background(), tc2, adapter, router)
	require.NoError(t, err)
	require.True(t, resp2.IsComplete())
	require.Len(t, resp2.SavedHolons, 1)
	assert.NotEqual(t, originalID, *resp2.SavedHolons[0].SavedID)
}

// failingAdapter wraps MemAdapter but fails PersistNode for any holon
// whose key matches failKey, modeling S6's "1 of 3 staged holons fails
// Pass 1" scenario.
type failingAdapter struct {
	*storage.MemAdapter
	failKey string
}

func (a *failingAdapter) PersistNode(ctx context.Context, properties holon.PropertyMap, originalID *holon.HolonId) (holon.HolonId, error) {
	if v, ok := properties.Get("key"); ok && v.String() == a.failKey {
		return holon.HolonId{}, holonerr.New(holonerr.CommitFailure, "simulated adapter failure for %q", a.failKey)
	}
	return a.MemAdapter.PersistNode(ctx, properties, originalID)
}

// S6 / P6: when 1 of 3 staged holons fails Pass 1, the response is
// Incomplete, the other 2 appear in SavedHolons, the failing holon's
// Errors has one entry, and Pass 2 (relationship persistence) never
// runs for anything.
func TestRunIncompleteOnPartialPass1Failure(t *testing.T) {
	mem := storage.NewMemAdapter()
	adapter := &failingAdapter{MemAdapter: mem, failKey: "George Smith"}
	router := cache.NewCacheRequestRouter(cache.New(adapter, nil), cache.BlockExternal)
	tc := txctx.New("tx-1", router, adapter)
	facade := txctx.NewMutationFacade(tc)

	book, err := facade.NewHolon("Emerging World")
	require.NoError(t, err)
	p1, err := facade.NewHolon("Roger Briggs")
	require.NoError(t, err)
	p2, err := facade.NewHolon("George Smith")
	require.NoError(t, err)

	stagedBook, err := facade.StageNewHolon(book)
	require.NoError(t, err)
	stagedP1, err := facade.StageNewHolon(p1)
	require.NoError(t, err)
	stagedP2, err := facade.StageNewHolon(p2)
	require.NoError(t, err)
	require.NoError(t, stagedBook.AddRelatedHolons("AUTHORED_BY", []holon.HolonReference{stagedP1, stagedP2}))

	resp, err := Run(context.Background(), tc, adapter, router)
	require.NoError(t, err)

	assert.False(t, resp.IsComplete())
	assert.Equal(t, Incomplete, resp.Status)
	assert.Len(t, resp.SavedHolons, 2)

	// Pass 2 never ran: the saved Book has no persisted AUTHORED_BY
	// links even though it and Roger Briggs both succeeded Pass 1.
	savedBookID, err := resp.FindHolonIDByKey("Emerging World")
	require.NoError(t, err)
	links, err := adapter.GetLinks(context.Background(), savedBookID, "AUTHORED_BY")
	require.NoError(t, err)
	assert.Empty(t, links)

	// the commit aborts back to Open, permitting retry, per P6.
	assert.Equal(t, txctx.Open, tc.Gate())

	// the failing holon still lives in the Nursery with a recorded error.
	failing, err := tc.Nursery().GetByID(stagedP2.ID())
	require.NoError(t, err)
	assert.Len(t, failing.Errors, 1)
}

func TestFindHolonIDByKeyNotFound(t *testing.T) {
	resp := &Response{Status: Complete}
	_, err := resp.FindHolonIDByKey("missing")
	require.Error(t, err)
	kind, ok := holonerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, holonerr.HolonNotFound, kind)
}
