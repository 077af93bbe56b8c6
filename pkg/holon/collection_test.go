package holon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRef is a minimal HolonReference for collection tests that don't
// need a real transaction-bound reference.
type stubRef struct {
	key string
	tag int
}

func (r stubRef) CollectionKey() (string, error) { return r.key, nil }
func (r stubRef) Equal(other HolonReference) bool {
	o, ok := other.(stubRef)
	return ok && o.key == r.key && o.tag == r.tag
}

// Iteration order equals insertion order after any sequence of add
// operations that preserve members (P8).
func TestCollectionIterationOrderMatchesInsertion(t *testing.T) {
	c := NewStagedCollection()
	refs := []HolonReference{
		stubRef{key: "Roger Briggs"},
		stubRef{key: "George Smith"},
		stubRef{key: "Third Author"},
	}
	require.NoError(t, c.AddReferences(refs))

	members := c.GetMembers()
	require.Len(t, members, 3)
	for i, want := range refs {
		assert.Equal(t, want, members[i])
	}
}

// Order survives a remove of a middle member followed by a re-add:
// the new member lands at the end, the remaining two keep their
// relative order.
func TestCollectionOrderAfterRemoveAndReAdd(t *testing.T) {
	c := NewStagedCollection()
	a, b, cc := stubRef{key: "a"}, stubRef{key: "b"}, stubRef{key: "c"}
	require.NoError(t, c.AddReferences([]HolonReference{a, b, cc}))
	require.NoError(t, c.RemoveReferences([]HolonReference{b}))

	members := c.GetMembers()
	require.Len(t, members, 2)
	assert.Equal(t, a, members[0])
	assert.Equal(t, cc, members[1])

	d := stubRef{key: "d"}
	require.NoError(t, c.AddReferences([]HolonReference{d}))
	members = c.GetMembers()
	require.Len(t, members, 3)
	assert.Equal(t, d, members[2])
}

// A keyed reference whose key already exists is silently skipped
// rather than appended or replacing the existing member.
func TestAddReferencesSkipsDuplicateKey(t *testing.T) {
	c := NewStagedCollection()
	first := stubRef{key: "dup", tag: 1}
	second := stubRef{key: "dup", tag: 2}
	require.NoError(t, c.AddReferences([]HolonReference{first, second}))

	assert.Equal(t, 1, c.GetCount())
	got, err := c.GetByKey("dup")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

// Multiple unkeyed references are always appended, never deduplicated
// against each other by default (list/multiset semantics) — this is
// the behavior AUTHORED_BY's two person-targets depend on.
func TestAddReferencesUnkeyedAlwaysAppends(t *testing.T) {
	c := NewStagedCollection()
	a := stubRef{tag: 1}
	b := stubRef{tag: 2}
	require.NoError(t, c.AddReferences([]HolonReference{a, a, b}))
	assert.Equal(t, 3, c.GetCount())
}

// WithSetSemantics suppresses duplicate unkeyed members that compare
// Equal, unlike the default multiset behavior.
func TestAddReferencesSetSemanticsDedupesUnkeyed(t *testing.T) {
	c := NewStagedCollection().WithSetSemantics()
	a := stubRef{tag: 1}
	require.NoError(t, c.AddReferences([]HolonReference{a, a}))
	assert.Equal(t, 1, c.GetCount())
}

func TestCollectionIsAccessibleStateTable(t *testing.T) {
	c := NewStagedCollection()
	require.NoError(t, c.IsAccessible(AccessWrite))

	c.MarkSaved()
	assert.NoError(t, c.IsAccessible(AccessRead))
	assert.Error(t, c.IsAccessible(AccessWrite))

	abandonable := NewStagedCollection()
	require.NoError(t, abandonable.MarkAbandoned())
	assert.Error(t, abandonable.IsAccessible(AccessRead))
	assert.NoError(t, abandonable.IsAccessible(AccessAbandon))
}

func TestGetByIndexOutOfRange(t *testing.T) {
	c := NewStagedCollection()
	_, err := c.GetByIndex(0)
	require.Error(t, err)
}
