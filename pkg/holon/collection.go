package holon

import (
	"sort"

	"github.com/cuemby/holontx/pkg/holonerr"
)

// CollectionState gates which operations a HolonCollection currently
// permits. See Is Accessible below for the exact table; do not infer
// permissions from the state name alone (get_state docs in the
// original warn about exactly this).
type CollectionState string

const (
	CollectionTransient CollectionState = "Transient"
	CollectionFetched   CollectionState = "Fetched"
	CollectionStaged    CollectionState = "Staged"
	CollectionSaved     CollectionState = "Saved"
	CollectionAbandoned CollectionState = "Abandoned"
)

func (s CollectionState) String() string { return string(s) }

// HolonCollection is an ordered, optionally keyed multiset of
// HolonReference values with a state gate controlling access (I4).
type HolonCollection struct {
	state       CollectionState
	members     []HolonReference
	keyedIndex  map[string]int
	allowsDupes bool
	isOrdered   bool
}

// HolonReference is the minimal shape a collection member must expose:
// a resolvable key (empty string means unkeyed) used to populate the
// keyed index. pkg/reference implements this for every reference
// variant.
type HolonReference interface {
	CollectionKey() (string, error)
	Equal(other HolonReference) bool
}

func NewTransientCollection() *HolonCollection {
	return newCollection(CollectionTransient)
}

func NewStagedCollection() *HolonCollection {
	return newCollection(CollectionStaged)
}

func NewFetchedCollection() *HolonCollection {
	return newCollection(CollectionFetched)
}

func newCollection(state CollectionState) *HolonCollection {
	return &HolonCollection{
		state:       state,
		members:     nil,
		keyedIndex:  make(map[string]int),
		allowsDupes: true,
		isOrdered:   true,
	}
}

// WithSetSemantics marks the collection as a set (no duplicate
// unkeyed members) rather than the default list/multiset (I7).
func (c *HolonCollection) WithSetSemantics() *HolonCollection {
	c.allowsDupes = false
	return c
}

// CloneForNewSource returns a Staged copy of this collection, used
// when grafting a fetched relationship collection onto a holon being
// staged for update.
func (c *HolonCollection) CloneForNewSource() (*HolonCollection, error) {
	if err := c.IsAccessible(AccessRead); err != nil {
		return nil, err
	}
	clone := &HolonCollection{
		state:       CollectionStaged,
		members:     append([]HolonReference(nil), c.members...),
		keyedIndex:  make(map[string]int, len(c.keyedIndex)),
		allowsDupes: c.allowsDupes,
		isOrdered:   c.isOrdered,
	}
	for k, v := range c.keyedIndex {
		clone.keyedIndex[k] = v
	}
	return clone, nil
}

// IsAccessible reports whether accessType is permitted in the
// collection's current state (I4).
func (c *HolonCollection) IsAccessible(accessType AccessType) error {
	notAccessible := func() error {
		return holonerr.New(holonerr.NotAccessible, "%s not accessible in collection state %s", accessType, c.state)
	}
	switch c.state {
	case CollectionTransient, CollectionFetched:
		switch accessType {
		case AccessRead, AccessWrite:
			return nil
		default:
			return notAccessible()
		}
	case CollectionStaged:
		return nil
	case CollectionSaved:
		switch accessType {
		case AccessRead, AccessCommit:
			return nil
		default:
			return notAccessible()
		}
	case CollectionAbandoned:
		switch accessType {
		case AccessCommit, AccessAbandon:
			return nil
		default:
			return notAccessible()
		}
	}
	return notAccessible()
}

func (c *HolonCollection) State() CollectionState { return c.state }

// MarkStaged transitions Fetched -> Staged (e.g. as part of staging
// a clone for update).
func (c *HolonCollection) MarkStaged() error {
	if err := c.IsAccessible(AccessWrite); err != nil {
		return err
	}
	c.state = CollectionStaged
	return nil
}

// MarkSaved transitions Staged -> Saved on successful commit of the
// owning holon.
func (c *HolonCollection) MarkSaved() { c.state = CollectionSaved }

// MarkAbandoned transitions Staged -> Abandoned.
func (c *HolonCollection) MarkAbandoned() error {
	if err := c.IsAccessible(AccessAbandon); err != nil {
		return err
	}
	c.state = CollectionAbandoned
	return nil
}

// AddReferences appends refs, skipping (with no error) any whose key
// collides with an existing keyed member. Unkeyed references are
// always appended unless WithSetSemantics is in effect and an
// identical reference is already present.
func (c *HolonCollection) AddReferences(refs []HolonReference) error {
	if err := c.IsAccessible(AccessWrite); err != nil {
		return err
	}
	for _, ref := range refs {
		if err := c.addReference(ref); err != nil {
			return err
		}
	}
	return nil
}

func (c *HolonCollection) addReference(ref HolonReference) error {
	key, err := ref.CollectionKey()
	if err != nil {
		return err
	}
	if key != "" {
		if _, exists := c.keyedIndex[key]; exists {
			// duplicate key: skip re-insert, matching add_reference's warn-and-skip.
			return nil
		}
		c.keyedIndex[key] = len(c.members)
		c.members = append(c.members, ref)
		return nil
	}
	if !c.allowsDupes {
		for _, m := range c.members {
			if m.Equal(ref) {
				return nil
			}
		}
	}
	c.members = append(c.members, ref)
	return nil
}

// AddReferenceWithKey appends a single reference using an
// explicitly-supplied key, for callers that know the key without
// needing to dereference through a transaction context.
func (c *HolonCollection) AddReferenceWithKey(key string, ref HolonReference) error {
	if err := c.IsAccessible(AccessWrite); err != nil {
		return err
	}
	index := len(c.members)
	c.members = append(c.members, ref)
	if key != "" {
		c.keyedIndex[key] = index
	}
	return nil
}

// RemoveReferences removes every member equal to one of refs and
// rebuilds the keyed index to reflect the post-removal positions.
func (c *HolonCollection) RemoveReferences(refs []HolonReference) error {
	if err := c.IsAccessible(AccessWrite); err != nil {
		return err
	}
	for _, ref := range refs {
		filtered := c.members[:0]
		for _, m := range c.members {
			if !m.Equal(ref) {
				filtered = append(filtered, m)
			}
		}
		c.members = filtered
	}
	c.keyedIndex = make(map[string]int)
	for i, m := range c.members {
		key, err := m.CollectionKey()
		if err != nil {
			return err
		}
		if key != "" {
			c.keyedIndex[key] = i
		}
	}
	return nil
}

func (c *HolonCollection) GetByIndex(index int) (HolonReference, error) {
	if index < 0 || index >= len(c.members) {
		return nil, holonerr.New(holonerr.IndexOutOfRange, "index %d is out of bounds (len %d)", index, len(c.members))
	}
	return c.members[index], nil
}

func (c *HolonCollection) GetByKey(key string) (HolonReference, error) {
	if err := c.IsAccessible(AccessRead); err != nil {
		return nil, err
	}
	idx, ok := c.keyedIndex[key]
	if !ok {
		return nil, nil
	}
	return c.members[idx], nil
}

func (c *HolonCollection) GetCount() int { return len(c.members) }

// GetMembers returns the members in iteration order. When isOrdered
// is false the slice is still returned in insertion order (a single
// process run is internally deterministic) but callers must not rely
// on that order surviving export/import.
func (c *HolonCollection) GetMembers() []HolonReference { return c.members }

// GetKeyedIndex returns keys in sorted order alongside their member
// index, mirroring the original's BTreeMap iteration order.
func (c *HolonCollection) GetKeyedIndex() []KeyedIndexEntry {
	entries := make([]KeyedIndexEntry, 0, len(c.keyedIndex))
	for k, v := range c.keyedIndex {
		entries = append(entries, KeyedIndexEntry{Key: k, Index: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

type KeyedIndexEntry struct {
	Key   string
	Index int
}
