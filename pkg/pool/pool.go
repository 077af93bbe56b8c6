// Package pool implements the owning, id-keyed container shared by
// the Nursery (staged holons) and the TransientHolonManager (ephemeral
// holons): a HolonPool with a base-key secondary index supporting
// versioned insertion and collision retry.
package pool

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
)

// TemporaryId is the first 16 bytes of SHA-256(versioned key), stable
// only within the transaction that staged the holon.
type TemporaryId [16]byte

func (id TemporaryId) String() string { return fmt.Sprintf("%x", [16]byte(id)) }

// MarshalText/UnmarshalText let TemporaryId serve as a JSON object key,
// needed by Snapshot's map[TemporaryId]*holon.Holon.
func (id TemporaryId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TemporaryId) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(decoded) != len(id) {
		return fmt.Errorf("pool: temporary id must be %d bytes, got %d", len(id), len(decoded))
	}
	copy(id[:], decoded)
	return nil
}

func newTemporaryID(versionedKey string) TemporaryId {
	sum := sha256.Sum256([]byte(versionedKey))
	var id TemporaryId
	copy(id[:], sum[:16])
	return id
}

// Pool is a general-purpose owning container keyed by TemporaryId,
// with a secondary BTree-like index from versioned key to id. It is
// the arena a transaction's holons live in: callers obtain a
// *holon.Holon pointer and mutate it in place, relying on Pool's lock
// only for the structural operations (insert, delete, export/import).
type Pool struct {
	mu         sync.RWMutex
	holons     map[TemporaryId]*holon.Holon
	keyedIndex map[string]TemporaryId // versioned key -> id
}

func New() *Pool {
	return &Pool{
		holons:     make(map[TemporaryId]*holon.Holon),
		keyedIndex: make(map[string]TemporaryId),
	}
}

// Clear removes all holons and index entries.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holons = make(map[TemporaryId]*holon.Holon)
	p.keyedIndex = make(map[string]TemporaryId)
}

// unkeyedPrefix marks synthetic index entries for holons created
// without a key, so they never participate in base-key prefix scans
// of real (user-supplied) keys.
const unkeyedPrefix = "\x00unkeyed\x00"

// Insert computes the holon's versioned key and, on collision,
// increments its version and recomputes until the key is unique in
// this pool (I3), then registers it under a hash-derived TemporaryId.
//
// A holon with no key (Key() == "") skips the versioned-key dance
// entirely — there is nothing to deduplicate against — and is indexed
// under a synthetic, never-colliding key instead.
func (p *Pool) Insert(h *holon.Holon) (TemporaryId, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key, err := h.Key()
	if err != nil {
		return TemporaryId{}, err
	}
	if key == "" {
		return p.insertUnkeyedLocked(h)
	}

	versionedKey, err := h.VersionedKey()
	if err != nil {
		return TemporaryId{}, err
	}
	for {
		if _, exists := p.keyedIndex[versionedKey]; !exists {
			break
		}
		if err := h.IncrementVersion(); err != nil {
			return TemporaryId{}, err
		}
		versionedKey, err = h.VersionedKey()
		if err != nil {
			return TemporaryId{}, err
		}
	}

	id := newTemporaryID(versionedKey)
	p.keyedIndex[versionedKey] = id
	p.holons[id] = h
	return id, nil
}

func (p *Pool) insertUnkeyedLocked(h *holon.Holon) (TemporaryId, error) {
	syntheticKey := unkeyedPrefix + uuid.NewString()
	id := newTemporaryID(syntheticKey)
	p.keyedIndex[syntheticKey] = id
	p.holons[id] = h
	return id, nil
}

// GetByID retrieves a holon by its TemporaryId.
func (p *Pool) GetByID(id TemporaryId) (*holon.Holon, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.holons[id]
	if !ok {
		return nil, holonerr.New(holonerr.HolonNotFound, "for id: %s", id)
	}
	return h, nil
}

// GetByVersionedKey retrieves a holon by its unique versioned key.
func (p *Pool) GetByVersionedKey(versionedKey string) (*holon.Holon, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.keyedIndex[versionedKey]
	if !ok {
		return nil, holonerr.New(holonerr.HolonNotFound, "for key: %s", versionedKey)
	}
	return p.holons[id], nil
}

// IDByVersionedKey retrieves a holon's id by its unique versioned key.
func (p *Pool) IDByVersionedKey(versionedKey string) (TemporaryId, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.keyedIndex[versionedKey]
	if !ok {
		return TemporaryId{}, holonerr.New(holonerr.HolonNotFound, "for key: %s", versionedKey)
	}
	return id, nil
}

// idsByBaseKey does a sorted-keys prefix scan of the keyed index,
// mirroring BTreeMap::range(key..).take_while(starts_with(key)) —
// the base key plus "@" is a prefix of every versioned key derived
// from it ("base@1", "base@2", ...).
func (p *Pool) idsByBaseKey(baseKey string) []TemporaryId {
	keys := make([]string, 0, len(p.keyedIndex))
	for k := range p.keyedIndex {
		if strings.HasPrefix(k, baseKey+"@") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	ids := make([]TemporaryId, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, p.keyedIndex[k])
	}
	return ids
}

// IDByBaseKey returns the unique id for a base key, erroring if zero
// or more than one staged version exists under that base key.
func (p *Pool) IDByBaseKey(baseKey string) (TemporaryId, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := p.idsByBaseKey(baseKey)
	if len(ids) == 0 {
		return TemporaryId{}, holonerr.New(holonerr.HolonNotFound, "for key: %s", baseKey)
	}
	if len(ids) > 1 {
		return TemporaryId{}, holonerr.New(holonerr.DuplicateError, "Holons key: %s", baseKey)
	}
	return ids[0], nil
}

// IDsByBaseKey returns every id staged under the given base key,
// useful when multiple versions of the same holon are in flight.
func (p *Pool) IDsByBaseKey(baseKey string) ([]TemporaryId, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := p.idsByBaseKey(baseKey)
	if len(ids) == 0 {
		return nil, holonerr.New(holonerr.HolonNotFound, "for key: %s", baseKey)
	}
	return ids, nil
}

// AllHolons returns every holon currently in the pool, ordered by
// TemporaryId. Go's map iteration order is randomized, but the
// original's BTreeMap<TemporaryId, _> iterates in id order, and commit
// processing (pkg/commit) must visit staged holons in a deterministic
// order across runs of the same commit. Callers may mutate the
// returned holons directly (commit processing does); the slice itself
// is a fresh copy safe to range over concurrently with further pool
// mutation.
func (p *Pool) AllHolons() []*holon.Holon {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]TemporaryId, 0, len(p.holons))
	for id := range p.holons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	out := make([]*holon.Holon, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.holons[id])
	}
	return out
}

// Len returns the number of holons in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.holons)
}

// Snapshot is the serializable export of a Pool's state, transported
// as session state (pkg/session).
type Snapshot struct {
	Holons     map[TemporaryId]*holon.Holon `json:"holons"`
	KeyedIndex map[string]TemporaryId       `json:"keyed_index"`
}

// Export returns a snapshot of the pool's contents: each holon and its
// property map are copied, while its relationship collections and
// error list are shared with the pool's holon.
func (p *Pool) Export() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	holons := make(map[TemporaryId]*holon.Holon, len(p.holons))
	for id, h := range p.holons {
		clone := *h
		clone.PropertyMap = h.PropertyMap.Clone()
		holons[id] = &clone
	}
	keyedIndex := make(map[string]TemporaryId, len(p.keyedIndex))
	for k, v := range p.keyedIndex {
		keyedIndex[k] = v
	}
	return Snapshot{Holons: holons, KeyedIndex: keyedIndex}
}

// Import replaces the pool's contents atomically with snap's.
func (p *Pool) Import(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holons = make(map[TemporaryId]*holon.Holon, len(snap.Holons))
	for id, h := range snap.Holons {
		p.holons[id] = h
	}
	p.keyedIndex = make(map[string]TemporaryId, len(snap.KeyedIndex))
	for k, v := range snap.KeyedIndex {
		p.keyedIndex[k] = v
	}
}
