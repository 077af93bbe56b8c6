// Package nursery specializes pool.Pool for the two holon containers a
// TransactionContext owns: the Nursery (staged holons awaiting commit)
// and the TransientHolonManager (ephemeral holons the caller is still
// building). Both are thin, semantically-named wrappers: the shared
// heavy lifting (versioned-key collision retry, base-key lookups,
// export/import) lives in pkg/pool.
package nursery

import (
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/metrics"
	"github.com/cuemby/holontx/pkg/pool"
)

// Nursery is the staging pool: source of truth for a transaction's
// pending mutations until commit.
type Nursery struct {
	*pool.Pool
}

func NewNursery() *Nursery {
	return &Nursery{Pool: pool.New()}
}

// StageNew registers a fresh ForCreate holon and returns its id.
func (n *Nursery) StageNew(h *holon.Holon) (pool.TemporaryId, error) {
	id, err := n.Insert(h)
	if err != nil {
		return id, err
	}
	metrics.StagedHolonsTotal.Set(float64(n.Len()))
	return id, nil
}

// TransientManager is the pool of ephemeral holons a caller is
// building before (optionally) staging them for commit.
type TransientManager struct {
	*pool.Pool
}

func NewTransientManager() *TransientManager {
	return &TransientManager{Pool: pool.New()}
}

// NewHolon creates and registers a fresh Transient holon, returning
// its id within this manager.
func (m *TransientManager) NewHolon() (pool.TemporaryId, *holon.Holon, error) {
	h := holon.NewTransient()
	id, err := m.Insert(h)
	if err != nil {
		return pool.TemporaryId{}, nil, err
	}
	metrics.TransientHolonsTotal.Set(float64(m.Len()))
	return id, h, nil
}
