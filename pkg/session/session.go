// Package session implements the exported/imported view of one
// transaction's in-flight state: its Nursery and TransientHolonManager
// snapshots, plus which holon (if any) is this space's root. It is
// the JSON-snapshot counterpart of the teacher's WarrenSnapshot —
// here a TransactionContext's state rather than a raft FSM's, so
// Persist/Restore work against a plain io.Writer/io.Reader instead of
// raft.SnapshotSink.
package session

import (
	"encoding/json"
	"io"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/pool"
	"github.com/cuemby/holontx/pkg/txctx"
)

// State is the serializable snapshot of one TransactionContext: its
// staged and transient pools, and the local space's root holon if one
// has been designated.
type State struct {
	StagedPool      pool.Snapshot `json:"staged_pool"`
	TransientPool   pool.Snapshot `json:"transient_pool"`
	LocalSpaceHolon *holon.HolonId `json:"local_space_holon,omitempty"`
}

// Export captures tc's current Nursery and TransientHolonManager
// contents as a State, leaving tc untouched.
func Export(tc *txctx.TransactionContext, localSpaceHolon *holon.HolonId) State {
	return State{
		StagedPool:      tc.Nursery().Export(),
		TransientPool:    tc.TransientManager().Export(),
		LocalSpaceHolon: localSpaceHolon,
	}
}

// Import replaces tc's Nursery and TransientHolonManager contents
// with state's, atomically per pool (pool.Pool.Import).
func Import(tc *txctx.TransactionContext, state State) {
	tc.Nursery().Import(state.StagedPool)
	tc.TransientManager().Import(state.TransientPool)
}

// Persist JSON-encodes state to w, mirroring the teacher's
// WarrenSnapshot.Persist.
func Persist(w io.Writer, state State) error {
	return json.NewEncoder(w).Encode(state)
}

// Restore JSON-decodes a State from r, mirroring the teacher's
// WarrenFSM.Restore.
func Restore(r io.Reader) (State, error) {
	var state State
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return State{}, err
	}
	return state, nil
}
