// Package commit implements the two-pass Commit Engine: Pass 1
// persists staged holons as nodes, Pass 2 persists their relationships
// as links. It operates on a txctx.TransactionContext from outside
// rather than as a TransactionContext method, since it needs
// pkg/storage and pkg/txctx cannot import it back (see pkg/txctx's
// MutationFacade doc comment).
package commit

import (
	"context"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/metrics"
	"github.com/cuemby/holontx/pkg/reference"
	"github.com/cuemby/holontx/pkg/storage"
	"github.com/cuemby/holontx/pkg/txctx"
)

// RequestStatus is the overall outcome of a commit attempt.
type RequestStatus string

const (
	Complete   RequestStatus = "Complete"
	Incomplete RequestStatus = "Incomplete"
)

// Response reports what a commit attempt accomplished. SavedHolons and
// AbandonedHolons are returned even when Status is Incomplete, so a
// caller can inspect exactly which staged holons made it through.
type Response struct {
	Status           RequestStatus
	CommitsAttempted int
	SavedHolons      []*holon.Holon
	AbandonedHolons  []*holon.Holon
}

func (r *Response) IsComplete() bool { return r.Status == Complete }

// FindHolonIDByKey looks up a saved holon's HolonId by its key among
// this response's SavedHolons, for callers that staged a holon by key
// and need its assigned id after commit.
func (r *Response) FindHolonIDByKey(key string) (holon.HolonId, error) {
	for _, h := range r.SavedHolons {
		k, err := h.Key()
		if err != nil {
			return holon.HolonId{}, err
		}
		if k == key {
			if h.SavedID == nil {
				break
			}
			return *h.SavedID, nil
		}
	}
	return holon.HolonId{}, holonerr.New(holonerr.HolonNotFound, "no saved holon with key %q in commit response", key)
}

const keyProperty holon.PropertyName = "key"

// Run attempts to persist every staged holon in tc's Nursery, then
// their relationships, per spec §4.6. It begins by moving tc's gate
// Open -> CommitInProgress (txctx.TryBeginCommit), and ends either at
// Committed (status Complete) or back at Open (status Incomplete,
// permitting retry after the caller inspects holon.Errors).
func Run(ctx context.Context, tc *txctx.TransactionContext, adapter storage.Adapter, router *cache.CacheRequestRouter) (*Response, error) {
	if err := tc.TryBeginCommit(); err != nil {
		return nil, err
	}

	staged := tc.Nursery().AllHolons()
	response := &Response{Status: Complete, CommitsAttempted: len(staged)}

	// Pass 1: persist nodes.
	nodeTimer := metrics.NewTimer()
	for _, h := range staged {
		if h.Phase == holon.PhaseStaged && h.Staged.Kind == holon.StagedAbandoned {
			response.AbandonedHolons = append(response.AbandonedHolons, h)
			metrics.CommitHolonsAbandoned.Inc()
			continue
		}
		savedID, err := adapter.PersistNode(ctx, h.PropertyMap, h.OriginalID)
		if err != nil {
			h.AddCommitError(err)
			response.Status = Incomplete
			continue
		}
		if err := h.ToCommitted(savedID); err != nil {
			h.AddCommitError(err)
			response.Status = Incomplete
			continue
		}
		if h.OriginalID != nil {
			router.Invalidate(*h.OriginalID)
		}
		router.Put(savedID, h)
		response.SavedHolons = append(response.SavedHolons, h)
		metrics.CommitHolonsSaved.Inc()
	}
	nodeTimer.ObserveDurationVec(metrics.CommitPassDuration, "nodes")

	// Any Pass 1 failure skips Pass 2 entirely; already-persisted
	// nodes are not rolled back (spec §9 Open Question 2).
	if response.Status == Incomplete {
		tc.AbortCommit()
		metrics.CommitAttemptsTotal.WithLabelValues(string(response.Status)).Inc()
		return response, nil
	}

	// Pass 2: persist relationships.
	relTimer := metrics.NewTimer()
	for _, h := range response.SavedHolons {
		errs := persistRelationships(ctx, adapter, h)
		if len(errs) > 0 {
			for _, e := range errs {
				h.AddCommitError(e)
			}
			response.Status = Incomplete
			continue
		}
		for _, coll := range h.AllRelatedHolons() {
			metrics.CommitRelationshipsSaved.Add(float64(coll.GetCount()))
		}
	}
	relTimer.ObserveDurationVec(metrics.CommitPassDuration, "relationships")

	if response.Status == Incomplete {
		tc.AbortCommit()
		metrics.CommitAttemptsTotal.WithLabelValues(string(response.Status)).Inc()
		return response, nil
	}

	tc.Nursery().Clear()
	tc.FinishCommit()
	metrics.CommitAttemptsTotal.WithLabelValues(string(response.Status)).Inc()
	return response, nil
}

// persistRelationships persists every edge in h's relationship_map,
// in member order, accumulating (not short-circuiting on) errors.
func persistRelationships(ctx context.Context, adapter storage.Adapter, h *holon.Holon) []error {
	sourceID := *h.SavedID
	var errs []error
	for name, coll := range h.AllRelatedHolons() {
		for _, member := range coll.GetMembers() {
			readable, ok := member.(reference.Readable)
			if !ok {
				errs = append(errs, holonerr.New(holonerr.InvalidRelationship, "relationship %q member does not resolve to a HolonId", name))
				continue
			}
			targetID, err := readable.HolonID()
			if err != nil {
				errs = append(errs, holonerr.Wrap(holonerr.InvalidRelationship, err, "unresolved target in relationship %q", name))
				continue
			}
			var smartProps holon.PropertyMap
			if key, kerr := readable.Key(); kerr == nil && key != "" {
				smartProps = holon.PropertyMap{keyProperty: holon.StringValue(key)}
			}
			if err := adapter.PersistLink(ctx, sourceID, targetID, string(name), smartProps); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		coll.MarkSaved()
	}
	return errs
}
