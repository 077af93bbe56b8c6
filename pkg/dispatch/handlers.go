package dispatch

import (
	"context"
	"fmt"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/commit"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/loader"
	"github.com/cuemby/holontx/pkg/pool"
	"github.com/cuemby/holontx/pkg/reference"
	"github.com/cuemby/holontx/pkg/storage"
	"github.com/cuemby/holontx/pkg/txctx"
)

// Env bundles the collaborators a handler needs beyond the facade
// itself (the adapter and router backing commit/load dances). It is
// threaded through closures created by Bind, since Handler's own
// signature only carries what spec §4.8 names (context, facade,
// request).
type Env struct {
	Adapter storage.Adapter
	Router  *cache.CacheRequestRouter
}

// Bind closes over env so the commit and load_holons dances (which
// need the adapter and router pkg/commit and pkg/loader require) can
// still be plain Handler funcs in the Registry.
func Bind(reg Registry, env Env) Registry {
	bound := make(Registry, len(reg))
	for name, h := range reg {
		bound[name] = h
	}
	bound["commit"] = func(ctx context.Context, facade *txctx.MutationFacade, req Request) Response {
		return handleCommitWithEnv(ctx, facade, env, req)
	}
	bound["load_holons"] = func(ctx context.Context, facade *txctx.MutationFacade, req Request) Response {
		return handleLoadHolonsWithEnv(ctx, facade, env, req)
	}
	return bound
}

func targetStaged(facade *txctx.MutationFacade, req Request) (reference.StagedReference, error) {
	if req.ReqType != Command {
		return reference.StagedReference{}, holonerr.New(holonerr.InvalidParameter, "dance %q requires a Command request with a target id", req.Name)
	}
	var id pool.TemporaryId
	if err := (&id).UnmarshalText([]byte(req.TargetID)); err != nil {
		return reference.StagedReference{}, holonerr.Wrap(holonerr.InvalidParameter, err, "malformed target id %q", req.TargetID)
	}
	return reference.NewStaged(facade.Context(), id), nil
}

func parameterValues(req Request) (holon.PropertyMap, error) {
	switch b := req.Body.(type) {
	case BodyNone:
		return nil, nil
	case BodyParameterValues:
		return b.Properties, nil
	default:
		return nil, holonerr.New(holonerr.InvalidParameter, "dance %q expects BodyNone or BodyParameterValues", req.Name)
	}
}

func handleCreateNewHolon(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	props, err := parameterValues(req)
	if err != nil {
		return errorResponse(err)
	}
	t, err := facade.NewHolon("")
	if err != nil {
		return errorResponse(err)
	}
	for name, value := range props {
		if err := t.WithPropertyValue(name, value); err != nil {
			return errorResponse(err)
		}
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: t}}
}

func handleStageNewHolon(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	if req.ReqType != Command {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "stage_new_holon requires a Command request naming a transient id"))
	}
	var id pool.TemporaryId
	if err := (&id).UnmarshalText([]byte(req.TargetID)); err != nil {
		return errorResponse(holonerr.Wrap(holonerr.InvalidParameter, err, "malformed target id %q", req.TargetID))
	}
	t := reference.NewTransient(facade.Context(), id)
	staged, err := facade.StageNewHolon(t)
	if err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: staged}}
}

func handleStageNewFromClone(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	ref, ok := req.Body.(BodyHolonReference)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "stage_new_from_clone expects BodyHolonReference"))
	}
	readable, ok := ref.Ref.(reference.Readable)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidType, "stage_new_from_clone source is not Readable"))
	}
	newKey := ""
	if props, err := parameterValues(req); err == nil {
		if v, ok := props.Get("key"); ok {
			newKey = v.String()
		}
	}
	staged, err := facade.StageNewFromClone(readable, newKey)
	if err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: staged}}
}

func handleStageNewVersion(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	ref, ok := req.Body.(BodyHolonReference)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "stage_new_version expects BodyHolonReference"))
	}
	readable, ok := ref.Ref.(reference.Readable)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidType, "stage_new_version source is not Readable"))
	}
	staged, err := facade.StageNewVersion(readable)
	if err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: staged}}
}

func handleWithProperties(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	target, err := targetStaged(facade, req)
	if err != nil {
		return errorResponse(err)
	}
	props, err := parameterValues(req)
	if err != nil {
		return errorResponse(err)
	}
	for name, value := range props {
		if err := target.WithPropertyValue(name, value); err != nil {
			return errorResponse(err)
		}
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: target}}
}

func handleRemoveProperties(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	target, err := targetStaged(facade, req)
	if err != nil {
		return errorResponse(err)
	}
	props, err := parameterValues(req)
	if err != nil {
		return errorResponse(err)
	}
	for name := range props {
		if err := target.RemovePropertyValue(name); err != nil {
			return errorResponse(err)
		}
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: target}}
}

func handleAddRelatedHolons(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	target, err := targetStaged(facade, req)
	if err != nil {
		return errorResponse(err)
	}
	rel, ok := req.Body.(BodyRelationship)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "add_related_holons expects BodyRelationship"))
	}
	if err := target.AddRelatedHolons(rel.Name, rel.Targets); err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: target}}
}

func handleRemoveRelatedHolons(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	target, err := targetStaged(facade, req)
	if err != nil {
		return errorResponse(err)
	}
	rel, ok := req.Body.(BodyRelationship)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "remove_related_holons expects BodyRelationship"))
	}
	if err := target.RemoveRelatedHolons(rel.Name, rel.Targets); err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: target}}
}

func handleAbandonStagedChanges(_ context.Context, facade *txctx.MutationFacade, req Request) Response {
	target, err := targetStaged(facade, req)
	if err != nil {
		return errorResponse(err)
	}
	if err := target.AbandonStagedChanges(); err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: target}}
}

func handleDeleteHolon(ctx context.Context, facade *txctx.MutationFacade, req Request) Response {
	if req.ReqType != Command {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "delete_holon requires a Command request naming the saved local id"))
	}
	if err := facade.DeleteHolon(ctx, req.TargetID); err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyNone{}}
}

func handleCommit(_ context.Context, _ *txctx.MutationFacade, _ Request) Response {
	return errorResponse(holonerr.New(holonerr.NotImplemented, "commit dance requires Bind(reg, env) to supply the adapter and router"))
}

func handleCommitWithEnv(ctx context.Context, facade *txctx.MutationFacade, env Env, _ Request) Response {
	resp, err := commit.Run(ctx, facade.Context(), env.Adapter, env.Router)
	if err != nil {
		return errorResponse(err)
	}
	status := OK
	if !resp.IsComplete() {
		status = Conflict
	}
	return Response{
		StatusCode:  status,
		Description: fmt.Sprintf("%s: %d attempted, %d saved, %d abandoned", resp.Status, resp.CommitsAttempted, len(resp.SavedHolons), len(resp.AbandonedHolons)),
		Body:        BodyHolons{Holons: resp.SavedHolons},
	}
}

func handleLoadHolons(_ context.Context, _ *txctx.MutationFacade, _ Request) Response {
	return errorResponse(holonerr.New(holonerr.NotImplemented, "load_holons dance requires Bind(reg, env) to supply the adapter and router"))
}

func handleLoadHolonsWithEnv(ctx context.Context, facade *txctx.MutationFacade, env Env, req Request) Response {
	bundleRef, ok := req.Body.(BodyHolonReference)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "load_holons expects BodyHolonReference naming the bundle"))
	}
	bundle, ok := bundleRef.Ref.(reference.TransientReference)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidType, "load_holons bundle must be a TransientReference"))
	}
	result, err := loader.LoadBundle(ctx, facade, env.Adapter, env.Router, bundle, nil)
	if err != nil {
		return errorResponse(err)
	}
	status := OK
	if result.Status == loader.Incomplete {
		status = Conflict
	}
	return Response{
		StatusCode:  status,
		Description: fmt.Sprintf("load_holons: %s (%d mapper errors, %d resolver errors)", result.Status, len(result.MapperErrors), len(result.ResolverErrors)),
		Body:        BodyNone{},
	}
}

func handleLoadCoreSchema(_ context.Context, _ *txctx.MutationFacade, _ Request) Response {
	// Schema bootstrap is a pre-requisite the loader assumes already
	// happened, not an operation this engine owns (spec §9 Open
	// Question 3: "load_core_schema inside load_holons: treated as a
	// pre-requisite, not owned by the loader").
	return errorResponse(holonerr.New(holonerr.NotImplemented, "load_core_schema: descriptor/schema bootstrap is out of scope"))
}

func handleGetHolonByID(ctx context.Context, facade *txctx.MutationFacade, req Request) Response {
	if req.ReqType != Command {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "get_holon_by_id requires a Command request naming the HolonId"))
	}
	id := holon.Local(req.TargetID)
	if req.TargetSpace != "" {
		id = holon.External(req.TargetSpace, req.TargetID)
	}
	ref := reference.NewSmart(facade.Context(), id, nil)
	if _, err := ref.EssentialContent(); err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonReference{Ref: ref}}
}

func handleGetAllHolons(ctx context.Context, facade *txctx.MutationFacade, _ Request) Response {
	nodes, err := facade.Context().Adapter().GetAllNodes(ctx)
	if err != nil {
		return errorResponse(err)
	}
	holons := make([]*holon.Holon, 0, len(nodes))
	for _, n := range nodes {
		h, err := facade.Context().Adapter().GetNode(ctx, n.ID)
		if err != nil {
			return errorResponse(err)
		}
		holons = append(holons, h)
	}
	return Response{StatusCode: OK, Body: BodyHolons{Holons: holons}}
}

func handleGetAllHolonsByBaseKey(ctx context.Context, facade *txctx.MutationFacade, req Request) Response {
	// Supplemental dance from original_source's holon_dance_adapter.rs,
	// not in spec.md's closed set but named in SPEC_FULL §4.8.
	props, err := parameterValues(req)
	if err != nil {
		return errorResponse(err)
	}
	v, ok := props.Get("base_key")
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "get_all_holons_by_base_key requires a base_key property"))
	}
	ids, err := facade.Context().Nursery().IDsByBaseKey(v.String())
	if err != nil {
		return errorResponse(err)
	}
	// Versions share a base key, so each member is keyed by its
	// versioned key; AddReferences would keep only the first version.
	coll := holon.NewFetchedCollection()
	for _, id := range ids {
		ref := reference.NewStaged(facade.Context(), id)
		versionedKey, err := ref.VersionedKey()
		if err != nil {
			return errorResponse(err)
		}
		if err := coll.AddReferenceWithKey(versionedKey, ref); err != nil {
			return errorResponse(err)
		}
	}
	return Response{StatusCode: OK, Body: BodyHolonCollection{Collection: coll}}
}

func handleQueryRelationships(ctx context.Context, facade *txctx.MutationFacade, req Request) Response {
	if req.ReqType != Command {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "query_relationships requires a Command request naming the source HolonId"))
	}
	rel, ok := req.Body.(BodyRelationship)
	if !ok {
		return errorResponse(holonerr.New(holonerr.InvalidParameter, "query_relationships expects BodyRelationship naming the relationship to read"))
	}
	sourceID := holon.Local(req.TargetID)
	if req.TargetSpace != "" {
		sourceID = holon.External(req.TargetSpace, req.TargetID)
	}
	coll, err := facade.Context().FetchRelatedHolons(ctx, sourceID, rel.Name)
	if err != nil {
		return errorResponse(err)
	}
	return Response{StatusCode: OK, Body: BodyHolonCollection{Collection: coll}}
}
