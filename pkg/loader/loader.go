// Package loader implements the two-pass bulk loader: Pass 1 (the
// HolonMapper) stages properties-only holons from a bundle and queues
// their relationship references; Pass 2 (the Resolver) resolves those
// references by key and wires them via add_related_holons, then hands
// the transaction to the Commit Engine.
//
// The loader is a caller of the MutationFacade like any other; it
// mutates holons only through the facade and
// reference.StagedReference/TransientReference, and Pass 2 reads the
// Nursery's base-key index directly to resolve keys (spec §4.4: "The
// Loader is a caller of the same mutation façade; it does not bypass
// it").
package loader

import (
	"context"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/commit"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/metrics"
	"github.com/cuemby/holontx/pkg/reference"
	"github.com/cuemby/holontx/pkg/storage"
	"github.com/cuemby/holontx/pkg/txctx"
)

// Relationship and property names the loader's bundle graph is built
// from. These mirror the shapes holons_loader_client/src/builder.rs
// constructs (LoaderHolon, LoaderRelationshipReference,
// LoaderHolonReference) — simplified to plain transient property
// holons rather than full descriptor-typed holons, since descriptor
// content is out of scope (spec §1).
const (
	BundleMembers           holon.RelationshipName = "BundleMembers"
	HasRelationshipReference holon.RelationshipName = "HasRelationshipReference"
	ReferenceSource         holon.RelationshipName = "ReferenceSource"
	ReferenceTarget         holon.RelationshipName = "ReferenceTarget"
)

const (
	keyProperty             holon.PropertyName = "key"
	relationshipNameProperty holon.PropertyName = "relationship_name"
	isDeclaredProperty      holon.PropertyName = "is_declared"
	holonKeyProperty        holon.PropertyName = "holon_key"
)

// Status is the overall LoadCommitStatus a load attempt reports.
type Status string

const (
	Complete   Status = "Complete"
	Incomplete Status = "Incomplete"
	Skipped    Status = "Skipped"
)

// Result is what LoadBundle returns: a status plus every non-fatal
// error accumulated across both passes and, if a commit was
// attempted, its response.
type Result struct {
	Status         Status
	MapperErrors   []error
	ResolverErrors []error
	CommitResponse *commit.Response
}

// MapperOutput is Pass 1's output: how many holons were staged and
// the queue of relationship references Pass 2 consumes.
type MapperOutput struct {
	QueuedRelationshipReferences []reference.TransientReference
	Errors                       []error
	StagedCount                  int
}

// LoadBundle runs both passes against bundle (a TransientReference
// whose BundleMembers collection holds one TransientReference per
// LoaderHolon), then commits. skipProperties names properties copied
// onto the LoaderHolon for bookkeeping (e.g. StartUtf8ByteOffset) that
// must not be copied onto the staged target.
func LoadBundle(ctx context.Context, facade *txctx.MutationFacade, adapter storage.Adapter, router *cache.CacheRequestRouter, bundle reference.TransientReference, skipProperties map[holon.PropertyName]bool) (*Result, error) {
	mapTimer := metrics.NewTimer()
	mapOut, err := mapBundle(facade, bundle, skipProperties)
	mapTimer.ObserveDurationVec(metrics.LoaderPassDuration, "map")
	if err != nil {
		return nil, err
	}
	if len(mapOut.Errors) > 0 {
		metrics.LoaderErrorsTotal.WithLabelValues("map").Add(float64(len(mapOut.Errors)))
	}
	if mapOut.StagedCount == 0 {
		metrics.LoaderBundlesLoaded.WithLabelValues(string(Skipped)).Inc()
		return &Result{Status: Skipped, MapperErrors: mapOut.Errors}, nil
	}

	resolveTimer := metrics.NewTimer()
	resolverErrors := resolveAll(facade, mapOut.QueuedRelationshipReferences)
	resolveTimer.ObserveDurationVec(metrics.LoaderPassDuration, "resolve")
	if len(resolverErrors) > 0 {
		metrics.LoaderErrorsTotal.WithLabelValues("resolve").Add(float64(len(resolverErrors)))
	}

	commitResp, err := commit.Run(ctx, facade.Context(), adapter, router)
	if err != nil {
		return nil, err
	}

	status := Complete
	if len(mapOut.Errors) > 0 || len(resolverErrors) > 0 || !commitResp.IsComplete() {
		status = Incomplete
	}
	metrics.LoaderBundlesLoaded.WithLabelValues(string(status)).Inc()
	return &Result{
		Status:         status,
		MapperErrors:   mapOut.Errors,
		ResolverErrors: resolverErrors,
		CommitResponse: commitResp,
	}, nil
}

// mapBundle is Pass 1: for each LoaderHolon in bundle's BundleMembers
// collection, stage a properties-only target holon and queue its
// relationship references.
func mapBundle(facade *txctx.MutationFacade, bundle reference.TransientReference, skipProperties map[holon.PropertyName]bool) (*MapperOutput, error) {
	out := &MapperOutput{}

	members, err := bundle.RelatedHolons(BundleMembers)
	if err != nil {
		return nil, err
	}

	for _, m := range members.GetMembers() {
		loaderRef, ok := m.(reference.TransientReference)
		if !ok {
			out.Errors = append(out.Errors, holonerr.New(holonerr.InvalidType, "BundleMembers entry is not a TransientReference"))
			continue
		}

		if err := buildTargetStaged(facade, loaderRef, skipProperties); err != nil {
			out.Errors = append(out.Errors, err)
			continue
		}
		out.StagedCount++

		relRefs, err := collectLoaderRelRefs(loaderRef)
		if err != nil {
			out.Errors = append(out.Errors, err)
			continue
		}
		out.QueuedRelationshipReferences = append(out.QueuedRelationshipReferences, relRefs...)
	}

	return out, nil
}

// buildTargetStaged reads loader's property map, requires a key
// (spec §4.7 step 2), copies every non-skipped property onto a fresh
// transient, and promotes it via StageNewHolon.
func buildTargetStaged(facade *txctx.MutationFacade, loader reference.TransientReference, skipProperties map[holon.PropertyName]bool) error {
	essential, err := loader.EssentialContent()
	if err != nil {
		return err
	}
	if essential.Key == "" {
		return holonerr.New(holonerr.EmptyField, "LoaderHolon.key missing")
	}

	target, err := facade.NewHolon(essential.Key)
	if err != nil {
		return err
	}
	for name, value := range essential.PropertyMap {
		if name == keyProperty || skipProperties[name] {
			continue
		}
		if err := target.WithPropertyValue(name, value); err != nil {
			return err
		}
	}

	_, err = facade.StageNewHolon(target)
	return err
}

// collectLoaderRelRefs traverses loader's HasRelationshipReference
// collection, returning each attached LoaderRelationshipReference as
// a detached TransientReference for Pass 2 to resolve.
func collectLoaderRelRefs(loader reference.TransientReference) ([]reference.TransientReference, error) {
	coll, err := loader.RelatedHolons(HasRelationshipReference)
	if err != nil {
		return nil, err
	}
	out := make([]reference.TransientReference, 0, coll.GetCount())
	for _, m := range coll.GetMembers() {
		relRef, ok := m.(reference.TransientReference)
		if !ok {
			return nil, holonerr.New(holonerr.InvalidType, "HasRelationshipReference entry is not a TransientReference")
		}
		out = append(out, relRef)
	}
	return out, nil
}

// resolveAll is Pass 2: resolve every queued LoaderRelationshipReference
// and wire the edge it describes, accumulating (never aborting on)
// errors (spec §4.7).
func resolveAll(facade *txctx.MutationFacade, queued []reference.TransientReference) []error {
	var errs []error
	for _, relRef := range queued {
		if err := resolveOne(facade, relRef); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func resolveOne(facade *txctx.MutationFacade, relRef reference.TransientReference) error {
	essential, err := relRef.EssentialContent()
	if err != nil {
		return err
	}
	nameValue, ok := essential.PropertyMap.Get(relationshipNameProperty)
	if !ok {
		return holonerr.New(holonerr.EmptyField, "LoaderRelationshipReference.relationship_name missing")
	}
	relationshipName := holon.RelationshipName(nameValue.String())

	// is_declared only affects diagnostic attribution: a forward
	// declaration and its inverse/embedded counterpart collapse to the
	// same relationship_name and are wired identically (spec §4.7).
	attribution := "declared"
	if v, ok := essential.PropertyMap.Get(isDeclaredProperty); ok {
		if b, isBool := v.(holon.BooleanValue); isBool && !bool(b) {
			attribution = "inverse"
		}
	}

	sourceColl, err := relRef.RelatedHolons(ReferenceSource)
	if err != nil {
		return err
	}
	sourceMembers := sourceColl.GetMembers()
	if len(sourceMembers) != 1 {
		return holonerr.New(holonerr.InvalidRelationship, "%s relationship %q has %d source endpoints, want 1", attribution, relationshipName, len(sourceMembers))
	}
	sourceKey, err := holonReferenceKey(sourceMembers[0])
	if err != nil {
		return err
	}

	nurs := facade.Context().Nursery()
	sourceID, err := nurs.IDByBaseKey(sourceKey)
	if err != nil {
		return holonerr.Wrap(holonerr.InvalidRelationship, err, "resolving source %q for relationship %q", sourceKey, relationshipName)
	}

	targetColl, err := relRef.RelatedHolons(ReferenceTarget)
	if err != nil {
		return err
	}
	targetMembers := targetColl.GetMembers()
	targets := make([]holon.HolonReference, 0, len(targetMembers))
	for _, tm := range targetMembers {
		targetKey, err := holonReferenceKey(tm)
		if err != nil {
			return err
		}
		targetID, err := nurs.IDByBaseKey(targetKey)
		if err != nil {
			return holonerr.Wrap(holonerr.InvalidRelationship, err, "resolving target %q for relationship %q", targetKey, relationshipName)
		}
		targets = append(targets, reference.NewStaged(facade.Context(), targetID))
	}
	if len(targets) == 0 {
		return holonerr.New(holonerr.InvalidRelationship, "%s relationship %q has no resolvable targets", attribution, relationshipName)
	}

	source := reference.NewStaged(facade.Context(), sourceID)
	return source.AddRelatedHolons(relationshipName, targets)
}

// holonReferenceKey reads the holon_key property off a detached
// LoaderHolonReference transient.
func holonReferenceKey(ref holon.HolonReference) (string, error) {
	readable, ok := ref.(reference.Readable)
	if !ok {
		return "", holonerr.New(holonerr.InvalidType, "endpoint is not a Readable reference")
	}
	v, _, err := readable.PropertyValue(holonKeyProperty)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", holonerr.New(holonerr.EmptyField, "LoaderHolonReference.holon_key missing")
	}
	return v.String(), nil
}
