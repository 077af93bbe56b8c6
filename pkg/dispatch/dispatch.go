// Package dispatch maps the closed set of dance names to handlers
// operating against a single TransactionContext. It is the only
// place where a wire-form request is bound to a specific tx_id:
// every reference-typed payload is checked against the active
// context before being handed to the mutation façade (spec §4.8).
//
// There is no wire protocol here; Request/Response are plain Go
// structs, per SPEC_FULL's "dispatch layer's contract is a plain Go
// request/response struct pair."
package dispatch

import (
	"context"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
	"github.com/cuemby/holontx/pkg/log"
	"github.com/cuemby/holontx/pkg/metrics"
	"github.com/cuemby/holontx/pkg/txctx"
)

// RequestType distinguishes a dance that targets no particular staged
// holon (Standalone), one that operates on an already-staged holon
// by id (Command), or a query that reads without mutating (Query).
type RequestType string

const (
	Standalone RequestType = "Standalone"
	Command    RequestType = "Command"
	Query      RequestType = "Query"
)

// Request is one dispatch call. TargetID is only meaningful for
// RequestType Command, naming the staged holon's TemporaryId in
// string form (pool.TemporaryId.String()).
type Request struct {
	Name        string
	ReqType     RequestType
	Body        Body
	TargetID    string
	TargetSpace string
}

// StatusCode enumerates the subset of HTTP-patterned statuses spec §6
// names.
type StatusCode string

const (
	OK                  StatusCode = "OK"
	Accepted            StatusCode = "Accepted"
	BadRequest          StatusCode = "BadRequest"
	Unauthorized        StatusCode = "Unauthorized"
	Forbidden           StatusCode = "Forbidden"
	NotFound            StatusCode = "NotFound"
	Conflict            StatusCode = "Conflict"
	UnprocessableEntity StatusCode = "UnprocessableEntity"
	ServerError         StatusCode = "ServerError"
	NotImplemented      StatusCode = "NotImplemented"
	ServiceUnavailable  StatusCode = "ServiceUnavailable"
)

// Response is what every Handler produces.
type Response struct {
	StatusCode  StatusCode
	Description string
	Body        Body
	Descriptor  *holon.HolonId
}

// Body is a tagged sum over what a Request/Response can carry,
// mirroring dance_response.rs's ResponseBody enum.
type Body interface {
	isBody()
}

type BodyNone struct{}

type BodyParameterValues struct{ Properties holon.PropertyMap }

type BodyHolon struct{ Holon *holon.Holon }

type BodyHolonCollection struct{ Collection *holon.HolonCollection }

type BodyHolons struct{ Holons []*holon.Holon }

type BodyHolonReference struct{ Ref holon.HolonReference }

type BodyRelationship struct {
	Name    holon.RelationshipName
	Targets []holon.HolonReference
}

func (BodyNone) isBody()             {}
func (BodyParameterValues) isBody()  {}
func (BodyHolon) isBody()            {}
func (BodyHolonCollection) isBody()  {}
func (BodyHolons) isBody()           {}
func (BodyHolonReference) isBody()   {}
func (BodyRelationship) isBody()     {}

// Handler implements one dance against facade, given the already
// tx_id-validated request.
type Handler func(ctx context.Context, facade *txctx.MutationFacade, req Request) Response

// Registry is the closed map of dance name to Handler. Names outside
// this set fail with NotImplemented before a Handler is ever invoked
// (spec §4.8).
type Registry map[string]Handler

// NewRegistry returns the full closed dance set wired to their
// concrete handlers (handlers.go).
func NewRegistry() Registry {
	return Registry{
		"create_new_holon":         handleCreateNewHolon,
		"stage_new_holon":          handleStageNewHolon,
		"stage_new_from_clone":     handleStageNewFromClone,
		"stage_new_version":        handleStageNewVersion,
		"with_properties":          handleWithProperties,
		"remove_properties":        handleRemoveProperties,
		"add_related_holons":       handleAddRelatedHolons,
		"remove_related_holons":    handleRemoveRelatedHolons,
		"abandon_staged_changes":   handleAbandonStagedChanges,
		"delete_holon":             handleDeleteHolon,
		"commit":                   handleCommit,
		"load_holons":              handleLoadHolons,
		"load_core_schema":         handleLoadCoreSchema,
		"get_holon_by_id":          handleGetHolonByID,
		"get_all_holons":           handleGetAllHolons,
		"get_all_holons_by_base_key": handleGetAllHolonsByBaseKey,
		"query_relationships":      handleQueryRelationships,
	}
}

// Dispatch resolves req.Name against reg and runs its Handler on
// facade, binding req to facade's TransactionContext first. A name
// outside the closed set returns NotImplemented without touching the
// façade (spec §4.8).
func Dispatch(ctx context.Context, reg Registry, facade *txctx.MutationFacade, req Request) Response {
	logger := log.WithComponent("dispatch")
	timer := metrics.NewTimer()
	handler, ok := reg[req.Name]
	if !ok {
		logger.Warn().Str("dance", req.Name).Msg("unknown dance name")
		metrics.DispatchRequestsTotal.WithLabelValues(req.Name, string(NotImplemented)).Inc()
		return Response{StatusCode: NotImplemented, Description: "unknown dance: " + req.Name, Body: BodyNone{}}
	}
	if err := checkTargetBinding(facade, req); err != nil {
		resp := errorResponse(err)
		metrics.DispatchRequestsTotal.WithLabelValues(req.Name, string(resp.StatusCode)).Inc()
		return resp
	}
	logger.Debug().Str("dance", req.Name).Str("tx_id", facade.Context().TxID()).Msg("dispatching")
	resp := handler(ctx, facade, req)
	timer.ObserveDurationVec(metrics.DispatchRequestDuration, req.Name)
	metrics.DispatchRequestsTotal.WithLabelValues(req.Name, string(resp.StatusCode)).Inc()
	return resp
}

// checkTargetBinding validates that any reference-typed payload in the
// request body resolves within facade's own TransactionContext before
// the handler runs. A Command request's TargetID is not checked here:
// handlers build the target reference on facade's context. This is
// the "dispatcher is the only place wire-form requests are bound to a
// specific TransactionContext" behavior spec §4.8 requires.
func checkTargetBinding(facade *txctx.MutationFacade, req Request) error {
	if ref, ok := req.Body.(BodyHolonReference); ok {
		if _, err := ref.Ref.CollectionKey(); err != nil {
			return holonerr.Wrap(holonerr.InvalidHolonRef, err, "request %q carries an unbound reference", req.Name)
		}
	}
	if rel, ok := req.Body.(BodyRelationship); ok {
		for _, t := range rel.Targets {
			if _, err := t.CollectionKey(); err != nil {
				return holonerr.Wrap(holonerr.InvalidHolonRef, err, "request %q carries an unbound target reference", req.Name)
			}
		}
	}
	return nil
}
