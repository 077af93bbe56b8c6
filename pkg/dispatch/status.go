package dispatch

import "github.com/cuemby/holontx/pkg/holonerr"

// statusByKind maps each holonerr.Kind to the StatusCode dispatch
// reports for it, patterned after dance_response.rs's
// "impl From<HolonError> for ResponseStatusCode".
var statusByKind = map[holonerr.Kind]StatusCode{
	holonerr.NotAccessible:       Conflict,
	holonerr.InvalidHolonRef:     BadRequest,
	holonerr.HolonNotFound:       NotFound,
	holonerr.DuplicateError:      Conflict,
	holonerr.EmptyField:          BadRequest,
	holonerr.InvalidRelationship: BadRequest,
	holonerr.InvalidParameter:    BadRequest,
	holonerr.InvalidType:         ServerError,
	holonerr.InvalidTransition:   ServerError,
	holonerr.ValidationError:     UnprocessableEntity,
	holonerr.CommitFailure:       ServerError,
	holonerr.CacheError:          ServerError,
	holonerr.HashConversion:      ServerError,
	holonerr.RecordConversion:    ServerError,
	holonerr.Utf8Conversion:      ServerError,
	holonerr.NotImplemented:      NotImplemented,
	holonerr.FailedToBorrow:      ServerError,
	holonerr.FailedToAcquireLock: ServerError,
	holonerr.IndexOutOfRange:     ServerError,
}

// StatusFor returns the StatusCode for err's Kind if err is (or
// wraps) a *holonerr.Error, and ServerError for anything else.
func StatusFor(err error) StatusCode {
	kind, ok := holonerr.KindOf(err)
	if !ok {
		return ServerError
	}
	if code, ok := statusByKind[kind]; ok {
		return code
	}
	return ServerError
}

func errorResponse(err error) Response {
	return Response{
		StatusCode:  StatusFor(err),
		Description: err.Error(),
		Body:        BodyNone{},
	}
}
