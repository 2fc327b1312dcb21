package controller

import (
	"fmt"

	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is the vocabulary of error kinds. Controller.Transaction and the
// read methods report every failure as an *Error carrying one of these,
// never a bare error, so a future transport can map it directly without
// inspecting strings.
type Kind string

const (
	KindInvalidArgument   Kind = "InvalidArgument"
	KindUnauthenticated   Kind = "Unauthenticated"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindFailedPrecondition Kind = "FailedPrecondition"
	KindQuotaExceeded     Kind = "QuotaExceeded"
	KindInternal          Kind = "Internal"
)

var grpcCode = map[Kind]codes.Code{
	KindInvalidArgument:    codes.InvalidArgument,
	KindUnauthenticated:    codes.Unauthenticated,
	KindPermissionDenied:   codes.PermissionDenied,
	KindNotFound:           codes.NotFound,
	KindConflict:           codes.AlreadyExists,
	KindFailedPrecondition: codes.FailedPrecondition,
	KindQuotaExceeded:      codes.ResourceExhausted,
	KindInternal:           codes.Internal,
}

// Error is the typed error every Controller.Transaction call returns on
// failure; a bare storage error from a Write's Execute is translated into
// one before it reaches the caller. RuleID is set only for a FailedPrecondition
// raised by a rule binding; IncidentID is set only for Internal, and is a
// fresh correlation token the caller can show a user without leaking
// storage internals — internalErr logs it server-side alongside the real
// error and tx-id so an operator can find the matching log line.
type Error struct {
	Kind       Kind
	Message    string
	RuleID     string
	IncidentID string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// GRPCStatus lets a transport layer map controller.Error directly onto a
// gRPC status without this package owning a network listener.
func (e *Error) GRPCStatus() *status.Status {
	code, ok := grpcCode[e.Kind]
	if !ok {
		code = codes.Unknown
	}
	return status.New(code, e.Error())
}

func invalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func unauthenticated(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

func permissionDenied(format string, args ...any) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func failedPrecondition(ruleID, format string, args ...any) *Error {
	return &Error{Kind: KindFailedPrecondition, Message: fmt.Sprintf(format, args...), RuleID: ruleID}
}

func quotaExceeded(format string, args ...any) *Error {
	return &Error{Kind: KindQuotaExceeded, Message: fmt.Sprintf(format, args...)}
}

// internalErr wraps err as an opaque Internal failure, minting a fresh
// correlation token as its IncidentID and logging it together with txID
// and the real error so an operator can find the matching log line from
// nothing but the token a caller reports back.
func internalErr(txID string, err error) *Error {
	incidentID := types.NewCorrelationToken()
	log.Logger.Error().Str("incident_id", incidentID).Str("tx_id", txID).Err(err).Msg("internal error")
	return &Error{Kind: KindInternal, Message: "internal error", IncidentID: incidentID, Err: err}
}
