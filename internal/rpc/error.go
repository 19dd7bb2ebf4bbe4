package rpc

import pkgerrors "gateway/pkg/errors"

// Error is the three-kind RPC error taxonomy: a call resolves to a result
// or to exactly one of Null, NotFind(msg), Info(msg). It is built on the
// gateway's structured pkg/errors.Error so it carries the same Cause/Details
// machinery and participates in errors.Is/errors.As.
type Error = pkgerrors.Error

// Null reports that the server returned no value for a call whose contract
// allows absence.
func Null() *Error {
	return pkgerrors.NewError(pkgerrors.ErrorTypeNull, "null value")
}

// NotFind reports that no handler or no provider exists for the requested
// service/method.
func NotFind(msg string) *Error {
	return pkgerrors.NewError(pkgerrors.ErrorTypeNotFind, msg)
}

// Info reports any other logical failure: timeouts, transport errors,
// codec errors, load-balance exhaustion.
func Info(msg string) *Error {
	return pkgerrors.NewError(pkgerrors.ErrorTypeInfo, msg)
}

// IsNull reports whether err is the Null error kind.
func IsNull(err error) bool {
	var e *Error
	return pkgerrors.As(err, &e) && e.Type == pkgerrors.ErrorTypeNull
}

// IsNotFind reports whether err is the NotFind error kind.
func IsNotFind(err error) bool {
	var e *Error
	return pkgerrors.As(err, &e) && e.Type == pkgerrors.ErrorTypeNotFind
}

// IsInfo reports whether err is the Info error kind.
func IsInfo(err error) bool {
	var e *Error
	return pkgerrors.As(err, &e) && e.Type == pkgerrors.ErrorTypeInfo
}

// AsRPCError converts any error into the RPC taxonomy, defaulting non-RPC
// errors to Info per the propagation policy: codec and transport failures
// are wrapped into Info.
func AsRPCError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if pkgerrors.As(err, &e) {
		switch e.Type {
		case pkgerrors.ErrorTypeNull, pkgerrors.ErrorTypeNotFind, pkgerrors.ErrorTypeInfo:
			return e
		}
	}
	return Info(err.Error()).WithCause(err)
}

// GRPCStatus maps an RPC error kind to the canonical gRPC-status byte used
// on the wire by the Dubbo3/Triple protocol (and mirrored by Fusen's
// fusen-status trailer): success=0, Null=90, NotFind=91, Info=92.
func GRPCStatus(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !pkgerrors.As(err, &e) {
		return 92
	}
	switch e.Type {
	case pkgerrors.ErrorTypeNull:
		return 90
	case pkgerrors.ErrorTypeNotFind:
		return 91
	default:
		return 92
	}
}

// FromGRPCStatus builds the RPC error for a received gRPC-status/message
// pair. status 0 is success and must not be passed here.
func FromGRPCStatus(status int, message string) *Error {
	switch status {
	case 90:
		return Null()
	case 91:
		return NotFind(message)
	default:
		return Info(message)
	}
}
