// Package apperr holds the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindDuplicateRequest  Kind = "duplicate_request"
	KindRateLimitExceeded Kind = "rate_limited"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindInvalidState      Kind = "invalid_state"
	KindLockTimeout       Kind = "lock_timeout"
	KindStoreUnavailable  Kind = "store_unavailable"
	KindInternal          Kind = "internal"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrBadRequest        = &Error{Kind: KindBadRequest, Msg: "bad request"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrForbidden         = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrNotFound          = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrDuplicateRequest  = &Error{Kind: KindDuplicateRequest, Msg: "duplicate request"}
	ErrRateLimitExceeded = &Error{Kind: KindRateLimitExceeded, Msg: "too many requests"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Msg: "insufficient funds"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Msg: "invalid state"}
	ErrLockTimeout       = &Error{Kind: KindLockTimeout, Msg: "lock timeout"}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable, Msg: "store unavailable"}
	ErrInternal          = &Error{Kind: KindInternal, Msg: "internal error"}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsGuard reports whether err is a rejection raised before any business work.
func IsGuard(err error) bool {
	k := KindOf(err)
	return k == KindDuplicateRequest || k == KindRateLimitExceeded
}
