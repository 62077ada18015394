package reject

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindConflict   Kind = "CONFLICT"
	KindNotFound   Kind = "NOT_FOUND"
	KindTransfer   Kind = "TRANSFER"
	KindStorage    Kind = "STORAGE"
	KindConfig     Kind = "CONFIG"
)

// Transfer failure reasons reported by the ledger client.
const (
	ReasonInsufficientFunds  = "insufficient_funds"
	ReasonNetworkUnreachable = "network_unreachable"
	ReasonRejected           = "rejected"
	ReasonTimeout            = "timeout"
)

type Error struct {
	Kind   Kind
	Reason string
	Detail string
	Cause  error
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrTransfer   = &Error{Kind: KindTransfer}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrConfig     = &Error{Kind: KindConfig}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += "(" + e.Reason + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind only, so errors.Is(err, reject.ErrConflict) holds for any conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Detail: fmt.Sprintf(format, args...)}
}

func Storage(cause error) *Error {
	return &Error{Kind: KindStorage, Cause: cause}
}

func Transfer(reason string, cause error) *Error {
	return &Error{Kind: KindTransfer, Reason: reason, Cause: cause}
}

// KindOf returns the taxonomy kind of err, or "" for errors outside it.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the transfer reason carried by err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
