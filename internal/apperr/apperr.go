package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to branch on it
// (HTTP layer, batch loops) without string-matching messages.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindState
	KindAuthorization
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindAuthorization:
		return "authorization"
	case KindTransfer:
		return "transfer"
	default:
		return "internal"
	}
}

// Stable machine-readable codes carried alongside the kind.
const (
	CodeNoRefundAmount    = "NO_REFUND_AMOUNT"
	CodeNoRefundAvailable = "NO_REFUND_AVAILABLE"
	CodeAlreadySettled    = "ALREADY_SETTLED"
)

type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

func ValidationCode(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Err: fmt.Errorf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

func State(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Err: fmt.Errorf(format, args...)}
}

func StateCode(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Code: code, Err: fmt.Errorf(format, args...)}
}

func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Err: fmt.Errorf(format, args...)}
}

func Transfer(err error) *Error {
	return &Error{Kind: KindTransfer, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf unwraps err to the first *Error and returns its kind,
// defaulting to KindInternal for plain errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of err, or "" if none.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
