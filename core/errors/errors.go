package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind groups ledger failures by the remediation the caller needs.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindAuthorization Kind = "AuthorizationError"
	KindState         Kind = "StateError"
	KindCapacity      Kind = "CapacityError"
	KindPaused        Kind = "PausedError"
	KindTransfer      Kind = "TransferError"
)

// Kind sentinels. errors.Is(err, ErrCapacity) holds for every coded error of
// that kind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrState         = &Error{Kind: KindState}
	ErrCapacity      = &Error{Kind: KindCapacity}
	ErrPaused        = &Error{Kind: KindPaused}
	ErrTransfer      = &Error{Kind: KindTransfer}
)

// Error is a coded ledger failure. Code is stable and safe to surface to
// clients; Message is human readable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

// New declares a coded error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return string(e.Kind)
}

// Is matches on the exact code, or on the kind when target is a kind sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if !stderrors.As(target, &other) || other == nil || e == nil {
		return false
	}
	if other.Kind != e.Kind {
		return false
	}
	return other.Code == "" || other.Code == e.Code
}

// Wrap attaches detail to a coded error while keeping it matchable.
func Wrap(err *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
}

// KindOf reports the kind of a coded error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var coded *Error
	if !stderrors.As(err, &coded) || coded == nil {
		return "", false
	}
	return coded.Kind, true
}

// CodeOf reports the code of a coded error anywhere in err's chain.
func CodeOf(err error) string {
	var coded *Error
	if !stderrors.As(err, &coded) || coded == nil {
		return ""
	}
	return coded.Code
}

// Shared failures raised by more than one ledger.
var (
	ErrUnauthorized   = New(KindAuthorization, "Unauthorized", "caller is not the operator")
	ErrModulePaused   = New(KindPaused, "EnforcedPause", "module paused")
	ErrInvalidIndex   = New(KindValidation, "InvalidIndex", "invalid index")
	ErrInvalidAmount  = New(KindValidation, "InvalidAmount", "amount must be positive")
	ErrTransferFailed = New(KindTransfer, "TransferFailed", "asset transfer failed")
)
