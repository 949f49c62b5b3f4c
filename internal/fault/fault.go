// Package fault carries the error taxonomy shared by the lifecycle
// coordinator and its callers. Every fault aborts the current operation;
// none are retried internally.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a fault for caller-side handling.
type Kind int

const (
	// KindPrecondition is an invariant violation: capacity exceeded,
	// duplicate membership, wrong status, missing contact field.
	KindPrecondition Kind = iota + 1
	// KindNotFound means a referenced user or room is absent.
	KindNotFound
	// KindOperation means a store write did not take effect.
	KindOperation
	// KindTooFast means identifier minting was exhausted and the
	// bounded wait was interrupted. Transient; callers may retry.
	KindTooFast
)

// Error is a classified fault with a human-readable reason.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func Preconditionf(format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Reason: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func Operationf(format string, args ...any) error {
	return &Error{Kind: KindOperation, Reason: fmt.Sprintf(format, args...)}
}

func TooFastf(format string, args ...any) error {
	return &Error{Kind: KindTooFast, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the fault kind, or 0 for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Is reports whether err is a fault of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
