// Package apperror holds the error kinds shared by every domain package.
// Services wrap a kind with detail, e.g. fmt.Errorf("%w: item 3", ErrNotFound),
// and the transport maps the kind to a status code with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrAlreadyValidated     = errors.New("already validated")
	ErrAlreadyResolved      = errors.New("already resolved")
	ErrAlreadyFullyReturned = errors.New("loan already fully returned")
	ErrBelowBorrowed        = errors.New("total stock below borrowed amount")
	ErrIllegalTransition    = errors.New("illegal status transition")
	ErrInternal             = errors.New("internal error")
)

var kinds = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidInput,
	ErrInsufficientStock,
	ErrInvalidQuantity,
	ErrAlreadyValidated,
	ErrAlreadyResolved,
	ErrAlreadyFullyReturned,
	ErrBelowBorrowed,
	ErrIllegalTransition,
	ErrInternal,
}

// Kind returns the sentinel wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Internal classifies err as ErrInternal unless it already carries a kind.
func Internal(err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

// Message strips the kind prefix so the remaining detail can be shown to users.
func Message(err error) string {
	k := Kind(err)
	if k == nil {
		return err.Error()
	}
	msg := err.Error()
	prefix := k.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
