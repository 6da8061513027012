package marquee

import (
	"errors"
	"fmt"
)

// The error taxonomy has exactly three kinds, used consistently across every
// operation: validation failures (bad request), missing resources (not found)
// and everything else (unknown). The transport layer is the only place these
// become user-visible status codes.
var (
	// ErrNotFound indicates the addressed resource, or its content in both
	// the requested and the default language, does not exist or is
	// soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a storage uniqueness violation, e.g. two
	// concurrent creates racing on the same id.
	ErrAlreadyExists = errors.New("already exists")

	// ErrTxDone indicates a repository was used after its unit of work was
	// committed or rolled back.
	ErrTxDone = errors.New("transaction already finalized")
)

// ValidationError reports input that fails validation. It is always detected
// before any storage call and never wraps a storage error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OpError wraps a storage or internal failure with the operation that hit it.
// Every OpError is of the "unknown" kind.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// IsBadRequest reports whether err is a validation failure.
func IsBadRequest(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err means the addressed resource is absent.
func IsNotFound(err error) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return false
	}
	return errors.Is(err, ErrNotFound)
}
