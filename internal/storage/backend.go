// Package storage holds the interchangeable persistence targets for contact
// submissions. A deployment selects exactly one Backend at startup (see Open);
// handlers and services only ever see the interface.
package storage

import (
	"context"
	"errors"

	"github.com/tbourn/go-contact-intake/internal/domain"
)

// Backend durably records a submission and returns its identifier. The
// identifier format is backend specific: a hex token, a database id, or an
// object key. Implementations must be safe for concurrent use.
type Backend interface {
	// Name returns the backend identifier ("file", "mongo", "s3", "sqlite").
	Name() string
	// Write persists s exactly once. Failures are returned as *WriteError.
	Write(ctx context.Context, s *domain.Submission) (string, error)
}

// Preparer is implemented by backends that must verify or provision remote
// resources before each write. A Prepare failure wraps ErrStoragePreparation.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// ErrStoragePreparation marks a failed precondition check (e.g. the target
// bucket could not be found or created). No write is attempted after it.
var ErrStoragePreparation = errors.New("storage preparation failed")

// WriteError reports a failed persistence call. Its message is the underlying
// failure's message so it can be surfaced to the caller verbatim.
type WriteError struct {
	Backend string
	Err     error
}

func (e *WriteError) Error() string { return e.Err.Error() }

func (e *WriteError) Unwrap() error { return e.Err }

func writeErr(backend string, err error) error {
	return &WriteError{Backend: backend, Err: err}
}
