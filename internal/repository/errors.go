// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to read another client's booking, while ErrConflict
// signals that an operation cannot proceed due to existing state
// (e.g. creating a second payment for a booking that already has one).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a create or update cannot be
// performed because of conflicting state, such as a booking that
// already carries an active payment record. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
