// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting database error strings.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// premise they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a referenced premise, entry or visit does
// not exist. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrOpenVisit is returned by the conditional visit insert when the same
// identity already has an open visit at the premise. It signals the
// admission workflow to surface the conflict instead of committing a
// second open visit.
var ErrOpenVisit = errors.New("identity already has an open visit at this premise")

// ErrEmailExists is returned when an account or profile insert collides
// with an existing email. Handlers should translate this into an
// HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
