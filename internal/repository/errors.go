// Package repository implements the persistence layer on top of
// database/sql.  This file defines sentinel error values shared across the
// repositories.  Handlers translate them into HTTP responses: ErrNotFound
// becomes 404, ErrEmailExists 409 and ErrConflict 409.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update would violate the
// unique index on users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete cannot proceed because of
// dependent rows, such as removing a tenant that users still belong to.
var ErrConflict = errors.New("conflict")
