// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers, the tool dispatcher, and the LLM bridge should not know or
// care which database they are talking to. By depending only on this
// interface:
//
//   - Switching databases = implement the interface for the new DB,
//     change one line in main.go. Zero handler changes.
//
//   - Writing tests = pass a fake/mock that satisfies the interface.
//     No real database needed for unit tests.
//
// NEGATIVE RESULTS ARE VALUES, NOT ERRORS:
// ─────────────────────────────────────────
// "No record with that id" is an expected outcome of a lookup, so the
// read/update/delete methods report it with an explicit bool instead of
// a sentinel error. Callers cannot forget to handle the absent case —
// the compiler makes them receive the bool. The error return is reserved
// for actual failures (I/O, constraint violations, bad SQL).
package storage

import (
	"errors"

	"github.com/aanand-mishra/people-api/internal/mapping"
	"github.com/aanand-mishra/people-api/internal/types"
)

// ErrEmailTaken is returned by CreatePerson and UpdatePersonByID when
// the supplied email collides with one already stored. Email uniqueness
// is enforced by the backing store's unique constraint; this sentinel is
// how that constraint surfaces to callers.
var ErrEmailTaken = errors.New("email is already in use by another person")

const (
	// DefaultListLimit is used when a caller asks for a listing without
	// saying how many records it wants.
	DefaultListLimit = 100

	// MaxListLimit caps a single listing. The API contract leaves the
	// upper bound to the implementation; without a cap a careless or
	// hostile limit would materialise the whole table in memory.
	MaxListLimit = 500
)

// Storage is the database contract for the people table.
type Storage interface {
	// CreatePerson inserts a new record and returns the stored row,
	// including the assigned id. Returns ErrEmailTaken if the email
	// collides with an existing record.
	CreatePerson(person types.CreatePersonRequest) (types.Person, error)

	// GetPersonByID fetches a single person by primary key.
	// The bool reports whether a record was found.
	GetPersonByID(id int64) (types.Person, bool, error)

	// GetPeople returns up to limit records after skipping skip, in
	// insertion order. Negative skip is treated as 0; limit <= 0 falls
	// back to DefaultListLimit and anything above MaxListLimit is
	// clamped. Returns an empty slice (not nil) when there is no data.
	GetPeople(skip, limit int64) ([]types.Person, error)

	// UpdatePersonByID applies a partial patch to an existing record and
	// returns the post-update row. An empty patch is a no-op that still
	// returns the current record. The bool reports whether the id
	// exists. Returns ErrEmailTaken on a unique-email collision.
	UpdatePersonByID(id int64, patch mapping.PersonPatch) (types.Person, bool, error)

	// DeletePersonByID removes a record if present. The bool reports
	// whether a row was actually removed, so deleting twice yields
	// false the second time rather than an error.
	DeletePersonByID(id int64) (bool, error)
}
