// Package mapping converts between wire-facing request shapes and the
// patch shape the storage layer consumes.
//
// THE PARTIAL-UPDATE POLICY:
// ──────────────────────────
// An update request field can be in one of three states on the wire:
// not supplied, explicitly null, or supplied with a value. Only the last
// produces a patch entry. "Not supplied" and "explicitly null" are
// treated identically — the stored field is left untouched — so a client
// cannot clear an existing field to null through the update endpoint.
// This is a deliberate, tested policy of the API contract.
package mapping

import "github.com/aanand-mishra/people-api/internal/types"

// PersonPatch carries only the fields an update should write.
// A nil pointer means "do not touch this column".
type PersonPatch struct {
	FirstName *string
	LastName  *string
	Age       *int
	Email     *string
}

// IsEmpty reports whether the patch would write nothing.
// An empty patch is a valid no-op, not an error.
func (p PersonPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Age == nil && p.Email == nil
}

// PatchFromUpdate builds a PersonPatch from an update request.
//
// Because encoding/json leaves a pointer field nil for both a missing
// key and an explicit null, copying the non-nil pointers is all that is
// needed to implement the policy above.
func PatchFromUpdate(req types.UpdatePersonRequest) PersonPatch {
	return PersonPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Email:     req.Email,
	}
}

// ApplyTo returns a copy of person with the patch fields written over it.
// The ID is never part of a patch and is carried through unchanged.
func (p PersonPatch) ApplyTo(person types.Person) types.Person {
	if p.FirstName != nil {
		person.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		person.LastName = *p.LastName
	}
	if p.Age != nil {
		person.Age = p.Age
	}
	if p.Email != nil {
		person.Email = p.Email
	}
	return person
}
