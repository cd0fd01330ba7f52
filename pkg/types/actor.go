package types

import "github.com/google/uuid"

// Actor identifies the authenticated user performing a mutation. Identity is
// supplied by the auth middleware and trusted unconditionally down here.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// Display returns the best human-readable label for provenance stamping.
func (a Actor) Display() string {
	if a.Name != "" {
		return a.Name
	}
	if a.ID != uuid.Nil {
		return a.ID.String()
	}
	return "system"
}
