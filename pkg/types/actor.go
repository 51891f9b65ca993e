package types

import (
	"github.com/google/uuid"

	"github.com/lockerhub/lockerhub-backend/pkg/enums"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Role maps the actor onto the role reported in responses.
func (a Actor) Role() enums.ActorRole {
	if a.IsAdmin {
		return enums.ActorRoleAdmin
	}
	return enums.ActorRoleUser
}

// Owns reports whether the actor owns the resource belonging to ownerID.
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return a.UserID == ownerID
}
