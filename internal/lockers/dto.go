package lockers

import (
	"time"

	"github.com/google/uuid"

	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
)

// LockerDTO is the transport shape for a locker.
type LockerDTO struct {
	ID           uuid.UUID          `json:"id"`
	LockerNumber string             `json:"locker_number"`
	Location     string             `json:"location"`
	Status       enums.LockerStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// CreateLockerRequest carries the fields accepted when registering a locker.
type CreateLockerRequest struct {
	LockerNumber string `json:"locker_number" validate:"required,max=32"`
	Location     string `json:"location" validate:"max=255"`
}

// UpdateLockerRequest captures the locker fields allowed in a partial update.
// Transitions in or out of inactive go through deactivate/reactivate.
type UpdateLockerRequest struct {
	LockerNumber *string `json:"locker_number,omitempty" validate:"omitempty,min=1,max=32"`
	Location     *string `json:"location,omitempty" validate:"omitempty,max=255"`
	Status       *string `json:"status,omitempty" validate:"omitempty,min=1"`
}

// ReleasedReservationDTO identifies a reservation force-released by a
// locker deactivation.
type ReleasedReservationDTO struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ReservedUntil time.Time `json:"reserved_until"`
}

// DeactivateResult reports the outcome of a cascading deactivation.
type DeactivateResult struct {
	Locker        LockerDTO                `json:"locker"`
	ReleasedCount int                      `json:"released_count"`
	Released      []ReleasedReservationDTO `json:"released_reservations"`
}

// CreateLockerDTO holds the data required by the repo to persist a locker.
type CreateLockerDTO struct {
	LockerNumber string
	Location     string
}

func (c CreateLockerDTO) ToModel() *models.Locker {
	return &models.Locker{
		LockerNumber: c.LockerNumber,
		Location:     c.Location,
		Status:       enums.LockerStatusAvailable,
	}
}

func FromModel(l *models.Locker) *LockerDTO {
	if l == nil {
		return nil
	}
	return &LockerDTO{
		ID:           l.ID,
		LockerNumber: l.LockerNumber,
		Location:     l.Location,
		Status:       l.Status,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}
