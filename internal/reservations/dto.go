package reservations

import (
	"time"

	"github.com/google/uuid"

	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
)

// ReservationDTO is the transport shape for a reservation. The access PIN is
// included only in the create response; reads omit it.
type ReservationDTO struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	LockerID      uuid.UUID `json:"locker_id"`
	LockerNumber  string    `json:"locker_number,omitempty"`
	ReservedAt    time.Time `json:"reserved_at"`
	ReservedUntil time.Time `json:"reserved_until"`
	IsActive      bool      `json:"is_active"`
	AccessPIN     string    `json:"access_pin,omitempty"`
}

// CreateReservationRequest carries the booking payload.
type CreateReservationRequest struct {
	LockerID      uuid.UUID `json:"locker_id" validate:"required"`
	ReservedUntil time.Time `json:"reserved_until" validate:"required"`
}

// UpdateExpiryRequest carries the admin-only expiry change payload.
type UpdateExpiryRequest struct {
	ReservedUntil time.Time `json:"reserved_until" validate:"required"`
}

// ReleaseResult reports a completed release and who performed it.
type ReleaseResult struct {
	Reservation ReservationDTO  `json:"reservation"`
	ReleasedBy  enums.ActorRole `json:"released_by"`
}

func FromModel(r *models.Reservation, includePIN bool) *ReservationDTO {
	if r == nil {
		return nil
	}
	dto := &ReservationDTO{
		ID:            r.ID,
		UserID:        r.UserID,
		LockerID:      r.LockerID,
		ReservedAt:    r.ReservedAt,
		ReservedUntil: r.ReservedUntil,
		IsActive:      r.IsActive,
	}
	if r.Locker != nil {
		dto.LockerNumber = r.Locker.LockerNumber
	}
	if includePIN {
		dto.AccessPIN = r.AccessPIN
	}
	return dto
}

func fromModels(items []models.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, *FromModel(&items[i], false))
	}
	return dtos
}
