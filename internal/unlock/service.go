package unlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lockerhub/lockerhub-backend/internal/lockers"
	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
	pkgerrors "github.com/lockerhub/lockerhub-backend/pkg/errors"
	"github.com/lockerhub/lockerhub-backend/pkg/types"
)

type lockerFinder interface {
	FindByNumber(ctx context.Context, lockerNumber string) (*models.Locker, error)
}

type reservationMatcher interface {
	FindMatch(ctx context.Context, lockerID uuid.UUID, pin string, userID *uuid.UUID, now time.Time) (*models.Reservation, error)
}

// UnlockRequest carries the credentials presented at a locker door.
type UnlockRequest struct {
	LockerNumber string `json:"locker_number" validate:"required"`
	PIN          string `json:"pin" validate:"required,len=6"`
}

// UnlockResult is the snapshot returned on a successful unlock. Nothing is
// mutated by the verification.
type UnlockResult struct {
	Locker        lockers.LockerDTO `json:"locker"`
	ReservationID uuid.UUID         `json:"reservation_id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	ReservedUntil time.Time         `json:"reserved_until"`
	AccessedBy    enums.ActorRole   `json:"accessed_by"`
	AdminOverride bool              `json:"admin_override"`
}

// Service verifies unlock attempts.
type Service interface {
	Unlock(ctx context.Context, actor types.Actor, req UnlockRequest) (*UnlockResult, error)
}

type service struct {
	lockers      lockerFinder
	reservations reservationMatcher
	now          func() time.Time
}

// ServiceParams bundles the dependencies for the unlock service.
type ServiceParams struct {
	Lockers      lockerFinder
	Reservations reservationMatcher
	Now          func() time.Time
}

// NewService builds an unlock verifier with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Lockers == nil {
		return nil, fmt.Errorf("locker repository required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		lockers:      params.Lockers,
		reservations: params.Reservations,
		now:          now,
	}, nil
}

// Unlock checks whether the presented PIN grants access to the locker. The
// inactive check runs before any PIN matching so a deactivated locker is
// refused even with a formerly valid PIN.
func (s *service) Unlock(ctx context.Context, actor types.Actor, req UnlockRequest) (*UnlockResult, error) {
	number := strings.TrimSpace(req.LockerNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "locker_number is required")
	}

	locker, err := s.lockers.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "locker not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load locker")
	}

	if locker.Status == enums.LockerStatusInactive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			"this locker has been deactivated and is no longer accessible")
	}

	var ownerScope *uuid.UUID
	if !actor.IsAdmin {
		id := actor.UserID
		ownerScope = &id
	}

	reservation, err := s.reservations.FindMatch(ctx, locker.ID, req.PIN, ownerScope, s.now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if actor.IsAdmin {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid or expired PIN")
			}
			return nil, pkgerrors.New(pkgerrors.CodeForbidden,
				"invalid PIN or no active reservation for this locker")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "match reservation")
	}

	return &UnlockResult{
		Locker:        *lockers.FromModel(locker),
		ReservationID: reservation.ID,
		OwnerID:       reservation.UserID,
		ReservedUntil: reservation.ReservedUntil,
		AccessedBy:    actor.Role(),
		AdminOverride: actor.IsAdmin && reservation.UserID != actor.UserID,
	}, nil
}
