package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lockerhub/lockerhub-backend/internal/lockers"
	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
	pkgerrors "github.com/lockerhub/lockerhub-backend/pkg/errors"
	"github.com/lockerhub/lockerhub-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListAll(ctx context.Context) ([]models.Reservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Reservation, error)
	ListActive(ctx context.Context, userID *uuid.UUID) ([]models.Reservation, error)
}

// Service exposes reservation lifecycle operations.
type Service interface {
	Create(ctx context.Context, actor types.Actor, req CreateReservationRequest) (*ReservationDTO, error)
	Release(ctx context.Context, id uuid.UUID, actor types.Actor) (*ReleaseResult, error)
	UpdateExpiry(ctx context.Context, id uuid.UUID, actor types.Actor, req UpdateExpiryRequest) (*ReservationDTO, error)
	ListForCaller(ctx context.Context, actor types.Actor) ([]ReservationDTO, error)
	ListActive(ctx context.Context, actor types.Actor) ([]ReservationDTO, error)
	ListAll(ctx context.Context) ([]ReservationDTO, error)
	Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*ReservationDTO, error)
}

type service struct {
	repo reservationRepository
	tx   txRunner
	now  func() time.Time
	pin  func() (string, error)
}

// ServiceParams bundles the dependencies for the reservation service.
type ServiceParams struct {
	Repo reservationRepository
	Tx   txRunner
	Now  func() time.Time
	PIN  func() (string, error)
}

// NewService builds a reservation service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	pin := params.PIN
	if pin == nil {
		pin = GeneratePIN
	}
	return &service{
		repo: params.Repo,
		tx:   params.Tx,
		now:  now,
		pin:  pin,
	}, nil
}

// Create books a locker for the calling user. The locker row is locked for
// the duration of the transaction so two concurrent bookings serialize and
// exactly one succeeds.
func (s *service) Create(ctx context.Context, actor types.Actor, req CreateReservationRequest) (*ReservationDTO, error) {
	now := s.now().UTC()
	if !req.ReservedUntil.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserved_until must be in the future")
	}

	var dto *ReservationDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locker, err := lockers.FindByIDForUpdate(tx, req.LockerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "locker not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock locker")
		}

		if locker.Status != enums.LockerStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeValidation, "locker not available")
		}

		count, err := CountActiveUnexpiredWithTx(tx, locker.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing reservations")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "locker already reserved")
		}

		pin, err := s.pin()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pin")
		}

		reservation := &models.Reservation{
			UserID:        actor.UserID,
			LockerID:      locker.ID,
			ReservedAt:    now,
			ReservedUntil: req.ReservedUntil.UTC(),
			IsActive:      true,
			AccessPIN:     pin,
		}
		if err := CreateWithTx(tx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reservation")
		}

		locker.Status = enums.LockerStatusReserved
		if err := lockers.UpdateWithTx(tx, locker); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark locker reserved")
		}

		reservation.Locker = locker
		dto = FromModel(reservation, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Release ends a reservation. Owners release their own; admins release any.
func (s *service) Release(ctx context.Context, id uuid.UUID, actor types.Actor) (*ReleaseResult, error) {
	var result ReleaseResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reservation, err := FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservation")
		}

		if !actor.IsAdmin && !actor.Owns(reservation.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only release your own reservations")
		}
		if !reservation.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already released")
		}

		locker, err := lockers.FindByIDForUpdate(tx, reservation.LockerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock locker")
		}

		reservation.IsActive = false
		if err := SaveWithTx(tx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release reservation")
		}

		now := s.now().UTC()
		remaining, err := CountActiveUnexpiredWithTx(tx, locker.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recount reservations")
		}
		if remaining == 0 && locker.Status != enums.LockerStatusInactive {
			locker.Status = enums.LockerStatusAvailable
			if err := lockers.UpdateWithTx(tx, locker); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "free locker")
			}
		}

		reservation.Locker = locker
		result = ReleaseResult{
			Reservation: *FromModel(reservation, false),
			ReleasedBy:  actor.Role(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateExpiry changes a live reservation's end time. Admin only.
func (s *service) UpdateExpiry(ctx context.Context, id uuid.UUID, actor types.Actor, req UpdateExpiryRequest) (*ReservationDTO, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can update reservation expiry")
	}
	now := s.now().UTC()
	if !req.ReservedUntil.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserved_until must be in the future")
	}

	var dto *ReservationDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reservation, err := FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservation")
		}
		if !reservation.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already released")
		}

		locker, err := lockers.FindByIDForUpdate(tx, reservation.LockerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock locker")
		}
		if locker.Status == enums.LockerStatusInactive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "locker is inactive")
		}

		reservation.ReservedUntil = req.ReservedUntil.UTC()
		if err := SaveWithTx(tx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update expiry")
		}

		reservation.Locker = locker
		dto = FromModel(reservation, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListForCaller returns all reservations for admins and the caller's own
// reservations otherwise.
func (s *service) ListForCaller(ctx context.Context, actor types.Actor) ([]ReservationDTO, error) {
	var (
		items []models.Reservation
		err   error
	)
	if actor.IsAdmin {
		items, err = s.repo.ListAll(ctx)
	} else {
		items, err = s.repo.ListByUser(ctx, actor.UserID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reservations")
	}
	return fromModels(items), nil
}

// ListActive returns the caller-scoped reservations still flagged active.
func (s *service) ListActive(ctx context.Context, actor types.Actor) ([]ReservationDTO, error) {
	var userID *uuid.UUID
	if !actor.IsAdmin {
		id := actor.UserID
		userID = &id
	}
	items, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list active reservations")
	}
	return fromModels(items), nil
}

// ListAll returns every reservation. Admin access is enforced at the route.
func (s *service) ListAll(ctx context.Context) ([]ReservationDTO, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reservations")
	}
	return fromModels(items), nil
}

// Get loads a single reservation for its owner or an admin.
func (s *service) Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*ReservationDTO, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservation")
	}
	if !actor.IsAdmin && !actor.Owns(reservation.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only view your own reservations")
	}
	return FromModel(reservation, false), nil
}
