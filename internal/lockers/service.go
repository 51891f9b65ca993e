package lockers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lockerhub/lockerhub-backend/pkg/db"
	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
	pkgerrors "github.com/lockerhub/lockerhub-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lockerRepository interface {
	Create(ctx context.Context, dto CreateLockerDTO) (*models.Locker, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Locker, error)
	FindByNumber(ctx context.Context, lockerNumber string) (*models.Locker, error)
	List(ctx context.Context, status *enums.LockerStatus) ([]models.Locker, error)
	Update(ctx context.Context, locker *models.Locker) error
}

// Service exposes locker management operations.
type Service interface {
	Create(ctx context.Context, req CreateLockerRequest) (*LockerDTO, error)
	List(ctx context.Context, status *enums.LockerStatus) ([]LockerDTO, error)
	ListAvailable(ctx context.Context) ([]LockerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*LockerDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateLockerRequest) (*LockerDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*DeactivateResult, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*LockerDTO, error)
}

type service struct {
	repo lockerRepository
	tx   txRunner
	now  func() time.Time
}

// ServiceParams bundles the dependencies for the locker service.
type ServiceParams struct {
	Repo lockerRepository
	Tx   txRunner
	Now  func() time.Time
}

// NewService builds a locker service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("locker repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo: params.Repo,
		tx:   params.Tx,
		now:  now,
	}, nil
}

func (s *service) Create(ctx context.Context, req CreateLockerRequest) (*LockerDTO, error) {
	number := strings.TrimSpace(req.LockerNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "locker_number is required")
	}

	if _, err := s.repo.FindByNumber(ctx, number); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "locker number already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check locker number")
	}

	locker, err := s.repo.Create(ctx, CreateLockerDTO{
		LockerNumber: number,
		Location:     strings.TrimSpace(req.Location),
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "locker number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create locker")
	}
	return FromModel(locker), nil
}

func (s *service) List(ctx context.Context, status *enums.LockerStatus) ([]LockerDTO, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid locker status filter")
	}
	lockers, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list lockers")
	}
	dtos := make([]LockerDTO, 0, len(lockers))
	for i := range lockers {
		dtos = append(dtos, *FromModel(&lockers[i]))
	}
	return dtos, nil
}

func (s *service) ListAvailable(ctx context.Context) ([]LockerDTO, error) {
	status := enums.LockerStatusAvailable
	return s.List(ctx, &status)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LockerDTO, error) {
	locker, err := s.findLocker(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(locker), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateLockerRequest) (*LockerDTO, error) {
	locker, err := s.findLocker(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.LockerNumber != nil {
		number := strings.TrimSpace(*req.LockerNumber)
		if number == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "locker_number cannot be empty")
		}
		if number != locker.LockerNumber {
			if existing, err := s.repo.FindByNumber(ctx, number); err == nil && existing.ID != locker.ID {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "locker number already exists")
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check locker number")
			}
			locker.LockerNumber = number
		}
	}
	if req.Location != nil {
		locker.Location = strings.TrimSpace(*req.Location)
	}
	if req.Status != nil {
		status, err := enums.ParseLockerStatus(*req.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid locker status")
		}
		if status == enums.LockerStatusInactive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "use deactivate to take a locker out of service")
		}
		if locker.Status == enums.LockerStatusInactive && status != locker.Status {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "use reactivate to bring an inactive locker back")
		}
		locker.Status = status
	}

	if err := s.repo.Update(ctx, locker); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "locker number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update locker")
	}
	return FromModel(locker), nil
}

// Deactivate takes a locker out of service and force-releases every active
// unexpired reservation on it in the same transaction.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*DeactivateResult, error) {
	var result DeactivateResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locker, err := FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "locker not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock locker")
		}

		now := s.now().UTC()
		var active []models.Reservation
		if err := tx.
			Where("locker_id = ? AND is_active = ? AND reserved_until >= ?", locker.ID, true, now).
			Find(&active).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active reservations")
		}

		if len(active) > 0 {
			ids := make([]uuid.UUID, 0, len(active))
			for i := range active {
				ids = append(ids, active[i].ID)
			}
			if err := tx.Model(&models.Reservation{}).
				Where("id IN ?", ids).
				Update("is_active", false).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release reservations")
			}
		}

		locker.Status = enums.LockerStatusInactive
		if err := UpdateWithTx(tx, locker); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate locker")
		}

		released := make([]ReleasedReservationDTO, 0, len(active))
		for i := range active {
			released = append(released, ReleasedReservationDTO{
				ID:            active[i].ID,
				UserID:        active[i].UserID,
				ReservedUntil: active[i].ReservedUntil,
			})
		}
		result = DeactivateResult{
			Locker:        *FromModel(locker),
			ReleasedCount: len(released),
			Released:      released,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reactivate returns an inactive locker to service.
func (s *service) Reactivate(ctx context.Context, id uuid.UUID) (*LockerDTO, error) {
	var dto *LockerDTO

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locker, err := FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "locker not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock locker")
		}

		if locker.Status != enums.LockerStatusInactive {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("locker is already %s", locker.Status))
		}

		locker.Status = enums.LockerStatusAvailable
		if err := UpdateWithTx(tx, locker); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reactivate locker")
		}
		dto = FromModel(locker)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) findLocker(ctx context.Context, id uuid.UUID) (*models.Locker, error) {
	locker, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "locker not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load locker")
	}
	return locker, nil
}
