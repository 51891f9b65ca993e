package lockers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lockerhub/lockerhub-backend/internal/repo"
	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
)

// Repository handles locker persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to locker operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create persists a new locker row.
func (r *Repository) Create(ctx context.Context, dto CreateLockerDTO) (*models.Locker, error) {
	locker := dto.ToModel()
	if err := r.DB(ctx).Create(locker).Error; err != nil {
		return nil, err
	}
	return locker, nil
}

// FindByID loads a locker by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Locker, error) {
	var locker models.Locker
	if err := r.DB(ctx).First(&locker, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &locker, nil
}

// FindByNumber loads a locker by its exact locker number.
func (r *Repository) FindByNumber(ctx context.Context, lockerNumber string) (*models.Locker, error) {
	var locker models.Locker
	if err := r.DB(ctx).Where("locker_number = ?", lockerNumber).First(&locker).Error; err != nil {
		return nil, err
	}
	return &locker, nil
}

// List returns lockers ordered by locker number, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *enums.LockerStatus) ([]models.Locker, error) {
	query := r.DB(ctx).Order("locker_number asc")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var lockers []models.Locker
	if err := query.Find(&lockers).Error; err != nil {
		return nil, err
	}
	return lockers, nil
}

// Update saves the provided locker.
func (r *Repository) Update(ctx context.Context, locker *models.Locker) error {
	if locker == nil {
		return fmt.Errorf("locker is required")
	}
	return r.DB(ctx).Save(locker).Error
}

// FindByIDForUpdate loads a locker inside the provided transaction with the
// row locked until commit.
func FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Locker, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var locker models.Locker
	if err := lockRows(tx).First(&locker, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &locker, nil
}

// FindByNumberForUpdate loads a locker by number inside the provided
// transaction with the row locked until commit.
func FindByNumberForUpdate(tx *gorm.DB, lockerNumber string) (*models.Locker, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var locker models.Locker
	if err := lockRows(tx).Where("locker_number = ?", lockerNumber).First(&locker).Error; err != nil {
		return nil, err
	}
	return &locker, nil
}

// UpdateWithTx persists the locker using the provided transaction.
func UpdateWithTx(tx *gorm.DB, locker *models.Locker) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if locker == nil {
		return fmt.Errorf("locker is required")
	}
	return tx.Save(locker).Error
}

// lockRows applies SELECT ... FOR UPDATE where the dialect supports it.
// The sqlite driver used in tests does not.
func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
