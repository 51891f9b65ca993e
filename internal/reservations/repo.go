package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lockerhub/lockerhub-backend/internal/repo"
	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
)

// Repository handles reservation persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to reservation operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads a reservation with its locker preloaded.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.DB(ctx).
		Preload("Locker").
		First(&reservation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListAll returns every reservation, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.DB(ctx).
		Preload("Locker").
		Order("reserved_at desc").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListByUser returns a user's reservations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.DB(ctx).
		Preload("Locker").
		Where("user_id = ?", userID).
		Order("reserved_at desc").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListActive returns reservations still flagged active, newest first.
// Expiry is deliberately not part of the filter.
func (r *Repository) ListActive(ctx context.Context, userID *uuid.UUID) ([]models.Reservation, error) {
	query := r.DB(ctx).
		Preload("Locker").
		Where("is_active = ?", true).
		Order("reserved_at desc")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var reservations []models.Reservation
	if err := query.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindMatch returns the reservation granting access to the locker with the
// provided PIN, if one exists. Admin callers match any owner.
func (r *Repository) FindMatch(ctx context.Context, lockerID uuid.UUID, pin string, userID *uuid.UUID, now time.Time) (*models.Reservation, error) {
	query := r.DB(ctx).
		Where("locker_id = ? AND access_pin = ? AND is_active = ? AND reserved_until >= ?",
			lockerID, pin, true, now)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var reservation models.Reservation
	if err := query.First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// CountActiveUnexpiredWithTx counts live reservations on the locker inside
// the provided transaction.
func CountActiveUnexpiredWithTx(tx *gorm.DB, lockerID uuid.UUID, now time.Time) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	var count int64
	err := tx.Model(&models.Reservation{}).
		Where("locker_id = ? AND is_active = ? AND reserved_until >= ?", lockerID, true, now).
		Count(&count).Error
	return count, err
}

// CreateWithTx inserts a reservation inside the provided transaction.
func CreateWithTx(tx *gorm.DB, reservation *models.Reservation) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(reservation).Error
}

// FindByIDForUpdate loads a reservation inside the provided transaction with
// the row locked until commit, so concurrent releases serialize on the flag.
func FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Reservation, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var reservation models.Reservation
	if err := lockRows(tx).First(&reservation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// lockRows applies SELECT ... FOR UPDATE where the dialect supports it.
// The sqlite driver used in tests does not.
func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// SaveWithTx persists the reservation inside the provided transaction.
func SaveWithTx(tx *gorm.DB, reservation *models.Reservation) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Save(reservation).Error
}
