package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lockerhub/lockerhub-backend/pkg/enums"
)

// Locker represents a physical storage unit. Lockers are never deleted;
// taking one out of service is a status transition to inactive.
type Locker struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey"`
	LockerNumber string             `gorm:"column:locker_number;type:text;not null;uniqueIndex"`
	Location     string             `gorm:"column:location;type:text;not null"`
	Status       enums.LockerStatus `gorm:"column:status;type:text;not null;default:available"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Locker) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
