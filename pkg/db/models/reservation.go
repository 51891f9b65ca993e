package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation is a time-bounded claim by a user on a locker. The access PIN
// is assigned exactly once at creation and never regenerated.
type Reservation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	User          *User     `gorm:"foreignKey:UserID"`
	LockerID      uuid.UUID `gorm:"column:locker_id;type:uuid;not null;index"`
	Locker        *Locker   `gorm:"foreignKey:LockerID"`
	ReservedAt    time.Time `gorm:"column:reserved_at;autoCreateTime"`
	ReservedUntil time.Time `gorm:"column:reserved_until;not null"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	AccessPIN     string    `gorm:"column:access_pin;type:char(6);not null"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
