package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lockerhub/lockerhub-backend/pkg/db/models"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
	"github.com/lockerhub/lockerhub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LockerExpiryJobParams configure the locker expiry sweep.
type LockerExpiryJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Now    func() time.Time
}

// NewLockerExpiryJob builds the job that returns lockers to the available
// pool once every reservation on them has lapsed. Reservations themselves
// keep their active flag; only the locker status is swept.
func NewLockerExpiryJob(params LockerExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &lockerExpiryJob{
		logg: params.Logger,
		db:   params.DB,
		now:  now,
	}, nil
}

type lockerExpiryJob struct {
	logg *logger.Logger
	db   txRunner
	now  func() time.Time
}

func (j *lockerExpiryJob) Name() string { return "locker-expiry" }

func (j *lockerExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var swept int

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var stale []models.Locker
		if err := tx.
			Where("status = ?", enums.LockerStatusReserved).
			Where("NOT EXISTS (SELECT 1 FROM reservations r WHERE r.locker_id = lockers.id AND r.is_active = ? AND r.reserved_until >= ?)", true, now).
			Find(&stale).Error; err != nil {
			return fmt.Errorf("query lapsed lockers: %w", err)
		}

		var errs []error
		for i := range stale {
			if err := tx.Model(&models.Locker{}).
				Where("id = ?", stale[i].ID).
				Update("status", enums.LockerStatusAvailable).Error; err != nil {
				errs = append(errs, fmt.Errorf("free locker %s: %w", stale[i].LockerNumber, err))
				continue
			}
			swept++
		}
		return multierr.Combine(errs...)
	})
	if err != nil {
		return err
	}

	if swept > 0 {
		ctx = j.logg.WithFields(ctx, map[string]any{"count": swept})
		j.logg.Info(ctx, "freed lapsed lockers")
	}
	return nil
}
