package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/utils"
	"gorm.io/gorm"
)

// ScheduleRepositoryImpl implements the ScheduleRepository interface
type ScheduleRepositoryImpl struct {
	*BaseRepository[models.Schedule, models.ScheduleFilter]
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &ScheduleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Schedule, models.ScheduleFilter](db),
	}
}

// ByUUID retrieves a schedule by UUID
func (r *ScheduleRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.Schedule, error) {
	parsedUUID, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule uuid: %w", err)
	}

	filter := models.ScheduleFilter{UUID: &parsedUUID}
	schedules, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(schedules) == 0 {
		return nil, nil
	}

	return schedules[0], nil
}

// ListByClient retrieves schedules of a client in creation order
func (r *ScheduleRepositoryImpl) ListByClient(ctx context.Context, clientID uint) ([]*models.Schedule, error) {
	filter := models.ScheduleFilter{ClientID: &clientID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListDue retrieves active schedules whose next run time has passed
func (r *ScheduleRepositoryImpl) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	filter := models.ScheduleFilter{Active: utils.ToPtr(true), DueBefore: &now}
	return r.ByFilter(ctx, filter, "next_run_at ASC", 0, 0)
}

// Update updates a schedule
func (r *ScheduleRepositoryImpl) Update(ctx context.Context, schedule models.Schedule) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	schedule.UpdatedAt = utils.UTCNowPtr()

	err = db.Save(&schedule).Error
	if err != nil {
		return err
	}

	return nil
}

// Delete removes a schedule
func (r *ScheduleRepositoryImpl) Delete(ctx context.Context, scheduleID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(&models.Schedule{}, scheduleID).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves schedules based on filter criteria
func (r *ScheduleRepositoryImpl) ByFilter(ctx context.Context, filter models.ScheduleFilter, orderBy string, limit, offset int) ([]*models.Schedule, error) {
	db := r.getDB(ctx)

	var schedules []*models.Schedule
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&schedules).Error
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

// Count returns the number of schedules matching the filter
func (r *ScheduleRepositoryImpl) Count(ctx context.Context, filter models.ScheduleFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Schedule{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any schedule matching the filter exists
func (r *ScheduleRepositoryImpl) Exists(ctx context.Context, filter models.ScheduleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ScheduleRepositoryImpl) applyFilter(db *gorm.DB, filter models.ScheduleFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.ClientID != nil {
		db = db.Where("client_id = ?", *filter.ClientID)
	}
	if filter.PromptID != nil {
		db = db.Where("prompt_id = ?", *filter.PromptID)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	if filter.DueBefore != nil {
		db = db.Where("next_run_at IS NOT NULL AND next_run_at < ?", *filter.DueBefore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	return db
}
