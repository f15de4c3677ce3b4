package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/utils"
	"gorm.io/gorm"
)

// PromptRepositoryImpl implements the PromptRepository interface
type PromptRepositoryImpl struct {
	*BaseRepository[models.Prompt, models.PromptFilter]
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &PromptRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Prompt, models.PromptFilter](db),
	}
}

// ByUUID retrieves a prompt by UUID
func (r *PromptRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.Prompt, error) {
	parsedUUID, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt uuid: %w", err)
	}

	filter := models.PromptFilter{UUID: &parsedUUID}
	prompts, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(prompts) == 0 {
		return nil, nil
	}

	return prompts[0], nil
}

// ListByClient retrieves all prompts of a client in registry (insertion) order
func (r *PromptRepositoryImpl) ListByClient(ctx context.Context, clientID uint) ([]*models.Prompt, error) {
	filter := models.PromptFilter{ClientID: &clientID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListActiveByClient retrieves the active prompts of a client in registry order
func (r *PromptRepositoryImpl) ListActiveByClient(ctx context.Context, clientID uint) ([]*models.Prompt, error) {
	filter := models.PromptFilter{ClientID: &clientID, Active: utils.ToPtr(true)}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ByClientAndText retrieves the most recent prompt of a client with exactly the given text
func (r *PromptRepositoryImpl) ByClientAndText(ctx context.Context, clientID uint, text string) (*models.Prompt, error) {
	db := r.getDB(ctx)

	var prompt models.Prompt
	err := db.Where("client_id = ? AND text = ?", clientID, text).
		Order("id DESC").
		First(&prompt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &prompt, nil
}

// SetActive flips the soft-delete flag. Audit results are never touched here;
// only the aggregation view's input set changes.
func (r *PromptRepositoryImpl) SetActive(ctx context.Context, promptID uint, active bool) error {
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

	err = db.Model(&models.Prompt{}).
		Where("id = ?", promptID).
		Updates(map[string]any{
			"active":     active,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// Update updates a prompt
func (r *PromptRepositoryImpl) Update(ctx context.Context, prompt models.Prompt) error {
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

	prompt.UpdatedAt = utils.UTCNowPtr()

	err = db.Save(&prompt).Error
	if err != nil {
		return err
	}

	return nil
}

// DeleteByClient removes all prompt rows for a client. Historical audit
// results in the authoritative store are intentionally left in place.
func (r *PromptRepositoryImpl) DeleteByClient(ctx context.Context, clientID uint) error {
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

	err = db.Where("client_id = ?", clientID).Delete(&models.Prompt{}).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves prompts based on filter criteria
func (r *PromptRepositoryImpl) ByFilter(ctx context.Context, filter models.PromptFilter, orderBy string, limit, offset int) ([]*models.Prompt, error) {
	db := r.getDB(ctx)

	var prompts []*models.Prompt
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

	err := query.Find(&prompts).Error
	if err != nil {
		return nil, err
	}

	return prompts, nil
}

// Count returns the number of prompts matching the filter
func (r *PromptRepositoryImpl) Count(ctx context.Context, filter models.PromptFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Prompt{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any prompt matching the filter exists
func (r *PromptRepositoryImpl) Exists(ctx context.Context, filter models.PromptFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PromptRepositoryImpl) applyFilter(db *gorm.DB, filter models.PromptFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.ClientID != nil {
		db = db.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Category != nil {
		db = db.Where("category = ?", *filter.Category)
	}
	if filter.NicheLevel != nil {
		db = db.Where("niche_level = ?", *filter.NicheLevel)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
