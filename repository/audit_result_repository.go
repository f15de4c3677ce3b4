package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/models"
	"gorm.io/gorm"
)

// AuditResultRepositoryImpl implements the AuditResultRepository interface
type AuditResultRepositoryImpl struct {
	*BaseRepository[models.AuditResult, models.AuditResultFilter]
}

// NewAuditResultRepository creates a new audit result repository
func NewAuditResultRepository(db *gorm.DB) AuditResultRepository {
	return &AuditResultRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AuditResult, models.AuditResultFilter](db),
	}
}

// ListByClient retrieves all audit results of a client in write order
func (r *AuditResultRepositoryImpl) ListByClient(ctx context.Context, clientID uint) ([]*models.AuditResult, error) {
	filter := models.AuditResultFilter{ClientID: &clientID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// LiveByPrompt retrieves the non-campaign result occupying the prompt's live slot
func (r *AuditResultRepositoryImpl) LiveByPrompt(ctx context.Context, clientID, promptID uint) (*models.AuditResult, error) {
	db := r.getDB(ctx)

	var result models.AuditResult
	err := db.Where("client_id = ? AND prompt_id = ? AND campaign_uuid IS NULL", clientID, promptID).
		Order("id DESC").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result.Normalize()
	return &result, nil
}

// ReplaceForPrompt overwrites the live result for the result's prompt in
// place. When no live result exists the new one is inserted instead, keeping
// the at-most-one-live-result invariant either way.
func (r *AuditResultRepositoryImpl) ReplaceForPrompt(ctx context.Context, result *models.AuditResult) error {
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

	var existing models.AuditResult
	err = db.Where("client_id = ? AND prompt_id = ? AND campaign_uuid IS NULL", result.ClientID, result.PromptID).
		Order("id DESC").
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to locate live result for prompt %d: %w", result.PromptID, err)
		}
		err = db.Create(result).Error
		if err != nil {
			return fmt.Errorf("failed to insert replacement result: %w", err)
		}
		return nil
	}

	result.ID = existing.ID
	result.CreatedAt = existing.CreatedAt
	err = db.Save(result).Error
	if err != nil {
		return fmt.Errorf("failed to replace result for prompt %d: %w", result.PromptID, err)
	}

	return nil
}

// ListByCampaign retrieves all results tagged with the given campaign
func (r *AuditResultRepositoryImpl) ListByCampaign(ctx context.Context, campaignUUID uuid.UUID) ([]*models.AuditResult, error) {
	filter := models.AuditResultFilter{CampaignUUID: &campaignUUID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// CountByCampaign counts results tagged with the given campaign. Campaign
// progress is always derived from this count, never stored.
func (r *AuditResultRepositoryImpl) CountByCampaign(ctx context.Context, campaignUUID uuid.UUID) (int64, error) {
	filter := models.AuditResultFilter{CampaignUUID: &campaignUUID}
	return r.Count(ctx, filter)
}

// ByFilter retrieves audit results based on filter criteria, normalized to
// the nested summary shape
func (r *AuditResultRepositoryImpl) ByFilter(ctx context.Context, filter models.AuditResultFilter, orderBy string, limit, offset int) ([]*models.AuditResult, error) {
	db := r.getDB(ctx)

	var results []*models.AuditResult
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

	err := query.Find(&results).Error
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		result.Normalize()
	}

	return results, nil
}

// Count returns the number of audit results matching the filter
func (r *AuditResultRepositoryImpl) Count(ctx context.Context, filter models.AuditResultFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.AuditResult{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any audit result matching the filter exists
func (r *AuditResultRepositoryImpl) Exists(ctx context.Context, filter models.AuditResultFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *AuditResultRepositoryImpl) applyFilter(db *gorm.DB, filter models.AuditResultFilter) *gorm.DB {
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
	if filter.CampaignUUID != nil {
		db = db.Where("campaign_uuid = ?", *filter.CampaignUUID)
	}
	if filter.LiveOnly {
		db = db.Where("campaign_uuid IS NULL")
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
