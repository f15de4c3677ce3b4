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

// ClientRepositoryImpl implements the ClientRepository interface
type ClientRepositoryImpl struct {
	*BaseRepository[models.Client, models.ClientFilter]
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &ClientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Client, models.ClientFilter](db),
	}
}

// ByUUID retrieves a client by UUID
func (r *ClientRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.Client, error) {
	parsedUUID, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid client uuid: %w", err)
	}

	filter := models.ClientFilter{UUID: &parsedUUID}
	clients, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(clients) == 0 {
		return nil, nil
	}

	return clients[0], nil
}

// Current retrieves the currently selected client, if any
func (r *ClientRepositoryImpl) Current(ctx context.Context) (*models.Client, error) {
	db := r.getDB(ctx)

	var client models.Client
	err := db.Where("is_current = ?", true).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &client, nil
}

// SetCurrent marks the given client as current and clears the flag on all others
func (r *ClientRepositoryImpl) SetCurrent(ctx context.Context, clientID uint) error {
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

	err = db.Model(&models.Client{}).
		Where("is_current = ?", true).
		Update("is_current", false).Error
	if err != nil {
		return err
	}

	err = db.Model(&models.Client{}).
		Where("id = ?", clientID).
		Updates(map[string]any{
			"is_current": true,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// List retrieves all clients ordered by creation
func (r *ClientRepositoryImpl) List(ctx context.Context) ([]*models.Client, error) {
	return r.ByFilter(ctx, models.ClientFilter{}, "id ASC", 0, 0)
}

// Update updates a client
func (r *ClientRepositoryImpl) Update(ctx context.Context, client models.Client) error {
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

	client.UpdatedAt = utils.UTCNowPtr()

	err = db.Save(&client).Error
	if err != nil {
		return err
	}

	return nil
}

// Delete removes a client row. Last-client protection is enforced by the
// business flow, not here.
func (r *ClientRepositoryImpl) Delete(ctx context.Context, clientID uint) error {
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

	err = db.Delete(&models.Client{}, clientID).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves clients based on filter criteria
func (r *ClientRepositoryImpl) ByFilter(ctx context.Context, filter models.ClientFilter, orderBy string, limit, offset int) ([]*models.Client, error) {
	db := r.getDB(ctx)

	var clients []*models.Client
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

	err := query.Find(&clients).Error
	if err != nil {
		return nil, err
	}

	return clients, nil
}

// Count returns the number of clients matching the filter
func (r *ClientRepositoryImpl) Count(ctx context.Context, filter models.ClientFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Client{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any client matching the filter exists
func (r *ClientRepositoryImpl) Exists(ctx context.Context, filter models.ClientFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ClientRepositoryImpl) applyFilter(db *gorm.DB, filter models.ClientFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.BrandName != nil {
		db = db.Where("brand_name = ?", *filter.BrandName)
	}
	if filter.IsCurrent != nil {
		db = db.Where("is_current = ?", *filter.IsCurrent)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
