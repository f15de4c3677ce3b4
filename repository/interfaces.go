// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ClientRepository defines operations for clients (tracked brands)
type ClientRepository interface {
	Repository[models.Client, models.ClientFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Client, error)
	Current(ctx context.Context) (*models.Client, error)
	SetCurrent(ctx context.Context, clientID uint) error
	List(ctx context.Context) ([]*models.Client, error)
	Update(ctx context.Context, client models.Client) error
	Delete(ctx context.Context, clientID uint) error
}

// PromptRepository defines operations for prompts
type PromptRepository interface {
	Repository[models.Prompt, models.PromptFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Prompt, error)
	ListByClient(ctx context.Context, clientID uint) ([]*models.Prompt, error)
	ListActiveByClient(ctx context.Context, clientID uint) ([]*models.Prompt, error)
	ByClientAndText(ctx context.Context, clientID uint, text string) (*models.Prompt, error)
	SetActive(ctx context.Context, promptID uint, active bool) error
	Update(ctx context.Context, prompt models.Prompt) error
	DeleteByClient(ctx context.Context, clientID uint) error
}

// AuditResultRepository defines operations for audit results
type AuditResultRepository interface {
	Repository[models.AuditResult, models.AuditResultFilter]
	ListByClient(ctx context.Context, clientID uint) ([]*models.AuditResult, error)
	LiveByPrompt(ctx context.Context, clientID, promptID uint) (*models.AuditResult, error)
	ReplaceForPrompt(ctx context.Context, result *models.AuditResult) error
	ListByCampaign(ctx context.Context, campaignUUID uuid.UUID) ([]*models.AuditResult, error)
	CountByCampaign(ctx context.Context, campaignUUID uuid.UUID) (int64, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ListByClient(ctx context.Context, clientID uint) ([]*models.Campaign, error)
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
}

// ScheduleRepository defines operations for schedules
type ScheduleRepository interface {
	Repository[models.Schedule, models.ScheduleFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Schedule, error)
	ListByClient(ctx context.Context, clientID uint) ([]*models.Schedule, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	Update(ctx context.Context, schedule models.Schedule) error
	Delete(ctx context.Context, scheduleID uint) error
}
