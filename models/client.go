// Package models contains the database models and filter types for the visibility audit engine
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Client represents a tracked brand and owns all prompts, audit results, campaigns, and schedules
type Client struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_clients_uuid" json:"uuid"`
	BrandName   string         `gorm:"not null;size:255" json:"brand_name"`
	BrandTags   pq.StringArray `gorm:"type:text[]" json:"brand_tags"`
	Competitors pq.StringArray `gorm:"type:text[]" json:"competitors"`
	Locale      string         `gorm:"size:16;default:'en-US'" json:"locale"`
	IsCurrent   *bool          `gorm:"default:false;index:idx_clients_is_current" json:"is_current"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`

	Prompts   []Prompt      `gorm:"foreignKey:ClientID" json:"prompts,omitempty"`
	Results   []AuditResult `gorm:"foreignKey:ClientID" json:"results,omitempty"`
	Campaigns []Campaign    `gorm:"foreignKey:ClientID" json:"campaigns,omitempty"`
	Schedules []Schedule    `gorm:"foreignKey:ClientID" json:"schedules,omitempty"`
}

// TableName returns the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

// ClientFilter represents filter criteria for client queries
type ClientFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	BrandName     *string
	IsCurrent     *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// MentionTargets returns the brand name plus alias tags used for mention matching
func (c *Client) MentionTargets() []string {
	targets := make([]string, 0, len(c.BrandTags)+1)
	targets = append(targets, c.BrandName)
	targets = append(targets, c.BrandTags...)
	return targets
}
