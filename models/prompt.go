package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NicheLevel represents the coarse specificity classification of a prompt
type NicheLevel string

const (
	NicheLevelBroad      NicheLevel = "broad"
	NicheLevelNiche      NicheLevel = "niche"
	NicheLevelSuperNiche NicheLevel = "super-niche"
)

// String returns the string representation of the niche level
func (n NicheLevel) String() string {
	return string(n)
}

// Valid checks if the niche level is valid
func (n NicheLevel) Valid() bool {
	switch n {
	case NicheLevelBroad, NicheLevelNiche, NicheLevelSuperNiche:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for NicheLevel
func (n *NicheLevel) Scan(value any) error {
	if value == nil {
		*n = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*n = NicheLevel(v)
	case []byte:
		*n = NicheLevel(string(v))
	default:
		return fmt.Errorf("cannot scan %T into NicheLevel", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for NicheLevel
func (n NicheLevel) Value() (driver.Value, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("invalid NicheLevel: %s", n)
	}
	return string(n), nil
}

// DefaultCategory returns the category assigned when the caller does not supply one
func (n NicheLevel) DefaultCategory() string {
	switch n {
	case NicheLevelSuperNiche:
		return "Long-tail"
	case NicheLevelNiche:
		return "Qualified"
	default:
		return "General"
	}
}

// Prompt represents a natural-language query audited against answer engines.
// Prompts are never hard-deleted once they have produced audit history;
// deletion is modeled as Active=false so historical results stay inspectable.
type Prompt struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_prompts_uuid" json:"uuid"`
	ClientID   uint       `gorm:"not null;index:idx_prompts_client_id" json:"client_id"`
	Text       string     `gorm:"not null;type:text" json:"text"`
	Category   string     `gorm:"size:128" json:"category"`
	NicheLevel NicheLevel `gorm:"type:varchar(16);not null;default:'broad'" json:"niche_level"`
	Active     *bool      `gorm:"default:true;index:idx_prompts_active" json:"active"`
	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`

	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// TableName returns the table name for the Prompt model
func (Prompt) TableName() string {
	return "prompts"
}

// PromptFilter represents filter criteria for prompt queries
type PromptFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	ClientID      *uint
	Category      *string
	NicheLevel    *NicheLevel
	Active        *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
