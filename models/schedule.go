package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IntervalUnit represents the unit of a schedule's recurrence interval
type IntervalUnit string

const (
	IntervalUnitMinutes IntervalUnit = "minutes"
	IntervalUnitHours   IntervalUnit = "hours"
	IntervalUnitDays    IntervalUnit = "days"
	IntervalUnitWeeks   IntervalUnit = "weeks"
)

// String returns the string representation of the interval unit
func (u IntervalUnit) String() string {
	return string(u)
}

// Valid checks if the interval unit is valid
func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalUnitMinutes, IntervalUnitHours, IntervalUnitDays, IntervalUnitWeeks:
		return true
	default:
		return false
	}
}

// Duration returns the time.Duration represented by one unit
func (u IntervalUnit) Duration() time.Duration {
	switch u {
	case IntervalUnitMinutes:
		return time.Minute
	case IntervalUnitHours:
		return time.Hour
	case IntervalUnitDays:
		return 24 * time.Hour
	case IntervalUnitWeeks:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Scan implements the sql.Scanner interface for IntervalUnit
func (u *IntervalUnit) Scan(value any) error {
	if value == nil {
		*u = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*u = IntervalUnit(v)
	case []byte:
		*u = IntervalUnit(string(v))
	default:
		return fmt.Errorf("cannot scan %T into IntervalUnit", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for IntervalUnit
func (u IntervalUnit) Value() (driver.Value, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("invalid IntervalUnit: %s", u)
	}
	return string(u), nil
}

// Schedule represents a declarative recurring-audit configuration. Execution
// is delegated to the orchestrator when the schedule comes due.
type Schedule struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uk_schedules_uuid" json:"uuid"`
	ClientID      uint         `gorm:"not null;index:idx_schedules_client_id" json:"client_id"`
	PromptID      *uint        `gorm:"index:idx_schedules_prompt_id" json:"prompt_id,omitempty"`
	Name          string       `gorm:"not null;size:255" json:"name"`
	IntervalValue int          `gorm:"not null" json:"interval_value"`
	IntervalUnit  IntervalUnit `gorm:"type:varchar(16);not null" json:"interval_unit"`
	Active        *bool        `gorm:"default:true;index:idx_schedules_active" json:"active"`
	LastRunAt     *time.Time   `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time   `json:"next_run_at,omitempty"`
	RunCount      int          `gorm:"not null;default:0" json:"run_count"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     *time.Time   `json:"updated_at,omitempty"`

	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Prompt *Prompt `gorm:"foreignKey:PromptID" json:"prompt,omitempty"`
}

// TableName returns the table name for the Schedule model
func (Schedule) TableName() string {
	return "schedules"
}

// ScheduleFilter represents filter criteria for schedule queries
type ScheduleFilter struct {
	ID           *uint
	UUID         *uuid.UUID
	ClientID     *uint
	PromptID     *uint
	Active       *bool
	DueBefore    *time.Time
	CreatedAfter *time.Time
}
