package dto

// CreateScheduleRequest represents the request to create a recurring audit
type CreateScheduleRequest struct {
	ClientID      uint   `json:"-"`
	PromptID      *uint  `json:"prompt_id,omitempty"`
	Name          string `json:"name" validate:"required,min=1,max=255"`
	IntervalValue int    `json:"interval_value" validate:"required,min=1"`
	IntervalUnit  string `json:"interval_unit" validate:"required,oneof=minutes hours days weeks"`
}

// ToggleScheduleRequest represents the request to enable or disable a schedule
type ToggleScheduleRequest struct {
	ScheduleID uint `json:"-"`
	Active     bool `json:"active"`
}

// ScheduleDTO represents a schedule in responses
type ScheduleDTO struct {
	ID            uint   `json:"id"`
	UUID          string `json:"uuid"`
	ClientID      uint   `json:"client_id"`
	PromptID      *uint  `json:"prompt_id,omitempty"`
	Name          string `json:"name"`
	IntervalValue int    `json:"interval_value"`
	IntervalUnit  string `json:"interval_unit"`
	Active        bool   `json:"active"`
	LastRunAt     string `json:"last_run_at,omitempty"`
	NextRunAt     string `json:"next_run_at,omitempty"`
	RunCount      int    `json:"run_count"`
}
