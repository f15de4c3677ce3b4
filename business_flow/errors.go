// Package businessflow contains the core business logic and use cases for the visibility audit engine
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Client-related errors
	ErrClientNotFound        = errors.New("client not found")
	ErrBrandNameRequired     = errors.New("brand name is required")
	ErrLastClientUndeletable = errors.New("cannot delete the last remaining client")

	// Prompt-related errors
	ErrPromptNotFound      = errors.New("prompt not found")
	ErrPromptTextRequired  = errors.New("prompt text is required")
	ErrPromptAccessDenied  = errors.New("prompt does not belong to client")
	ErrNoActivePrompts     = errors.New("client has no active prompts")
	ErrPromptAlreadyActive = errors.New("prompt is already active")

	// Orchestration errors
	ErrCampaignCreation     = errors.New("campaign creation failed")
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrScoringUnavailable   = errors.New("scoring service unavailable for entire batch")
	ErrCampaignNameRequired = errors.New("campaign name is required")
	ErrCampaignEmptyBatch   = errors.New("campaign prompt list is empty")

	// Schedule-related errors
	ErrScheduleNotFound        = errors.New("schedule not found")
	ErrScheduleNameRequired    = errors.New("schedule name is required")
	ErrScheduleIntervalInvalid = errors.New("schedule interval is invalid")
)

// BusinessError carries a machine-readable code alongside the message
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
