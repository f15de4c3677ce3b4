// Package services provides external service integrations for the audit engine
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kagemusha-ai/kagemusha/config"
	"github.com/kagemusha-ai/kagemusha/models"
)

// ScoringService queries the external audit scoring service, which runs a
// prompt against the configured answer-engine providers and returns
// per-model mention, rank, and citation data.
type ScoringService interface {
	Score(ctx context.Context, req ScoreRequest) (*ScoreData, error)
}

// ScoreRequest represents the request payload for the scoring API
type ScoreRequest struct {
	ClientID    uint     `json:"client_id"`
	PromptID    uint     `json:"prompt_id"`
	PromptText  string   `json:"prompt_text"`
	BrandName   string   `json:"brand_name"`
	BrandTags   []string `json:"brand_tags"`
	Competitors []string `json:"competitors"`
	Locale      string   `json:"locale"`
	Providers   []string `json:"providers"`
	NicheLevel  string   `json:"niche_level"`
}

// ScoreData is the payload of a successful scoring response
type ScoreData struct {
	ModelResults []models.ModelResult `json:"model_results"`
	Summary      *models.AuditSummary `json:"summary,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

// scoreResponse is the wire envelope returned by the scoring API
type scoreResponse struct {
	Success bool       `json:"success"`
	Data    *ScoreData `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// ScoringServiceImpl implements ScoringService
type ScoringServiceImpl struct {
	config *config.ScoringConfig
	client *http.Client
}

// NewScoringService creates a new scoring service client
func NewScoringService(cfg *config.ScoringConfig) ScoringService {
	return &ScoringServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Score runs one prompt through the scoring service. The context bounds the
// call; a timed-out call is indistinguishable from a failed one to callers.
func (s *ScoringServiceImpl) Score(ctx context.Context, req ScoreRequest) (*ScoreData, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.config.Endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scoring service returned status %d", resp.StatusCode)
	}

	var envelope scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, fmt.Errorf("scoring service rejected prompt %d: %s", req.PromptID, envelope.Error)
	}

	return envelope.Data, nil
}
