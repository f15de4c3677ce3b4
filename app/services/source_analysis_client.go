package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kagemusha-ai/kagemusha/config"
)

// SourceAnalysisService is the optional enrichment service issued after a
// successful single-prompt run. Its failure never invalidates the primary
// audit result.
type SourceAnalysisService interface {
	Analyze(ctx context.Context, req SourceAnalysisRequest) (*SourceAnalysisResult, error)
}

// SourceAnalysisRequest represents the request payload for the enrichment API
type SourceAnalysisRequest struct {
	ClientID    uint     `json:"client_id"`
	PromptID    uint     `json:"prompt_id"`
	PromptText  string   `json:"prompt_text"`
	BrandName   string   `json:"brand_name"`
	Competitors []string `json:"competitors"`
	Depth       string   `json:"depth"`
	MaxResults  int      `json:"max_results"`
}

// AnalyzedSource is one source surfaced by the enrichment service
type AnalyzedSource struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Domain  string `json:"domain"`
	Snippet string `json:"snippet,omitempty"`
}

// SourceAnalysisResult is the payload of a successful enrichment response
type SourceAnalysisResult struct {
	Sources []AnalyzedSource `json:"sources"`
	Answer  string           `json:"answer,omitempty"`
}

// sourceAnalysisResponse is the wire envelope returned by the enrichment API
type sourceAnalysisResponse struct {
	Success bool             `json:"success"`
	Sources []AnalyzedSource `json:"sources,omitempty"`
	Answer  string           `json:"answer,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// SourceAnalysisServiceImpl implements SourceAnalysisService
type SourceAnalysisServiceImpl struct {
	config *config.SourceAnalysisConfig
	client *http.Client
}

// NewSourceAnalysisService creates a new source analysis client
func NewSourceAnalysisService(cfg *config.SourceAnalysisConfig) SourceAnalysisService {
	return &SourceAnalysisServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Analyze requests a deeper source breakdown for one prompt
func (s *SourceAnalysisServiceImpl) Analyze(ctx context.Context, req SourceAnalysisRequest) (*SourceAnalysisResult, error) {
	if req.Depth == "" {
		req.Depth = s.config.Depth
	}
	if req.MaxResults == 0 {
		req.MaxResults = s.config.MaxResults
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.config.Endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("source analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("source analysis service returned status %d", resp.StatusCode)
	}

	var envelope sourceAnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode source analysis response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("source analysis rejected prompt %d: %s", req.PromptID, envelope.Error)
	}

	return &SourceAnalysisResult{
		Sources: envelope.Sources,
		Answer:  envelope.Answer,
	}, nil
}
