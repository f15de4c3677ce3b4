package dto

// RunSingleRequest represents the request to run or re-run exactly one prompt
type RunSingleRequest struct {
	ClientID uint `json:"-"`
	PromptID uint `json:"prompt_id" validate:"required"`
}

// RunCampaignRequest represents the request to run a named campaign batch
type RunCampaignRequest struct {
	ClientID  uint   `json:"-"`
	Name      string `json:"name" validate:"required,min=1,max=255"`
	PromptIDs []uint `json:"prompt_ids" validate:"required,min=1"`
}

// CitationDTO represents a single citation in responses
type CitationDTO struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Domain string `json:"domain"`
}

// ModelResultDTO represents one provider's outcome for one prompt
type ModelResultDTO struct {
	Provider          string        `json:"provider"`
	Success           bool          `json:"success"`
	BrandMentioned    bool          `json:"brand_mentioned"`
	BrandMentionCount int           `json:"brand_mention_count"`
	Rank              *int          `json:"rank,omitempty"`
	Citations         []CitationDTO `json:"citations,omitempty"`
	Cost              float64       `json:"cost"`
}

// AuditSummaryDTO represents the derived per-audit metrics
type AuditSummaryDTO struct {
	ShareOfVoice   int      `json:"share_of_voice"`
	AverageRank    *float64 `json:"average_rank,omitempty"`
	TotalCitations int      `json:"total_citations"`
	TotalCost      float64  `json:"total_cost"`
}

// AuditResultDTO represents one audited prompt run in responses
type AuditResultDTO struct {
	UUID         string           `json:"uuid"`
	PromptID     uint             `json:"prompt_id"`
	CampaignUUID string           `json:"campaign_uuid,omitempty"`
	ModelResults []ModelResultDTO `json:"model_results"`
	Summary      *AuditSummaryDTO `json:"summary,omitempty"`
	CreatedAt    string           `json:"created_at"`
}

// BatchReport summarizes a full-run batch: per-prompt failures are isolated
// and reported in aggregate rather than aborting the batch.
type BatchReport struct {
	Total     int             `json:"total"`
	Attempted int             `json:"attempted"`
	Skipped   int             `json:"skipped"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    map[uint]string `json:"errors,omitempty"`
}

// CampaignReport summarizes a campaign batch run
type CampaignReport struct {
	CampaignUUID string      `json:"campaign_uuid"`
	Name         string      `json:"name"`
	Status       string      `json:"status"`
	Report       BatchReport `json:"report"`
}

// CampaignStatusResponse reports derived campaign progress. Completed counts
// are computed from results tagged with the campaign, never stored.
type CampaignStatusResponse struct {
	CampaignUUID string `json:"campaign_uuid"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	TotalPrompts int    `json:"total_prompts"`
	Completed    int    `json:"completed"`
}
