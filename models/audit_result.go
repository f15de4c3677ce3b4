package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Citation represents a single source referenced by a provider's response
type Citation struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Domain string `json:"domain"`
}

// ModelResult holds the outcome of querying one provider for one prompt.
// Immutable once written.
type ModelResult struct {
	Provider          string     `json:"provider"`
	Success           bool       `json:"success"`
	BrandMentioned    bool       `json:"brand_mentioned"`
	BrandMentionCount int        `json:"brand_mention_count"`
	Rank              *int       `json:"rank,omitempty"`
	Citations         []Citation `json:"citations,omitempty"`
	Cost              float64    `json:"cost"`
	RawResponse       string     `json:"raw_response,omitempty"`
}

// ModelResultList is the JSONB column type holding all per-provider results of an audit
type ModelResultList []ModelResult

// Value implements the driver.Valuer interface for ModelResultList
func (l ModelResultList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for ModelResultList
func (l *ModelResultList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ModelResultList", value)
	}

	return json.Unmarshal(bytes, l)
}

// AuditSummary holds the derived per-audit metrics
type AuditSummary struct {
	ShareOfVoice   int      `json:"share_of_voice"`
	AverageRank    *float64 `json:"average_rank,omitempty"`
	TotalCitations int      `json:"total_citations"`
	TotalCost      float64  `json:"total_cost"`
}

// Value implements the driver.Valuer interface for AuditSummary
func (s AuditSummary) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for AuditSummary
func (s *AuditSummary) Scan(value any) error {
	if value == nil {
		*s = AuditSummary{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AuditSummary", value)
	}

	return json.Unmarshal(bytes, s)
}

// AuditResult represents one audited run of a prompt. Outside campaigns there
// is at most one live result per prompt; campaign runs are additive and keyed
// by CampaignUUID.
type AuditResult struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_audit_results_uuid" json:"uuid"`
	ClientID     uint            `gorm:"not null;index:idx_audit_results_client_id" json:"client_id"`
	PromptID     uint            `gorm:"not null;index:idx_audit_results_prompt_id" json:"prompt_id"`
	CampaignUUID *uuid.UUID      `gorm:"type:uuid;index:idx_audit_results_campaign_uuid" json:"campaign_uuid,omitempty"`
	ModelResults ModelResultList `gorm:"type:jsonb" json:"model_results"`
	Summary      *AuditSummary   `gorm:"type:jsonb" json:"summary,omitempty"`

	// Flattened summary columns written by older ingest paths. Read-side code
	// must call Normalize so consumers only ever see the nested Summary.
	SOVPercent     *int     `gorm:"column:sov_percent" json:"sov_percent,omitempty"`
	AverageRank    *float64 `gorm:"column:average_rank" json:"average_rank,omitempty"`
	TotalCitations *int     `gorm:"column:total_citations" json:"total_citations,omitempty"`
	TotalCost      *float64 `gorm:"column:total_cost" json:"total_cost,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Prompt *Prompt `gorm:"foreignKey:PromptID" json:"prompt,omitempty"`
}

// TableName returns the table name for the AuditResult model
func (AuditResult) TableName() string {
	return "audit_results"
}

// Normalize folds flattened summary columns into the nested Summary when the
// nested form is absent. Safe to call repeatedly.
func (r *AuditResult) Normalize() {
	if r.Summary != nil {
		return
	}
	if r.SOVPercent == nil && r.AverageRank == nil && r.TotalCitations == nil && r.TotalCost == nil {
		return
	}

	summary := &AuditSummary{}
	if r.SOVPercent != nil {
		summary.ShareOfVoice = *r.SOVPercent
	}
	if r.AverageRank != nil {
		summary.AverageRank = r.AverageRank
	}
	if r.TotalCitations != nil {
		summary.TotalCitations = *r.TotalCitations
	}
	if r.TotalCost != nil {
		summary.TotalCost = *r.TotalCost
	}
	r.Summary = summary
}

// IsCampaignRun reports whether this result was produced by a campaign batch
func (r *AuditResult) IsCampaignRun() bool {
	return r.CampaignUUID != nil
}

// AuditResultFilter represents filter criteria for audit result queries
type AuditResultFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	ClientID      *uint
	PromptID      *uint
	CampaignUUID  *uuid.UUID
	LiveOnly      bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
