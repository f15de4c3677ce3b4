// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/models"
)

// ToClientDTO converts a client model to its response representation
func ToClientDTO(client models.Client) dto.ClientDTO {
	return dto.ClientDTO{
		ID:          client.ID,
		UUID:        client.UUID.String(),
		BrandName:   client.BrandName,
		BrandTags:   client.BrandTags,
		Competitors: client.Competitors,
		Locale:      client.Locale,
		IsCurrent:   client.IsCurrent != nil && *client.IsCurrent,
		CreatedAt:   client.CreatedAt.Format(time.RFC3339),
	}
}

// ToPromptDTO converts a prompt model to its response representation
func ToPromptDTO(prompt models.Prompt) dto.PromptDTO {
	return dto.PromptDTO{
		ID:         prompt.ID,
		UUID:       prompt.UUID.String(),
		ClientID:   prompt.ClientID,
		Text:       prompt.Text,
		Category:   prompt.Category,
		NicheLevel: prompt.NicheLevel.String(),
		Active:     prompt.Active != nil && *prompt.Active,
		CreatedAt:  prompt.CreatedAt.Format(time.RFC3339),
	}
}

// ToAuditResultDTO converts an audit result model to its response representation
func ToAuditResultDTO(result models.AuditResult) dto.AuditResultDTO {
	out := dto.AuditResultDTO{
		UUID:         result.UUID.String(),
		PromptID:     result.PromptID,
		ModelResults: make([]dto.ModelResultDTO, 0, len(result.ModelResults)),
		CreatedAt:    result.CreatedAt.Format(time.RFC3339),
	}
	if result.CampaignUUID != nil {
		out.CampaignUUID = result.CampaignUUID.String()
	}
	if result.Summary != nil {
		out.Summary = &dto.AuditSummaryDTO{
			ShareOfVoice:   result.Summary.ShareOfVoice,
			AverageRank:    result.Summary.AverageRank,
			TotalCitations: result.Summary.TotalCitations,
			TotalCost:      result.Summary.TotalCost,
		}
	}
	for _, mr := range result.ModelResults {
		citations := make([]dto.CitationDTO, 0, len(mr.Citations))
		for _, c := range mr.Citations {
			citations = append(citations, dto.CitationDTO{URL: c.URL, Title: c.Title, Domain: c.Domain})
		}
		out.ModelResults = append(out.ModelResults, dto.ModelResultDTO{
			Provider:          mr.Provider,
			Success:           mr.Success,
			BrandMentioned:    mr.BrandMentioned,
			BrandMentionCount: mr.BrandMentionCount,
			Rank:              mr.Rank,
			Citations:         citations,
			Cost:              mr.Cost,
		})
	}
	return out
}

// ToScheduleDTO converts a schedule model to its response representation
func ToScheduleDTO(schedule models.Schedule) dto.ScheduleDTO {
	out := dto.ScheduleDTO{
		ID:            schedule.ID,
		UUID:          schedule.UUID.String(),
		ClientID:      schedule.ClientID,
		PromptID:      schedule.PromptID,
		Name:          schedule.Name,
		IntervalValue: schedule.IntervalValue,
		IntervalUnit:  schedule.IntervalUnit.String(),
		Active:        schedule.Active != nil && *schedule.Active,
		RunCount:      schedule.RunCount,
	}
	if schedule.LastRunAt != nil {
		out.LastRunAt = schedule.LastRunAt.Format(time.RFC3339)
	}
	if schedule.NextRunAt != nil {
		out.NextRunAt = schedule.NextRunAt.Format(time.RFC3339)
	}
	return out
}

// InScopeResults filters a client's stored results down to the aggregation
// input set: the most recent live (non-campaign) result of every active
// prompt. Soft-deleted prompts drop out of scope without their results being
// touched; reactivated prompts re-enter with their historical result.
func InScopeResults(prompts []*models.Prompt, results []*models.AuditResult) []*models.AuditResult {
	active := make(map[uint]bool, len(prompts))
	for _, p := range prompts {
		if p.Active != nil && *p.Active {
			active[p.ID] = true
		}
	}

	latest := make(map[uint]*models.AuditResult)
	order := make([]uint, 0, len(results))
	for _, r := range results {
		if r.CampaignUUID != nil || !active[r.PromptID] {
			continue
		}
		if _, seen := latest[r.PromptID]; !seen {
			order = append(order, r.PromptID)
		}
		latest[r.PromptID] = r
	}

	inScope := make([]*models.AuditResult, 0, len(latest))
	for _, promptID := range order {
		inScope = append(inScope, latest[promptID])
	}
	return inScope
}
