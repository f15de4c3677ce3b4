package dto

// SummaryDTO is the brand-level visibility summary across the in-scope
// result set. A nil SummaryDTO means "no data", which is distinct from zero
// visibility.
type SummaryDTO struct {
	TotalPrompts   int      `json:"total_prompts"`
	OverallSOV     int      `json:"overall_sov"`
	AverageRank    *float64 `json:"average_rank,omitempty"`
	TotalCitations int      `json:"total_citations"`
	TotalCost      float64  `json:"total_cost"`
}

// CompetitorGapEntry is one entity in the competitor gap table
type CompetitorGapEntry struct {
	Name         string `json:"name"`
	Mentions     int    `json:"mentions"`
	SharePercent int    `json:"share_percent"`
}

// TopSourceDTO aggregates citations for one domain
type TopSourceDTO struct {
	Domain             string  `json:"domain"`
	Category           string  `json:"category"`
	TotalCitations     int     `json:"total_citations"`
	PromptCoverage     int     `json:"prompt_coverage"`
	CitationsPerPrompt float64 `json:"citations_per_prompt"`
}

// ModelStatDTO tallies visibility per provider
type ModelStatDTO struct {
	Provider          string  `json:"provider"`
	Visible           int     `json:"visible"`
	Total             int     `json:"total"`
	Cost              float64 `json:"cost"`
	VisibilityPercent int     `json:"visibility_percent"`
}

// InsightsDTO carries the three-tier visibility status with recommendations
type InsightsDTO struct {
	Status          string   `json:"status"`
	Recommendations []string `json:"recommendations"`
}

// MetricsOverviewResponse bundles every aggregate view for a client
type MetricsOverviewResponse struct {
	Summary       *SummaryDTO          `json:"summary,omitempty"`
	CompetitorGap []CompetitorGapEntry `json:"competitor_gap"`
	TopSources    []TopSourceDTO       `json:"top_sources"`
	ModelStats    []ModelStatDTO       `json:"model_stats"`
	Insights      *InsightsDTO         `json:"insights,omitempty"`
}
