package businessflow

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/kagemusha-ai/kagemusha/utils"
)

// MetricsFlow recomputes every aggregate view from the in-scope result set
// on demand. Nothing here is cached or incrementally maintained; the result
// list is the single source of truth and the numbers cannot drift from it.
type MetricsFlow interface {
	Overview(ctx context.Context, clientID uint) (*dto.MetricsOverviewResponse, error)
	Summary(ctx context.Context, clientID uint) (*dto.SummaryDTO, error)
	CompetitorGap(ctx context.Context, clientID uint) ([]dto.CompetitorGapEntry, error)
	TopSources(ctx context.Context, clientID uint, limit int) ([]dto.TopSourceDTO, error)
	ModelStats(ctx context.Context, clientID uint) ([]dto.ModelStatDTO, error)
	Insights(ctx context.Context, clientID uint) (*dto.InsightsDTO, error)
}

// MetricsFlowImpl implements MetricsFlow
type MetricsFlowImpl struct {
	clientRepo repository.ClientRepository
	promptRepo repository.PromptRepository
	store      repository.ResultStore
	logger     *log.Logger
}

// NewMetricsFlow creates a new metrics flow
func NewMetricsFlow(clientRepo repository.ClientRepository, promptRepo repository.PromptRepository, store repository.ResultStore, logger *log.Logger) MetricsFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &MetricsFlowImpl{
		clientRepo: clientRepo,
		promptRepo: promptRepo,
		store:      store,
		logger:     logger,
	}
}

// scope loads the client and its in-scope result set
func (f *MetricsFlowImpl) scope(ctx context.Context, clientID uint) (*models.Client, []*models.AuditResult, error) {
	client, err := f.clientRepo.ByID(ctx, clientID)
	if err != nil {
		return nil, nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return nil, nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}

	prompts, err := f.promptRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, nil, NewBusinessError("PROMPT_LIST_FAILED", "Failed to list prompts", err)
	}

	results := f.store.LoadResults(ctx, clientID)
	return client, InScopeResults(prompts, results), nil
}

// Overview bundles every aggregate view in one pass over the result set
func (f *MetricsFlowImpl) Overview(ctx context.Context, clientID uint) (*dto.MetricsOverviewResponse, error) {
	client, inScope, err := f.scope(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &dto.MetricsOverviewResponse{
		Summary:       ComputeSummary(inScope),
		CompetitorGap: ComputeCompetitorGap(client, inScope),
		TopSources:    ComputeTopSources(inScope, 0),
		ModelStats:    ComputeModelStats(inScope),
		Insights:      ComputeInsights(client, inScope),
	}, nil
}

// Summary returns the brand-level visibility summary
func (f *MetricsFlowImpl) Summary(ctx context.Context, clientID uint) (*dto.SummaryDTO, error) {
	_, inScope, err := f.scope(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ComputeSummary(inScope), nil
}

// CompetitorGap returns the brand-vs-competitor mention table
func (f *MetricsFlowImpl) CompetitorGap(ctx context.Context, clientID uint) ([]dto.CompetitorGapEntry, error) {
	client, inScope, err := f.scope(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ComputeCompetitorGap(client, inScope), nil
}

// TopSources returns the most-cited domains
func (f *MetricsFlowImpl) TopSources(ctx context.Context, clientID uint, limit int) ([]dto.TopSourceDTO, error) {
	_, inScope, err := f.scope(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ComputeTopSources(inScope, limit), nil
}

// ModelStats returns per-provider visibility tallies
func (f *MetricsFlowImpl) ModelStats(ctx context.Context, clientID uint) ([]dto.ModelStatDTO, error) {
	_, inScope, err := f.scope(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ComputeModelStats(inScope), nil
}

// Insights returns the tiered visibility status with recommendations
func (f *MetricsFlowImpl) Insights(ctx context.Context, clientID uint) (*dto.InsightsDTO, error) {
	client, inScope, err := f.scope(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ComputeInsights(client, inScope), nil
}

// ComputeSummary averages per-result share of voice and rank over the
// in-scope set. Returns nil on an empty set so callers can distinguish
// "no data" from zero visibility.
func ComputeSummary(results []*models.AuditResult) *dto.SummaryDTO {
	if len(results) == 0 {
		return nil
	}

	summary := &dto.SummaryDTO{TotalPrompts: len(results)}

	sovSum := 0
	rankSum := 0.0
	ranked := 0
	// Costs accumulate in integer micro-dollars so the total is exact and
	// independent of input order.
	costMicros := int64(0)
	for _, r := range results {
		if r.Summary == nil {
			continue
		}
		sovSum += r.Summary.ShareOfVoice
		summary.TotalCitations += r.Summary.TotalCitations
		costMicros += int64(math.Round(r.Summary.TotalCost * 1e6))
		if r.Summary.AverageRank != nil {
			rankSum += *r.Summary.AverageRank
			ranked++
		}
	}

	summary.TotalCost = float64(costMicros) / 1e6
	summary.OverallSOV = int(math.Round(float64(sovSum) / float64(len(results))))
	if ranked > 0 {
		avg := math.Round(rankSum/float64(ranked)*10) / 10
		summary.AverageRank = &avg
	}
	return summary
}

// ComputeCompetitorGap tallies mentions for the brand and every tracked
// competitor. Brand mentions come from the structured per-provider counts;
// competitor mentions are counted by case-insensitive substring occurrences
// in the raw answer text. Every ModelResult counts, including failed calls
// that still carry response text. Entities with zero mentions stay in the
// table, and shares are whole percents of the combined mention total.
func ComputeCompetitorGap(client *models.Client, results []*models.AuditResult) []dto.CompetitorGapEntry {
	brandMentions := 0
	competitorMentions := make([]int, len(client.Competitors))

	for _, r := range results {
		for _, mr := range r.ModelResults {
			brandMentions += mr.BrandMentionCount
			lower := strings.ToLower(mr.RawResponse)
			for i, competitor := range client.Competitors {
				competitorMentions[i] += strings.Count(lower, strings.ToLower(competitor))
			}
		}
	}

	entries := make([]dto.CompetitorGapEntry, 0, 1+len(client.Competitors))
	entries = append(entries, dto.CompetitorGapEntry{Name: client.BrandName, Mentions: brandMentions})
	for i, competitor := range client.Competitors {
		entries = append(entries, dto.CompetitorGapEntry{Name: competitor, Mentions: competitorMentions[i]})
	}

	total := 0
	for _, e := range entries {
		total += e.Mentions
	}
	if total > 0 {
		for i := range entries {
			entries[i].SharePercent = int(math.Round(float64(entries[i].Mentions) / float64(total) * 100))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Mentions > entries[j].Mentions
	})
	return entries
}

// ClassifySourceDomain buckets a citation domain by substring match
func ClassifySourceDomain(domain string) string {
	lower := strings.ToLower(domain)
	switch {
	case strings.Contains(lower, "reddit") || strings.Contains(lower, "quora") || strings.Contains(lower, "youtube"):
		return "ugc"
	case strings.Contains(lower, ".gov") || strings.Contains(lower, ".edu"):
		return "institutional"
	case strings.Contains(lower, "wikipedia"):
		return "reference"
	case strings.Contains(lower, "blog") || strings.Contains(lower, "news") || strings.Contains(lower, "magazine"):
		return "editorial"
	case strings.Contains(lower, ".com") || strings.Contains(lower, ".io") || strings.Contains(lower, ".co"):
		return "corporate"
	default:
		return "other"
	}
}

// ComputeTopSources groups citations by domain across the in-scope set,
// sorted by citation count. Prompt coverage counts the distinct results
// citing the domain at least once. A limit of zero or less means no cap.
func ComputeTopSources(results []*models.AuditResult, limit int) []dto.TopSourceDTO {
	type sourceAgg struct {
		citations int
		coverage  int
	}

	aggregates := make(map[string]*sourceAgg)
	order := make([]string, 0)

	for _, r := range results {
		seenInResult := make(map[string]bool)
		for _, mr := range r.ModelResults {
			for _, c := range mr.Citations {
				if c.Domain == "" {
					continue
				}
				agg, ok := aggregates[c.Domain]
				if !ok {
					agg = &sourceAgg{}
					aggregates[c.Domain] = agg
					order = append(order, c.Domain)
				}
				agg.citations++
				if !seenInResult[c.Domain] {
					agg.coverage++
					seenInResult[c.Domain] = true
				}
			}
		}
	}

	sources := make([]dto.TopSourceDTO, 0, len(order))
	for _, domain := range order {
		agg := aggregates[domain]
		perPrompt := math.Round(float64(agg.citations)/float64(agg.coverage)*10) / 10
		sources = append(sources, dto.TopSourceDTO{
			Domain:             domain,
			Category:           ClassifySourceDomain(domain),
			TotalCitations:     agg.citations,
			PromptCoverage:     agg.coverage,
			CitationsPerPrompt: perPrompt,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].TotalCitations > sources[j].TotalCitations
	})

	if limit > 0 && len(sources) > limit {
		sources = sources[:limit]
	}
	return sources
}

// ComputeModelStats tallies per-provider visibility over the in-scope set.
// A provider is visible on a result when its call succeeded and mentioned
// the brand. Failed calls count toward the total, not toward visibility.
func ComputeModelStats(results []*models.AuditResult) []dto.ModelStatDTO {
	type providerAgg struct {
		visible int
		total   int
		cost    float64
	}

	aggregates := make(map[string]*providerAgg)
	order := make([]string, 0)

	for _, r := range results {
		for _, mr := range r.ModelResults {
			agg, ok := aggregates[mr.Provider]
			if !ok {
				agg = &providerAgg{}
				aggregates[mr.Provider] = agg
				order = append(order, mr.Provider)
			}
			agg.total++
			agg.cost += mr.Cost
			if mr.Success && mr.BrandMentioned {
				agg.visible++
			}
		}
	}

	stats := make([]dto.ModelStatDTO, 0, len(order))
	for _, provider := range order {
		agg := aggregates[provider]
		percent := 0
		if agg.total > 0 {
			percent = int(math.Round(float64(agg.visible) / float64(agg.total) * 100))
		}
		stats = append(stats, dto.ModelStatDTO{
			Provider:          provider,
			Visible:           agg.visible,
			Total:             agg.total,
			Cost:              agg.cost,
			VisibilityPercent: percent,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Provider < stats[j].Provider
	})
	return stats
}

// ComputeInsights maps the overall share of voice onto a three-tier status.
// Returns nil when there is no data to judge.
func ComputeInsights(client *models.Client, results []*models.AuditResult) *dto.InsightsDTO {
	summary := ComputeSummary(results)
	if summary == nil {
		return nil
	}

	firstCompetitor := ""
	if len(client.Competitors) > 0 {
		firstCompetitor = client.Competitors[0]
	}

	switch {
	case summary.OverallSOV >= utils.SOVHighThreshold:
		recs := []string{
			"Maintain current content coverage across tracked prompts",
			"Monitor competitor movement in high-value niches",
		}
		return &dto.InsightsDTO{Status: "high", Recommendations: recs}

	case summary.OverallSOV >= utils.SOVMediumThreshold:
		recs := []string{
			"Expand coverage of niche and super-niche prompts where visibility lags",
			"Strengthen citations from editorial and reference sources",
		}
		return &dto.InsightsDTO{Status: "medium", Recommendations: recs}

	default:
		recs := []string{
			"Publish authoritative content targeting the tracked prompt set",
			"Build presence on high-coverage UGC sources cited by answer engines",
		}
		if firstCompetitor != "" {
			recs = append(recs, fmt.Sprintf("Analyze why %s dominates answers for these prompts", firstCompetitor))
		}
		return &dto.InsightsDTO{Status: "low", Recommendations: recs}
	}
}
