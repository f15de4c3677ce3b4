package businessflow

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/app/services"
	"github.com/kagemusha-ai/kagemusha/config"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/kagemusha-ai/kagemusha/utils"
	"golang.org/x/time/rate"
)

var (
	scoringCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_scoring_calls_total",
			Help: "Total scoring service calls partitioned by outcome",
		},
		[]string{"outcome"},
	)

	scoringCostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_scoring_cost_total",
			Help: "Cumulative API cost reported by scoring calls",
		},
	)
)

// AuditFlow is the audit orchestrator. Prompts are executed strictly
// sequentially within a batch: the pacing requirement of the metered scoring
// API and the append-only result list make a single worker the simplest
// correct shape. Batches for the same client must be serialized by the
// caller.
type AuditFlow interface {
	RunFull(ctx context.Context, clientID uint) (*dto.BatchReport, error)
	RunSingle(ctx context.Context, clientID, promptID uint) (*dto.AuditResultDTO, error)
	RunCampaign(ctx context.Context, req *dto.RunCampaignRequest) (*dto.CampaignReport, error)
	CampaignStatus(ctx context.Context, campaignUUID string) (*dto.CampaignStatusResponse, error)
	ListResults(ctx context.Context, clientID uint) ([]dto.AuditResultDTO, error)
}

// AuditFlowImpl implements AuditFlow
type AuditFlowImpl struct {
	clientRepo   repository.ClientRepository
	promptRepo   repository.PromptRepository
	resultRepo   repository.AuditResultRepository
	campaignRepo repository.CampaignRepository
	store        repository.ResultStore
	scorer       services.ScoringService
	analyzer     services.SourceAnalysisService

	scoringCfg config.ScoringConfig
	sourceCfg  config.SourceAnalysisConfig

	fullLimiter     *rate.Limiter
	campaignLimiter *rate.Limiter
	logger          *log.Logger
}

// NewAuditFlow creates a new audit orchestrator
func NewAuditFlow(
	clientRepo repository.ClientRepository,
	promptRepo repository.PromptRepository,
	resultRepo repository.AuditResultRepository,
	campaignRepo repository.CampaignRepository,
	store repository.ResultStore,
	scorer services.ScoringService,
	analyzer services.SourceAnalysisService,
	scoringCfg config.ScoringConfig,
	sourceCfg config.SourceAnalysisConfig,
	auditCfg config.AuditConfig,
	logger *log.Logger,
) AuditFlow {
	if logger == nil {
		logger = log.Default()
	}
	promptPacing := auditCfg.PromptPacing
	if promptPacing <= 0 {
		promptPacing = utils.PromptPacingDelay
	}
	campaignPacing := auditCfg.CampaignPacing
	if campaignPacing <= 0 {
		campaignPacing = utils.CampaignPacingDelay
	}

	return &AuditFlowImpl{
		clientRepo:      clientRepo,
		promptRepo:      promptRepo,
		resultRepo:      resultRepo,
		campaignRepo:    campaignRepo,
		store:           store,
		scorer:          scorer,
		analyzer:        analyzer,
		scoringCfg:      scoringCfg,
		sourceCfg:       sourceCfg,
		fullLimiter:     rate.NewLimiter(rate.Every(promptPacing), 1),
		campaignLimiter: rate.NewLimiter(rate.Every(campaignPacing), 1),
		logger:          logger,
	}
}

// scorePrompt issues one bounded scoring call for a prompt
func (f *AuditFlowImpl) scorePrompt(ctx context.Context, client *models.Client, prompt *models.Prompt) (*services.ScoreData, error) {
	callCtx := ctx
	if f.scoringCfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.scoringCfg.Timeout)
		defer cancel()
	}

	data, err := f.scorer.Score(callCtx, services.ScoreRequest{
		ClientID:    client.ID,
		PromptID:    prompt.ID,
		PromptText:  prompt.Text,
		BrandName:   client.BrandName,
		BrandTags:   client.BrandTags,
		Competitors: client.Competitors,
		Locale:      client.Locale,
		Providers:   f.scoringCfg.Providers,
		NicheLevel:  prompt.NicheLevel.String(),
	})
	if err != nil {
		scoringCallsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	scoringCallsTotal.WithLabelValues("success").Inc()
	return data, nil
}

// buildResult assembles an AuditResult from a scoring response, deriving the
// per-audit summary when the service did not supply one
func buildResult(client *models.Client, prompt *models.Prompt, data *services.ScoreData, campaignUUID *uuid.UUID) *models.AuditResult {
	summary := data.Summary
	if summary == nil {
		summary = deriveSummary(data.ModelResults)
	}
	scoringCostTotal.Add(summary.TotalCost)

	return &models.AuditResult{
		UUID:         uuid.New(),
		ClientID:     client.ID,
		PromptID:     prompt.ID,
		CampaignUUID: campaignUUID,
		ModelResults: data.ModelResults,
		Summary:      summary,
		CreatedAt:    utils.UTCNow(),
	}
}

// deriveSummary computes share of voice, average rank, and totals from raw
// per-provider results
func deriveSummary(modelResults []models.ModelResult) *models.AuditSummary {
	summary := &models.AuditSummary{}

	succeeded := 0
	mentioned := 0
	rankSum := 0.0
	ranked := 0
	for _, mr := range modelResults {
		summary.TotalCost += mr.Cost
		summary.TotalCitations += len(mr.Citations)
		if !mr.Success {
			continue
		}
		succeeded++
		if mr.BrandMentioned {
			mentioned++
		}
		if mr.Rank != nil {
			rankSum += float64(*mr.Rank)
			ranked++
		}
	}

	if succeeded > 0 {
		summary.ShareOfVoice = int(math.Round(float64(mentioned) / float64(succeeded) * 100))
	}
	if ranked > 0 {
		avg := math.Round(rankSum/float64(ranked)*10) / 10
		summary.AverageRank = &avg
	}
	return summary
}

// RunFull audits every active prompt of the client that has no live result
// yet. Prompts with existing results are skipped, so a partially completed
// run can be resumed without duplicating work. A single prompt failure never
// aborts the batch; the failed prompt simply stays absent from the result
// set and will be reattempted on the next invocation.
func (f *AuditFlowImpl) RunFull(ctx context.Context, clientID uint) (*dto.BatchReport, error) {
	client, err := f.ownedClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	prompts, err := f.promptRepo.ListActiveByClient(ctx, clientID)
	if err != nil {
		return nil, NewBusinessError("AUDIT_PROMPT_LIST_FAILED", "Failed to list active prompts", err)
	}
	if len(prompts) == 0 {
		return nil, NewBusinessError("AUDIT_NO_ACTIVE_PROMPTS", "Client has no active prompts", ErrNoActivePrompts)
	}

	have := make(map[uint]bool)
	for _, r := range f.store.LoadResults(ctx, clientID) {
		if r.CampaignUUID == nil {
			have[r.PromptID] = true
		}
	}

	report := &dto.BatchReport{
		Total:  len(prompts),
		Errors: make(map[uint]string),
	}

	for _, prompt := range prompts {
		if have[prompt.ID] {
			report.Skipped++
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, NewBusinessError("AUDIT_CANCELED", "Batch canceled", err)
		}
		if err := f.fullLimiter.Wait(ctx); err != nil {
			return report, NewBusinessError("AUDIT_CANCELED", "Batch canceled", err)
		}

		report.Attempted++
		data, err := f.scorePrompt(ctx, client, prompt)
		if err != nil {
			report.Failed++
			report.Errors[prompt.ID] = err.Error()
			f.logger.Printf("audit flow: prompt %d failed, continuing batch: %v", prompt.ID, err)
			continue
		}

		result := buildResult(client, prompt, data, nil)
		f.store.SaveResult(ctx, clientID, result)
		report.Succeeded++
	}

	if report.Attempted > 0 && report.Succeeded == 0 {
		return report, NewBusinessError("AUDIT_SCORING_UNAVAILABLE", "Scoring service unavailable for entire batch", ErrScoringUnavailable)
	}

	f.logger.Printf("audit flow: full run for client %d: %d of %d attempted prompts failed", clientID, report.Failed, report.Attempted)
	return report, nil
}

// RunSingle runs or re-runs exactly one prompt. An existing live result is
// replaced in place rather than appended. A successful run may trigger the
// optional source-analysis enrichment; enrichment failure never rolls back
// the primary result.
func (f *AuditFlowImpl) RunSingle(ctx context.Context, clientID, promptID uint) (*dto.AuditResultDTO, error) {
	client, err := f.ownedClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	prompt, err := f.promptRepo.ByID(ctx, promptID)
	if err != nil {
		return nil, NewBusinessError("PROMPT_LOOKUP_FAILED", "Failed to look up prompt", err)
	}
	if prompt == nil {
		return nil, NewBusinessError("PROMPT_NOT_FOUND", "Prompt not found", ErrPromptNotFound)
	}
	if prompt.ClientID != clientID {
		return nil, NewBusinessError("PROMPT_ACCESS_DENIED", "Prompt does not belong to client", ErrPromptAccessDenied)
	}

	data, err := f.scorePrompt(ctx, client, prompt)
	if err != nil {
		return nil, NewBusinessError("AUDIT_SCORING_FAILED", "Scoring service call failed", err)
	}

	result := buildResult(client, prompt, data, nil)

	existing, err := f.resultRepo.LiveByPrompt(ctx, clientID, promptID)
	if err != nil {
		f.logger.Printf("audit flow: live-slot lookup failed for prompt %d, appending instead: %v", promptID, err)
	}
	if existing != nil {
		f.store.ReplaceResult(ctx, clientID, result)
	} else {
		f.store.SaveResult(ctx, clientID, result)
	}

	f.enrich(ctx, client, prompt)

	out := ToAuditResultDTO(*result)
	return &out, nil
}

// enrich issues the optional source-analysis call after a single run
func (f *AuditFlowImpl) enrich(ctx context.Context, client *models.Client, prompt *models.Prompt) {
	if f.analyzer == nil || !f.sourceCfg.Enabled {
		return
	}

	callCtx := ctx
	if f.sourceCfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.sourceCfg.Timeout)
		defer cancel()
	}

	_, err := f.analyzer.Analyze(callCtx, services.SourceAnalysisRequest{
		ClientID:    client.ID,
		PromptID:    prompt.ID,
		PromptText:  prompt.Text,
		BrandName:   client.BrandName,
		Competitors: client.Competitors,
	})
	if err != nil {
		f.logger.Printf("audit flow: enrichment failed for prompt %d (primary result kept): %v", prompt.ID, err)
	}
}

// RunCampaign audits a named batch of prompts. The campaign record is
// created before any audit call; if creation fails, nothing runs. Campaign
// results are always appended, tagged with the campaign uuid, and paced more
// slowly than full runs.
func (f *AuditFlowImpl) RunCampaign(ctx context.Context, req *dto.RunCampaignRequest) (*dto.CampaignReport, error) {
	client, err := f.ownedClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewBusinessError("CAMPAIGN_NAME_REQUIRED", "Campaign name is required", ErrCampaignNameRequired)
	}
	if len(req.PromptIDs) == 0 {
		return nil, NewBusinessError("CAMPAIGN_EMPTY_BATCH", "Campaign prompt list is empty", ErrCampaignEmptyBatch)
	}

	campaign := &models.Campaign{
		UUID:         uuid.New(),
		ClientID:     client.ID,
		Name:         req.Name,
		PromptIDs:    models.PromptIDList(req.PromptIDs),
		Status:       models.CampaignStatusRunning,
		TotalPrompts: len(req.PromptIDs),
		CreatedAt:    utils.UTCNow(),
	}
	if err := f.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Campaign creation failed", ErrCampaignCreation)
	}

	report := dto.BatchReport{
		Total:  len(req.PromptIDs),
		Errors: make(map[uint]string),
	}

	for _, promptID := range req.PromptIDs {
		if err := ctx.Err(); err != nil {
			f.finishCampaign(ctx, campaign, &report)
			return &dto.CampaignReport{
				CampaignUUID: campaign.UUID.String(),
				Name:         campaign.Name,
				Status:       campaign.Status.String(),
				Report:       report,
			}, NewBusinessError("AUDIT_CANCELED", "Campaign canceled", err)
		}
		if err := f.campaignLimiter.Wait(ctx); err != nil {
			f.finishCampaign(ctx, campaign, &report)
			return &dto.CampaignReport{
				CampaignUUID: campaign.UUID.String(),
				Name:         campaign.Name,
				Status:       campaign.Status.String(),
				Report:       report,
			}, NewBusinessError("AUDIT_CANCELED", "Campaign canceled", err)
		}

		report.Attempted++

		prompt, err := f.promptRepo.ByID(ctx, promptID)
		if err == nil && (prompt == nil || prompt.ClientID != client.ID) {
			err = ErrPromptNotFound
		}
		if err != nil {
			report.Failed++
			report.Errors[promptID] = err.Error()
			continue
		}

		data, err := f.scorePrompt(ctx, client, prompt)
		if err != nil {
			report.Failed++
			report.Errors[promptID] = err.Error()
			f.logger.Printf("audit flow: campaign %s prompt %d failed, continuing: %v", campaign.UUID, promptID, err)
			continue
		}

		campaignUUID := campaign.UUID
		result := buildResult(client, prompt, data, &campaignUUID)
		f.store.SaveResult(ctx, client.ID, result)
		report.Succeeded++
	}

	f.finishCampaign(ctx, campaign, &report)

	return &dto.CampaignReport{
		CampaignUUID: campaign.UUID.String(),
		Name:         campaign.Name,
		Status:       campaign.Status.String(),
		Report:       report,
	}, nil
}

// finishCampaign records the terminal status: completed once every prompt
// was attempted, error only when the scoring service was unavailable for
// the whole batch. Partial results are preserved either way.
func (f *AuditFlowImpl) finishCampaign(ctx context.Context, campaign *models.Campaign, report *dto.BatchReport) {
	status := models.CampaignStatusCompleted
	if report.Attempted > 0 && report.Succeeded == 0 {
		status = models.CampaignStatusError
	}
	campaign.Status = status

	if err := f.campaignRepo.UpdateStatus(ctx, campaign.ID, status); err != nil {
		f.logger.Printf("audit flow: failed to update campaign %s status to %s: %v", campaign.UUID, status, err)
	}
}

// CampaignStatus derives campaign progress from results tagged with the
// campaign uuid; the campaign row itself holds no mutable counter.
func (f *AuditFlowImpl) CampaignStatus(ctx context.Context, campaignUUID string) (*dto.CampaignStatusResponse, error) {
	campaign, err := f.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to look up campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	completed, err := f.resultRepo.CountByCampaign(ctx, campaign.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PROGRESS_FAILED", "Failed to derive campaign progress", err)
	}

	return &dto.CampaignStatusResponse{
		CampaignUUID: campaign.UUID.String(),
		Name:         campaign.Name,
		Status:       campaign.Status.String(),
		TotalPrompts: campaign.TotalPrompts,
		Completed:    int(completed),
	}, nil
}

// ListResults returns the client's stored results in write order
func (f *AuditFlowImpl) ListResults(ctx context.Context, clientID uint) ([]dto.AuditResultDTO, error) {
	if _, err := f.ownedClient(ctx, clientID); err != nil {
		return nil, err
	}

	results := f.store.LoadResults(ctx, clientID)
	out := make([]dto.AuditResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, ToAuditResultDTO(*r))
	}
	return out, nil
}

func (f *AuditFlowImpl) ownedClient(ctx context.Context, clientID uint) (*models.Client, error) {
	client, err := f.clientRepo.ByID(ctx, clientID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}
	return client, nil
}
