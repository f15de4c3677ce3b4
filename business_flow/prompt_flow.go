package businessflow

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/kagemusha-ai/kagemusha/utils"
)

// nicheQualifiers mark a prompt as targeting a qualified audience
var nicheQualifiers = []string{"premium", "professional", "best", "luxury", "affordable", "top rated"}

// superNicheQualifiers mark a prompt as targeting a narrow segment
var superNicheQualifiers = []string{"over 40", "over 50", "organic", "halal", "vegan", "gluten free", "for beginners", "near me"}

// ClassifyNicheLevel derives the niche level of a prompt from word count and
// keyword presence. Narrow qualifiers or length beyond the word threshold win
// over audience qualifiers.
func ClassifyNicheLevel(text string) models.NicheLevel {
	lower := strings.ToLower(text)

	for _, q := range superNicheQualifiers {
		if strings.Contains(lower, q) {
			return models.NicheLevelSuperNiche
		}
	}
	if len(strings.Fields(text)) > utils.SuperNicheWordCount {
		return models.NicheLevelSuperNiche
	}
	for _, q := range nicheQualifiers {
		if strings.Contains(lower, q) {
			return models.NicheLevelNiche
		}
	}
	return models.NicheLevelBroad
}

// PromptFlow is the prompt registry: CRUD plus the active/inactive lifecycle.
// Prompts with audit history are never hard-deleted; deactivation only
// removes them from the aggregation view.
type PromptFlow interface {
	AddPrompt(ctx context.Context, req *dto.AddPromptRequest) (*dto.PromptDTO, error)
	AddMany(ctx context.Context, req *dto.AddManyPromptsRequest) ([]dto.PromptDTO, error)
	Deactivate(ctx context.Context, clientID, promptID uint) error
	Reactivate(ctx context.Context, clientID, promptID uint) error
	ClearAll(ctx context.Context, clientID uint) (*dto.ClearPromptsResponse, error)
	ListPrompts(ctx context.Context, clientID uint) ([]dto.PromptDTO, error)
}

// PromptFlowImpl implements PromptFlow
type PromptFlowImpl struct {
	promptRepo repository.PromptRepository
	store      repository.ResultStore
	logger     *log.Logger
}

// NewPromptFlow creates a new prompt flow
func NewPromptFlow(promptRepo repository.PromptRepository, store repository.ResultStore, logger *log.Logger) PromptFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &PromptFlowImpl{
		promptRepo: promptRepo,
		store:      store,
		logger:     logger,
	}
}

func (f *PromptFlowImpl) buildPrompt(clientID uint, text, category string) *models.Prompt {
	nicheLevel := ClassifyNicheLevel(text)
	if category == "" {
		category = nicheLevel.DefaultCategory()
	}
	return &models.Prompt{
		UUID:       uuid.New(),
		ClientID:   clientID,
		Text:       text,
		Category:   category,
		NicheLevel: nicheLevel,
		Active:     utils.ToPtr(true),
	}
}

// AddPrompt registers a single prompt, classifying its niche level from the text
func (f *PromptFlowImpl) AddPrompt(ctx context.Context, req *dto.AddPromptRequest) (*dto.PromptDTO, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, NewBusinessError("PROMPT_TEXT_REQUIRED", "Prompt text is required", ErrPromptTextRequired)
	}

	prompt := f.buildPrompt(req.ClientID, text, req.Category)
	if err := f.promptRepo.Save(ctx, prompt); err != nil {
		return nil, NewBusinessError("PROMPT_CREATE_FAILED", "Failed to create prompt", err)
	}

	out := ToPromptDTO(*prompt)
	return &out, nil
}

// AddMany registers a batch of prompts. Identical texts are kept as given;
// deduplication is the caller's responsibility.
func (f *PromptFlowImpl) AddMany(ctx context.Context, req *dto.AddManyPromptsRequest) ([]dto.PromptDTO, error) {
	prompts := make([]*models.Prompt, 0, len(req.Texts))
	for _, raw := range req.Texts {
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, NewBusinessError("PROMPT_TEXT_REQUIRED", "Prompt text is required", ErrPromptTextRequired)
		}
		prompts = append(prompts, f.buildPrompt(req.ClientID, text, req.Category))
	}

	if err := f.promptRepo.SaveBatch(ctx, prompts); err != nil {
		return nil, NewBusinessError("PROMPT_BATCH_CREATE_FAILED", "Failed to create prompts", err)
	}

	out := make([]dto.PromptDTO, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, ToPromptDTO(*p))
	}
	return out, nil
}

func (f *PromptFlowImpl) ownedPrompt(ctx context.Context, clientID, promptID uint) (*models.Prompt, error) {
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
	return prompt, nil
}

// Deactivate soft-deletes a prompt. Its audit results are untouched; only
// the current aggregation view changes, and it is recomputed immediately.
func (f *PromptFlowImpl) Deactivate(ctx context.Context, clientID, promptID uint) error {
	if _, err := f.ownedPrompt(ctx, clientID, promptID); err != nil {
		return err
	}

	if err := f.promptRepo.SetActive(ctx, promptID, false); err != nil {
		return NewBusinessError("PROMPT_DEACTIVATE_FAILED", "Failed to deactivate prompt", err)
	}

	f.store.RefreshCache(ctx, clientID)
	return nil
}

// Reactivate restores a soft-deleted prompt. Its most recent historical
// result re-enters the aggregation view without re-invoking the scoring
// service.
func (f *PromptFlowImpl) Reactivate(ctx context.Context, clientID, promptID uint) error {
	if _, err := f.ownedPrompt(ctx, clientID, promptID); err != nil {
		return err
	}

	if err := f.promptRepo.SetActive(ctx, promptID, true); err != nil {
		return NewBusinessError("PROMPT_REACTIVATE_FAILED", "Failed to reactivate prompt", err)
	}

	f.store.RefreshCache(ctx, clientID)
	return nil
}

// ClearAll removes every prompt of the client and drops the cached current
// result view. This is a working-set reset, not a purge: historical
// AuditResult rows in the authoritative store are NOT deleted, and a later
// authoritative read may resurface them for re-added prompts.
func (f *PromptFlowImpl) ClearAll(ctx context.Context, clientID uint) (*dto.ClearPromptsResponse, error) {
	count, err := f.promptRepo.Count(ctx, models.PromptFilter{ClientID: &clientID})
	if err != nil {
		return nil, NewBusinessError("PROMPT_COUNT_FAILED", "Failed to count prompts", err)
	}

	if err := f.promptRepo.DeleteByClient(ctx, clientID); err != nil {
		return nil, NewBusinessError("PROMPT_CLEAR_FAILED", "Failed to clear prompts", err)
	}

	f.store.ClearCachedResults(ctx, clientID)
	f.logger.Printf("prompt flow: cleared %d prompts for client %d (working-set reset, history retained)", count, clientID)

	return &dto.ClearPromptsResponse{
		Message:        "Prompt working set cleared; historical audit results retained",
		PromptsRemoved: count,
	}, nil
}

// ListPrompts returns the client's full prompt registry in insertion order
func (f *PromptFlowImpl) ListPrompts(ctx context.Context, clientID uint) ([]dto.PromptDTO, error) {
	prompts, err := f.promptRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, NewBusinessError("PROMPT_LIST_FAILED", "Failed to list prompts", err)
	}

	out := make([]dto.PromptDTO, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, ToPromptDTO(*p))
	}
	return out, nil
}
