package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/app/services"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/utils"
)

// In-memory repository fakes. They honor only the filter fields the flows
// actually use.

type fakeClientRepo struct {
	clients []*models.Client
	nextID  uint
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{nextID: 1}
}

func (r *fakeClientRepo) ByID(ctx context.Context, id uint) (*models.Client, error) {
	for _, c := range r.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeClientRepo) ByFilter(ctx context.Context, filter models.ClientFilter, orderBy string, limit, offset int) ([]*models.Client, error) {
	return r.clients, nil
}

func (r *fakeClientRepo) Save(ctx context.Context, client *models.Client) error {
	if client.ID == 0 {
		client.ID = r.nextID
		r.nextID++
		r.clients = append(r.clients, client)
	}
	return nil
}

func (r *fakeClientRepo) SaveBatch(ctx context.Context, clients []*models.Client) error {
	for _, c := range clients {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeClientRepo) Count(ctx context.Context, filter models.ClientFilter) (int64, error) {
	return int64(len(r.clients)), nil
}

func (r *fakeClientRepo) Exists(ctx context.Context, filter models.ClientFilter) (bool, error) {
	return len(r.clients) > 0, nil
}

func (r *fakeClientRepo) ByUUID(ctx context.Context, raw string) (*models.Client, error) {
	for _, c := range r.clients {
		if c.UUID.String() == raw {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeClientRepo) Current(ctx context.Context) (*models.Client, error) {
	for _, c := range r.clients {
		if utils.IsTrue(c.IsCurrent) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeClientRepo) SetCurrent(ctx context.Context, clientID uint) error {
	for _, c := range r.clients {
		c.IsCurrent = utils.ToPtr(c.ID == clientID)
	}
	return nil
}

func (r *fakeClientRepo) List(ctx context.Context) ([]*models.Client, error) {
	return r.clients, nil
}

func (r *fakeClientRepo) Update(ctx context.Context, client models.Client) error {
	for i, c := range r.clients {
		if c.ID == client.ID {
			r.clients[i] = &client
			return nil
		}
	}
	return errors.New("client not found")
}

func (r *fakeClientRepo) Delete(ctx context.Context, clientID uint) error {
	for i, c := range r.clients {
		if c.ID == clientID {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakePromptRepo struct {
	prompts []*models.Prompt
	nextID  uint
}

func newFakePromptRepo() *fakePromptRepo {
	return &fakePromptRepo{nextID: 1}
}

func (r *fakePromptRepo) ByID(ctx context.Context, id uint) (*models.Prompt, error) {
	for _, p := range r.prompts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePromptRepo) ByFilter(ctx context.Context, filter models.PromptFilter, orderBy string, limit, offset int) ([]*models.Prompt, error) {
	return r.prompts, nil
}

func (r *fakePromptRepo) Save(ctx context.Context, prompt *models.Prompt) error {
	if prompt.ID == 0 {
		prompt.ID = r.nextID
		r.nextID++
		r.prompts = append(r.prompts, prompt)
	}
	return nil
}

func (r *fakePromptRepo) SaveBatch(ctx context.Context, prompts []*models.Prompt) error {
	for _, p := range prompts {
		if err := r.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakePromptRepo) Count(ctx context.Context, filter models.PromptFilter) (int64, error) {
	if filter.ClientID == nil {
		return int64(len(r.prompts)), nil
	}
	var count int64
	for _, p := range r.prompts {
		if p.ClientID == *filter.ClientID {
			count++
		}
	}
	return count, nil
}

func (r *fakePromptRepo) Exists(ctx context.Context, filter models.PromptFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *fakePromptRepo) ByUUID(ctx context.Context, raw string) (*models.Prompt, error) {
	for _, p := range r.prompts {
		if p.UUID.String() == raw {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePromptRepo) ListByClient(ctx context.Context, clientID uint) ([]*models.Prompt, error) {
	out := make([]*models.Prompt, 0)
	for _, p := range r.prompts {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePromptRepo) ListActiveByClient(ctx context.Context, clientID uint) ([]*models.Prompt, error) {
	out := make([]*models.Prompt, 0)
	for _, p := range r.prompts {
		if p.ClientID == clientID && utils.IsTrue(p.Active) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePromptRepo) ByClientAndText(ctx context.Context, clientID uint, text string) (*models.Prompt, error) {
	for _, p := range r.prompts {
		if p.ClientID == clientID && p.Text == text {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePromptRepo) SetActive(ctx context.Context, promptID uint, active bool) error {
	for _, p := range r.prompts {
		if p.ID == promptID {
			p.Active = utils.ToPtr(active)
			return nil
		}
	}
	return errors.New("prompt not found")
}

func (r *fakePromptRepo) Update(ctx context.Context, prompt models.Prompt) error {
	for i, p := range r.prompts {
		if p.ID == prompt.ID {
			r.prompts[i] = &prompt
			return nil
		}
	}
	return errors.New("prompt not found")
}

func (r *fakePromptRepo) DeleteByClient(ctx context.Context, clientID uint) error {
	kept := r.prompts[:0]
	for _, p := range r.prompts {
		if p.ClientID != clientID {
			kept = append(kept, p)
		}
	}
	r.prompts = kept
	return nil
}

type fakeResultRepo struct {
	results  []*models.AuditResult
	nextID   uint
	failNext error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{nextID: 1}
}

func (r *fakeResultRepo) ByID(ctx context.Context, id uint) (*models.AuditResult, error) {
	for _, res := range r.results {
		if res.ID == id {
			return res, nil
		}
	}
	return nil, nil
}

func (r *fakeResultRepo) ByFilter(ctx context.Context, filter models.AuditResultFilter, orderBy string, limit, offset int) ([]*models.AuditResult, error) {
	return r.results, nil
}

func (r *fakeResultRepo) Save(ctx context.Context, result *models.AuditResult) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	if result.ID == 0 {
		result.ID = r.nextID
		r.nextID++
		r.results = append(r.results, result)
	}
	return nil
}

func (r *fakeResultRepo) SaveBatch(ctx context.Context, results []*models.AuditResult) error {
	for _, res := range results {
		if err := r.Save(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeResultRepo) Count(ctx context.Context, filter models.AuditResultFilter) (int64, error) {
	return int64(len(r.results)), nil
}

func (r *fakeResultRepo) Exists(ctx context.Context, filter models.AuditResultFilter) (bool, error) {
	return len(r.results) > 0, nil
}

func (r *fakeResultRepo) ListByClient(ctx context.Context, clientID uint) ([]*models.AuditResult, error) {
	out := make([]*models.AuditResult, 0)
	for _, res := range r.results {
		if res.ClientID == clientID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) LiveByPrompt(ctx context.Context, clientID, promptID uint) (*models.AuditResult, error) {
	var latest *models.AuditResult
	for _, res := range r.results {
		if res.ClientID == clientID && res.PromptID == promptID && res.CampaignUUID == nil {
			latest = res
		}
	}
	return latest, nil
}

func (r *fakeResultRepo) ReplaceForPrompt(ctx context.Context, result *models.AuditResult) error {
	for i, res := range r.results {
		if res.ClientID == result.ClientID && res.PromptID == result.PromptID && res.CampaignUUID == nil {
			result.ID = res.ID
			r.results[i] = result
			return nil
		}
	}
	return r.Save(ctx, result)
}

func (r *fakeResultRepo) ListByCampaign(ctx context.Context, campaignUUID uuid.UUID) ([]*models.AuditResult, error) {
	out := make([]*models.AuditResult, 0)
	for _, res := range r.results {
		if res.CampaignUUID != nil && *res.CampaignUUID == campaignUUID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) CountByCampaign(ctx context.Context, campaignUUID uuid.UUID) (int64, error) {
	results, err := r.ListByCampaign(ctx, campaignUUID)
	return int64(len(results)), err
}

type fakeCampaignRepo struct {
	campaigns []*models.Campaign
	nextID    uint
	failSave  error
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{nextID: 1}
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	for _, c := range r.campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	return r.campaigns, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, campaign *models.Campaign) error {
	if r.failSave != nil {
		return r.failSave
	}
	if campaign.ID == 0 {
		campaign.ID = r.nextID
		r.nextID++
		r.campaigns = append(r.campaigns, campaign)
	}
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, campaigns []*models.Campaign) error {
	for _, c := range campaigns {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	return int64(len(r.campaigns)), nil
}

func (r *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	return len(r.campaigns) > 0, nil
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, raw string) (*models.Campaign, error) {
	for _, c := range r.campaigns {
		if c.UUID.String() == raw {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ListByClient(ctx context.Context, clientID uint) ([]*models.Campaign, error) {
	out := make([]*models.Campaign, 0)
	for _, c := range r.campaigns {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	for _, c := range r.campaigns {
		if c.ID == id {
			c.Status = status
			return nil
		}
	}
	return errors.New("campaign not found")
}

type fakeScheduleRepo struct {
	schedules []*models.Schedule
	nextID    uint
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{nextID: 1}
}

func (r *fakeScheduleRepo) ByID(ctx context.Context, id uint) (*models.Schedule, error) {
	for _, s := range r.schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeScheduleRepo) ByFilter(ctx context.Context, filter models.ScheduleFilter, orderBy string, limit, offset int) ([]*models.Schedule, error) {
	return r.schedules, nil
}

func (r *fakeScheduleRepo) Save(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == 0 {
		schedule.ID = r.nextID
		r.nextID++
		r.schedules = append(r.schedules, schedule)
	}
	return nil
}

func (r *fakeScheduleRepo) SaveBatch(ctx context.Context, schedules []*models.Schedule) error {
	for _, s := range schedules {
		if err := r.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeScheduleRepo) Count(ctx context.Context, filter models.ScheduleFilter) (int64, error) {
	return int64(len(r.schedules)), nil
}

func (r *fakeScheduleRepo) Exists(ctx context.Context, filter models.ScheduleFilter) (bool, error) {
	return len(r.schedules) > 0, nil
}

func (r *fakeScheduleRepo) ByUUID(ctx context.Context, raw string) (*models.Schedule, error) {
	for _, s := range r.schedules {
		if s.UUID.String() == raw {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeScheduleRepo) ListByClient(ctx context.Context, clientID uint) ([]*models.Schedule, error) {
	out := make([]*models.Schedule, 0)
	for _, s := range r.schedules {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	out := make([]*models.Schedule, 0)
	for _, s := range r.schedules {
		if utils.IsTrue(s.Active) && s.NextRunAt != nil && s.NextRunAt.Before(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Update(ctx context.Context, schedule models.Schedule) error {
	for i, s := range r.schedules {
		if s.ID == schedule.ID {
			r.schedules[i] = &schedule
			return nil
		}
	}
	return errors.New("schedule not found")
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, scheduleID uint) error {
	for i, s := range r.schedules {
		if s.ID == scheduleID {
			r.schedules = append(r.schedules[:i], r.schedules[i+1:]...)
			return nil
		}
	}
	return nil
}

// memoryStore implements repository.ResultStore directly over the result
// fake, skipping the cache tier entirely
type memoryStore struct {
	results *fakeResultRepo
	cleared int
}

func newMemoryStore(results *fakeResultRepo) *memoryStore {
	return &memoryStore{results: results}
}

func (s *memoryStore) LoadResults(ctx context.Context, clientID uint) []*models.AuditResult {
	results, _ := s.results.ListByClient(ctx, clientID)
	return results
}

func (s *memoryStore) LoadPrompts(ctx context.Context, clientID uint) []*models.Prompt {
	return nil
}

func (s *memoryStore) SaveResult(ctx context.Context, clientID uint, result *models.AuditResult) {
	_ = s.results.Save(ctx, result)
}

func (s *memoryStore) ReplaceResult(ctx context.Context, clientID uint, result *models.AuditResult) {
	_ = s.results.ReplaceForPrompt(ctx, result)
}

func (s *memoryStore) ClearCachedResults(ctx context.Context, clientID uint) {
	s.cleared++
}

func (s *memoryStore) RefreshCache(ctx context.Context, clientID uint) {}

// fakeScorer returns canned per-prompt responses or errors
type fakeScorer struct {
	responses map[uint]*services.ScoreData
	failures  map[uint]error
	failAll   error
	calls     []uint
}

func newFakeScorer() *fakeScorer {
	return &fakeScorer{
		responses: make(map[uint]*services.ScoreData),
		failures:  make(map[uint]error),
	}
}

func (s *fakeScorer) Score(ctx context.Context, req services.ScoreRequest) (*services.ScoreData, error) {
	s.calls = append(s.calls, req.PromptID)
	if s.failAll != nil {
		return nil, s.failAll
	}
	if err, ok := s.failures[req.PromptID]; ok {
		return nil, err
	}
	if data, ok := s.responses[req.PromptID]; ok {
		return data, nil
	}
	return &services.ScoreData{
		ModelResults: []models.ModelResult{
			{Provider: utils.ProviderOpenAI, Success: true, BrandMentioned: true, BrandMentionCount: 1, Cost: 0.01},
		},
		Timestamp: utils.UTCNow(),
	}, nil
}

// Shared fixture helpers

func seedClient(repo *fakeClientRepo, brand string, competitors ...string) *models.Client {
	client := &models.Client{
		UUID:        uuid.New(),
		BrandName:   brand,
		Competitors: competitors,
		Locale:      "en-US",
		IsCurrent:   utils.ToPtr(len(repo.clients) == 0),
	}
	_ = repo.Save(context.Background(), client)
	return client
}

func seedPrompt(repo *fakePromptRepo, clientID uint, text string) *models.Prompt {
	prompt := &models.Prompt{
		UUID:       uuid.New(),
		ClientID:   clientID,
		Text:       text,
		Category:   "General",
		NicheLevel: models.NicheLevelBroad,
		Active:     utils.ToPtr(true),
	}
	_ = repo.Save(context.Background(), prompt)
	return prompt
}

func seedResult(repo *fakeResultRepo, clientID, promptID uint, sov int) *models.AuditResult {
	result := &models.AuditResult{
		UUID:     uuid.New(),
		ClientID: clientID,
		PromptID: promptID,
		ModelResults: []models.ModelResult{
			{Provider: utils.ProviderOpenAI, Success: true, BrandMentioned: sov > 0, BrandMentionCount: 1, Cost: 0.01},
		},
		Summary:   &models.AuditSummary{ShareOfVoice: sov, TotalCitations: 1, TotalCost: 0.01},
		CreatedAt: utils.UTCNow(),
	}
	_ = repo.Save(context.Background(), result)
	return result
}

func scoreData(provider string, mentioned bool, rank *int, citations []models.Citation, cost float64) *services.ScoreData {
	return &services.ScoreData{
		ModelResults: []models.ModelResult{
			{
				Provider:          provider,
				Success:           true,
				BrandMentioned:    mentioned,
				BrandMentionCount: 1,
				Rank:              rank,
				Citations:         citations,
				Cost:              cost,
			},
		},
		Timestamp: utils.UTCNow(),
	}
}

var errScoringDown = fmt.Errorf("scoring service unreachable")
