package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/config"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditFixture struct {
	clients   *fakeClientRepo
	prompts   *fakePromptRepo
	results   *fakeResultRepo
	campaigns *fakeCampaignRepo
	store     *memoryStore
	scorer    *fakeScorer
	flow      AuditFlow
}

func newAuditFixture() *auditFixture {
	f := &auditFixture{
		clients:   newFakeClientRepo(),
		prompts:   newFakePromptRepo(),
		results:   newFakeResultRepo(),
		campaigns: newFakeCampaignRepo(),
		scorer:    newFakeScorer(),
	}
	f.store = newMemoryStore(f.results)
	f.flow = NewAuditFlow(
		f.clients, f.prompts, f.results, f.campaigns, f.store,
		f.scorer, nil,
		config.ScoringConfig{Timeout: 5 * time.Second, Providers: []string{utils.ProviderOpenAI}},
		config.SourceAnalysisConfig{},
		config.AuditConfig{PromptPacing: time.Millisecond, CampaignPacing: time.Millisecond},
		nil,
	)
	return f
}

func TestRunFull(t *testing.T) {
	ctx := context.Background()

	t.Run("audits every active prompt", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		seedPrompt(f.prompts, client.ID, "best crm software")
		seedPrompt(f.prompts, client.ID, "top marketing tools")

		report, err := f.flow.RunFull(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Total)
		assert.Equal(t, 2, report.Attempted)
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 0, report.Skipped)
		assert.Len(t, f.results.results, 2)
	})

	t.Run("skips prompts with existing live results", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		audited := seedPrompt(f.prompts, client.ID, "best crm software")
		seedPrompt(f.prompts, client.ID, "top marketing tools")
		seedResult(f.results, client.ID, audited.ID, 50)

		report, err := f.flow.RunFull(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, 1, report.Attempted)
		assert.NotContains(t, f.scorer.calls, audited.ID)
	})

	t.Run("resumes after partial failure without duplicating work", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		good := seedPrompt(f.prompts, client.ID, "best crm software")
		bad := seedPrompt(f.prompts, client.ID, "top marketing tools")
		f.scorer.failures[bad.ID] = errScoringDown

		report, err := f.flow.RunFull(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Succeeded)
		assert.Equal(t, 1, report.Failed)
		assert.Contains(t, report.Errors, bad.ID)

		// Second invocation only re-attempts the failed prompt
		delete(f.scorer.failures, bad.ID)
		f.scorer.calls = nil
		report, err = f.flow.RunFull(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, 1, report.Succeeded)
		assert.NotContains(t, f.scorer.calls, good.ID)
	})

	t.Run("reports batch-level error when every attempt fails", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		seedPrompt(f.prompts, client.ID, "best crm software")
		f.scorer.failAll = errScoringDown

		report, err := f.flow.RunFull(ctx, client.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrScoringUnavailable)
		require.NotNil(t, report)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("rejects client without active prompts", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")

		_, err := f.flow.RunFull(ctx, client.ID)
		assert.ErrorIs(t, err, ErrNoActivePrompts)
	})

	t.Run("stops between prompts on cancellation", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		seedPrompt(f.prompts, client.ID, "best crm software")

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		report, err := f.flow.RunFull(canceled, client.ID)
		require.Error(t, err)
		require.NotNil(t, report)
		assert.Equal(t, 0, report.Attempted)
	})
}

func TestRunSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the live result in place", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")
		seedResult(f.results, client.ID, prompt.ID, 0)

		f.scorer.responses[prompt.ID] = scoreData(utils.ProviderOpenAI, true, utils.ToPtr(1), nil, 0.02)

		result, err := f.flow.RunSingle(ctx, client.ID, prompt.ID)
		require.NoError(t, err)
		require.NotNil(t, result.Summary)
		assert.Equal(t, 100, result.Summary.ShareOfVoice)

		// Still exactly one live result for the prompt
		assert.Len(t, f.results.results, 1)
		assert.Equal(t, 100, f.results.results[0].Summary.ShareOfVoice)
	})

	t.Run("appends when no live result exists", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")

		_, err := f.flow.RunSingle(ctx, client.ID, prompt.ID)
		require.NoError(t, err)
		assert.Len(t, f.results.results, 1)
	})

	t.Run("rejects prompts of other clients", func(t *testing.T) {
		f := newAuditFixture()
		owner := seedClient(f.clients, "Acme")
		other := seedClient(f.clients, "Globex")
		prompt := seedPrompt(f.prompts, owner.ID, "best crm software")

		_, err := f.flow.RunSingle(ctx, other.ID, prompt.ID)
		assert.ErrorIs(t, err, ErrPromptAccessDenied)
	})

	t.Run("surfaces scoring failure without writing", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")
		f.scorer.failures[prompt.ID] = errScoringDown

		_, err := f.flow.RunSingle(ctx, client.ID, prompt.ID)
		require.Error(t, err)
		assert.Empty(t, f.results.results)
	})
}

func TestRunCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("tags every result with the campaign uuid", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		p1 := seedPrompt(f.prompts, client.ID, "best crm software")
		p2 := seedPrompt(f.prompts, client.ID, "top marketing tools")

		report, err := f.flow.RunCampaign(ctx, &dto.RunCampaignRequest{
			ClientID:  client.ID,
			Name:      "Q3 sweep",
			PromptIDs: []uint{p1.ID, p2.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusCompleted.String(), report.Status)
		assert.Equal(t, 2, report.Report.Succeeded)

		for _, result := range f.results.results {
			require.NotNil(t, result.CampaignUUID)
			assert.Equal(t, report.CampaignUUID, result.CampaignUUID.String())
		}
	})

	t.Run("aborts before any audit when creation fails", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")
		f.campaigns.failSave = errScoringDown

		_, err := f.flow.RunCampaign(ctx, &dto.RunCampaignRequest{
			ClientID:  client.ID,
			Name:      "Q3 sweep",
			PromptIDs: []uint{prompt.ID},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCampaignCreation)
		assert.Empty(t, f.scorer.calls)
	})

	t.Run("campaign results never replace live results", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")
		live := seedResult(f.results, client.ID, prompt.ID, 50)

		_, err := f.flow.RunCampaign(ctx, &dto.RunCampaignRequest{
			ClientID:  client.ID,
			Name:      "Q3 sweep",
			PromptIDs: []uint{prompt.ID},
		})
		require.NoError(t, err)
		assert.Len(t, f.results.results, 2)
		assert.Equal(t, 50, live.Summary.ShareOfVoice)
	})

	t.Run("marks error status only when the entire batch fails", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")
		f.scorer.failAll = errScoringDown

		report, err := f.flow.RunCampaign(ctx, &dto.RunCampaignRequest{
			ClientID:  client.ID,
			Name:      "Q3 sweep",
			PromptIDs: []uint{prompt.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusError.String(), report.Status)
		assert.Equal(t, 1, report.Report.Failed)
	})

	t.Run("validates name and prompt list", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")

		_, err := f.flow.RunCampaign(ctx, &dto.RunCampaignRequest{ClientID: client.ID, Name: " ", PromptIDs: []uint{1}})
		assert.ErrorIs(t, err, ErrCampaignNameRequired)

		_, err = f.flow.RunCampaign(ctx, &dto.RunCampaignRequest{ClientID: client.ID, Name: "Q3", PromptIDs: nil})
		assert.ErrorIs(t, err, ErrCampaignEmptyBatch)
	})
}

func TestCampaignStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("derives progress from tagged results", func(t *testing.T) {
		f := newAuditFixture()
		client := seedClient(f.clients, "Acme")
		p1 := seedPrompt(f.prompts, client.ID, "best crm software")
		p2 := seedPrompt(f.prompts, client.ID, "top marketing tools")
		bad := seedPrompt(f.prompts, client.ID, "enterprise crm pricing")
		f.scorer.failures[bad.ID] = errScoringDown

		report, err := f.flow.RunCampaign(ctx, &dto.RunCampaignRequest{
			ClientID:  client.ID,
			Name:      "Q3 sweep",
			PromptIDs: []uint{p1.ID, p2.ID, bad.ID},
		})
		require.NoError(t, err)

		status, err := f.flow.CampaignStatus(ctx, report.CampaignUUID)
		require.NoError(t, err)
		assert.Equal(t, 3, status.TotalPrompts)
		assert.Equal(t, 2, status.Completed)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		f := newAuditFixture()
		_, err := f.flow.CampaignStatus(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})
}
