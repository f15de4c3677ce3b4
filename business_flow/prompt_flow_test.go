package businessflow

import (
	"context"
	"testing"

	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNicheLevel(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.NicheLevel
	}{
		{"plain short prompt", "crm software", models.NicheLevelBroad},
		{"niche qualifier", "best crm software", models.NicheLevelNiche},
		{"niche qualifier case insensitive", "Premium CRM tools", models.NicheLevelNiche},
		{"super-niche qualifier", "crm software for beginners", models.NicheLevelSuperNiche},
		{"super-niche audience", "skincare for women over 40", models.NicheLevelSuperNiche},
		{"long prompt", "what is the most reliable customer relationship management platform for small European consulting firms", models.NicheLevelSuperNiche},
		{"super-niche wins over niche", "best organic skincare", models.NicheLevelSuperNiche},
		{"exactly at word threshold stays broad", "one two three four five six seven eight nine ten", models.NicheLevelBroad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyNicheLevel(tt.text))
		})
	}
}

func TestAddPrompt(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies and defaults the category", func(t *testing.T) {
		prompts := newFakePromptRepo()
		results := newFakeResultRepo()
		flow := NewPromptFlow(prompts, newMemoryStore(results), nil)

		created, err := flow.AddPrompt(ctx, &dto.AddPromptRequest{ClientID: 1, Text: "best crm software"})
		require.NoError(t, err)
		assert.Equal(t, "niche", created.NicheLevel)
		assert.Equal(t, "Qualified", created.Category)
		assert.True(t, created.Active)
	})

	t.Run("explicit category wins", func(t *testing.T) {
		prompts := newFakePromptRepo()
		flow := NewPromptFlow(prompts, newMemoryStore(newFakeResultRepo()), nil)

		created, err := flow.AddPrompt(ctx, &dto.AddPromptRequest{ClientID: 1, Text: "crm software", Category: "Product"})
		require.NoError(t, err)
		assert.Equal(t, "Product", created.Category)
	})

	t.Run("rejects blank text", func(t *testing.T) {
		flow := NewPromptFlow(newFakePromptRepo(), newMemoryStore(newFakeResultRepo()), nil)

		_, err := flow.AddPrompt(ctx, &dto.AddPromptRequest{ClientID: 1, Text: "   "})
		assert.ErrorIs(t, err, ErrPromptTextRequired)
	})
}

func TestAddMany(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a batch", func(t *testing.T) {
		prompts := newFakePromptRepo()
		flow := NewPromptFlow(prompts, newMemoryStore(newFakeResultRepo()), nil)

		created, err := flow.AddMany(ctx, &dto.AddManyPromptsRequest{
			ClientID: 1,
			Texts:    []string{"crm software", "best crm software"},
		})
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, "broad", created[0].NicheLevel)
		assert.Equal(t, "niche", created[1].NicheLevel)
	})

	t.Run("rejects any blank entry", func(t *testing.T) {
		prompts := newFakePromptRepo()
		flow := NewPromptFlow(prompts, newMemoryStore(newFakeResultRepo()), nil)

		_, err := flow.AddMany(ctx, &dto.AddManyPromptsRequest{ClientID: 1, Texts: []string{"ok", " "}})
		assert.ErrorIs(t, err, ErrPromptTextRequired)
		assert.Empty(t, prompts.prompts)
	})
}

func TestDeactivateReactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivation removes results from scope, reactivation restores them", func(t *testing.T) {
		clients := newFakeClientRepo()
		prompts := newFakePromptRepo()
		results := newFakeResultRepo()
		store := newMemoryStore(results)
		flow := NewPromptFlow(prompts, store, nil)

		client := seedClient(clients, "Acme")
		prompt := seedPrompt(prompts, client.ID, "best crm software")
		seedResult(results, client.ID, prompt.ID, 80)

		require.NoError(t, flow.Deactivate(ctx, client.ID, prompt.ID))
		inScope := InScopeResults(prompts.prompts, store.LoadResults(ctx, client.ID))
		assert.Empty(t, inScope)

		// The historical result itself is untouched
		assert.Len(t, results.results, 1)

		require.NoError(t, flow.Reactivate(ctx, client.ID, prompt.ID))
		inScope = InScopeResults(prompts.prompts, store.LoadResults(ctx, client.ID))
		require.Len(t, inScope, 1)
		assert.Equal(t, 80, inScope[0].Summary.ShareOfVoice)
	})

	t.Run("rejects prompts of other clients", func(t *testing.T) {
		prompts := newFakePromptRepo()
		flow := NewPromptFlow(prompts, newMemoryStore(newFakeResultRepo()), nil)
		prompt := seedPrompt(prompts, 1, "best crm software")

		err := flow.Deactivate(ctx, 2, prompt.ID)
		assert.ErrorIs(t, err, ErrPromptAccessDenied)
	})
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()

	t.Run("removes prompts and drops the cached view only", func(t *testing.T) {
		prompts := newFakePromptRepo()
		results := newFakeResultRepo()
		store := newMemoryStore(results)
		flow := NewPromptFlow(prompts, store, nil)

		seedPrompt(prompts, 1, "crm software")
		seedPrompt(prompts, 1, "best crm software")
		seedPrompt(prompts, 2, "other client prompt")
		seedResult(results, 1, 1, 50)

		resp, err := flow.ClearAll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.PromptsRemoved)

		remaining, _ := prompts.ListByClient(ctx, 1)
		assert.Empty(t, remaining)
		other, _ := prompts.ListByClient(ctx, 2)
		assert.Len(t, other, 1)

		// Authoritative history survives the reset
		assert.Len(t, results.results, 1)
		assert.Equal(t, 1, store.cleared)
	})
}

func TestListPrompts(t *testing.T) {
	ctx := context.Background()

	prompts := newFakePromptRepo()
	flow := NewPromptFlow(prompts, newMemoryStore(newFakeResultRepo()), nil)

	first := seedPrompt(prompts, 1, "crm software")
	second := seedPrompt(prompts, 1, "best crm software")
	_ = prompts.SetActive(ctx, second.ID, false)

	listed, err := flow.ListPrompts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.Text, listed[0].Text)
	assert.True(t, listed[0].Active)
	assert.False(t, listed[1].Active)
}
