package businessflow

import (
	"context"
	"testing"

	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddClient(t *testing.T) {
	ctx := context.Background()

	t.Run("first client becomes current", func(t *testing.T) {
		repo := newFakeClientRepo()
		flow := NewClientFlow(repo, nil)

		first, err := flow.AddClient(ctx, &dto.AddClientRequest{BrandName: "Acme"})
		require.NoError(t, err)
		assert.True(t, first.IsCurrent)
		assert.Equal(t, "en-US", first.Locale)

		second, err := flow.AddClient(ctx, &dto.AddClientRequest{BrandName: "Globex", Locale: "de-DE"})
		require.NoError(t, err)
		assert.False(t, second.IsCurrent)
		assert.Equal(t, "de-DE", second.Locale)
	})

	t.Run("rejects blank brand name", func(t *testing.T) {
		flow := NewClientFlow(newFakeClientRepo(), nil)

		_, err := flow.AddClient(ctx, &dto.AddClientRequest{BrandName: "  "})
		assert.ErrorIs(t, err, ErrBrandNameRequired)
	})
}

func TestSelectClient(t *testing.T) {
	ctx := context.Background()

	repo := newFakeClientRepo()
	flow := NewClientFlow(repo, nil)
	acme := seedClient(repo, "Acme")
	globex := seedClient(repo, "Globex")

	require.NoError(t, flow.SelectClient(ctx, globex.ID))
	assert.False(t, utils.IsTrue(acme.IsCurrent))
	assert.True(t, utils.IsTrue(globex.IsCurrent))

	err := flow.SelectClient(ctx, 999)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestDeleteClient(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses to delete the last client", func(t *testing.T) {
		repo := newFakeClientRepo()
		flow := NewClientFlow(repo, nil)
		only := seedClient(repo, "Acme")

		_, err := flow.DeleteClient(ctx, only.ID)
		assert.ErrorIs(t, err, ErrLastClientUndeletable)
		assert.Len(t, repo.clients, 1)
	})

	t.Run("deleting the current client reselects deterministically", func(t *testing.T) {
		repo := newFakeClientRepo()
		flow := NewClientFlow(repo, nil)
		current := seedClient(repo, "Acme")
		next := seedClient(repo, "Globex")
		seedClient(repo, "Initech")

		resp, err := flow.DeleteClient(ctx, current.ID)
		require.NoError(t, err)
		assert.Equal(t, next.ID, resp.NewCurrentID)
		assert.Equal(t, 2, resp.RemainingCount)
		assert.True(t, utils.IsTrue(next.IsCurrent))
	})

	t.Run("deleting a non-current client keeps the selection", func(t *testing.T) {
		repo := newFakeClientRepo()
		flow := NewClientFlow(repo, nil)
		current := seedClient(repo, "Acme")
		other := seedClient(repo, "Globex")

		resp, err := flow.DeleteClient(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, current.ID, resp.NewCurrentID)
		assert.True(t, utils.IsTrue(current.IsCurrent))
	})

	t.Run("unknown client", func(t *testing.T) {
		repo := newFakeClientRepo()
		flow := NewClientFlow(repo, nil)
		seedClient(repo, "Acme")
		seedClient(repo, "Globex")

		_, err := flow.DeleteClient(ctx, 999)
		assert.ErrorIs(t, err, ErrClientNotFound)
	})
}
