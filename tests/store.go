package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
)

// TestKeyValueStore checks the behaviour every core.KeyValueStore must have.
func TestKeyValueStore(t *testing.T, store core.KeyValueStore) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrKeyNotFound)
	})

	t.Run("set & get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "assignment_draft_a1_u1", `{"answers":{"0":"A"}}`))
		val, err := store.Get(ctx, "assignment_draft_a1_u1")
		require.NoError(t, err)
		assert.Equal(t, `{"answers":{"0":"A"}}`, val)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "token", "t1"))
		require.NoError(t, store.Set(ctx, "token", "t2"))
		val, err := store.Get(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "t2", val)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "quiz_start_a1_u1", "2021-01-10T09:00:00Z"))
		require.NoError(t, store.Clear(ctx, "quiz_start_a1_u1"))
		_, err := store.Get(ctx, "quiz_start_a1_u1")
		assert.ErrorIs(t, err, core.ErrKeyNotFound)
	})

	t.Run("clear missing key", func(t *testing.T) {
		assert.NoError(t, store.Clear(ctx, "never_set"))
	})

	t.Run("keys are isolated", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k_a_u1", "one"))
		require.NoError(t, store.Set(ctx, "k_a_u2", "two"))
		val, err := store.Get(ctx, "k_a_u1")
		require.NoError(t, err)
		assert.Equal(t, "one", val)
	})
}
