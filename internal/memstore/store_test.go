package memstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cogito/internal/prompt"
	"github.com/normanking/cogito/internal/tier"
)

var _ prompt.MemoryContextProvider = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"), "agent-1")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRememberAndRetrieve(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Remember(ctx, "database migration", "last migration took 40 minutes", 0.9))
	require.NoError(t, s.Remember(ctx, "database migration", "rollback script lives in ops/rollback.sql", 0.6))
	require.NoError(t, s.Remember(ctx, "lunch plans", "team prefers thai food", 0.5))

	got, err := s.GetContextForTier(ctx, tier.Deliberate, "database migration")
	require.NoError(t, err)
	assert.Contains(t, got, "40 minutes")
	assert.Contains(t, got, "rollback script")
	assert.NotContains(t, got, "thai food")

	// Highest relevance first.
	assert.Less(t, strings.Index(got, "40 minutes"), strings.Index(got, "rollback script"))
}

func TestNoMatchesIsEmptyNotError(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetContextForTier(context.Background(), tier.Deliberate, "unrelated topic")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeeperTiersRetrieveMore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Remember(ctx, "deploy process",
			"deploy note number "+strings.Repeat("x", i+1), 0.5))
	}

	shallow, err := s.GetContextForTier(ctx, tier.Reactive, "deploy process")
	require.NoError(t, err)
	deep, err := s.GetContextForTier(ctx, tier.Analytical, "deploy process")
	require.NoError(t, err)

	assert.Greater(t, strings.Count(deep, "\n"), strings.Count(shallow, "\n"))
}

func TestRememberValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.Remember(ctx, "topic", "   ", 0.5))

	// Relevance outside [0,1] is clamped, not rejected.
	require.NoError(t, s.Remember(ctx, "topic", "clamped high", 3.0))
	require.NoError(t, s.Remember(ctx, "topic", "clamped low", -1.0))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAgentIsolation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.db")

	a, err := Open(path, "agent-a")
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Remember(context.Background(), "shared topic", "agent a's memory", 0.5))

	b, err := Open(path, "agent-b")
	require.NoError(t, err)
	defer b.Close()

	got, err := b.GetContextForTier(context.Background(), tier.Deliberate, "shared topic")
	require.NoError(t, err)
	assert.Empty(t, got)
}
