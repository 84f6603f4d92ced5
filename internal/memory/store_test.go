package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRunningAverage(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.RecordOutcome(ctx, "example.com", "login button", "#login", "semantic_mapping", true))
	require.NoError(t, s.RecordOutcome(ctx, "example.com", "login button", "#login", "semantic_mapping", true))
	require.NoError(t, s.RecordOutcome(ctx, "example.com", "login button", "#login", "semantic_mapping", false))

	hints, err := s.Hints(ctx, "example.com", "login button", 0)
	require.NoError(t, err)
	require.Len(t, hints, 1)

	assert.Equal(t, 3, hints[0].UsageCount)
	assert.InDelta(t, 2.0/3.0, hints[0].SuccessRate, 1e-9)
	assert.Equal(t, "semantic_mapping", hints[0].Strategy)
	assert.False(t, hints[0].LastUsed.IsZero())
}

func TestInMemoryHintRanking(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	// #flaky: 1/2 successes. #solid: 2/2. #busy: 2/3.
	require.NoError(t, s.RecordOutcome(ctx, "shop.com", "add to cart", "#flaky", "text_match", true))
	require.NoError(t, s.RecordOutcome(ctx, "shop.com", "add to cart", "#flaky", "text_match", false))
	require.NoError(t, s.RecordOutcome(ctx, "shop.com", "add to cart", "#solid", "semantic_mapping", true))
	require.NoError(t, s.RecordOutcome(ctx, "shop.com", "add to cart", "#solid", "semantic_mapping", true))
	require.NoError(t, s.RecordOutcome(ctx, "shop.com", "add to cart", "#busy", "text_match", true))
	require.NoError(t, s.RecordOutcome(ctx, "shop.com", "add to cart", "#busy", "text_match", true))
	require.NoError(t, s.RecordOutcome(ctx, "shop.com", "add to cart", "#busy", "text_match", false))

	hints, err := s.Hints(ctx, "shop.com", "add to cart", 2)
	require.NoError(t, err)
	require.Len(t, hints, 2)

	assert.Equal(t, "#solid", hints[0].Selector)
	assert.Equal(t, "#busy", hints[1].Selector)
}

func TestInMemoryHintsScopedBySiteAndDescription(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.RecordOutcome(ctx, "a.com", "login button", "#a", "text_match", true))
	require.NoError(t, s.RecordOutcome(ctx, "b.com", "login button", "#b", "text_match", true))
	require.NoError(t, s.RecordOutcome(ctx, "a.com", "search box", "#c", "text_match", true))

	hints, err := s.Hints(ctx, "a.com", "login button", 0)
	require.NoError(t, err)
	require.Len(t, hints, 1)
	assert.Equal(t, "#a", hints[0].Selector)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnings.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.RecordOutcome(ctx, "example.com", "login button", "#login", "semantic_mapping", true))
	require.NoError(t, s.RecordOutcome(ctx, "example.com", "login button", "#login", "semantic_mapping", false))
	require.NoError(t, s.RecordOutcome(ctx, "example.com", "login button", "#alt", "text_match", true))

	hints, err := s.Hints(ctx, "example.com", "login button", 10)
	require.NoError(t, err)
	require.Len(t, hints, 2)

	assert.Equal(t, "#alt", hints[0].Selector)
	assert.InDelta(t, 1.0, hints[0].SuccessRate, 1e-9)
	assert.Equal(t, "#login", hints[1].Selector)
	assert.InDelta(t, 0.5, hints[1].SuccessRate, 1e-9)
	assert.Equal(t, 2, hints[1].UsageCount)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnings.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordOutcome(ctx, "example.com", "search box", `input[name="q"]`, "semantic_mapping", true))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	hints, err := reopened.Hints(ctx, "example.com", "search box", 0)
	require.NoError(t, err)
	require.Len(t, hints, 1)
	assert.Equal(t, `input[name="q"]`, hints[0].Selector)
}
