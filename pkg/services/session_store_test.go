package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-copilot-api/pkg/gemini"
)

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	got, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got)

	session := &ChatSession{
		ID:      "s-1",
		History: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: "hola"}}}},
	}
	require.NoError(t, store.Save(ctx, "ana", session))

	got, err = store.Get(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s-1", got.ID)
	assert.Len(t, got.History, 1)
}

func TestMemorySessionStoreExpires(t *testing.T) {
	store := NewMemorySessionStore(10 * time.Minute)
	now := time.Now()
	store.nowFn = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ana", &ChatSession{ID: "s-1"}))

	now = now.Add(5 * time.Minute)
	got, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.NotNil(t, got)

	now = now.Add(6 * time.Minute)
	got, err = store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionStoreDelete(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ana", &ChatSession{ID: "s-1"}))
	require.NoError(t, store.Delete(ctx, "ana"))

	got, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionStoreIsolatesUsers(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ana", &ChatSession{ID: "s-ana"}))
	require.NoError(t, store.Save(ctx, "beto", &ChatSession{ID: "s-beto"}))

	got, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "s-ana", got.ID)

	got, err = store.Get(ctx, "beto")
	require.NoError(t, err)
	assert.Equal(t, "s-beto", got.ID)
}

func TestMemorySessionStoreIsolatesReturnedSessions(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	original := &ChatSession{
		ID:      "s-1",
		History: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: "hola"}}}},
	}
	require.NoError(t, store.Save(ctx, "ana", original))

	// mutating the caller's session after Save must not leak into the store
	original.History = append(original.History, gemini.Content{Role: "model", Parts: []gemini.Part{{Text: "x"}}})

	first, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, first.History, 1)

	// two readers get independent histories: appends on one never show
	// up in the other or in the stored copy
	second, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	first.History = append(first.History, gemini.Content{Role: "model", Parts: []gemini.Part{{Text: "y"}}})
	assert.Len(t, second.History, 1)

	third, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, third.History, 1)
}

func TestTrimHistoryDropsOldestPairs(t *testing.T) {
	var history []gemini.Content
	for i := 0; i < 15; i++ {
		history = append(history,
			gemini.Content{Role: "user", Parts: []gemini.Part{{Text: "q"}}},
			gemini.Content{Role: "model", Parts: []gemini.Part{{Text: "a"}}},
		)
	}
	trimmed := trimHistory(history)
	assert.Len(t, trimmed, maxSessionTurns)
	assert.Equal(t, "user", trimmed[0].Role)
}
