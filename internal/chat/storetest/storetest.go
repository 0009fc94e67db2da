// Package storetest holds the behaviour every chat.Store implementation must
// share. Backends call RunStoreTests from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat-backend/internal/chat"
	"chat-backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func RunStoreTests(t *testing.T, newStore func(t *testing.T) chat.Store) {
	t.Run("ResolveChatIsStable", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first, err := store.ResolveChat(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, first.ChatId)
		assert.Equal(t, "ada@example.com", first.Email)

		second, err := store.ResolveChat(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, first, second)

		other, err := store.ResolveChat(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, first.ChatId, other.ChatId)
		assert.NotEqual(t, first.UserId, other.UserId)
	})

	t.Run("ResolveChatConcurrent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const workers = 8
		refs := make([]chat.ChatRef, workers)
		errs := make([]error, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				refs[i], errs[i] = store.ResolveChat(ctx, "race@example.com")
			}(i)
		}
		wg.Wait()

		for i := 0; i < workers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, refs[0].ChatId, refs[i].ChatId)
			assert.Equal(t, refs[0].UserId, refs[i].UserId)
		}
	})

	t.Run("EmptyHistory", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		ref, err := store.ResolveChat(ctx, "new@example.com")
		require.NoError(t, err)

		messages, err := store.ListMessages(ctx, ref.ChatId)
		require.NoError(t, err)
		assert.NotNil(t, messages)
		assert.Empty(t, messages)
	})

	t.Run("AppendExchangeOrdering", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		ref, err := store.ResolveChat(ctx, "order@example.com")
		require.NoError(t, err)

		start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			require.NoError(t, store.AppendExchange(ctx, ref.ChatId, chat.Exchange{
				Prompt:    fmt.Sprintf("prompt %d", i),
				Answer:    fmt.Sprintf("answer %d", i),
				Generator: "fake",
				At:        start.Add(time.Duration(i) * time.Minute),
			}))
		}

		messages, err := store.ListMessages(ctx, ref.ChatId)
		require.NoError(t, err)
		require.Len(t, messages, 6)

		for i := 0; i < 3; i++ {
			prompt, answer := messages[2*i], messages[2*i+1]
			assert.Equal(t, database.RoleUser, prompt.Role)
			assert.Equal(t, fmt.Sprintf("prompt %d", i), prompt.Text)
			assert.Equal(t, database.RoleAI, answer.Role)
			assert.Equal(t, fmt.Sprintf("answer %d", i), answer.Text)
			assert.True(t, prompt.CreatedAt.Equal(start.Add(time.Duration(i)*time.Minute)))
		}
	})

	t.Run("ChatsAreIsolated", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		a, err := store.ResolveChat(ctx, "a@example.com")
		require.NoError(t, err)
		b, err := store.ResolveChat(ctx, "b@example.com")
		require.NoError(t, err)

		require.NoError(t, store.AppendExchange(ctx, a.ChatId, chat.Exchange{
			Prompt: "hello", Answer: "hi", Generator: "fake", At: time.Now().UTC(),
		}))

		messages, err := store.ListMessages(ctx, b.ChatId)
		require.NoError(t, err)
		assert.Empty(t, messages)

		messages, err = store.ListMessages(ctx, a.ChatId)
		require.NoError(t, err)
		assert.Len(t, messages, 2)
	})
}
