package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/researchmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract verifies the behavior shared by every
// core.SessionStore implementation.
func RunSessionStoreContract(t *testing.T, store core.SessionStore) {
	t.Helper()

	ctx := context.Background()

	t.Run("unknown session is empty", func(t *testing.T) {
		msgs, err := store.Load(ctx, "contract-missing")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("append preserves order and content", func(t *testing.T) {
		conv := NewConversation().
			User("best coffee in SF?").
			AssistantCalls(Call("tavily_search", "query", "sf coffee")).
			ToolResult("Search results:").
			Assistant("here's the final report: ...").
			Build()

		require.NoError(t, store.Append(ctx, "contract-order", conv[:2]...))
		require.NoError(t, store.Append(ctx, "contract-order", conv[2:]...))

		got, err := store.Load(ctx, "contract-order")
		require.NoError(t, err)
		require.Len(t, got, len(conv))

		for i := range conv {
			assert.Equal(t, conv[i].Role, got[i].Role)
			assert.Equal(t, conv[i].Content, got[i].Content)
			assert.Equal(t, conv[i].ToolCallID, got[i].ToolCallID)
		}

		require.Len(t, got[1].ToolCalls, 1)
		assert.Equal(t, "sf coffee", got[1].ToolCalls[0].Arguments["query"])
	})

	t.Run("loaded transcript is a copy", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "contract-copy", core.NewUserMessage("original")))

		got, err := store.Load(ctx, "contract-copy")
		require.NoError(t, err)

		got[0].Content = "mutated"

		again, err := store.Load(ctx, "contract-copy")
		require.NoError(t, err)
		assert.Equal(t, "original", again[0].Content)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "contract-delete", core.NewUserMessage("bye")))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "contract-delete")

		require.NoError(t, store.Delete(ctx, "contract-delete"))

		msgs, err := store.Load(ctx, "contract-delete")
		require.NoError(t, err)
		assert.Empty(t, msgs)

		ids, err = store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, "contract-delete")

		assert.Error(t, store.Delete(ctx, "contract-delete"))
	})

	t.Run("concurrent appends", func(t *testing.T) {
		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.Append(ctx, "contract-concurrent", core.NewUserMessage(fmt.Sprint(i))))
			}(i)
		}

		wg.Wait()

		msgs, err := store.Load(ctx, "contract-concurrent")
		require.NoError(t, err)
		assert.Len(t, msgs, 10)
	})
}
