package artifact

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SaveGetIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	data := []byte("# Report")
	require.NoError(t, store.Save(ctx, "s1", "run-1.md", data))

	data[0] = 'X'

	got, err := store.Get(ctx, "s1", "run-1.md")
	require.NoError(t, err)
	assert.Equal(t, "# Report", string(got))

	got[0] = 'Y'

	again, err := store.Get(ctx, "s1", "run-1.md")
	require.NoError(t, err)
	assert.Equal(t, "# Report", string(again))

	_, err = store.Get(ctx, "s2", "run-1.md")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Save(ctx, "s1", "", data))
}

func TestInMemoryStore_ListDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for _, name := range []string{"b.md", "a.md", "c.md"} {
		require.NoError(t, store.Save(ctx, "s", name, []byte(name)))
	}

	names, err := store.List(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, names)

	require.NoError(t, store.Delete(ctx, "s", "b.md"))
	assert.ErrorIs(t, store.Delete(ctx, "s", "b.md"), ErrNotFound)

	names, err = store.List(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "c.md"}, names)

	names, err = store.List(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			name := fmt.Sprintf("r%02d.md", i)
			assert.NoError(t, store.Save(ctx, "s", name, []byte(name)))

			_, err := store.Get(ctx, "s", name)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	names, err := store.List(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, names, 20)
}
