package session

import (
	"context"
	"testing"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_Contract(t *testing.T) {
	testutil.RunSessionStoreContract(t, NewInMemoryStore())
}

func TestInMemoryStore_Errors(t *testing.T) {
	store := NewInMemoryStore()

	assert.Error(t, store.Append(context.Background(), "", core.NewUserMessage("x")))
	assert.ErrorIs(t, store.Delete(context.Background(), "nope"), ErrNotFound)

	require.NoError(t, store.Append(context.Background(), "b"))
	require.NoError(t, store.Append(context.Background(), "a"))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
