package guestcart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/lineid"
)

func TestRegistryReusesAndReopens(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	reg, err := NewRegistry(storage, 1, nil)
	require.NoError(t, err)

	a := reg.Get(ctx, "a")
	assert.Same(t, a, reg.Get(ctx, "a"))
	_, err = a.Add(ctx, product(7, 5, "1.00"), 2)
	require.NoError(t, err)

	// opening "b" evicts "a"; its contents come back from storage
	reg.Get(ctx, "b")
	assert.Equal(t, 1, reg.Len())

	again := reg.Get(ctx, "a")
	assert.NotSame(t, a, again)
	require.Len(t, again.Items(), 1)
	assert.Equal(t, 2, again.Items()[0].Quantity)
}

func TestRegistryMutationKeepsExternalWrites(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	reg, err := NewRegistry(storage, 4, nil)
	require.NoError(t, err)

	api := reg.Get(ctx, "g1")
	assert.Empty(t, api.Items())

	imported := Open(ctx, storage, KeyFor("g1"), WithIDs(lineid.NewCounter(-1000)))
	_, err = imported.Add(ctx, product(1, 5, "1.00"), 1)
	require.NoError(t, err)

	_, err = reg.Get(ctx, "g1").Add(ctx, product(2, 5, "1.00"), 1)
	require.NoError(t, err)

	assert.Len(t, api.Items(), 2)
	assert.Len(t, Open(ctx, storage, KeyFor("g1")).Items(), 2)
}

func TestRegistryDoesNotKeepUnloadedCart(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage(), failLoads: 1}
	reg, err := NewRegistry(storage, 4, nil)
	require.NoError(t, err)

	first := reg.Get(ctx, "g1")
	assert.False(t, first.Loaded())
	assert.Equal(t, 0, reg.Len())

	second := reg.Get(ctx, "g1")
	assert.True(t, second.Loaded())
	assert.Same(t, second, reg.Get(ctx, "g1"))
}

func TestRegistryRejectsBadSize(t *testing.T) {
	_, err := NewRegistry(NewMemoryStorage(), 0, nil)
	assert.Error(t, err)
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "guestCart:abc", KeyFor("abc"))
}
