package guestcart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/lineid"
	"storefront/internal/normalize"
)

type failingStorage struct {
	*MemoryStorage
	failSave bool
}

func (f *failingStorage) Save(ctx context.Context, key string, payload []byte) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MemoryStorage.Save(ctx, key, payload)
}

// flakyStorage fails the next failLoads reads.
type flakyStorage struct {
	*MemoryStorage
	failLoads int
}

func (f *flakyStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if f.failLoads > 0 {
		f.failLoads--
		return nil, errors.New("connection reset")
	}
	return f.MemoryStorage.Load(ctx, key)
}

func newStore(t *testing.T, storage Storage) *Store {
	t.Helper()
	return Open(context.Background(), storage, KeyFor("g1"), WithIDs(lineid.NewCounter(-1)))
}

func product(id int64, stock int, price string) domain.LineItem {
	return domain.LineItem{
		ProductID:        id,
		DisplayName:      "Product",
		UnitSellingPrice: decimal.RequireFromString(price),
		AvailableStock:   stock,
	}
}

func TestAddMergesDuplicateProducts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())

	first, err := s.Add(ctx, product(7, 10, "5.00"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), first.LineItemID)

	second, err := s.Add(ctx, product(7, 10, "5.00"), 3)
	require.NoError(t, err)
	assert.Equal(t, first.LineItemID, second.LineItemID)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddDistinguishesVariants(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())
	v1, v2 := int64(1), int64(2)

	a := product(7, 10, "5.00")
	a.VariantID = &v1
	b := product(7, 10, "5.00")
	b.VariantID = &v2

	_, err := s.Add(ctx, a, 1)
	require.NoError(t, err)
	_, err = s.Add(ctx, b, 1)
	require.NoError(t, err)
	_, err = s.Add(ctx, product(7, 10, "5.00"), 1)
	require.NoError(t, err)

	assert.Len(t, s.Items(), 3)
}

func TestAddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())

	_, err := s.Add(ctx, product(7, 10, "5.00"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = s.Add(ctx, product(0, 10, "5.00"), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	assert.Empty(t, s.Items())
}

func TestAddEnforcesStockCeiling(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())

	_, err := s.Add(ctx, product(7, 0, "5.00"), 1)
	assert.ErrorIs(t, err, domain.ErrStockExceeded)

	_, err = s.Add(ctx, product(7, 3, "5.00"), 2)
	require.NoError(t, err)
	_, err = s.Add(ctx, product(7, 3, "5.00"), 2)
	assert.ErrorIs(t, err, domain.ErrStockExceeded)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddFillsDisplayDefaults(t *testing.T) {
	s := newStore(t, NewMemoryStorage())
	line, err := s.Add(context.Background(), domain.LineItem{ProductID: 3, AvailableStock: 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, normalize.UnknownProductName, line.DisplayName)
	assert.Equal(t, normalize.PlaceholderImage, line.ImageURL)
}

func TestIncrementDecrementRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())
	line, err := s.Add(ctx, product(7, 2, "5.00"), 1)
	require.NoError(t, err)

	require.NoError(t, s.Increment(ctx, line.LineItemID))
	assert.ErrorIs(t, s.Increment(ctx, line.LineItemID), domain.ErrStockExceeded)
	assert.Equal(t, 2, s.Items()[0].Quantity)

	require.NoError(t, s.Decrement(ctx, line.LineItemID))
	require.NoError(t, s.Decrement(ctx, line.LineItemID))
	assert.Empty(t, s.Items())

	assert.ErrorIs(t, s.Decrement(ctx, line.LineItemID), domain.ErrLineItemNotFound)
	assert.ErrorIs(t, s.Increment(ctx, 99), domain.ErrLineItemNotFound)
	assert.ErrorIs(t, s.Remove(ctx, 99), domain.ErrLineItemNotFound)
}

func TestMutationsPersistAndReload(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newStore(t, storage)

	_, err := s.Add(ctx, product(7, 5, "12.50"), 2)
	require.NoError(t, err)
	_, err = s.Add(ctx, product(8, 5, "1.00"), 1)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, -2))

	reopened := Open(ctx, storage, KeyFor("g1"))
	items := reopened.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].UnitSellingPrice.Equal(decimal.RequireFromString("12.50")))
}

func TestClearDeletesPersistedKey(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newStore(t, storage)
	_, err := s.Add(ctx, product(7, 5, "1.00"), 1)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.Items())

	_, err = storage.Load(ctx, KeyFor("g1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Clear(ctx))
}

func TestFailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{MemoryStorage: NewMemoryStorage()}
	s := newStore(t, storage)
	line, err := s.Add(ctx, product(7, 5, "1.00"), 1)
	require.NoError(t, err)

	storage.failSave = true
	assert.Error(t, s.Increment(ctx, line.LineItemID))
	_, err = s.Add(ctx, product(8, 5, "1.00"), 1)
	assert.Error(t, err)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestOpenDropsInvalidPersistedEntries(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	payload := `[
		{"lineItemId": 1, "productId": 7, "quantity": 2, "displayName": "Tea", "unitSellingPrice": "3.00", "availableStock": 4},
		{"lineItemId": "2", "productId": 8, "quantity": 1, "displayName": "Bad id"},
		{"lineItemId": 3, "productId": 9, "quantity": 1, "displayName": 42},
		{"lineItemId": 4, "productId": 10, "displayName": "No qty"},
		"junk"
	]`
	require.NoError(t, storage.Save(ctx, KeyFor("g1"), []byte(payload)))

	s := Open(ctx, storage, KeyFor("g1"))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Tea", items[0].DisplayName)
}

func TestOpenStartsEmptyOnGarbage(t *testing.T) {
	ctx := context.Background()
	for name, payload := range map[string]string{
		"not json":  "{{{",
		"object":    `{"items": []}`,
		"null":      "null",
		"truncated": `[{"lineItemId": 1`,
	} {
		t.Run(name, func(t *testing.T) {
			storage := NewMemoryStorage()
			require.NoError(t, storage.Save(ctx, "k", []byte(payload)))
			assert.Empty(t, Open(ctx, storage, "k").Items())
		})
	}
}

func TestReplaceJSON(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())

	require.NoError(t, s.ReplaceJSON(ctx, []byte(`[
		{"productId": 7, "quantity": 1, "displayName": "A", "availableStock": 3},
		{"productId": 7, "quantity": 2, "displayName": "A", "availableStock": 3},
		{"productId": 0, "quantity": 1},
		{"lineItemId": 44, "productId": 9, "quantity": 1}
	]`)))
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, items[0].Synthetic())
	assert.Equal(t, int64(44), items[1].LineItemID)

	require.NoError(t, s.ReplaceJSON(ctx, []byte(`{"not":"an array"}`)))
	assert.Empty(t, s.Items())
}

func TestItemsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())
	v := int64(4)
	item := product(7, 5, "1.00")
	item.VariantID = &v
	_, err := s.Add(ctx, item, 1)
	require.NoError(t, err)

	items := s.Items()
	items[0].Quantity = 99
	*items[0].VariantID = 100

	fresh := s.Items()
	assert.Equal(t, 1, fresh[0].Quantity)
	assert.Equal(t, int64(4), *fresh[0].VariantID)
}

func TestOpenAfterReadErrorDoesNotOverwriteStoredCart(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage()}
	seed := newStore(t, storage)
	for _, id := range []int64{1, 2, 3} {
		_, err := seed.Add(ctx, product(id, 5, "1.00"), 1)
		require.NoError(t, err)
	}

	storage.failLoads = 1
	s := Open(ctx, storage, KeyFor("g1"), WithIDs(lineid.NewCounter(-100)))
	assert.False(t, s.Loaded())
	assert.Empty(t, s.Items())

	_, err := s.Add(ctx, product(9, 5, "1.00"), 1)
	require.NoError(t, err)
	assert.True(t, s.Loaded())
	assert.Len(t, s.Items(), 4)

	reopened := Open(ctx, storage, KeyFor("g1"))
	assert.Len(t, reopened.Items(), 4)
}

func TestMutationRefusedWhileStorageUnreadable(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage()}
	s := newStore(t, storage)
	_, err := s.Add(ctx, product(1, 5, "1.00"), 2)
	require.NoError(t, err)

	storage.failLoads = 1
	_, err = s.Add(ctx, product(2, 5, "1.00"), 1)
	require.Error(t, err)

	persisted := Open(ctx, storage, KeyFor("g1")).Items()
	require.Len(t, persisted, 1)
	assert.Equal(t, 2, persisted[0].Quantity)
}

func TestMutationSeesLinesWrittenByAnotherStore(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newStore(t, storage)
	_, err := s.Add(ctx, product(1, 5, "1.00"), 1)
	require.NoError(t, err)

	other := Open(ctx, storage, KeyFor("g1"), WithIDs(lineid.NewCounter(-1)))
	_, err = other.Add(ctx, product(2, 5, "1.00"), 1)
	require.NoError(t, err)

	line, err := s.Add(ctx, product(3, 5, "1.00"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), line.LineItemID)
	assert.Len(t, s.Items(), 3)

	require.NoError(t, other.Refresh(ctx))
	assert.Len(t, other.Items(), 3)
}

func TestMergedDuplicatesAreCappedAtStock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryStorage())
	require.NoError(t, s.ReplaceJSON(ctx, []byte(`[
		{"productId": 7, "quantity": 2, "availableStock": 3},
		{"productId": 7, "quantity": 4, "availableStock": 3},
		{"productId": 8, "quantity": 5}
	]`)))
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 5, items[1].Quantity)

	storage := NewMemoryStorage()
	payload := `[
		{"lineItemId": 1, "productId": 7, "quantity": 2, "availableStock": 2, "displayName": "A"},
		{"lineItemId": 2, "productId": 7, "quantity": 2, "availableStock": 2, "displayName": "A"}
	]`
	require.NoError(t, storage.Save(ctx, "k", []byte(payload)))
	loaded := Open(ctx, storage, "k").Items()
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].Quantity)
}
