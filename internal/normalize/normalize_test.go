package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsShapePriority(t *testing.T) {
	n := New(nil)
	raw := []byte(`{
		"data": {"cart_items": [{"id": 1, "product_id": 10, "quantity": 2}]},
		"cart": {"items": [{"id": 2, "product_id": 20}]},
		"items": [{"id": 3, "product_id": 30}]
	}`)
	items := n.Items(raw)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].LineItemID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestItemsFallsThroughShapes(t *testing.T) {
	n := New(nil)

	items := n.Items([]byte(`{"data": {"cart_items": null}, "cart": {"items": [{"id": 2, "product_id": 20}]}}`))
	require.Len(t, items, 1)
	assert.Equal(t, int64(20), items[0].ProductID)

	items = n.Items([]byte(`{"items": [{"id": 3, "product_id": "30"}], "extra": {"ignored": true}}`))
	require.Len(t, items, 1)
	assert.Equal(t, int64(30), items[0].ProductID)
}

func TestItemsNeverFails(t *testing.T) {
	n := New(nil)
	inputs := map[string][]byte{
		"nil":           nil,
		"empty":         []byte(""),
		"empty object":  []byte(`{}`),
		"null":          []byte(`null`),
		"array root":    []byte(`[{"id": 1, "product_id": 2}]`),
		"garbage":       []byte(`{"items": [`),
		"no known path": []byte(`{"lines": [{"id": 1, "product_id": 2}]}`),
		"missing ids":   []byte(`{"items": [{"quantity": 2}, {"id": 4}]}`),
		"wrong type":    []byte(`{"items": {"id": 1}}`),
	}
	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			items := n.Items(raw)
			require.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestItemsProductIDFallbackChain(t *testing.T) {
	n := New(nil)
	raw := []byte(`{"items": [
		{"id": 1, "product": {"id": 11}},
		{"id": 2, "variant": {"id": 70, "product_id": 12}},
		{"id": 3, "variant": {"id": 71, "product": {"id": "13"}}},
		{"id": 4, "product_id": "abc", "product": {"id": 14}},
		{"id": 5, "variant": {"id": 72}}
	]}`)
	items := n.Items(raw)
	require.Len(t, items, 4)
	assert.Equal(t, int64(11), items[0].ProductID)
	assert.Nil(t, items[0].VariantID)
	assert.Equal(t, int64(12), items[1].ProductID)
	require.NotNil(t, items[1].VariantID)
	assert.Equal(t, int64(70), *items[1].VariantID)
	assert.Equal(t, int64(13), items[2].ProductID)
	assert.Equal(t, int64(14), items[3].ProductID)
}

func TestItemsDisplayFieldFallbacks(t *testing.T) {
	n := New(nil)
	raw := []byte(`{"items": [
		{"id": 1, "product_id": 1,
		 "product": {"name": "Shirt", "image": "p.jpg", "selling_price": "499.50", "base_price": 599, "stock": 8},
		 "variant": {"id": 9, "name": "Shirt / L", "image": "v.jpg", "selling_price": 450, "stock": 3}},
		{"id": 2, "product_id": 2, "product": {"name": "Mug", "selling_price": 120}},
		{"id": 3, "product_id": 3, "product": {"name": "  "}, "selling_price": -5}
	]}`)
	items := n.Items(raw)
	require.Len(t, items, 3)

	assert.Equal(t, "Shirt / L", items[0].DisplayName)
	assert.Equal(t, "v.jpg", items[0].ImageURL)
	assert.True(t, items[0].UnitSellingPrice.Equal(decimal.NewFromInt(450)))
	assert.True(t, items[0].UnitBasePrice.Equal(decimal.NewFromInt(599)))
	assert.Equal(t, 3, items[0].AvailableStock)

	assert.Equal(t, "Mug", items[1].DisplayName)
	assert.Equal(t, PlaceholderImage, items[1].ImageURL)
	assert.True(t, items[1].UnitBasePrice.Equal(items[1].UnitSellingPrice))
	assert.Equal(t, 0, items[1].AvailableStock)

	assert.Equal(t, UnknownProductName, items[2].DisplayName)
	assert.True(t, items[2].UnitSellingPrice.IsZero())
}

func TestItemsQuantityRules(t *testing.T) {
	n := New(nil)
	raw := []byte(`{"items": [
		{"id": 1, "product_id": 1},
		{"id": 2, "product_id": 2, "quantity": "3"},
		{"id": 3, "product_id": 3, "quantity": 0},
		{"id": 4, "product_id": 4, "quantity": "many"}
	]}`)
	items := n.Items(raw)
	require.Len(t, items, 3)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 3, items[1].Quantity)
	assert.Equal(t, int64(4), items[2].LineItemID)
	assert.Equal(t, 1, items[2].Quantity)
}

func TestCartExtractsID(t *testing.T) {
	n := New(nil)
	cart := n.Cart([]byte(`{"data": {"cart_id": "77", "cart_items": [{"id": 1, "product_id": 5}]}}`))
	require.NotNil(t, cart.ID)
	assert.Equal(t, int64(77), *cart.ID)
	assert.Len(t, cart.Items, 1)

	cart = n.Cart([]byte(`not json`))
	assert.Nil(t, cart.ID)
	assert.Empty(t, cart.Items)
}
