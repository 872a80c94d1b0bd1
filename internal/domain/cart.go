package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// LineItem is a single entry in a guest or authenticated cart.
type LineItem struct {
	LineItemID       int64           `json:"lineItemId"`
	ProductID        int64           `json:"productId"`
	VariantID        *int64          `json:"variantId,omitempty"`
	Quantity         int             `json:"quantity"`
	UnitSellingPrice decimal.Decimal `json:"unitSellingPrice"`
	UnitBasePrice    decimal.Decimal `json:"unitBasePrice"`
	DisplayName      string          `json:"displayName"`
	ImageURL         string          `json:"imageUrl"`
	AvailableStock   int             `json:"availableStock"`
}

// ItemKey identifies a line by product and optional variant.
type ItemKey struct {
	ProductID  int64
	VariantID  int64
	HasVariant bool
}

// Key returns the identity used to merge duplicate adds into one line.
func (li LineItem) Key() ItemKey {
	return KeyOf(li.ProductID, li.VariantID)
}

// KeyOf builds an ItemKey from a product id and optional variant id.
func KeyOf(productID int64, variantID *int64) ItemKey {
	if variantID == nil {
		return ItemKey{ProductID: productID}
	}
	return ItemKey{ProductID: productID, VariantID: *variantID, HasVariant: true}
}

func (k ItemKey) String() string {
	if !k.HasVariant {
		return strconv.FormatInt(k.ProductID, 10)
	}
	return strconv.FormatInt(k.ProductID, 10) + ":" + strconv.FormatInt(k.VariantID, 10)
}

// LineTotal is quantity times the unit selling price.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitSellingPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Synthetic reports whether the line id was generated locally.
func (li LineItem) Synthetic() bool {
	return li.LineItemID < 0
}

// Cart owns an ordered collection of line items.
type Cart struct {
	ID                *int64          `json:"cartId"`
	Items             []LineItem      `json:"items"`
	AbandonedDiscount decimal.Decimal `json:"abandonedDiscountAmount"`
}

// Clone returns a deep copy that shares no memory with c.
func (c Cart) Clone() Cart {
	out := Cart{AbandonedDiscount: c.AbandonedDiscount}
	if c.ID != nil {
		id := *c.ID
		out.ID = &id
	}
	out.Items = CloneItems(c.Items)
	return out
}

// CloneItems deep-copies a line item slice, including variant pointers.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		if it.VariantID != nil {
			v := *it.VariantID
			it.VariantID = &v
		}
		out[i] = it
	}
	return out
}

// Find returns the index of the line with the given id, or -1.
func (c Cart) Find(lineItemID int64) int {
	for i := range c.Items {
		if c.Items[i].LineItemID == lineItemID {
			return i
		}
	}
	return -1
}

// FindByKey returns the index of the line for a product/variant pair, or -1.
func (c Cart) FindByKey(key ItemKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

// Subtotal is the sum of quantity times unit selling price.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// ItemCount sums quantities across lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
