package httpserver

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type cartResponse struct {
	CartID                  *int64             `json:"cartId"`
	Items                   []lineItemResponse `json:"items"`
	ItemCount               int                `json:"itemCount"`
	Subtotal                decimal.Decimal    `json:"subtotal"`
	AbandonedDiscountAmount decimal.Decimal    `json:"abandonedDiscountAmount"`
}

type lineItemResponse struct {
	LineItemID       int64           `json:"lineItemId"`
	ProductID        int64           `json:"productId"`
	VariantID        *int64          `json:"variantId,omitempty"`
	Quantity         int             `json:"quantity"`
	UnitSellingPrice decimal.Decimal `json:"unitSellingPrice"`
	UnitBasePrice    decimal.Decimal `json:"unitBasePrice"`
	LineTotal        decimal.Decimal `json:"lineTotal"`
	DisplayName      string          `json:"displayName"`
	ImageURL         string          `json:"imageUrl"`
	AvailableStock   int             `json:"availableStock"`
	Pending          bool            `json:"pending,omitempty"`
}

func toCartResponse(cart domain.Cart) cartResponse {
	items := make([]lineItemResponse, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, toLineItemResponse(it))
	}
	return cartResponse{
		CartID:                  cart.ID,
		Items:                   items,
		ItemCount:               cart.ItemCount(),
		Subtotal:                cart.Subtotal().Round(2),
		AbandonedDiscountAmount: cart.AbandonedDiscount.Round(2),
	}
}

// toLineItemResponse marks synthetic lines as pending; on an account cart
// they have not been confirmed by the backend yet.
func toLineItemResponse(it domain.LineItem) lineItemResponse {
	return lineItemResponse{
		LineItemID:       it.LineItemID,
		ProductID:        it.ProductID,
		VariantID:        it.VariantID,
		Quantity:         it.Quantity,
		UnitSellingPrice: it.UnitSellingPrice,
		UnitBasePrice:    it.UnitBasePrice,
		LineTotal:        it.LineTotal().Round(2),
		DisplayName:      it.DisplayName,
		ImageURL:         it.ImageURL,
		AvailableStock:   it.AvailableStock,
		Pending:          it.Synthetic(),
	}
}

// addItemRequest is the body of POST .../cart/items. Quantity defaults
// to one when omitted.
type addItemRequest struct {
	ProductID      int64            `json:"productId"`
	VariantID      *int64           `json:"variantId,omitempty"`
	Quantity       *int             `json:"quantity,omitempty"`
	DisplayName    string           `json:"displayName"`
	ImageURL       string           `json:"imageUrl"`
	SellingPrice   decimal.Decimal  `json:"unitSellingPrice"`
	BasePrice      *decimal.Decimal `json:"unitBasePrice,omitempty"`
	AvailableStock int              `json:"availableStock"`
}

func (r addItemRequest) lineItem() (domain.LineItem, int) {
	qty := 1
	if r.Quantity != nil {
		qty = *r.Quantity
	}
	item := domain.LineItem{
		ProductID:        r.ProductID,
		VariantID:        r.VariantID,
		UnitSellingPrice: r.SellingPrice,
		UnitBasePrice:    r.SellingPrice,
		DisplayName:      r.DisplayName,
		ImageURL:         r.ImageURL,
		AvailableStock:   r.AvailableStock,
	}
	if r.BasePrice != nil {
		item.UnitBasePrice = *r.BasePrice
	}
	return item, qty
}
