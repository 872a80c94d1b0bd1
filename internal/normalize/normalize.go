// Package normalize converts loosely typed backend cart responses into
// validated line items.
package normalize

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

const (
	// UnknownProductName is shown when neither variant nor product has a name.
	UnknownProductName = "Unknown Product"
	// PlaceholderImage is shown when neither variant nor product has an image.
	PlaceholderImage = "/images/placeholder.png"
)

// Normalizer extracts line items from backend responses. It never returns
// an error: malformed input degrades to an empty result and is logged.
type Normalizer struct {
	logger *zap.Logger
}

// New builds a Normalizer. A nil logger discards diagnostics.
func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logging.OrNop(logger).Named("normalize")}
}

// Items returns the line items found in raw, in input order.
func (n *Normalizer) Items(raw []byte) (items []domain.LineItem) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("cart response parse panicked", zap.Any("panic", r))
			items = []domain.LineItem{}
		}
	}()

	items = []domain.LineItem{}
	if !isObject(raw) {
		n.logger.Warn("cart response is not a JSON object", zap.Int("bytes", len(raw)))
		return items
	}

	arr, shape, ok := matchShape(raw)
	if !ok {
		n.logger.Debug("cart response has no known item collection")
		return items
	}

	index := 0
	_, err := jsonparser.ArrayEach(arr, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
		pos := index
		index++
		if typ != jsonparser.Object {
			n.logger.Warn("dropping non-object cart item", zap.String("shape", shape), zap.Int("index", pos))
			return
		}
		item, ok := n.parseItem(value, pos)
		if !ok {
			return
		}
		items = append(items, item)
	})
	if err != nil {
		n.logger.Warn("cart item array malformed", zap.String("shape", shape), zap.Error(err))
		return []domain.LineItem{}
	}
	return items
}

// Cart returns the items plus the server cart id when present.
func (n *Normalizer) Cart(raw []byte) domain.Cart {
	cart := domain.Cart{Items: n.Items(raw)}
	if !isObject(raw) {
		return cart
	}
	if id, ok := n.firstInt(raw, cartIDPaths, "cart_id"); ok && id > 0 {
		cart.ID = &id
	}
	return cart
}

func matchShape(raw []byte) ([]byte, string, bool) {
	for _, m := range itemShapes {
		if arr, ok := m.Match(raw); ok {
			return arr, m.Name(), true
		}
	}
	return nil, "", false
}

func (n *Normalizer) parseItem(obj []byte, pos int) (domain.LineItem, bool) {
	id, ok := n.firstInt(obj, itemIDPaths, "id")
	if !ok || id == 0 {
		n.logger.Warn("dropping cart item without id", zap.Int("index", pos))
		return domain.LineItem{}, false
	}
	productID, ok := n.firstInt(obj, productIDPaths, "product_id")
	if !ok || productID <= 0 {
		n.logger.Warn("dropping cart item without product id", zap.Int("index", pos), zap.Int64("line_item_id", id))
		return domain.LineItem{}, false
	}

	item := domain.LineItem{
		LineItemID: id,
		ProductID:  productID,
		Quantity:   1,
	}
	if variantID, ok := n.firstInt(obj, variantIDPaths, "variant_id"); ok && variantID > 0 {
		item.VariantID = &variantID
	}
	if qty, ok := n.firstInt(obj, quantityPaths, "quantity"); ok {
		if qty < 1 {
			n.logger.Warn("dropping cart item with non-positive quantity", zap.Int64("line_item_id", id), zap.Int64("quantity", qty))
			return domain.LineItem{}, false
		}
		item.Quantity = int(qty)
	}

	item.DisplayName = firstString(obj, namePaths, UnknownProductName)
	item.ImageURL = firstString(obj, imagePaths, PlaceholderImage)

	item.UnitSellingPrice = n.firstPrice(obj, sellingPricePaths, "selling_price")
	if base, ok := n.firstDecimal(obj, basePricePaths, "base_price"); ok {
		item.UnitBasePrice = nonNegative(base)
	} else {
		item.UnitBasePrice = item.UnitSellingPrice
	}

	if stock, ok := n.firstInt(obj, stockPaths, "stock"); ok && stock > 0 {
		item.AvailableStock = int(stock)
	}
	return item, true
}

// firstInt walks paths in order and returns the first value that coerces
// to an integer. Present values that fail to parse are logged and skipped.
func (n *Normalizer) firstInt(obj []byte, paths [][]string, field string) (int64, bool) {
	for _, p := range paths {
		val, typ, _, err := jsonparser.Get(obj, p...)
		if err != nil || typ == jsonparser.Null || typ == jsonparser.NotExist {
			continue
		}
		if v, ok := coerceInt(val, typ); ok {
			return v, true
		}
		n.logger.Warn("numeric parse failed",
			zap.String("field", field),
			zap.String("path", strings.Join(p, ".")),
			zap.ByteString("value", val),
		)
	}
	return 0, false
}

func (n *Normalizer) firstDecimal(obj []byte, paths [][]string, field string) (decimal.Decimal, bool) {
	for _, p := range paths {
		val, typ, _, err := jsonparser.Get(obj, p...)
		if err != nil || typ == jsonparser.Null || typ == jsonparser.NotExist {
			continue
		}
		if d, ok := coerceDecimal(val, typ); ok {
			return d, true
		}
		n.logger.Warn("price parse failed",
			zap.String("field", field),
			zap.String("path", strings.Join(p, ".")),
			zap.ByteString("value", val),
		)
	}
	return decimal.Zero, false
}

func (n *Normalizer) firstPrice(obj []byte, paths [][]string, field string) decimal.Decimal {
	d, _ := n.firstDecimal(obj, paths, field)
	return nonNegative(d)
}

func firstString(obj []byte, paths [][]string, fallback string) string {
	for _, p := range paths {
		val, typ, _, err := jsonparser.Get(obj, p...)
		if err != nil || typ != jsonparser.String {
			continue
		}
		s, err := jsonparser.ParseString(val)
		if err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return fallback
}

func coerceInt(val []byte, typ jsonparser.ValueType) (int64, bool) {
	var s string
	switch typ {
	case jsonparser.Number:
		s = string(val)
	case jsonparser.String:
		parsed, err := jsonparser.ParseString(val)
		if err != nil {
			return 0, false
		}
		s = strings.TrimSpace(parsed)
	default:
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	return 0, false
}

func coerceDecimal(val []byte, typ jsonparser.ValueType) (decimal.Decimal, bool) {
	var s string
	switch typ {
	case jsonparser.Number:
		s = string(val)
	case jsonparser.String:
		parsed, err := jsonparser.ParseString(val)
		if err != nil {
			return decimal.Zero, false
		}
		s = strings.TrimSpace(parsed)
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
