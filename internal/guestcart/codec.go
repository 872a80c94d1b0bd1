package guestcart

import (
	"encoding/json"
	"errors"
	"math"

	"storefront/internal/domain"
)

var errNotArray = errors.New("guest cart payload is not an array")

// decodePersisted parses a stored guest cart. Entries that lack numeric
// id fields or a string name are dropped; the count of dropped entries is
// returned. A payload that is not a JSON array is an error.
func decodePersisted(payload []byte) ([]domain.LineItem, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, 0, err
	}
	if raw == nil {
		return nil, 0, errNotArray
	}

	items := make([]domain.LineItem, 0, len(raw))
	dropped := 0
	for _, entry := range raw {
		item, ok := decodeEntry(entry)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return items, dropped, nil
}

func decodeEntry(entry json.RawMessage) (domain.LineItem, bool) {
	var fields map[string]interface{}
	if err := json.Unmarshal(entry, &fields); err != nil {
		return domain.LineItem{}, false
	}
	if !wholeNumber(fields["lineItemId"]) || !wholeNumber(fields["productId"]) || !wholeNumber(fields["quantity"]) {
		return domain.LineItem{}, false
	}
	if v, present := fields["variantId"]; present && v != nil && !wholeNumber(v) {
		return domain.LineItem{}, false
	}
	if _, ok := fields["displayName"].(string); !ok {
		return domain.LineItem{}, false
	}

	var item domain.LineItem
	if err := json.Unmarshal(entry, &item); err != nil {
		return domain.LineItem{}, false
	}
	if item.ProductID <= 0 || item.Quantity < 1 || item.LineItemID == 0 {
		return domain.LineItem{}, false
	}
	if item.AvailableStock < 0 {
		item.AvailableStock = 0
	}
	return item, true
}

func wholeNumber(v interface{}) bool {
	f, ok := v.(float64)
	return ok && f == math.Trunc(f)
}

func encodePersisted(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(items)
}
