package normalize

import (
	"strings"

	"github.com/buger/jsonparser"
)

// shapeMatcher recognises one historical layout of the backend cart
// response. Match returns the raw item array when the layout is present.
// Matchers tolerate unknown and extra fields; they only check that the
// item collection sits at the expected path and is an array.
type shapeMatcher interface {
	Name() string
	Match(raw []byte) ([]byte, bool)
}

type pathShape struct {
	path []string
}

func (s pathShape) Name() string {
	return strings.Join(s.path, ".")
}

func (s pathShape) Match(raw []byte) ([]byte, bool) {
	val, typ, _, err := jsonparser.Get(raw, s.path...)
	if err != nil || typ != jsonparser.Array {
		return nil, false
	}
	return val, true
}

// itemShapes are tried in order; the first structural match wins.
var itemShapes = []shapeMatcher{
	pathShape{path: []string{"data", "cart_items"}},
	pathShape{path: []string{"cart", "items"}},
	pathShape{path: []string{"items"}},
}

// Field fallback chains for a single raw item, highest priority first.
var (
	itemIDPaths    = [][]string{{"id"}, {"line_item_id"}, {"lineItemId"}}
	productIDPaths = [][]string{
		{"product_id"}, {"productId"},
		{"product", "id"},
		{"variant", "product_id"}, {"variant", "productId"}, {"variant", "product", "id"},
	}
	variantIDPaths = [][]string{{"variant_id"}, {"variantId"}, {"variant", "id"}}
	quantityPaths  = [][]string{{"quantity"}, {"qty"}}
	namePaths      = [][]string{{"variant", "name"}, {"product", "name"}, {"name"}, {"product_name"}}
	imagePaths     = [][]string{
		{"variant", "image"}, {"variant", "image_url"},
		{"product", "image"}, {"product", "image_url"},
		{"image"}, {"image_url"},
	}
	sellingPricePaths = [][]string{
		{"variant", "selling_price"}, {"product", "selling_price"},
		{"selling_price"}, {"unit_price"}, {"price"},
	}
	basePricePaths = [][]string{{"variant", "base_price"}, {"product", "base_price"}, {"base_price"}, {"mrp"}}
	stockPaths     = [][]string{{"variant", "stock"}, {"product", "stock"}, {"stock"}, {"available_stock"}}
	cartIDPaths    = [][]string{{"data", "cart_id"}, {"data", "id"}, {"cart", "id"}, {"cart_id"}, {"id"}}
)
