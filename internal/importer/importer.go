// Package importer loads "quick order" CSV files into a guest cart.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// CartWriter receives the parsed lines. *guestcart.Store satisfies it.
type CartWriter interface {
	Add(ctx context.Context, item domain.LineItem, qty int) (domain.LineItem, error)
}

var requiredColumns = []string{"product_id", "quantity"}

// CSVImporter reads rows of
//
//	product_id,variant_id,name,image_url,selling_price,base_price,stock,quantity
//
// and adds each to a cart. Only product_id and quantity are required.
type CSVImporter struct {
	reader *csv.Reader
	cart   CartWriter
}

func NewCSVImporter(r io.Reader, cart CartWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, cart: cart}
}

// Run adds every row and returns how many were added. It stops at the
// first bad row; rows before it stay in the cart.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	imported := 0
	rowNum := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", rowNum, err)
		}
		if blank(record) {
			continue
		}

		item, qty, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if _, err := i.cart.Add(ctx, item, qty); err != nil {
			return imported, fmt.Errorf("row %d: add product %d: %w", rowNum, item.ProductID, err)
		}
		imported++
	}
	return imported, nil
}

func parseRow(record []string, index map[string]int) (domain.LineItem, int, error) {
	productID, err := strconv.ParseInt(pick(record, index, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		return domain.LineItem{}, 0, fmt.Errorf("invalid product_id %q: %w", pick(record, index, "product_id"), domain.ErrInvalidItem)
	}
	qty, err := strconv.Atoi(pick(record, index, "quantity"))
	if err != nil || qty < 1 {
		return domain.LineItem{}, 0, fmt.Errorf("invalid quantity %q: %w", pick(record, index, "quantity"), domain.ErrInvalidQuantity)
	}

	item := domain.LineItem{
		ProductID:   productID,
		DisplayName: pick(record, index, "name"),
		ImageURL:    pick(record, index, "image_url"),
	}
	if v := pick(record, index, "variant_id"); v != "" {
		variantID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || variantID <= 0 {
			return domain.LineItem{}, 0, fmt.Errorf("invalid variant_id %q", v)
		}
		item.VariantID = &variantID
	}
	if item.UnitSellingPrice, err = price(record, index, "selling_price"); err != nil {
		return domain.LineItem{}, 0, err
	}
	if item.UnitBasePrice, err = price(record, index, "base_price"); err != nil {
		return domain.LineItem{}, 0, err
	}
	if s := pick(record, index, "stock"); s != "" {
		stock, err := strconv.Atoi(s)
		if err != nil || stock < 0 {
			return domain.LineItem{}, 0, fmt.Errorf("invalid stock %q", s)
		}
		item.AvailableStock = stock
	}
	return item, qty, nil
}

func price(record []string, index map[string]int, col string) (decimal.Decimal, error) {
	v := pick(record, index, col)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q", col, v)
	}
	return d, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
