package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/guestcart"
	"storefront/internal/lineid"
)

type stubCart struct {
	items []domain.LineItem
	qtys  []int
	err   error
}

func (s *stubCart) Add(_ context.Context, item domain.LineItem, qty int) (domain.LineItem, error) {
	if s.err != nil {
		return domain.LineItem{}, s.err
	}
	s.items = append(s.items, item)
	s.qtys = append(s.qtys, qty)
	return item, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `product_id,variant_id,name,image_url,selling_price,base_price,stock,quantity
1,,Green Tea,https://example.com/tea.jpg,120.50,150,10,2
2,7,Mug,,99,,5,1,
,,,,,,,
`
	cart := &stubCart{}
	count, err := NewCSVImporter(strings.NewReader(csvData), cart).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows imported, got %d", count)
	}

	first := cart.items[0]
	if first.ProductID != 1 || first.VariantID != nil || first.DisplayName != "Green Tea" || first.AvailableStock != 10 || cart.qtys[0] != 2 {
		t.Fatalf("unexpected first line %+v qty %d", first, cart.qtys[0])
	}
	if first.UnitSellingPrice.String() != "120.5" || first.UnitBasePrice.String() != "150" {
		t.Fatalf("unexpected prices %s / %s", first.UnitSellingPrice, first.UnitBasePrice)
	}
	if cart.items[1].VariantID == nil || *cart.items[1].VariantID != 7 {
		t.Fatalf("expected variant 7 on second line")
	}
}

func TestCSVImporter_RowErrors(t *testing.T) {
	cases := map[string]struct {
		csv  string
		want error
	}{
		"bad product":  {"product_id,quantity\nabc,1\n", domain.ErrInvalidItem},
		"bad quantity": {"product_id,quantity\n1,0\n", domain.ErrInvalidQuantity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCSVImporter(strings.NewReader(tc.csv), &stubCart{}).Run(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !strings.Contains(err.Error(), "row 2") {
				t.Fatalf("expected row number in error, got %v", err)
			}
		})
	}

	if _, err := NewCSVImporter(strings.NewReader("name,quantity\nx,1\n"), &stubCart{}).Run(context.Background()); err == nil {
		t.Fatalf("expected missing column error")
	}
}

func TestCSVImporter_IntoGuestCart(t *testing.T) {
	ctx := context.Background()
	storage := guestcart.NewMemoryStorage()
	store := guestcart.Open(ctx, storage, guestcart.KeyFor("g1"), guestcart.WithIDs(lineid.NewCounter(-1)))

	csvData := "product_id,stock,quantity\n5,3,2\n5,3,1\n6,0,1\n"
	count, err := NewCSVImporter(strings.NewReader(csvData), store).Run(ctx)
	if !errors.Is(err, domain.ErrStockExceeded) {
		t.Fatalf("expected stock error on the third row, got %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows imported before the failure, got %d", count)
	}
	items := store.Items()
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("expected one merged line with quantity 3, got %+v", items)
	}
}
