// Package guestcart keeps the cart of a shopper who has not logged in.
//
// A Store holds one guest's line items in memory. Every mutation reloads
// the persisted collection, applies the change and saves the whole
// collection back, so writers sharing a Storage key see each other's lines.
package guestcart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/lineid"
	"storefront/internal/logging"
	"storefront/internal/normalize"
)

// Store is a single guest's cart. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	key     string
	storage Storage
	ids     lineid.Generator
	logger  *zap.Logger
	items   []domain.LineItem
	loaded  bool
}

// Option configures a Store.
type Option func(*Store)

// WithIDs overrides the synthetic line id generator.
func WithIDs(g lineid.Generator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithLogger sets the logger. Nil discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(l)
	}
}

// Open loads the cart persisted under key. A missing or unreadable
// payload produces an empty cart. A storage error is logged and leaves the
// store unloaded; see Loaded. Open never fails.
func Open(ctx context.Context, storage Storage, key string, opts ...Option) *Store {
	s := &Store{
		key:     key,
		storage: storage,
		ids:     lineid.NewSession(),
		logger:  zap.NewNop(),
		items:   []domain.LineItem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("cart_key", key))

	items, err := s.read(ctx)
	if err != nil {
		s.logger.Warn("guest cart load failed", zap.Error(err))
		return s
	}
	s.items = items
	s.loaded = true
	return s
}

// Loaded reports whether the store has read its persisted state. An
// unloaded store reports no items until a Refresh or mutation succeeds.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Refresh reloads the persisted collection.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.read(ctx)
	if err != nil {
		return fmt.Errorf("load guest cart: %w", err)
	}
	s.items = items
	s.loaded = true
	return nil
}

// read returns the persisted items. A missing key or undecodable payload
// is an empty cart; storage errors are returned.
func (s *Store) read(ctx context.Context) ([]domain.LineItem, error) {
	payload, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return []domain.LineItem{}, nil
	case err != nil:
		return nil, err
	}

	items, dropped, err := decodePersisted(payload)
	if err != nil {
		s.logger.Warn("guest cart payload unreadable; starting empty", zap.Error(err))
		return []domain.LineItem{}, nil
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid persisted guest cart entries", zap.Int("dropped", dropped))
	}
	return mergeDuplicates(items), nil
}

// Key returns the storage key the cart persists under.
func (s *Store) Key() string { return s.key }

// Items returns a copy of the current line items.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := domain.CloneItems(s.items)
	if out == nil {
		out = []domain.LineItem{}
	}
	return out
}

// Cart returns the items as a Cart without a server id.
func (s *Store) Cart() domain.Cart {
	return domain.Cart{Items: s.Items(), AbandonedDiscount: decimal.Zero}
}

// Add merges qty units of item into the cart. A line for the same
// product and variant has its quantity increased; otherwise a new line
// with a synthetic id is appended. The returned line reflects the stored
// state.
func (s *Store) Add(ctx context.Context, item domain.LineItem, qty int) (domain.LineItem, error) {
	if qty < 1 {
		return domain.LineItem{}, domain.ErrInvalidQuantity
	}
	if item.ProductID <= 0 {
		return domain.LineItem{}, domain.ErrInvalidItem
	}

	var added domain.LineItem
	err := s.mutate(ctx, func(items []domain.LineItem) ([]domain.LineItem, error) {
		cart := domain.Cart{Items: items}
		if i := cart.FindByKey(item.Key()); i >= 0 {
			line := &items[i]
			if item.AvailableStock > 0 {
				line.AvailableStock = item.AvailableStock
			}
			if err := checkStock(line.AvailableStock, line.Quantity+qty); err != nil {
				return nil, err
			}
			line.Quantity += qty
			added = *line
			return items, nil
		}

		if err := checkStock(item.AvailableStock, qty); err != nil {
			return nil, err
		}
		line := fillDisplay(item)
		line.LineItemID = s.nextID(items)
		line.Quantity = qty
		added = line
		return append(items, line), nil
	})
	if err != nil {
		return domain.LineItem{}, err
	}
	return domain.CloneItems([]domain.LineItem{added})[0], nil
}

// Remove deletes the line with the given id.
func (s *Store) Remove(ctx context.Context, lineItemID int64) error {
	return s.mutate(ctx, func(items []domain.LineItem) ([]domain.LineItem, error) {
		i := domain.Cart{Items: items}.Find(lineItemID)
		if i < 0 {
			return nil, domain.ErrLineItemNotFound
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

// Increment adds one unit to a line, bounded by its available stock.
func (s *Store) Increment(ctx context.Context, lineItemID int64) error {
	return s.mutate(ctx, func(items []domain.LineItem) ([]domain.LineItem, error) {
		i := domain.Cart{Items: items}.Find(lineItemID)
		if i < 0 {
			return nil, domain.ErrLineItemNotFound
		}
		if err := checkStock(items[i].AvailableStock, items[i].Quantity+1); err != nil {
			return nil, err
		}
		items[i].Quantity++
		return items, nil
	})
}

// Decrement removes one unit from a line. The line is removed when its
// quantity reaches zero.
func (s *Store) Decrement(ctx context.Context, lineItemID int64) error {
	return s.mutate(ctx, func(items []domain.LineItem) ([]domain.LineItem, error) {
		i := domain.Cart{Items: items}.Find(lineItemID)
		if i < 0 {
			return nil, domain.ErrLineItemNotFound
		}
		if items[i].Quantity <= 1 {
			return append(items[:i], items[i+1:]...), nil
		}
		items[i].Quantity--
		return items, nil
	})
}

// Clear empties the cart and deletes its persisted copy.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(ctx, s.key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete guest cart: %w", err)
	}
	s.items = []domain.LineItem{}
	s.loaded = true
	return nil
}

// Replace overwrites the whole collection. Lines without a product id or
// with a quantity below one are dropped; lines without an id get a
// synthetic one; duplicates are merged and capped at stock.
func (s *Store) Replace(ctx context.Context, items []domain.LineItem) error {
	next := make([]domain.LineItem, 0, len(items))
	for _, it := range domain.CloneItems(items) {
		if it.ProductID <= 0 || it.Quantity < 1 {
			s.logger.Debug("replace: dropping invalid line", zap.Int64("product_id", it.ProductID), zap.Int("quantity", it.Quantity))
			continue
		}
		if it.LineItemID == 0 {
			it.LineItemID = s.nextID(next)
		}
		if it.AvailableStock < 0 {
			it.AvailableStock = 0
		}
		next = append(next, fillDisplay(it))
	}
	next = mergeDuplicates(next)
	return s.mutate(ctx, func([]domain.LineItem) ([]domain.LineItem, error) {
		return next, nil
	})
}

// ReplaceJSON replaces the collection with a JSON array of line items.
// Input that is not an array is treated as an empty collection.
func (s *Store) ReplaceJSON(ctx context.Context, raw []byte) error {
	var items []domain.LineItem
	if !isArray(raw) {
		s.logger.Warn("replace payload is not an array; clearing cart")
	} else if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("replace payload undecodable; clearing cart", zap.Error(err))
		items = nil
	}
	return s.Replace(ctx, items)
}

// mutate reloads the persisted items, applies fn to them and saves the
// result. Nothing is saved when the reload fails, and the in-memory state
// only takes the new items once the save succeeds.
func (s *Store) mutate(ctx context.Context, fn func([]domain.LineItem) ([]domain.LineItem, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx)
	if err != nil {
		s.logger.Error("guest cart reload failed; change not saved", zap.Error(err))
		return fmt.Errorf("load guest cart: %w", err)
	}
	s.items = current
	s.loaded = true

	next, err := fn(domain.CloneItems(current))
	if err != nil {
		return err
	}
	if next == nil {
		next = []domain.LineItem{}
	}
	payload, err := encodePersisted(next)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := s.storage.Save(ctx, s.key, payload); err != nil {
		s.logger.Error("guest cart save failed; keeping previous state", zap.Error(err))
		return fmt.Errorf("save guest cart: %w", err)
	}
	s.items = next
	return nil
}

func checkStock(available, want int) error {
	if available <= 0 || want > available {
		return domain.ErrStockExceeded
	}
	return nil
}

func fillDisplay(item domain.LineItem) domain.LineItem {
	if strings.TrimSpace(item.DisplayName) == "" {
		item.DisplayName = normalize.UnknownProductName
	}
	if strings.TrimSpace(item.ImageURL) == "" {
		item.ImageURL = normalize.PlaceholderImage
	}
	if item.UnitSellingPrice.IsNegative() {
		item.UnitSellingPrice = decimal.Zero
	}
	if item.UnitBasePrice.IsNegative() || item.UnitBasePrice.IsZero() {
		item.UnitBasePrice = item.UnitSellingPrice
	}
	return item
}

// nextID returns a synthetic id not used by items. Other writers of the
// same key run their own generators.
func (s *Store) nextID(items []domain.LineItem) int64 {
	for {
		id := s.ids.Next()
		if (domain.Cart{Items: items}).Find(id) < 0 {
			return id
		}
	}
}

// mergeDuplicates folds lines sharing a product/variant into the first
// one. A later line's positive stock figure wins, and quantities are capped
// at a known (positive) stock.
func mergeDuplicates(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	seen := make(map[domain.ItemKey]int, len(items))
	for _, it := range items {
		i, ok := seen[it.Key()]
		if !ok {
			seen[it.Key()] = len(out)
			out = append(out, it)
			i = len(out) - 1
		} else {
			if it.AvailableStock > 0 {
				out[i].AvailableStock = it.AvailableStock
			}
			out[i].Quantity += it.Quantity
		}
		if stock := out[i].AvailableStock; stock > 0 && out[i].Quantity > stock {
			out[i].Quantity = stock
		}
	}
	return out
}

func isArray(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}
