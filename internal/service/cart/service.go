// Package cart is the logged-in shopper's cart. The commerce backend owns
// the cart; this service mirrors it locally, applies changes optimistically
// and restores a snapshot when the backend refuses them.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/lineid"
	"storefront/internal/logging"
	"storefront/internal/normalize"
	"storefront/internal/pricing"
)

type backendAPI interface {
	GetCart(ctx context.Context, token string) ([]byte, error)
	AddItem(ctx context.Context, token string, req backend.AddItemRequest) error
	RemoveItem(ctx context.Context, token string, lineItemID int64) error
	UpdateQuantity(ctx context.Context, token string, lineItemID int64, qty int) error
	ClearCart(ctx context.Context, token string) error
	AbandonedOffers(ctx context.Context, token string) ([]domain.AbandonedOffer, error)
}

type normalizer interface {
	Cart(raw []byte) domain.Cart
}

// Service is one shopper session's cart. Safe for concurrent use; the
// lock covers local state only, so concurrent operations are not
// serialized against each other and the last refetch wins.
type Service struct {
	api    backendAPI
	norm   normalizer
	token  string
	ids    lineid.Generator
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	cart   domain.Cart
	offers []domain.AbandonedOffer
	loaded bool
}

type Option func(*Service)

func WithIDs(g lineid.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithNormalizer(n normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.norm = n
		}
	}
}

// New returns an empty cart for the session identified by token. Call
// Fetch to load the server state.
func New(api backendAPI, token string, opts ...Option) *Service {
	s := &Service{
		api:    api,
		token:  token,
		ids:    lineid.NewSession(),
		now:    time.Now,
		logger: zap.NewNop(),
		cart:   emptyCart(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.norm == nil {
		s.norm = normalize.New(s.logger)
	}
	s.logger = s.logger.Named("cart")
	return s
}

// Cart returns a copy of the local cart.
func (s *Service) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Offers returns the abandoned-cart offers loaded by the last Fetch.
func (s *Service) Offers() []domain.AbandonedOffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AbandonedOffer, len(s.offers))
	copy(out, s.offers)
	return out
}

// Fetch replaces the local cart with the server's. On failure the local
// cart is emptied and the error returned.
func (s *Service) Fetch(ctx context.Context) (domain.Cart, error) {
	if err := s.checkSession(); err != nil {
		s.reset()
		return domain.Cart{}, err
	}

	raw, err := s.api.GetCart(ctx, s.token)
	if err != nil {
		s.logger.Warn("fetch cart failed", zap.Error(err))
		s.reset()
		return domain.Cart{}, err
	}
	cart := s.norm.Cart(raw)

	offers, err := s.api.AbandonedOffers(ctx, s.token)
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		s.reset()
		return domain.Cart{}, err
	case err != nil:
		s.logger.Info("abandoned offers unavailable", zap.Error(err))
		offers = nil
	}
	cart.AbandonedDiscount = pricing.AbandonedDiscountAmount(cart.Items, offers)

	s.mu.Lock()
	s.cart = cart
	s.offers = offers
	s.loaded = true
	out := s.cart.Clone()
	s.mu.Unlock()
	return out, nil
}

// EnsureLoaded fetches the server cart unless a fetch already succeeded.
func (s *Service) EnsureLoaded(ctx context.Context) (domain.Cart, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return s.Cart(), nil
	}
	return s.Fetch(ctx)
}

// Add puts qty units of item in the cart, merging with an existing line
// for the same product and variant.
func (s *Service) Add(ctx context.Context, item domain.LineItem, qty int) (domain.Cart, error) {
	if err := s.checkSession(); err != nil {
		return domain.Cart{}, err
	}
	if qty < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}
	if item.ProductID <= 0 {
		return domain.Cart{}, domain.ErrInvalidItem
	}

	snapshot, err := s.apply(func(c *domain.Cart) error {
		if i := c.FindByKey(item.Key()); i >= 0 {
			line := &c.Items[i]
			stock := line.AvailableStock
			if item.AvailableStock > 0 {
				stock = item.AvailableStock
			}
			if err := checkStock(stock, line.Quantity+qty); err != nil {
				return err
			}
			line.Quantity += qty
			return nil
		}
		if err := checkStock(item.AvailableStock, qty); err != nil {
			return err
		}
		line := domain.CloneItems([]domain.LineItem{item})[0]
		line.LineItemID = s.ids.Next()
		line.Quantity = qty
		c.Items = append(c.Items, line)
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}

	return s.commit(ctx, "add", snapshot, func() error {
		return s.api.AddItem(ctx, s.token, backend.NewAddItemRequest(item, qty))
	})
}

// Remove deletes a line.
func (s *Service) Remove(ctx context.Context, lineItemID int64) (domain.Cart, error) {
	if err := s.checkSession(); err != nil {
		return domain.Cart{}, err
	}
	snapshot, err := s.apply(func(c *domain.Cart) error {
		i := c.Find(lineItemID)
		if i < 0 {
			return domain.ErrLineItemNotFound
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return s.commit(ctx, "remove", snapshot, func() error {
		return s.api.RemoveItem(ctx, s.token, lineItemID)
	})
}

// Increment adds one unit to a line, bounded by its available stock.
func (s *Service) Increment(ctx context.Context, lineItemID int64) (domain.Cart, error) {
	if err := s.checkSession(); err != nil {
		return domain.Cart{}, err
	}
	var qty int
	snapshot, err := s.apply(func(c *domain.Cart) error {
		i := c.Find(lineItemID)
		if i < 0 {
			return domain.ErrLineItemNotFound
		}
		if err := checkStock(c.Items[i].AvailableStock, c.Items[i].Quantity+1); err != nil {
			return err
		}
		c.Items[i].Quantity++
		qty = c.Items[i].Quantity
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return s.commit(ctx, "increment", snapshot, func() error {
		return s.api.UpdateQuantity(ctx, s.token, lineItemID, qty)
	})
}

// Decrement removes one unit from a line; a line at one unit is removed.
func (s *Service) Decrement(ctx context.Context, lineItemID int64) (domain.Cart, error) {
	if err := s.checkSession(); err != nil {
		return domain.Cart{}, err
	}
	var qty int
	snapshot, err := s.apply(func(c *domain.Cart) error {
		i := c.Find(lineItemID)
		if i < 0 {
			return domain.ErrLineItemNotFound
		}
		qty = c.Items[i].Quantity - 1
		if qty < 1 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
		c.Items[i].Quantity = qty
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return s.commit(ctx, "decrement", snapshot, func() error {
		if qty < 1 {
			return s.api.RemoveItem(ctx, s.token, lineItemID)
		}
		return s.api.UpdateQuantity(ctx, s.token, lineItemID, qty)
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) (domain.Cart, error) {
	if err := s.checkSession(); err != nil {
		return domain.Cart{}, err
	}
	snapshot, _ := s.apply(func(c *domain.Cart) error {
		c.Items = []domain.LineItem{}
		c.AbandonedDiscount = decimal.Zero
		return nil
	})
	return s.commit(ctx, "clear", snapshot, func() error {
		return s.api.ClearCart(ctx, s.token)
	})
}

// apply runs fn against a working copy of the cart and installs it. It
// returns the state before the change for rollback. Validation errors
// from fn leave the cart untouched.
func (s *Service) apply(fn func(*domain.Cart) error) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.cart.Clone()
	working := s.cart.Clone()
	if err := fn(&working); err != nil {
		return domain.Cart{}, err
	}
	s.cart = working
	return snapshot, nil
}

// commit performs the remote call. Failure restores snapshot; success
// refetches the authoritative cart.
func (s *Service) commit(ctx context.Context, op string, snapshot domain.Cart, remote func() error) (domain.Cart, error) {
	if err := remote(); err != nil {
		s.mu.Lock()
		s.cart = snapshot
		s.mu.Unlock()
		s.logger.Warn("cart change rolled back", zap.String("op", op), zap.Error(err))
		return domain.Cart{}, err
	}
	cart, err := s.Fetch(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("refresh cart after %s: %w", op, err)
	}
	return cart, nil
}

func (s *Service) checkSession() error {
	return backend.CheckCredential(s.token, s.now())
}

func (s *Service) reset() {
	s.mu.Lock()
	s.cart = emptyCart()
	s.offers = nil
	s.loaded = false
	s.mu.Unlock()
}

func emptyCart() domain.Cart {
	return domain.Cart{Items: []domain.LineItem{}}
}

func checkStock(available, want int) error {
	if available <= 0 || want > available {
		return domain.ErrStockExceeded
	}
	return nil
}
