package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/guestcart"
	"storefront/internal/service/anonymous"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/checkout"
)

type guestSessionService interface {
	Issue(ctx context.Context) (anonymous.Session, error)
	LookupByToken(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string)
}

type guestCartRegistry interface {
	Get(ctx context.Context, guestID string) *guestcart.Store
}

type cartSessions interface {
	Get(token string) *cartsvc.Service
	Forget(token string)
}

type checkoutService interface {
	Quote(ctx context.Context, pincode string) (domain.ShippingQuote, error)
	Preview(ctx context.Context, token string, cart domain.Cart, req checkout.PreviewRequest) (checkout.Preview, error)
	PlaceOrder(ctx context.Context, token string, cart domain.Cart, req checkout.OrderRequest) (checkout.OrderResult, error)
}

// Deps are the services the router dispatches to.
type Deps struct {
	GuestSessions guestSessionService
	GuestCarts    guestCartRegistry
	CartSessions  cartSessions
	Checkout      checkoutService
	CORSOrigins   []string
}

func (d Deps) validate() error {
	switch {
	case d.GuestSessions == nil:
		return errors.New("guest session service required")
	case d.GuestCarts == nil:
		return errors.New("guest cart registry required")
	case d.CartSessions == nil:
		return errors.New("cart sessions required")
	case d.Checkout == nil:
		return errors.New("checkout service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(zap.NewStdLog(logger.Named("http")).Writer()), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	h := &handlers{deps: deps, logger: logger.Named("http")}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	router.POST("/guest/session", h.issueGuestSession)
	guest := router.Group("/guest", guestMiddleware(deps.GuestSessions))
	{
		guest.GET("/cart", h.guestCart)
		guest.POST("/cart/items", h.guestAdd)
		guest.DELETE("/cart/items/:lineItemId", h.guestRemove)
		guest.POST("/cart/items/:lineItemId/increment", h.guestIncrement)
		guest.POST("/cart/items/:lineItemId/decrement", h.guestDecrement)
		guest.PUT("/cart", h.guestReplace)
		guest.DELETE("/cart", h.guestClear)
	}

	me := router.Group("/me", bearerMiddleware())
	{
		me.GET("/cart", h.meCart)
		me.POST("/cart/items", h.meAdd)
		me.DELETE("/cart/items/:lineItemId", h.meRemove)
		me.POST("/cart/items/:lineItemId/increment", h.meIncrement)
		me.POST("/cart/items/:lineItemId/decrement", h.meDecrement)
		me.DELETE("/cart", h.meClear)
		me.POST("/cart/merge", guestMiddleware(deps.GuestSessions), h.meMerge)
		me.POST("/checkout/preview", h.checkoutPreview)
		me.POST("/checkout/order", h.checkoutOrder)
	}

	router.GET("/checkout/pincode/:pincode", h.pincodeQuote)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", guestTokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

type handlers struct {
	deps   Deps
	logger *zap.Logger
}
