package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/guestcart"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/migrate"
	guestcartrepo "storefront/internal/repository/guestcart"
	tokenrepo "storefront/internal/repository/token"
	anonymoussvc "storefront/internal/service/anonymous"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
)

const purgeInterval = time.Hour

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.Named("api")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var (
		dbpool  *pgxpool.Pool
		storage guestcart.Storage = guestcart.NewMemoryStorage()
		tokens  tokenrepo.Repository
	)
	if cfg.UsesPostgres() {
		dbpool, err = db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatal("connect to db", zap.Error(err))
		}
		defer dbpool.Close()

		if err := migrate.Apply(ctx, dbpool); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		storage = guestcartrepo.NewPostgres(dbpool, logger)
		tokens = tokenrepo.NewPostgres(dbpool)
	} else {
		logger.Warn("guest carts are kept in memory and will not survive a restart")
	}

	guestSessions := anonymoussvc.New(cfg.GuestTokenTTL, anonymoussvc.WithRepository(tokens), anonymoussvc.WithLogger(logger))
	if repo, ok := storage.(guestcartrepo.Repository); ok {
		go purgeStaleGuests(ctx, repo, guestSessions, cfg.GuestTokenTTL, logger)
	}

	guestCarts, err := guestcart.NewRegistry(storage, cfg.SessionCacheSize, logger)
	if err != nil {
		logger.Fatal("init guest carts", zap.Error(err))
	}

	api, err := backend.New(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("init backend client", zap.Error(err))
	}

	cartSessions, err := cartsvc.NewSessions(api, cfg.SessionCacheSize, cartsvc.WithLogger(logger))
	if err != nil {
		logger.Fatal("init cart sessions", zap.Error(err))
	}
	checkoutService, err := checkoutsvc.New(api, cfg.PincodeCacheSize, cfg.Currency, logger)
	if err != nil {
		logger.Fatal("init checkout", zap.Error(err))
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		GuestSessions: guestSessions,
		GuestCarts:    guestCarts,
		CartSessions:  cartSessions,
		Checkout:      checkoutService,
		CORSOrigins:   cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("guest_store", cfg.GuestStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

// purgeStaleGuests deletes expired guest tokens and guest carts untouched
// for longer than a token lives; nobody can reach them any more.
func purgeStaleGuests(ctx context.Context, carts guestcartrepo.Repository, sessions *anonymoussvc.Service, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		if n, err := sessions.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("purge expired guest tokens", zap.Error(err))
		} else if n > 0 {
			logger.Info("purged expired guest tokens", zap.Int64("count", n))
		}
		if _, err := carts.PurgeBefore(ctx, time.Now().Add(-ttl)); err != nil && ctx.Err() == nil {
			logger.Warn("purge stale guest carts", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
