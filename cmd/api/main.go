package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/review"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/domain/wishlist"
	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/example/storefront/internal/infrastructure/guestcache"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/payment"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Env)
	defer log.Sync()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters long")
	}

	docs, cleanup, err := openDocstore(cfg, log)
	if err != nil {
		log.Fatal("failed to open document store", zap.Error(err))
	}
	defer cleanup()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	guestCache := guestcache.NewRedisStore(guestcache.NewClient(cfg.RedisAddr), cfg.GuestCartTTL)

	products := product.NewService(docs, log)
	carts := cart.NewService(
		cart.NewDocstoreRepository(docs),
		cart.NewGuestRepository(guestCache),
		log,
	)
	wishlists := wishlist.NewService(
		wishlist.NewDocstoreRepository(docs),
		wishlist.NewGuestRepository(guestCache),
		log,
	)
	reviews := review.NewService(docs, products, log)
	users := user.NewService(docs, log)
	orders := order.NewStore(docs, producer, log)

	payments := payment.NewGateway(cfg.PaymentBaseURL, cfg.PaymentSecretKey, log)
	orchestrator := checkout.NewOrchestrator(payments, orders, carts, log)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)

	router := api.NewRouter(
		api.NewHandlers(products, carts, wishlists, reviews, log),
		api.NewAuthHandlers(users, jwtService, docs, carts, wishlists, log),
		api.NewCheckoutHandlers(orchestrator, orders, log),
		api.NewAdminHandlers(products, orders, log),
		jwtService,
		log,
	)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.Info("server started",
			zap.String("addr", cfg.Addr),
			zap.String("docstore", cfg.DocstoreDriver))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

// openDocstore selects the document store backend from configuration.
func openDocstore(cfg *config.Config, log *zap.Logger) (docstore.Store, func(), error) {
	switch cfg.DocstoreDriver {
	case "postgres":
		db, err := docstore.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := docstore.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("connected to postgres document store")
		return docstore.NewPostgresStore(db), func() { db.Close() }, nil
	case "dynamodb":
		client, err := docstore.ConnectDynamo(context.Background())
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to dynamodb document store",
			zap.String("table", cfg.DynamoTable))
		return docstore.NewDynamoStore(client, cfg.DynamoTable), func() {}, nil
	default:
		log.Warn("using in-memory document store, data will not survive restarts")
		return docstore.NewMemoryStore(), func() {}, nil
	}
}
