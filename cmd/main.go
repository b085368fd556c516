package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/ecofinds/internal/cache"
	"github.com/fjod/ecofinds/internal/config"
	"github.com/fjod/ecofinds/internal/events"
	ecogrpc "github.com/fjod/ecofinds/internal/grpc"
	h "github.com/fjod/ecofinds/internal/http"
	"github.com/fjod/ecofinds/internal/identity"
	"github.com/fjod/ecofinds/internal/logger"
	"github.com/fjod/ecofinds/internal/repository"
	"github.com/fjod/ecofinds/internal/retry"
	"github.com/fjod/ecofinds/internal/service"
	"github.com/fjod/ecofinds/internal/tracing"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	serviceName    = "ecofinds"
	sweeperGroupID = "ecofinds-cart-sweeper"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel)

	shutdownTracing := tracing.Setup(serviceName)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := retry.Policy{Attempts: cfg.StartupRetries, BaseDelay: time.Second}

	// Set up MongoDB connection
	var mongoDB *mongo.Database
	err = policy.Do(ctx, "connect mongodb", func(ctx context.Context) error {
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		mongoDB = db
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	slog.Info("connected to MongoDB", "database", cfg.MongoDBName)

	if err := repository.RunMigrations(cfg.MongoURI, cfg.MongoDBName); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	products := repository.NewMongoProductRepository(mongoDB)
	carts := repository.NewMongoCartRepository(mongoDB)
	purchases := repository.NewMongoPurchaseRepository(mongoDB)
	profiles := repository.NewMongoProfileRepository(mongoDB)
	pinger := repository.NewPinger(mongoDB)

	var cartCache cache.CartCache = cache.NopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		err := policy.Do(ctx, "ping redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		cartCache = cache.NewRedisCache(redisClient)
		slog.Info("redis cart cache enabled", "addr", cfg.RedisAddr)
	}

	lister, err := service.NewProductLister(cfg.ProductQueryStrategy, products)
	if err != nil {
		return err
	}
	mode, err := service.ParseCommitMode(cfg.PurchaseCommitMode)
	if err != nil {
		return err
	}

	productService := service.NewProductService(products, lister)
	cartService := service.NewCartService(carts, products, cartCache)
	profileService := service.NewProfileService(profiles)

	var wg sync.WaitGroup
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.CheckoutTopic, cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		sweeper := events.NewCartSweeper(cartService, cfg.CheckoutTopic, sweeperGroupID, cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(ctx)
		}()
		defer sweeper.Close()
		slog.Info("checkout events enabled", "topic", cfg.CheckoutTopic)
	}

	purchaseService := service.NewPurchaseService(products, purchases, cartService, publisher, mode)

	reaper := service.NewReservationReaper(products, cfg.ReservationTTL, cfg.ReaperInterval)
	if mode == service.CommitSaga {
		reaper.Start(ctx)
		defer reaper.Stop()
	}

	router := h.NewRouter(h.RouterDeps{
		Products:  h.NewProductHandler(productService),
		Carts:     h.NewCartHandler(cartService),
		Purchases: h.NewPurchaseHandler(purchaseService),
		Profiles:  h.NewProfileHandler(profileService),
		Verifier:  identity.NewVerifier(cfg.IdentitySecret, cfg.IdentityIssuer, cfg.IdentityAudience),
		Store:     pinger,
		Timeout:   cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	health := ecogrpc.NewHealthServer(pinger, 0)
	health.StartChecks(ctx)

	errCh := make(chan error, 2)
	go func() {
		slog.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		slog.Info("gRPC health server listening", "port", cfg.GRPCPort)
		if err := health.Server.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// Graceful shutdown
	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	stop()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	health.Stop()
	wg.Wait()

	slog.Info("service exited")
	return serveErr
}
