package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/undhyu/internal/backend"
	"github.com/fjod/undhyu/internal/cache"
	"github.com/fjod/undhyu/internal/circuitbreaker"
	"github.com/fjod/undhyu/internal/config"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/publisher"
	"github.com/fjod/undhyu/internal/razorpay"
	"github.com/fjod/undhyu/internal/repository"
	"github.com/fjod/undhyu/internal/shopify"
	"github.com/fjod/undhyu/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		logger.Fatal("Failed to load environment", map[string]interface{}{"error": err.Error()})
	}
	cfg := config.NewAPI()
	logger.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shop, err := shopify.NewClient(cfg.ShopifyStoreDomain, cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion,
		shopify.WithTimeout(cfg.RequestTimeout),
		shopify.WithBreaker(circuitbreaker.New(circuitbreaker.Settings{
			Name:        "shopify",
			MaxFailures: cfg.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout,
			Ignore: func(err error) bool {
				var gqlErr *shopify.GraphQLError
				return errors.As(err, &gqlErr)
			},
		})),
	)
	if err != nil {
		logger.Fatal("Failed to create Shopify client", map[string]interface{}{"error": err.Error()})
	}

	pay, err := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret,
		razorpay.WithBaseURL(cfg.RazorpayBaseURL),
		razorpay.WithBreaker(circuitbreaker.New(circuitbreaker.Settings{
			Name:        "razorpay",
			MaxFailures: cfg.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout,
		})),
	)
	if err != nil {
		logger.Fatal("Failed to create Razorpay client", map[string]interface{}{"error": err.Error()})
	}

	deps := backend.Deps{Catalog: shop, Payments: pay}

	mongoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := storage.ConnectMongoDB(mongoCtx, cfg.MongoURI, cfg.MongoDBName)
	cancel()
	if err != nil {
		logger.Warn("MongoDB unavailable, status checks disabled", map[string]interface{}{"error": err.Error()})
	} else {
		defer db.Client().Disconnect(context.Background())
		deps.Status = repository.NewStatusChecks(db)
	}

	pg, err := repository.NewPostgres(&repository.Credentials{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
	})
	if err != nil {
		logger.Warn("Postgres unavailable, orders are not recorded", map[string]interface{}{"error": err.Error()})
	} else {
		defer pg.Close()
		if err := pg.RunMigrations(); err != nil {
			logger.Fatal("Failed to run migrations", map[string]interface{}{"error": err.Error()})
		}
		logger.Info("Database migrations completed", nil)
		deps.Orders = pg

		poller := publisher.NewOutboxPoller(pg, cfg.KafkaTopic, cfg.OutboxTick, cfg.KafkaBrokers...)
		defer poller.Close()
		go poller.Run(ctx)
	}

	if cfg.EnableCache {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("Redis unavailable, catalog cache disabled", map[string]interface{}{"error": err.Error()})
			client.Close()
		} else {
			defer client.Close()
			deps.Cache = cache.NewRedisCache(client, cfg.CacheTTL)
		}
	}

	handler := backend.NewHandler(deps, cfg.RequestTimeout).Routes(cfg.CORSOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(handler, "api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API", nil)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server forced to shutdown", nil)
	}
	logger.Info("API stopped", nil)
}
