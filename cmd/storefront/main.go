package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/circuitbreaker"
	"github.com/fjod/undhyu/internal/config"
	"github.com/fjod/undhyu/internal/domain"
	h "github.com/fjod/undhyu/internal/http"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/payment"
	"github.com/fjod/undhyu/internal/shopper"
	"github.com/fjod/undhyu/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		logger.Fatal("Failed to load environment", map[string]interface{}{"error": err.Error()})
	}
	cfg := config.NewStorefront()
	logger.Init(cfg.LogLevel)

	logger.Info("Storefront starting", map[string]interface{}{
		"port":    cfg.HTTPPort,
		"storage": cfg.StorageDriver,
		"catalog": cfg.CatalogSource,
	})

	ctx := context.Background()

	store, closer, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", map[string]interface{}{"driver": cfg.StorageDriver, "error": err.Error()})
	}
	if closer != nil {
		defer closer.Close()
	}

	gateway := newGateway(cfg)
	source, err := newCatalog(cfg)
	if err != nil {
		logger.Fatal("Failed to set up catalog", map[string]interface{}{"error": err.Error()})
	}

	sessions := shopper.NewRegistry(store, gateway, shopper.Config{
		KeyMode:        domain.ParseKeyMode(cfg.CartKeyMode),
		AutoClose:      cfg.CartAutoCloseWait,
		PaymentTimeout: cfg.PaymentTimeout,
		IdleTTL:        cfg.SessionIdleTTL,
	})

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, cfg.SessionSweepInterval)

	routerCfg := h.RouterConfig{
		Sessions:           sessions,
		Catalog:            source,
		VerificationWindow: cfg.VerificationWindow,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}
	if results, ok := gateway.(payment.ResultSource); ok {
		routerCfg.Results = results
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(h.NewRouter(routerCfg), "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Storefront listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down storefront", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server forced to shutdown", nil)
	}
	logger.Info("Storefront stopped", nil)
}

func openStorage(ctx context.Context, cfg *config.Storefront) (storage.Store, io.Closer, error) {
	switch cfg.StorageDriver {
	case "memory":
		return storage.NewMemory(), nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, cfg.StorageTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return storage.NewRedis(client, 0), client, nil
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.StorageTimeout)
		defer cancel()
		db, err := storage.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		s := storage.NewMongo(db)
		if err := s.CreateIndexes(connectCtx); err != nil {
			mongoCloser{db: db}.Close()
			return nil, nil, err
		}
		return s, mongoCloser{db: db}, nil
	default:
		s, err := storage.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s, nil
	}
}

func newGateway(cfg *config.Storefront) payment.Gateway {
	if cfg.PaymentSimulation {
		logger.Warn("Payment simulation enabled, no real payments will be taken", nil)
		return payment.NewSimulatedGateway(
			payment.WithSuccessRate(cfg.SimulationSuccess),
			payment.WithDelay(cfg.SimulationDelay),
		)
	}
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:        "payment",
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	})
	return payment.NewHTTPGateway(cfg.APIBaseURL, cfg.PaymentTimeout, breaker)
}

func newCatalog(cfg *config.Storefront) (catalog.Source, error) {
	if cfg.CatalogSource == "mock" {
		return catalog.NewMockSource(catalog.DefaultPageSize)
	}

	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:        "catalog",
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
		Ignore:      catalog.IsNotFound,
	})
	primary := catalog.NewHTTPSource(cfg.APIBaseURL, catalog.DefaultPageSize, cfg.APITimeout, breaker)
	if !cfg.CatalogFallbackToMock {
		return primary, nil
	}

	mock, err := catalog.NewMockSource(catalog.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return catalog.NewFallback(primary, mock), nil
}

type mongoCloser struct {
	db *mongo.Database
}

func (c mongoCloser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.db.Client().Disconnect(ctx)
}
