package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/ledger/internal/command"
	"github.com/eaglebank/ledger/internal/config"
	"github.com/eaglebank/ledger/internal/handler"
	"github.com/eaglebank/ledger/internal/projection"
	"github.com/eaglebank/ledger/internal/query"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/logging"
	"github.com/eaglebank/ledger/shared/middleware"
	redisClient "github.com/eaglebank/ledger/shared/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("ledger service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.SeedData {
		if err := repository.Seed(ctx, store, repository.SampleAccounts(), logger); err != nil {
			return err
		}
	}

	// Redis (read model cache + event streaming) is optional.
	var rdb *goredis.Client
	var publisher command.EventPublisher = events.NopPublisher{}
	if cfg.RedisEnabled() {
		redis, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redis.Close()
		rdb = redis.Client
		publisher = events.NewPublisher(rdb, logger)
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("redis disabled, running without view cache and events")
	}

	// --- CQRS wiring ---
	readRepo := repository.NewTransactionReadRepository(store, rdb, logger)

	commandSvc := command.NewTransactionCommandService(store, publisher, logger,
		command.WithLockTimeout(cfg.LockTimeout),
	)
	accountQueries := query.NewAccountQueryService(store)
	transactionQueries := query.NewTransactionQueryService(store, readRepo)

	consumerDone := make(chan struct{})
	if rdb != nil {
		hostname, _ := os.Hostname()
		proj := projection.NewTransactionProjection(readRepo, logger)
		subscriber := events.NewSubscriber(rdb, events.SubscriberConfig{
			Group:    projection.ConsumerGroup,
			Consumer: "ledger-" + hostname,
			Stream:   events.TransactionEventsStream,
			Handler:  proj.HandleTransactionEvent,
			Logger:   logger,
		})
		go func() {
			defer close(consumerDone)
			proj.Run(ctx, subscriber)
		}()
	} else {
		close(consumerDone)
	}

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg)))

	handler.RegisterRoutes(router,
		handler.NewAccountHandler(accountQueries),
		handler.NewTransactionHandler(commandSvc, transactionQueries),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("ledger service starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("shutting down")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	<-consumerDone
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.LedgerStore, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Info("using in-memory ledger store")
		return repository.NewMemoryStore(), nil
	}

	// Database connection (write store)
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repository.Migrate(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("using postgres ledger store")
	return repository.NewPostgresStore(db), nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	if cfg.AllowAllOrigins() {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	return c
}
