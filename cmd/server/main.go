package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/storebuddy/internal/api"
	"github.com/avvvet/storebuddy/internal/catalog"
	"github.com/avvvet/storebuddy/internal/classifier"
	"github.com/avvvet/storebuddy/internal/config"
	"github.com/avvvet/storebuddy/internal/dialogue"
	"github.com/avvvet/storebuddy/internal/gateway"
	"github.com/avvvet/storebuddy/internal/llm"
	"github.com/avvvet/storebuddy/internal/logging"
	"github.com/avvvet/storebuddy/internal/metrics"
	"github.com/avvvet/storebuddy/internal/transport"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (for development)
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("No .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		os.Exit(fail(logger, "❌ Gateway stopped with error", err))
	}
}

// fail logs err and flushes the logger before the process exits, since
// os.Exit skips deferred calls.
func fail(logger *zap.Logger, msg string, err error) int {
	logger.Error(msg, zap.Error(err))
	_ = logger.Sync()
	return 1
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("🚀 Starting storebuddy gateway...",
		zap.String("service", cfg.ServiceName),
		zap.String("catalog_backend", cfg.CatalogBackend),
		zap.String("classifier_backend", cfg.ClassifierBackend))

	// Catalog store; a load failure here is fatal
	store, closeCatalog, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()

	products, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("✅ Catalog loaded", zap.Int("products", len(products)))

	// NATS is optional unless the classifier runs remotely
	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		logger.Info("📡 Connecting to NATS...")
		natsConn, err = transport.Connect(cfg, logger)
		if err != nil {
			return err
		}
		defer natsConn.Close()
	}

	cls, err := openClassifier(cfg, natsConn, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	manager := gateway.NewManager(
		gateway.WithHistoryWindow(cfg.HistoryWindow),
		gateway.WithMetrics(m),
		gateway.WithLogger(logger),
	)

	// Stock events: fan in over NATS when available, otherwise stay local
	alerts := transport.SoldOutAlerts(manager, logger)
	var publisher dialogue.Publisher = transport.LocalPublisher(alerts)
	if natsConn != nil {
		events := transport.NewEvents(natsConn, cfg.NatsEventsSubject, logger)
		if err := events.Subscribe(alerts); err != nil {
			return err
		}
		defer events.Close()
		publisher = events
	}

	engine := dialogue.NewEngine(cls, store,
		dialogue.WithTimeout(cfg.ClassifierTimeout),
		dialogue.WithPublisher(publisher),
		dialogue.WithMetrics(m),
		dialogue.WithLogger(logger),
	)

	chat := gateway.NewChatHandler(manager, engine, api.OriginAllowed(cfg.CORSOrigins), logger)
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewHandler(store, api.Options{
			Chat:    chat,
			Metrics: m.Handler(),
			Origins: cfg.CORSOrigins,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("✅ storebuddy gateway is running!", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("🔄 Shutting down gracefully...", zap.Int("sessions", manager.Count()))

		// hijacked websocket connections are not tracked by Shutdown
		manager.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("👋 storebuddy gateway stopped")
	return err
}

func openCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*catalog.Store, func(), error) {
	file := catalog.NewFileSnapshot(cfg.CatalogPath)
	opts := []catalog.Option{catalog.WithLogger(logger)}

	var client *redis.Client
	if cfg.CatalogBackend == config.BackendRedis || cfg.CatalogLock {
		logger.Info("🔌 Connecting to Redis...", zap.String("url", cfg.RedisURL))
		var err error
		client, err = catalog.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("✅ Redis connected")
	}
	closeFn := func() {
		if client != nil {
			if err := client.Close(); err != nil {
				logger.Warn("⚠️ Error closing Redis client", zap.Error(err))
			}
		}
	}

	if cfg.CatalogLock {
		opts = append(opts, catalog.WithLocker(catalog.NewRedisLocker(client, cfg.ServiceName+":"), cfg.CatalogLockTTL))
	}

	if cfg.CatalogBackend != config.BackendRedis {
		return catalog.NewStore(file, opts...), closeFn, nil
	}

	snap := catalog.NewRedisSnapshot(client, cfg.CatalogRedisKey)
	seeded, err := snap.Seed(ctx, file)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if seeded {
		logger.Info("💾 Seeded Redis catalog from file", zap.String("path", cfg.CatalogPath))
	}
	return catalog.NewStore(snap, opts...), closeFn, nil
}

func openClassifier(cfg *config.Config, conn *nats.Conn, logger *zap.Logger) (classifier.Classifier, error) {
	if cfg.ClassifierBackend == config.ClassifierNATS {
		logger.Info("🤖 Using remote classifier", zap.String("subject", cfg.NatsRequestSubject))
		return classifier.NewRemote(conn, cfg.NatsRequestSubject), nil
	}

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	logger.Info("🤖 LLM provider initialized", zap.String("provider", cfg.LLMProvider))
	return classifier.NewLLM(provider,
		classifier.WithLogger(logger),
		classifier.WithSampling(cfg.MaxTokens, cfg.Temperature),
	), nil
}
