package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/avvvet/storebuddy/internal/classifier"
	"github.com/avvvet/storebuddy/internal/config"
	"github.com/avvvet/storebuddy/internal/handlers"
	"github.com/avvvet/storebuddy/internal/llm"
	"github.com/avvvet/storebuddy/internal/logging"
	"github.com/avvvet/storebuddy/internal/transport"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

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

	logger.Info("🚀 Starting storebuddy intent worker...",
		zap.String("service", cfg.ServiceName),
		zap.String("nats_url", cfg.NatsURL),
		zap.String("provider", cfg.LLMProvider))

	// The worker always runs the model locally and always needs NATS
	if err := cfg.ValidateLLM(); err != nil {
		logger.Fatal("❌ Invalid LLM configuration", zap.Error(err))
	}
	if cfg.NatsURL == "" {
		logger.Fatal("❌ NATS_URL environment variable is required")
	}

	// Initialize LLM provider
	provider, err := llm.NewProvider(cfg)
	if err != nil {
		logger.Fatal("❌ Failed to initialize LLM provider", zap.Error(err))
	}
	logger.Info("✅ LLM provider initialized")

	// Initialize intent handler
	intentHandler := handlers.NewIntentHandler(
		classifier.NewLLM(provider,
			classifier.WithLogger(logger),
			classifier.WithSampling(cfg.MaxTokens, cfg.Temperature),
		),
		logger,
	)
	logger.Info("✅ Intent handler initialized")

	// Initialize NATS transport
	logger.Info("📡 Connecting to NATS...")
	conn, err := transport.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("❌ Failed to initialize NATS transport", zap.Error(err))
	}
	defer conn.Close()

	natsTransport := transport.NewNATSTransport(conn, cfg, intentHandler, logger)

	// Start listening for requests
	if err := natsTransport.Start(); err != nil {
		logger.Fatal("❌ Failed to start NATS transport", zap.Error(err))
	}

	logger.Info("✅ storebuddy intent worker is running!", zap.String("subject", cfg.NatsRequestSubject))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Block until signal received
	sig := <-sigChan
	logger.Info("🛑 Received signal", zap.String("signal", sig.String()))
	logger.Info("🔄 Shutting down gracefully...")

	if err := natsTransport.Close(); err != nil {
		logger.Warn("⚠️ Error closing NATS transport", zap.Error(err))
	}

	logger.Info("👋 storebuddy intent worker stopped")
}
