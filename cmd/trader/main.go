package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bitkub-trade-bot-go/internal/bitkub"
	"bitkub-trade-bot-go/internal/config"
	"bitkub-trade-bot-go/internal/database"
	"bitkub-trade-bot-go/internal/logger"
	"bitkub-trade-bot-go/internal/state"
	"bitkub-trade-bot-go/internal/telegram"
	"bitkub-trade-bot-go/internal/trader"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Secrets come from the environment; a local .env is optional.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// The logger is configured from the config, so it can't exist yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	notifier := telegram.NewNotifier(&cfg.Telegram, log)

	if err := cfg.Validate(); err != nil {
		notifier.Notify(fmt.Sprintf("⚠️ bot misconfigured: %v", err))
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		notifier.Notify(fmt.Sprintf("⚠️ bot cannot open database: %v", err))
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	restClient := bitkub.NewRestClient(&cfg.Bitkub, log)
	if _, err := restClient.GetServerTime(); err != nil {
		notifier.Notify(fmt.Sprintf("⚠️ bot cannot reach Bitkub: %v", err))
		log.Fatal("Failed to connect to Bitkub API", zap.Error(err))
	}
	log.Info("Successfully connected to Bitkub API.")

	engine, err := trader.NewEngine(trader.StrategyContext{
		Logger:   log,
		Cfg:      &cfg,
		Client:   restClient,
		Notifier: notifier,
		Store:    state.NewStore(db),
	})
	if err != nil {
		notifier.Notify(fmt.Sprintf("⚠️ bot misconfigured: %v", err))
		log.Fatal("Failed to build engine", zap.Error(err))
	}

	// Setup context for graceful shutdown of the optional ticker loop.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := engine.Run(ctx); err != nil {
		notifier.Notify(fmt.Sprintf("⚠️ bot stopped: %v", err))
		log.Fatal("Engine stopped with a fatal error", zap.Error(err))
	}

	log.Info("Bot run complete.")
}
