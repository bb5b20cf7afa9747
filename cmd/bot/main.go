package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"xui-vpn-bot/internal/config"
	"xui-vpn-bot/internal/constants"
	"xui-vpn-bot/internal/permissions"
	"xui-vpn-bot/internal/services"
	"xui-vpn-bot/internal/web"
	"xui-vpn-bot/pkg/telegrambot"
)

func main() {
	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration:", err)
	}

	// Initialize services
	stateService := services.NewUserStateService(logger)
	xuiService := services.NewXuiService(cfg, logger)
	defer xuiService.Close()
	qrService := services.NewQRService(logger)
	storage := services.NewStorageService(cfg.Storage.File, logger)
	subscription := services.NewSubscriptionService(cfg.Telegram.RequiredChannels, logger)

	// Setup permission controller
	permController := permissions.NewController(cfg.Telegram.AdminIDs, logger)

	// Initialize bot
	bot, err := telegrambot.NewBot(cfg, stateService, xuiService, qrService, storage, subscription, permController, logger)
	if err != nil {
		logger.Fatal("Failed to create bot:", err)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional health endpoint
	if cfg.Health.Addr != "" {
		healthServer := web.NewHealthServer(cfg.Health.Addr, storage, logger)
		go healthServer.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := healthServer.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("Health server shutdown failed: %v", err)
			}
		}()
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	// Start bot
	logger.Info("Starting VPN Telegram bot")
	if err := bot.Start(ctx); err != nil {
		logger.Fatal("Bot failed:", err)
	}
}

// setupLogger sets up the logger
func setupLogger() *logrus.Logger {
	logger := logrus.New()

	// Set log level from environment variable or default to info
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Printf("Invalid log level %s, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: constants.TimestampFormat,
	})

	return logger
}
