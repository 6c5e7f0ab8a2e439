package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gepetobot/internal/chatgpt"
	"gepetobot/internal/conversation"
	"gepetobot/internal/messagestore"
	"gepetobot/internal/telegram"
	"gepetobot/internal/twilio"
	"gepetobot/pkg/config"
	"gepetobot/pkg/db"

	"github.com/sirupsen/logrus"
)

func main() {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	cfg := config.LoadConfig()

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		logrus.Fatalf("initializing message store: %v", err)
	}
	defer closeStore()

	messageService := messagestore.NewService(store)
	gptService := chatgpt.NewService(cfg)
	conversationService := conversation.NewService(messageService, gptService, cfg.SystemPrompt, cfg.TokenBudget)

	telegramHandler, err := telegram.NewHandler(cfg, conversationService, gptService)
	if err != nil {
		logrus.Fatalf("initializing Telegram bot: %v", err)
	}

	twilioHandler := twilio.NewHandler(cfg, conversationService)

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", telegramHandler.HandleWebhook)
	mux.HandleFunc("/twilio/webhook", twilioHandler.HandleWebhook)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: mux,
	}

	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()

	if cfg.TelegramMode == "polling" {
		go telegramHandler.Run(pollCtx)
	} else if err := telegramHandler.SetupWebhook(); err != nil {
		logrus.Errorf("setting Telegram webhook: %v", err)
	}

	go func() {
		logrus.Infof("server listening on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down...")
	stopPolling()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("stopping server: %v", err)
	}

	logrus.Info("server stopped")
}

// buildStore picks the history backend from configuration. The second
// return value closes whatever the backend holds open.
func buildStore(cfg *config.Config) (messagestore.Store, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case "postgres":
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			return nil, noop, err
		}
		return messagestore.NewPostgresStore(database, cfg.Retention()), func() { database.Close() }, nil

	case "sqlite":
		database, err := db.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		store, err := messagestore.NewSQLiteStore(database, cfg.Retention())
		if err != nil {
			database.Close()
			return nil, noop, err
		}
		return store, func() { database.Close() }, nil

	case "file":
		return messagestore.NewFileStore(cfg.FileStorePath, cfg.Retention()), noop, nil

	case "graphql":
		return messagestore.NewGraphQLStore(cfg.GraphQLURL, cfg.GraphQLAPIKey, cfg.Retention()), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
