package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/assistant"
	"github.com/nvoss/zotassist/internal/server"
	"github.com/nvoss/zotassist/internal/session"
	"github.com/nvoss/zotassist/internal/storage"
	"github.com/nvoss/zotassist/internal/zotero"
	"github.com/nvoss/zotassist/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Session state and assistant components
	state := session.NewState(store, session.SystemClock, logger).
		WithThreadTTL(time.Duration(cfg.Session.ThreadTTLDays) * 24 * time.Hour)
	client := openai.NewClient(cfg.OpenAI.APIKey)

	uploader := assistant.NewUploader(client, state, logger)
	stores := assistant.NewKnowledgeStores(client, state, session.SystemClock, logger)
	manager := assistant.NewManager(client, state, stores, cfg.OpenAI.Model, logger)
	poller := assistant.NewRunPoller(client, session.SystemClock, logger)
	threads := assistant.NewThreads(client, state, poller, logger)

	zoteroClient := zotero.NewClient(cfg.Zotero.BaseURL, cfg.Zotero.APIKey, cfg.Zotero.UserID, cfg.Server.TempDir, logger)

	handler := server.New(server.Deps{
		Zotero:     zoteroClient,
		Uploader:   uploader,
		Stores:     stores,
		Assistants: manager,
		Threads:    threads,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler,
	}

	go func() {
		var err error
		if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
			logger.Info("Starting HTTPS server", zap.Int("port", cfg.Server.Port))
			err = srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Shut down gracefully and clean up downloaded PDFs
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	zoteroClient.CleanupTemp()
}
