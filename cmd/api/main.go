package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getnara/unstruct/internal/api"
	"github.com/getnara/unstruct/internal/api/handler"
	"github.com/getnara/unstruct/internal/api/middleware"
	"github.com/getnara/unstruct/internal/config"
	"github.com/getnara/unstruct/internal/index"
	"github.com/getnara/unstruct/internal/logger"
	"github.com/getnara/unstruct/internal/repository"
	"github.com/getnara/unstruct/internal/resolver"
	"github.com/getnara/unstruct/internal/service"
	"github.com/getnara/unstruct/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLog := logger.NewDefault()
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	defer qdrantRepo.Close()

	ctx := context.Background()

	// Initialize storage: one client per bucket
	uploadStorage, err := storage.NewStorage(&cfg.Storage, cfg.Storage.UploadBucket)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize upload storage")
	}
	resultStorage, err := storage.NewStorage(&cfg.Storage, cfg.Storage.ResultsBucket)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize results storage")
	}
	for _, s := range []storage.ObjectStorage{uploadStorage, resultStorage} {
		if b, ok := s.(interface{ EnsureBucket(context.Context) error }); ok {
			if err := b.EnsureBucket(ctx); err != nil {
				appLog.WithError(err).Fatal("Failed to ensure storage bucket")
			}
		}
	}

	// Initialize the retrieval index
	embedder := index.NewJinaEmbedder(&cfg.Embedding)
	transcriber := index.NewDeepgramTranscriber(&cfg.Transcription, appLog)
	multimodalIndex := index.NewMultimodalIndex(qdrantRepo, embedder, transcriber, &index.Config{
		WorkDir:      cfg.Processing.TempDir,
		MaxFrames:    cfg.Processing.MaxFrames,
		ChunkSize:    cfg.Processing.ChunkSize,
		ChunkOverlap: cfg.Processing.ChunkOverlap,
	}, appLog)

	// Initialize the processing pipeline
	assetResolver := resolver.NewAssetResolver(
		cfg.Processing.TempDir,
		cfg.Processing.ResolveRetries,
		uploadStorage,
		appLog,
	)
	clientFactory := service.NewClientFactory(&cfg.Models)
	handlers := service.NewHandlerMap(multimodalIndex, cfg.Processing.RetrievalTopK)
	agent := service.NewAgentService(clientFactory, handlers, assetResolver, appLog)
	usageRecorder := service.NewGormUsageRecorder(usageRepo)
	processor := service.NewTaskProcessor(
		taskRepo,
		projectRepo,
		agent,
		resultStorage,
		usageRecorder,
		cfg.Processing.PreviewSize,
		cfg.Processing.ResultURLTTL,
		appLog,
	)

	// Setup router
	router := api.SetupRouter(&api.Handlers{
		Health:  handler.NewHealthHandler(),
		Project: handler.NewProjectHandler(projectRepo),
		Asset:   handler.NewAssetHandler(assetRepo, multimodalIndex, assetResolver),
		Task:    handler.NewTaskHandler(taskRepo, assetRepo, processor),
	}, appLog, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLog.Infof("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Fatal("Server forced to shutdown")
	}

	appLog.Info("Server exited")
}
