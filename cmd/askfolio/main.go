package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askfolio/askfolio/internal/api"
	"github.com/askfolio/askfolio/internal/cache"
	"github.com/askfolio/askfolio/internal/config"
	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/llm"
	"github.com/askfolio/askfolio/internal/monitor"
	"github.com/askfolio/askfolio/internal/rag"
	"github.com/askfolio/askfolio/internal/repository"
	"github.com/askfolio/askfolio/internal/retriever"
	"github.com/askfolio/askfolio/internal/service"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load .env if present, before viper reads the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Initialize LLM provider (embeddings + generation)
	gemini, err := llm.NewGeminiClient(context.Background(), cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	defer gemini.Close()

	// Initialize retrieval backend
	var vectorRetriever domain.VectorRetriever
	var refresher service.CorpusRefresher
	switch cfg.RAG.Backend {
	case "qdrant":
		vectorRetriever = retriever.NewQdrantRetriever(retriever.QdrantConfig{
			URL:        cfg.RAG.QdrantURL,
			APIKey:     cfg.RAG.QdrantAPIKey,
			Collection: cfg.RAG.QdrantCollection,
		}, logger)
	default:
		sqliteRetriever, err := retriever.NewSQLiteRetriever(chunkRepo, docRepo, logger)
		if err != nil {
			logger.Fatal("Failed to initialize retriever", zap.Error(err))
		}
		vectorRetriever = sqliteRetriever
		refresher = sqliteRetriever
	}

	// Initialize the pipeline components
	responseCache := cache.New(cfg.Cache, logger)
	defer responseCache.Close()

	perfMonitor := monitor.New(cfg.Monitor, logger)
	defer perfMonitor.Close()

	scorer := rag.NewScorer(cfg.RAG)
	generator := rag.NewResponseGenerator(gemini, cfg.RAG, cfg.LLM, logger)

	// Initialize services
	assistantService := service.NewAssistantService(
		cfg, logger, gemini, vectorRetriever, scorer, generator, responseCache, perfMonitor,
	)
	chatService := service.NewChatService(sessionRepo, assistantService, logger)
	ingestService := service.NewIngestService(cfg, docRepo, chunkRepo, gemini, refresher, logger)
	adminService := service.NewAdminService(docRepo, chunkRepo, sessionRepo)

	// Setup router
	router := api.SetupRouter(chatService, assistantService, adminService, ingestService, api.RouterConfig{
		APIKey:          cfg.Admin.APIKey,
		AllowOrigins:    []string{"*"},
		RateLimit:       cfg.RateLimit.Enabled,
		RequestsPerHour: cfg.RateLimit.RequestsPerHour,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting AskFolio server",
			zap.String("address", cfg.Address()),
			zap.String("rag_backend", cfg.RAG.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
