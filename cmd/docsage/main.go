package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/chunker"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/db"
	dbredis "github.com/docsage/docsage/internal/db/redis"
	"github.com/docsage/docsage/internal/domain"
	logpkg "github.com/docsage/docsage/internal/logger"
	"github.com/docsage/docsage/internal/metrics"
	documentrepo "github.com/docsage/docsage/internal/repository/document"
	"github.com/docsage/docsage/internal/repository/embcache"
	"github.com/docsage/docsage/internal/transport/chihttp"
	openaitr "github.com/docsage/docsage/internal/transport/openai"
	answeruc "github.com/docsage/docsage/internal/usecase/answer"
	embeddinguc "github.com/docsage/docsage/internal/usecase/embedding"
	healthuc "github.com/docsage/docsage/internal/usecase/health"
	retrievaluc "github.com/docsage/docsage/internal/usecase/retrieval"
	"github.com/docsage/docsage/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docsage API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("embedding_disabled", cfg.Embedding.Disabled),
	)

	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	embedder, healthChecker, strategy := buildEmbedder(&cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("strategy", strategy),
		zap.String("model", cfg.Embedding.Model),
	)

	repo := documentrepo.New(store, cfg.Storage.KeyPrefix)

	retrievalSvc := retrievaluc.New(
		repo,
		embedder,
		chunker.New(cfg.Retrieval.ChunkSize),
		retrievaluc.Options{
			DefaultTopK:      cfg.Retrieval.DefaultTopK,
			MaxTopK:          cfg.Retrieval.MaxTopK,
			MaxDocumentChars: cfg.Retrieval.MaxDocumentChars,
		},
		logger,
	)

	var chat *openaitr.ChatClient
	if cfg.Chat.Model != "" {
		chat = openaitr.NewChatClient(&openaitr.ChatConfig{
			APIKey:  cfg.Chat.APIKey,
			BaseURL: cfg.Chat.BaseURL,
			Model:   cfg.Chat.Model,
			Timeout: time.Duration(cfg.Chat.TimeoutSec) * time.Second,
		})
		logger.Info("Chat client created", zap.String("model", cfg.Chat.Model))
	}
	var chatClient answeruc.ChatClient
	if chat != nil {
		chatClient = chat
	}
	answerSvc := answeruc.New(retrievalSvc, chatClient, cfg.Chat.SystemPrompt, logger)

	healthSvc := healthuc.New(store, healthChecker, strategy)

	server := chihttp.NewServer(retrievalSvc, answerSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the chain: OpenAI -> Cached -> Fallback, or the
// plain synthetic embedder when the provider is disabled. The strategy is
// decided once here so stored and query vectors always agree.
func buildEmbedder(cfg *config.Config, store db.Store, logger *zap.Logger) (domain.Embedder, domain.HealthChecker, string) {
	if cfg.Embedding.Disabled {
		return embeddinguc.NewSyntheticEmbedder(), nil, domain.StrategySynthetic
	}

	base := openaitr.NewEmbedder(&openaitr.EmbedderConfig{
		APIKey:        cfg.Embedding.APIKey,
		BaseURL:       cfg.Embedding.BaseURL,
		Model:         cfg.Embedding.Model,
		Dimensions:    cfg.Embedding.Dimensions,
		Timeout:       time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		MaxInputChars: cfg.Embedding.MaxInputChars,
		Logger:        logger,
	})

	var embedder domain.Embedder = base
	if cfg.Embedding.CacheEnabled {
		embedder = embcache.New(base, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
	}

	fb := embeddinguc.NewFallbackEmbedder(embedder, metrics.EmbeddingFallbackTotal, logger)
	return fb, fb, domain.StrategyProvider
}
