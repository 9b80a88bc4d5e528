package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/chunker"
	"github.com/askdoc-io/askdoc/internal/config"
	"github.com/askdoc-io/askdoc/internal/db"
	dbRedis "github.com/askdoc-io/askdoc/internal/db/redis"
	"github.com/askdoc-io/askdoc/internal/domain"
	"github.com/askdoc-io/askdoc/internal/index"
	logpkg "github.com/askdoc-io/askdoc/internal/logger"
	"github.com/askdoc-io/askdoc/internal/metrics"
	"github.com/askdoc-io/askdoc/internal/repository/embcache"
	"github.com/askdoc-io/askdoc/internal/reranker"
	chiTransport "github.com/askdoc-io/askdoc/internal/transport/chi"
	openaiProv "github.com/askdoc-io/askdoc/internal/transport/openai"
	embeddinguc "github.com/askdoc-io/askdoc/internal/usecase/embedding"
	ingestuc "github.com/askdoc-io/askdoc/internal/usecase/ingest"
	raguc "github.com/askdoc-io/askdoc/internal/usecase/rag"
	"github.com/askdoc-io/askdoc/internal/version"
)

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting askdoc API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_model", cfg.Provider.EmbeddingModel),
		zap.String("generation_model", cfg.Provider.GenerationModel),
	)

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	// Optional embedding cache — empty addrs disables it
	var store db.Store
	if len(cfg.Cache.Addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer s.Close()

		ctx := context.Background()
		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := s.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		store = s
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	embedder := buildEmbedder(&cfg, store, logger)

	idx := index.New(embedder, logger)
	if cfg.Storage.LoadOnStart {
		if err := idx.Load(cfg.Storage.SnapshotPrefix); err != nil {
			logger.Warn("Snapshot load on start failed, starting empty",
				zap.String("prefix", cfg.Storage.SnapshotPrefix),
				zap.Error(err),
			)
		} else {
			logger.Info("Restored index from snapshot",
				zap.String("prefix", cfg.Storage.SnapshotPrefix),
				zap.Int("documents", idx.Count()),
			)
			metrics.IndexedDocuments.Set(float64(idx.Count()))
		}
	}

	rr := reranker.New(embedder, logger)
	gen := openaiProv.NewGenerator(&openaiProv.Config{
		APIKey:          cfg.Provider.APIKey,
		BaseURL:         cfg.Provider.BaseURL,
		GenerationModel: cfg.Provider.GenerationModel,
		Logger:          logger,
	}, time.Duration(cfg.Provider.RequestTimeoutSec)*time.Second)

	ragSvc, err := raguc.New(idx, rr, gen, raguc.Config{
		TopK:       cfg.RAG.TopK,
		RerankTopK: cfg.RAG.RerankTopK,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create retrieval service", zap.Error(err))
	}

	ingestSvc := ingestuc.New(ragSvc, chunker.Options{
		ChunkSize: cfg.Chunking.ChunkSize,
		Overlap:   cfg.Chunking.Overlap,
	}, logger)

	server := chiTransport.NewServer(ragSvc, ingestSvc, cfg.Storage.SnapshotPrefix, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented
func buildEmbedder(cfg *config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiProv.NewEmbedder(&openaiProv.Config{
		APIKey:         cfg.Provider.APIKey,
		BaseURL:        cfg.Provider.BaseURL,
		EmbeddingModel: cfg.Provider.EmbeddingModel,
		Dimensions:     cfg.Provider.Dimensions,
		Logger:         logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(base, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		embedder, "openai", cfg.Provider.EmbeddingModel,
		time.Duration(cfg.Provider.RequestTimeoutSec)*time.Second, logger,
	)
}
