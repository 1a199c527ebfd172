package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/api"
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/engine"
	"github.com/icco-engine/icco/internal/estimator"
	"github.com/icco-engine/icco/internal/persist"
	"github.com/icco-engine/icco/internal/scorer"
	"github.com/icco-engine/icco/internal/similarity"
	"github.com/icco-engine/icco/internal/tiering"
	"github.com/icco-engine/icco/internal/vectorstore"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	configPath := envStr("ICCO_CONFIG_PATH", "icco.yaml")
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("config warning", "message", w)
	}

	dbPath := envStr("ICCO_DB_PATH", "icco.db")
	persistStore, err := persist.Open(dbPath)
	if err != nil {
		logger.Error("failed to open persist store", "error", err)
		os.Exit(1)
	}
	defer persistStore.Close()

	est := estimator.New()
	compressor := tiering.New(est)
	if cfg.CompressionStrategy == config.CompressionEmbed || cfg.CompressionStrategy == config.CompressionHybrid {
		if qdrantURL := os.Getenv("ICCO_QDRANT_URL"); qdrantURL != "" {
			embedder := similarity.NewEmbedder(envStr("ICCO_OLLAMA_URL", "http://localhost:11434"), envStr("ICCO_EMBED_MODEL", "nomic-embed-text"))
			dim := envInt("ICCO_EMBED_DIM", 768)
			vs := vectorstore.NewQdrantStore(qdrantURL, dim, embedder, "")
			compressor = compressor.WithVectorStore(vs)
		} else {
			compressor = compressor.WithVectorStore(vectorstore.NewMemoryStore())
		}
	}
	sim := similarity.Func(similarity.TokenOverlap)
	scr := scorer.New(scorer.DefaultWeights(), cfg.Tiers, cfg.DecayRate, sim)

	eng, err := engine.New(cfg, est, compressor, scr, sim, advisor.NullAdvisor{}, persistStore, logger)
	if err != nil {
		logger.Error("failed to construct engine", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(eng, os.Getenv("ICCO_API_KEY"), logger)

	port := envInt("ICCO_PORT", 8088)
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("icco server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
