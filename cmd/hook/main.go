package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/engine"
	"github.com/icco-engine/icco/internal/estimator"
	"github.com/icco-engine/icco/internal/hookio"
	"github.com/icco-engine/icco/internal/persist"
	"github.com/icco-engine/icco/internal/scorer"
	"github.com/icco-engine/icco/internal/similarity"
	"github.com/icco-engine/icco/internal/tiering"
	"github.com/icco-engine/icco/internal/vectorstore"
)

// main runs the in-process ICCO engine as a stdio filter: the host hook
// runtime pipes one JSON event per line to stdin and reads one JSON
// result per line from stdout, per spec §6 "Host hook contract". This
// is the in-process embedding named in spec §1 — no HTTP round trip.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	configPath := os.Getenv("ICCO_CONFIG_PATH")
	if configPath == "" {
		configPath = "icco.yaml"
	}
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "icco-hook: config error: %s\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("config warning", "message", w)
	}

	var persistStore *persist.Store
	if dbPath := os.Getenv("ICCO_DB_PATH"); dbPath != "" {
		persistStore, err = persist.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "icco-hook: persist error: %s\n", err)
			os.Exit(1)
		}
		defer persistStore.Close()
	}

	est := estimator.New()
	compressor := tiering.New(est)
	if cfg.CompressionStrategy == config.CompressionEmbed || cfg.CompressionStrategy == config.CompressionHybrid {
		compressor = compressor.WithVectorStore(vectorstore.NewMemoryStore())
	}
	sim := similarity.Func(similarity.TokenOverlap)
	scr := scorer.New(scorer.DefaultWeights(), cfg.Tiers, cfg.DecayRate, sim)

	eng, err := engine.New(cfg, est, compressor, scr, sim, advisor.NullAdvisor{}, persistStore, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "icco-hook: engine error: %s\n", err)
		os.Exit(1)
	}

	srv := hookio.NewServer(eng, os.Stdin, os.Stdout, logger)
	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "icco-hook: run error: %s\n", err)
		os.Exit(1)
	}
}
