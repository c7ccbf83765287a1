// cmd/tagloop is the batch runner for the feedback tagging pipeline. An
// external scheduler invokes it; one invocation processes one batch of
// untagged feedback and exits.
//
// Startup sequence:
//  1. Load .env (if present) and configuration from environment variables.
//  2. Open the configured storage backend (sqlite or postgres).
//  3. Construct the embedding client and the extractor agent client.
//  4. Health-check the embedding provider — unreachable collaborators at
//     startup abort the run before any batch work.
//  5. Run one batch and log the summary.
//
// Exit status 0 means the run completed, including runs with per-item
// failures (those items stay untagged and are selected again next run).
// Non-zero means a configuration failure before any batch work.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/scrypster/tagloop/internal/config"
	"github.com/scrypster/tagloop/internal/engine"
	"github.com/scrypster/tagloop/internal/extractor"
	"github.com/scrypster/tagloop/internal/llm"
	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/internal/storage/postgres"
	"github.com/scrypster/tagloop/internal/storage/sqlite"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("tagloop: ")
	log.SetFlags(log.LstdFlags)

	maxItems := flag.Int("max-items", 0, "override the configured batch size for this run")
	flag.Parse()

	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("skipping .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()

	embedder, err := llm.NewEmbeddingGenerator(llm.ProviderConfig{
		Provider:          cfg.Embedding.Provider,
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		APIKey:            cfg.Embedding.APIKey,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}

	ext := extractor.NewClient(extractor.Config{
		BaseURL:           cfg.Extractor.BaseURL,
		AgentID:           cfg.Extractor.AgentID,
		APIKey:            cfg.Extractor.APIKey,
		Timeout:           cfg.Extractor.Timeout,
		RequestsPerSecond: cfg.Extractor.RequestsPerSecond,
	})

	// Root context cancelled on SIGINT / SIGTERM so an interrupted run stops
	// between items rather than mid-write.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	// An unreachable embedding model is a configuration error: no item can
	// be backfilled or upserted without it.
	healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Second)
	defer healthCancel()
	if err := embedder.HealthCheck(healthCtx); err != nil {
		log.Fatalf("embedding provider unreachable (model %q): %v", embedder.GetModel(), err)
	}

	tagger := engine.NewTagger(store, embedder, ext, engine.Config{
		BatchSize:           cfg.Tagging.BatchSize,
		ConfidenceThreshold: cfg.Tagging.ConfidenceThreshold,
		SimilarityFloor:     cfg.Tagging.SimilarityFloor,
		MatchLimit:          cfg.Tagging.MatchLimit,
	})

	report, err := tagger.RunBatch(ctx, *maxItems)
	if err != nil {
		log.Fatalf("batch run failed: %v", err)
	}

	for _, fail := range report.Failures {
		log.Printf("item failure: %s", fail)
	}
	log.Printf("run summary: processed=%d tagged=%d escalated=%d failures=%d",
		report.Processed, report.Tagged, report.Escalated, len(report.Failures))
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.NewStore(cfg.Storage.PostgresDSN)
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory %q: %w", cfg.Storage.DataPath, err)
		}
		return sqlite.NewStore(fmt.Sprintf("%s/tagloop.db", cfg.Storage.DataPath))
	default:
		return nil, fmt.Errorf("unsupported storage engine: %q", cfg.Storage.Engine)
	}
}
