package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"RegSonar/internal/config"
	"RegSonar/internal/extract"
	"RegSonar/internal/fetch"
	"RegSonar/internal/lawwatch"
	"RegSonar/internal/logging"
	"RegSonar/internal/relevance"
	"RegSonar/internal/storage"
	"RegSonar/internal/usecase"
)

// Application wires configuration to the batch pipeline and owns the
// store lifecycle.
type Application struct {
	cfg      config.Config
	store    *storage.Store
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance from validated configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	table, err := relevance.NewTable(cfg.KeywordTable())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	scorer := relevance.NewScorer(table, cfg.Pipeline.MinScore, cfg.Pipeline.MaxScore)

	client := fetch.NewClient(cfg.HTTP.Timeout(), cfg.HTTP.RetryMax)
	userAgent := cfg.HTTP.UserAgent
	maxItems := cfg.Pipeline.MaxItemsPerSource

	registry := fetch.NewRegistry()
	registry.Register(fetch.NewFeedFetcher(client, userAgent, maxItems, baseLogger.With("component", "fetch.feed")))
	registry.Register(fetch.NewStortingetFetcher(client, userAgent, maxItems, baseLogger.With("component", "fetch.stortinget")))
	registry.Register(fetch.NewListingFetcher(client, userAgent, maxItems, baseLogger.With("component", "fetch.listing")))

	extractor := extract.NewPDFExtractor(client, userAgent, cfg.Extract.MaxBytes, cfg.Extract.MaxPages,
		baseLogger.With("component", "extract"))

	watcher := lawwatch.New(client, store, cfg.DomainLaws(), cfg.LawWatch.ChangeThresholdPercent, userAgent,
		baseLogger.With("component", "lawwatch"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:     cfg.DomainSources(),
		Fetchers:    registry,
		Extractor:   extractor,
		Scorer:      scorer,
		Store:       store,
		LawWatcher:  watcher,
		Concurrency: cfg.Pipeline.Concurrency,
		Budget:      cfg.Pipeline.Budget(),
		Logger:      baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, store: store, pipeline: pipeline}, nil
}

// Run executes one ingestion batch and prints the digest to stdout.
func (a *Application) Run(ctx context.Context) error {
	result, err := a.pipeline.Run(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Println(result.Digest.Text)
	return nil
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}
