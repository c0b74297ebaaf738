package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"RegSonar/internal/domain"
	"RegSonar/internal/ports"
	"RegSonar/internal/report"
)

// PipelineDeps wires all driven adapters into the batch pipeline.
type PipelineDeps struct {
	Sources     []domain.Source
	Fetchers    ports.FetcherRegistry
	Extractor   ports.DocumentExtractor
	Scorer      ports.RelevanceScorer
	Store       ports.SignalStore
	LawWatcher  ports.LawWatcher
	Concurrency int
	Budget      time.Duration
	Logger      *slog.Logger
}

// Pipeline runs one ingestion batch: fetch, extract, score, deduplicate,
// digest. Per-source and per-item failures are isolated; only a store
// failure aborts the run.
type Pipeline struct {
	sources     []domain.Source
	fetchers    ports.FetcherRegistry
	extractor   ports.DocumentExtractor
	scorer      ports.RelevanceScorer
	store       ports.SignalStore
	lawWatcher  ports.LawWatcher
	concurrency int
	budget      time.Duration
	logger      *slog.Logger
}

// RunResult is the outcome of one batch.
type RunResult struct {
	Digest     report.Digest
	Statuses   []domain.SourceStatus
	LawChanges []domain.LawChange
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		sources:     deps.Sources,
		fetchers:    deps.Fetchers,
		extractor:   deps.Extractor,
		scorer:      deps.Scorer,
		store:       deps.Store,
		lawWatcher:  deps.LawWatcher,
		concurrency: concurrency,
		budget:      deps.Budget,
		logger:      deps.Logger,
	}
}

// Run executes one batch as of now. Fetch and extract work runs on a
// bounded worker pool; admission serializes per fingerprint inside the
// store. When the wall-clock budget expires, untouched sources are marked
// skipped and the digest is still built from whatever succeeded.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (RunResult, error) {
	batchCtx := ctx
	if p.budget > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, p.budget)
		defer cancel()
	}

	statuses := make([]domain.SourceStatus, len(p.sources))

	group, groupCtx := errgroup.WithContext(batchCtx)
	group.SetLimit(p.concurrency)

	for i, src := range p.sources {
		src := src
		status := &statuses[i]
		status.SourceID = src.ID

		group.Go(func() error {
			return p.processSource(groupCtx, src, status, now)
		})
	}

	// Only StoreErrors escape the workers.
	if err := group.Wait(); err != nil {
		return RunResult{}, err
	}

	var changes []domain.LawChange
	if p.lawWatcher != nil {
		changes = p.lawWatcher.Check(batchCtx)
	}

	// Reporting runs on the parent context: an expired batch budget must
	// not stop the digest over already-admitted records.
	pending, err := p.store.Pending(ctx)
	if err != nil {
		return RunResult{}, err
	}

	digest := report.Build(pending, statuses, changes, now)

	if err := p.store.MarkIncluded(ctx, digest.Fingerprints); err != nil {
		return RunResult{}, err
	}

	p.log(slog.LevelInfo, "batch complete",
		"sources", len(p.sources),
		"new_records", len(digest.Fingerprints),
		"law_changes", len(changes))

	return RunResult{Digest: digest, Statuses: statuses, LawChanges: changes}, nil
}

// processSource drains one source. Fetch failures and per-item admission
// problems are recorded on the status and never abort the batch; a
// StoreError is returned to stop the run.
func (p *Pipeline) processSource(ctx context.Context, src domain.Source, status *domain.SourceStatus, now time.Time) error {
	if ctx.Err() != nil {
		status.State = domain.SourceSkipped
		status.Reason = "batch budget exhausted"
		return nil
	}

	fetcher, err := p.fetchers.Resolve(src.Kind)
	if err != nil {
		status.State = domain.SourceFailed
		status.Reason = err.Error()
		p.log(slog.LevelError, "no fetcher for source", "source", src.ID, "kind", src.Kind)
		return nil
	}

	items, err := fetcher.Fetch(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			status.State = domain.SourceSkipped
			status.Reason = "batch budget exhausted"
		} else {
			status.State = domain.SourceFailed
			status.Reason = err.Error()
		}
		p.log(slog.LevelWarn, "source fetch failed",
			"source", src.ID, "transient", domain.IsTransientFetch(err), "error", err)
		return nil
	}

	status.State = domain.SourceOK
	status.Fetched = len(items)

	for _, item := range items {
		if ctx.Err() != nil {
			status.Reason = "cut off by batch budget"
			break
		}

		var doc domain.ExtractedDocument
		if p.extractor != nil && p.extractor.Eligible(item) {
			doc = p.extractor.Extract(ctx, item)
		}

		scored := p.scorer.Score(item, doc, src.Bias)
		if !p.scorer.Relevant(scored) {
			status.Rejected++
			continue
		}

		result, err := p.store.Admit(ctx, scored, now)
		if err != nil {
			var storeErr *domain.StoreError
			if errors.As(err, &storeErr) {
				return err
			}
			p.log(slog.LevelError, "admission failed", "source", src.ID, "url", item.URL, "error", err)
			continue
		}

		switch result {
		case domain.Admitted:
			status.Admitted++
			p.log(slog.LevelInfo, "signal admitted",
				"source", src.ID, "title", item.Title, "score", scored.Score)
		case domain.Duplicate:
			status.Duplicates++
		}
	}

	return nil
}

func (p *Pipeline) log(level slog.Level, msg string, args ...any) {
	if p.logger != nil {
		p.logger.Log(context.Background(), level, msg, args...)
	}
}
