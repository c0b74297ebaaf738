package ports

import (
	"context"
	"time"

	"RegSonar/internal/domain"
)

// SignalFetcher pulls candidate items for one configured source. A fetcher
// owns its retrieval strategy; failures stay scoped to the source.
type SignalFetcher interface {
	Kind() domain.FetchKind
	Fetch(ctx context.Context, src domain.Source) ([]domain.CandidateItem, error)
}

// FetcherRegistry resolves the strategy for a source's fetch kind.
type FetcherRegistry interface {
	Resolve(kind domain.FetchKind) (SignalFetcher, error)
}

// DocumentExtractor enriches an item with text from a linked document.
// Extraction is best effort: outcomes are statuses, never batch failures.
type DocumentExtractor interface {
	Eligible(item domain.CandidateItem) bool
	Extract(ctx context.Context, item domain.CandidateItem) domain.ExtractedDocument
}

// RelevanceScorer turns candidates into scored items and gates admission.
type RelevanceScorer interface {
	Score(item domain.CandidateItem, doc domain.ExtractedDocument, bias float64) domain.ScoredItem
	Relevant(item domain.ScoredItem) bool
}

// SignalStore is the dedup gate and durable history of admitted signals.
type SignalStore interface {
	Admit(ctx context.Context, item domain.ScoredItem, firstSeen time.Time) (domain.AdmissionResult, error)
	Pending(ctx context.Context) ([]domain.PersistedRecord, error)
	MarkIncluded(ctx context.Context, fingerprints []string) error
}

// LawRevisionStore keeps page snapshots for the statute change radar.
type LawRevisionStore interface {
	Revision(ctx context.Context, name string) (hash, excerpt string, found bool, err error)
	SaveRevision(ctx context.Context, law domain.Law, hash, excerpt string, checkedAt time.Time) error
	RecordChange(ctx context.Context, change domain.LawChange) error
}

// LawWatcher runs the statute change radar over its configured pages.
type LawWatcher interface {
	Check(ctx context.Context) []domain.LawChange
}
