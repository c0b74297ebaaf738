package usecase

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"RegSonar/internal/domain"
	"RegSonar/internal/fetch"
	"RegSonar/internal/relevance"
	"RegSonar/internal/storage"
)

// fakeFetcher serves canned items per source id and fails on demand.
type fakeFetcher struct {
	kind  domain.FetchKind
	items map[string][]domain.CandidateItem
	fails map[string]error
}

func (f *fakeFetcher) Kind() domain.FetchKind { return f.kind }

func (f *fakeFetcher) Fetch(_ context.Context, src domain.Source) ([]domain.CandidateItem, error) {
	if err := f.fails[src.ID]; err != nil {
		return nil, err
	}
	return f.items[src.ID], nil
}

func testScorer(t *testing.T, minScore float64) *relevance.Scorer {
	t.Helper()

	table, err := relevance.NewTable([]relevance.Keyword{
		{Term: "engangsplast", Weight: 10, Category: "packaging"},
		{Term: "digitalt produktpass", Weight: 15, Category: "traceability"},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return relevance.NewScorer(table, minScore, 100)
}

func testStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func candidate(sourceID, title, url string) domain.CandidateItem {
	return domain.CandidateItem{
		SourceID: sourceID,
		Title:    title,
		URL:      url,
		Channel:  domain.ChannelGovernment,
	}
}

func TestRunIsolatesFailingSources(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	fetcher := &fakeFetcher{
		kind: domain.KindFeed,
		items: map[string][]domain.CandidateItem{
			"source-b": {candidate("source-b", "Forslag om forbud mot engangsplast", "https://example.org/b/1")},
		},
		fails: map[string]error{
			"source-a": &domain.FetchError{SourceID: "source-a", Err: context.Canceled},
		},
	}

	registry := fetch.NewRegistry()
	registry.Register(fetcher)

	pipeline := NewPipeline(PipelineDeps{
		Sources: []domain.Source{
			{ID: "source-a", URL: "https://a", Channel: domain.ChannelParliament, Kind: domain.KindFeed},
			{ID: "source-b", URL: "https://b", Channel: domain.ChannelGovernment, Kind: domain.KindFeed},
		},
		Fetchers: registry,
		Scorer:   testScorer(t, 5),
		Store:    store,
	})

	result, err := pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Digest.Fingerprints) != 1 {
		t.Fatalf("items from the healthy source did not reach the digest: %v", result.Digest.Fingerprints)
	}
	if !strings.Contains(result.Digest.Text, "Forslag om forbud mot engangsplast") {
		t.Fatal("healthy item missing from digest text")
	}
	if !strings.Contains(result.Digest.Text, "source-a: failed") {
		t.Fatalf("failed source not annotated:\n%s", result.Digest.Text)
	}

	if result.Statuses[0].State != domain.SourceFailed {
		t.Fatalf("source-a state = %s", result.Statuses[0].State)
	}
	if result.Statuses[1].State != domain.SourceOK || result.Statuses[1].Admitted != 1 {
		t.Fatalf("source-b status unexpected: %+v", result.Statuses[1])
	}
}

func TestRunFiltersBelowMinimumScore(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	fetcher := &fakeFetcher{
		kind: domain.KindFeed,
		items: map[string][]domain.CandidateItem{
			"source-a": {
				candidate("source-a", "Helt irrelevant kunngjoring", "https://example.org/a/1"),
				candidate("source-a", "Sak om engangsplast", "https://example.org/a/2"),
			},
		},
	}

	registry := fetch.NewRegistry()
	registry.Register(fetcher)

	pipeline := NewPipeline(PipelineDeps{
		Sources:  []domain.Source{{ID: "source-a", URL: "https://a", Channel: domain.ChannelGovernment, Kind: domain.KindFeed}},
		Fetchers: registry,
		Scorer:   testScorer(t, 5),
		Store:    store,
	})

	result, err := pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	count, err := store.CountSignals(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("below-threshold item reached the store: %d rows", count)
	}
	if result.Statuses[0].Rejected != 1 {
		t.Fatalf("rejected tally = %d, want 1", result.Statuses[0].Rejected)
	}
}

func TestRunSecondIdenticalBatchYieldsEmptyDigest(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	fetcher := &fakeFetcher{
		kind: domain.KindFeed,
		items: map[string][]domain.CandidateItem{
			"source-a": {candidate("source-a", "Forslag om forbud mot engangsplast og digitalt produktpass", "https://example.org/a/1")},
		},
	}

	registry := fetch.NewRegistry()
	registry.Register(fetcher)

	deps := PipelineDeps{
		Sources:  []domain.Source{{ID: "source-a", URL: "https://a", Channel: domain.ChannelGovernment, Kind: domain.KindFeed}},
		Fetchers: registry,
		Scorer:   testScorer(t, 5),
		Store:    store,
	}

	first, err := NewPipeline(deps).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.Digest.Fingerprints) != 1 {
		t.Fatalf("first run digest: %v", first.Digest.Fingerprints)
	}

	second, err := NewPipeline(deps).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.Digest.Empty() {
		t.Fatalf("rerun of identical fetch produced a non-empty digest: %v", second.Digest.Fingerprints)
	}
	if second.Statuses[0].Duplicates != 1 {
		t.Fatalf("duplicate tally = %d, want 1", second.Statuses[0].Duplicates)
	}
}

func TestRunEmptySourceList(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{
		Sources:  nil,
		Fetchers: fetch.NewRegistry(),
		Scorer:   testScorer(t, 5),
		Store:    testStore(t),
	})

	result, err := pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run with no sources: %v", err)
	}
	if !result.Digest.Empty() {
		t.Fatal("no sources must yield an empty digest, not an error")
	}
	if !strings.Contains(result.Digest.Text, "Ingen nye relevante signaler") {
		t.Fatalf("empty digest text unexpected:\n%s", result.Digest.Text)
	}
}

func TestRunBudgetSkipsRemainingSources(t *testing.T) {
	t.Parallel()

	store := testStore(t)

	// A fetcher that burns the whole budget on the first source.
	slow := &slowFetcher{delay: 200 * time.Millisecond}
	registry := fetch.NewRegistry()
	registry.Register(slow)

	sources := make([]domain.Source, 4)
	for i := range sources {
		sources[i] = domain.Source{
			ID:      "src-" + string(rune('a'+i)),
			URL:     "https://example.org",
			Channel: domain.ChannelIndustry,
			Kind:    domain.KindFeed,
		}
	}

	pipeline := NewPipeline(PipelineDeps{
		Sources:     sources,
		Fetchers:    registry,
		Scorer:      testScorer(t, 5),
		Store:       store,
		Concurrency: 1,
		Budget:      50 * time.Millisecond,
	})

	result, err := pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	skipped := 0
	for _, st := range result.Statuses {
		if st.State == domain.SourceSkipped {
			skipped++
		}
	}
	if skipped == 0 {
		t.Fatalf("budget expiry did not skip any source: %+v", result.Statuses)
	}
	if result.Digest.Text == "" {
		t.Fatal("budget expiry suppressed the digest")
	}
}

type slowFetcher struct {
	delay time.Duration
}

func (s *slowFetcher) Kind() domain.FetchKind { return domain.KindFeed }

func (s *slowFetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.CandidateItem, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, &domain.FetchError{SourceID: src.ID, Transient: true, Err: ctx.Err()}
	}
}
