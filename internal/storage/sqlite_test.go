package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"RegSonar/internal/domain"
	"RegSonar/internal/fingerprint"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func scoredItem(title, url string, score float64) domain.ScoredItem {
	return domain.ScoredItem{
		Item: domain.CandidateItem{
			SourceID: "stortinget-saker",
			Title:    title,
			URL:      url,
			Channel:  domain.ChannelParliament,
		},
		Score: score,
		Matches: []domain.MatchedKeyword{
			{Term: "engangsplast", Category: "packaging", Weight: 10},
		},
	}
}

func TestAdmitIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	firstSeen := time.Date(2026, time.March, 2, 7, 0, 0, 0, time.UTC)

	item := scoredItem("Forbud mot engangsplast", "https://example.org/sak/1", 25)

	res, err := store.Admit(ctx, item, firstSeen)
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if res != domain.Admitted {
		t.Fatalf("first admit = %s, want admitted", res)
	}

	// Second observation: higher score, later timestamp. First wins.
	later := item
	later.Score = 90
	res, err = store.Admit(ctx, later, firstSeen.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("second admit: %v", err)
	}
	if res != domain.Duplicate {
		t.Fatalf("second admit = %s, want duplicate", res)
	}

	fp := fingerprint.FromItem(item.Item)
	row, err := store.signalRow(ctx, fp)
	if err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Score != 25 {
		t.Fatalf("duplicate admission overwrote score: %v", row.Score)
	}
	if !row.FirstSeenAt.Equal(firstSeen) {
		t.Fatalf("duplicate admission overwrote first_seen_at: %v", row.FirstSeenAt)
	}

	count, err := store.CountSignals(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestFingerprintVariantsCollapse(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	a := scoredItem("Forbud mot engangsplast", "https://example.org/sak/1", 25)
	b := scoredItem("Forbud mot engangsplast", "https://EXAMPLE.org/sak/1?utm_source=rss", 25)

	if res, _ := store.Admit(ctx, a, now); res != domain.Admitted {
		t.Fatalf("first variant not admitted: %s", res)
	}
	if res, _ := store.Admit(ctx, b, now); res != domain.Duplicate {
		t.Fatalf("tracking-param variant not deduplicated: %s", res)
	}
}

func TestPendingOrderingAndMarkIncluded(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 2, 7, 0, 0, 0, time.UTC)

	gov := scoredItem("Horing om emballasje", "https://example.org/h/1", 40)
	gov.Item.Channel = domain.ChannelGovernment

	parlHigh := scoredItem("Forbud mot engangsplast", "https://example.org/sak/1", 60)
	parlLow := scoredItem("Mindre relevant sak", "https://example.org/sak/2", 20)

	for i, it := range []domain.ScoredItem{parlLow, gov, parlHigh} {
		if _, err := store.Admit(ctx, it, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}

	pending, err := store.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}

	// "government" sorts before "parliament"; within parliament, score
	// descending.
	if pending[0].Channel != domain.ChannelGovernment {
		t.Fatalf("unexpected first channel: %s", pending[0].Channel)
	}
	if pending[1].Score != 60 || pending[2].Score != 20 {
		t.Fatalf("parliament not ordered by score: %v, %v", pending[1].Score, pending[2].Score)
	}

	fps := []string{pending[0].Fingerprint, pending[1].Fingerprint, pending[2].Fingerprint}
	if err := store.MarkIncluded(ctx, fps); err != nil {
		t.Fatalf("MarkIncluded: %v", err)
	}

	pending, err = store.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending after include: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("records left pending after inclusion: %d", len(pending))
	}
}

func TestMarkIncludedIgnoresUnknownFingerprints(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	if err := store.MarkIncluded(context.Background(), []string{"no-such-fp"}); err != nil {
		t.Fatalf("MarkIncluded on unknown fingerprint: %v", err)
	}
	if err := store.MarkIncluded(context.Background(), nil); err != nil {
		t.Fatalf("MarkIncluded on empty set: %v", err)
	}
}

func TestLawRevisionRoundtrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	law := domain.Law{Name: "TEK17", URL: "https://lovdata.no/forskrift/tek17"}

	if _, _, found, err := store.Revision(ctx, law.Name); err != nil || found {
		t.Fatalf("unexpected initial revision: found=%v err=%v", found, err)
	}

	if err := store.SaveRevision(ctx, law, "hash-1", "gammel tekst", time.Now()); err != nil {
		t.Fatalf("SaveRevision: %v", err)
	}
	if err := store.SaveRevision(ctx, law, "hash-2", "ny tekst", time.Now()); err != nil {
		t.Fatalf("SaveRevision update: %v", err)
	}

	hash, excerpt, found, err := store.Revision(ctx, law.Name)
	if err != nil {
		t.Fatalf("Revision: %v", err)
	}
	if !found || hash != "hash-2" || excerpt != "ny tekst" {
		t.Fatalf("revision not upserted: %q %q %v", hash, excerpt, found)
	}

	if err := store.RecordChange(ctx, domain.LawChange{Name: law.Name, URL: law.URL, ChangePercent: 2.5}); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
}

func TestConcurrentAdmitSingleWinner(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	item := scoredItem("Samtidig sak", "https://example.org/sak/race", 30)

	const workers = 8
	results := make(chan domain.AdmissionResult, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			res, err := store.Admit(ctx, item, time.Now())
			results <- res
			errs <- err
		}()
	}

	admitted := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent admit: %v", err)
		}
		if <-results == domain.Admitted {
			admitted++
		}
	}

	if admitted != 1 {
		t.Fatalf("expected exactly one admission, got %d", admitted)
	}
}
