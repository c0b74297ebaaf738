package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"RegSonar/internal/domain"
)

const sampleListing = `<!DOCTYPE html>
<html><body>
  <nav><a href="/no/forsiden/">Hjem</a></nav>
  <ul>
    <li><a href="/no/dokumenter/hoeringer/id100/">Horing om emballasjekrav</a></li>
    <li><a href="/no/dokumenter/hoeringer/id100/">Horing om emballasjekrav (duplikat)</a></li>
    <li><a href="https://www.regjeringen.no/no/dokumenter/hoeringer/id200/">Horing om produktpass</a></li>
    <li><a href="/no/dokumenter/hoeringer/id300/"></a></li>
  </ul>
</body></html>`

func TestListingFetcherScrapesAnchors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer server.Close()

	fetcher := NewListingFetcher(NewClient(5*time.Second, 0), "test", 10, nil)
	src := domain.Source{
		ID:      "regjeringen-klima",
		URL:     server.URL + "/no/dokument/hoyringar/",
		Channel: domain.ChannelGovernment,
		Kind:    domain.KindListing,
		Options: map[string]string{"selector": "a[href*='/hoeringer/']"},
	}

	items, err := fetcher.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items (dup href and empty anchor dropped), got %d", len(items))
	}

	if items[0].URL != server.URL+"/no/dokumenter/hoeringer/id100/" {
		t.Fatalf("relative link not absolutized: %s", items[0].URL)
	}
	if items[0].Title != "Horing om emballasjekrav" {
		t.Fatalf("unexpected title: %s", items[0].Title)
	}
	if items[1].URL != "https://www.regjeringen.no/no/dokumenter/hoeringer/id200/" {
		t.Fatalf("absolute link mangled: %s", items[1].URL)
	}
}

func TestListingFetcherRespectsMaxItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer server.Close()

	fetcher := NewListingFetcher(NewClient(5*time.Second, 0), "test", 1, nil)
	src := domain.Source{
		ID:      "regjeringen-klima",
		URL:     server.URL,
		Channel: domain.ChannelGovernment,
		Kind:    domain.KindListing,
		Options: map[string]string{"selector": "a[href*='/hoeringer/']"},
	}

	items, err := fetcher.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("maxItems not honored: %d", len(items))
	}
}
