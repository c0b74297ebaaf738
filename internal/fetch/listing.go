package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"

	"RegSonar/internal/domain"
	"RegSonar/internal/ports"
)

const defaultSelector = "a[href*='/hoeringer/']"

// ListingFetcher scrapes plain HTML listing pages (e.g. regjeringen.no
// hearing overviews) that expose no feed. The anchor selector comes from
// the source's options.
type ListingFetcher struct {
	client    *retryablehttp.Client
	userAgent string
	maxItems  int
	logger    *slog.Logger
}

var _ ports.SignalFetcher = (*ListingFetcher)(nil)

// NewListingFetcher wires the shared HTTP client.
func NewListingFetcher(client *retryablehttp.Client, userAgent string, maxItems int, logger *slog.Logger) *ListingFetcher {
	if maxItems <= 0 {
		maxItems = 10
	}
	return &ListingFetcher{client: client, userAgent: userAgent, maxItems: maxItems, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (l *ListingFetcher) Kind() domain.FetchKind {
	return domain.KindListing
}

// Fetch downloads the listing page and extracts candidate items from
// matching anchors. Relative links are absolutized against the page URL;
// anchors without text or href are skipped.
func (l *ListingFetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.CandidateItem, error) {
	resp, err := get(ctx, l.client, src.ID, src.URL, l.userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{SourceID: src.ID, Err: err}
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, &domain.FetchError{SourceID: src.ID, Err: err}
	}

	selector := src.Options["selector"]
	if selector == "" {
		selector = defaultSelector
	}

	items := make([]domain.CandidateItem, 0, l.maxItems)
	seen := map[string]struct{}{}

	doc.Find(selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		title := strings.TrimSpace(a.Text())
		href, exists := a.Attr("href")
		if title == "" || !exists || href == "" {
			return true
		}

		link := absolutize(base, href)
		if link == "" {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		items = append(items, domain.CandidateItem{
			SourceID: src.ID,
			Title:    title,
			URL:      link,
			Channel:  src.Channel,
		})
		return len(items) < l.maxItems
	})

	return items, nil
}

func absolutize(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
