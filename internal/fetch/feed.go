package fetch

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mmcdole/gofeed"

	"RegSonar/internal/domain"
	"RegSonar/internal/ports"
)

// FeedFetcher parses RSS/Atom feeds into candidate items.
type FeedFetcher struct {
	client    *retryablehttp.Client
	userAgent string
	maxItems  int
	logger    *slog.Logger
}

var _ ports.SignalFetcher = (*FeedFetcher)(nil)

// NewFeedFetcher wires the shared HTTP client; maxItems bounds how deep
// into a feed one run looks.
func NewFeedFetcher(client *retryablehttp.Client, userAgent string, maxItems int, logger *slog.Logger) *FeedFetcher {
	if maxItems <= 0 {
		maxItems = 25
	}
	return &FeedFetcher{client: client, userAgent: userAgent, maxItems: maxItems, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (f *FeedFetcher) Kind() domain.FetchKind {
	return domain.KindFeed
}

// Fetch retrieves and parses one feed. Entries missing a title or link are
// dropped, not fatal; a feed that fails to parse is a permanent failure for
// this source only.
func (f *FeedFetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.CandidateItem, error) {
	resp, err := get(ctx, f.client, src.ID, src.URL, f.userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{SourceID: src.ID, Err: err}
	}

	items := make([]domain.CandidateItem, 0, len(parsed.Items))
	dropped := 0
	for _, entry := range parsed.Items {
		if len(items) >= f.maxItems {
			break
		}
		link := entryLink(entry)
		if entry.Title == "" || link == "" {
			dropped++
			continue
		}
		items = append(items, domain.CandidateItem{
			SourceID:    src.ID,
			Title:       entry.Title,
			URL:         link,
			PublishedAt: entry.PublishedParsed,
			Summary:     entry.Description,
			Channel:     src.Channel,
		})
	}

	if dropped > 0 && f.logger != nil {
		f.logger.Debug("dropped malformed feed entries", "source", src.ID, "dropped", dropped)
	}
	return items, nil
}

// entryLink prefers the explicit link, falling back to a GUID that looks
// like a URL.
func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if len(entry.GUID) > 4 && entry.GUID[:4] == "http" {
		return entry.GUID
	}
	return ""
}
