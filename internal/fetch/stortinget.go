package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"RegSonar/internal/domain"
	"RegSonar/internal/ports"
)

const (
	sessionPlaceholder = "{sesjon}"
	caseLinkPrefix     = "https://www.stortinget.no/no/Saker-og-publikasjoner/Saker/Sak/?p="
)

// StortingetFetcher pulls cases and hearings from the Stortinget open-data
// XML export. Source URLs carry a {sesjon} placeholder resolved to the
// current parliamentary session.
type StortingetFetcher struct {
	client    *retryablehttp.Client
	userAgent string
	maxItems  int
	now       func() time.Time
	logger    *slog.Logger
}

var _ ports.SignalFetcher = (*StortingetFetcher)(nil)

// NewStortingetFetcher wires the shared HTTP client.
func NewStortingetFetcher(client *retryablehttp.Client, userAgent string, maxItems int, logger *slog.Logger) *StortingetFetcher {
	if maxItems <= 0 {
		maxItems = 200
	}
	return &StortingetFetcher{
		client:    client,
		userAgent: userAgent,
		maxItems:  maxItems,
		now:       time.Now,
		logger:    logger,
	}
}

// Kind identifies the strategy inside the registry.
func (s *StortingetFetcher) Kind() domain.FetchKind {
	return domain.KindAPI
}

// stortingetItem covers both <sak> and <horing> elements; tags match by
// local name across the data.stortinget.no namespace.
type stortingetItem struct {
	ID         string `xml:"id"`
	Title      string `xml:"tittel"`
	ShortTitle string `xml:"korttittel"`
	Committee  struct {
		Name string `xml:"navn"`
	} `xml:"komite"`
}

// Fetch retrieves the current session's export and converts each case or
// hearing into a candidate item. Malformed XML is a permanent failure.
func (s *StortingetFetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.CandidateItem, error) {
	url := strings.ReplaceAll(src.URL, sessionPlaceholder, CurrentSession(s.now()))

	resp, err := get(ctx, s.client, src.ID, url, s.userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	items, err := s.decode(resp.Body, src)
	if err != nil {
		return nil, &domain.FetchError{SourceID: src.ID, Err: err}
	}
	return items, nil
}

func (s *StortingetFetcher) decode(body io.Reader, src domain.Source) ([]domain.CandidateItem, error) {
	decoder := xml.NewDecoder(body)
	var items []domain.CandidateItem

	for len(items) < s.maxItems {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || (start.Name.Local != "sak" && start.Name.Local != "horing") {
			continue
		}

		var raw stortingetItem
		if err := decoder.DecodeElement(&raw, &start); err != nil {
			return nil, err
		}

		title := raw.Title
		if title == "" {
			title = raw.ShortTitle
		}
		if title == "" || raw.ID == "" {
			continue
		}

		items = append(items, domain.CandidateItem{
			SourceID: src.ID,
			Title:    title,
			URL:      caseLinkPrefix + raw.ID,
			Summary:  raw.Committee.Name,
			Channel:  src.Channel,
		})
	}

	return items, nil
}

// CurrentSession returns the parliamentary session identifier for a point
// in time. Sessions run October through September.
func CurrentSession(now time.Time) string {
	year := now.Year()
	if now.Month() >= time.October {
		return fmt.Sprintf("%d-%d", year, year+1)
	}
	return fmt.Sprintf("%d-%d", year-1, year)
}
