// Package lawwatch monitors statute and regulation pages for text drift.
// It keeps one snapshot per page and raises a change when the visible text
// moves more than a configured percentage between runs.
package lawwatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/agext/levenshtein"
	"github.com/hashicorp/go-retryablehttp"

	"RegSonar/internal/domain"
	"RegSonar/internal/ports"
)

// Pages are long; the similarity comparison runs on a bounded excerpt.
const excerptRunes = 5000

// Watcher checks each configured page against its stored snapshot.
type Watcher struct {
	client    *retryablehttp.Client
	store     ports.LawRevisionStore
	laws      []domain.Law
	threshold float64 // minimum change percent worth reporting
	userAgent string
	now       func() time.Time
	logger    *slog.Logger
}

var _ ports.LawWatcher = (*Watcher)(nil)

// New wires the shared HTTP client and revision store.
func New(client *retryablehttp.Client, store ports.LawRevisionStore, laws []domain.Law, threshold float64, userAgent string, logger *slog.Logger) *Watcher {
	return &Watcher{
		client:    client,
		store:     store,
		laws:      laws,
		threshold: threshold,
		userAgent: userAgent,
		now:       time.Now,
		logger:    logger,
	}
}

// Check visits every monitored page. Failures are per-law and logged; a
// page that cannot be fetched simply keeps its previous snapshot.
func (w *Watcher) Check(ctx context.Context) []domain.LawChange {
	var changes []domain.LawChange

	for _, law := range w.laws {
		if ctx.Err() != nil {
			break
		}

		change, err := w.checkOne(ctx, law)
		if err != nil {
			if w.logger != nil {
				w.logger.Warn("law check failed", "law", law.Name, "error", err)
			}
			continue
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}

	return changes
}

func (w *Watcher) checkOne(ctx context.Context, law domain.Law) (*domain.LawChange, error) {
	text, err := w.pageText(ctx, law.URL)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])
	excerpt := truncateRunes(text, excerptRunes)

	prevHash, prevExcerpt, found, err := w.store.Revision(ctx, law.Name)
	if err != nil {
		return nil, err
	}

	var change *domain.LawChange
	if found && prevHash != hash {
		similarity := levenshtein.Match(prevExcerpt, excerpt, nil)
		percent := (1 - similarity) * 100
		if percent >= w.threshold {
			change = &domain.LawChange{Name: law.Name, URL: law.URL, ChangePercent: percent}
			if err := w.store.RecordChange(ctx, *change); err != nil {
				return nil, err
			}
		}
	}

	if err := w.store.SaveRevision(ctx, law, hash, excerpt, w.now()); err != nil {
		return nil, err
	}
	return change, nil
}

// pageText fetches the page and reduces it to comparable visible text:
// scripts, styles and chrome removed, whitespace collapsed.
func (w *Watcher) pageText(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
