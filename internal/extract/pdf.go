// Package extract downloads linked documents and pulls plain text out of
// them. Extraction is best-effort enrichment: every failure mode maps to a
// status the scorer can pattern-match on, never to a batch error.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/ledongthuc/pdf"

	"RegSonar/internal/domain"
	"RegSonar/internal/ports"
)

// PDFExtractor downloads and reads PDF documents linked from candidate
// items, within a byte ceiling and a page budget.
type PDFExtractor struct {
	client    *retryablehttp.Client
	userAgent string
	maxBytes  int64
	maxPages  int
	logger    *slog.Logger
}

var _ ports.DocumentExtractor = (*PDFExtractor)(nil)

// NewPDFExtractor wires the shared HTTP client with download limits.
func NewPDFExtractor(client *retryablehttp.Client, userAgent string, maxBytes int64, maxPages int, logger *slog.Logger) *PDFExtractor {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if maxPages <= 0 {
		maxPages = 10
	}
	return &PDFExtractor{
		client:    client,
		userAgent: userAgent,
		maxBytes:  maxBytes,
		maxPages:  maxPages,
		logger:    logger,
	}
}

// Eligible reports whether the item's link looks like a document worth
// downloading.
func (e *PDFExtractor) Eligible(item domain.CandidateItem) bool {
	url := strings.ToLower(item.URL)
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return strings.HasSuffix(url, ".pdf")
}

// Extract downloads the linked document and returns its plain text. The
// download is size-capped; encrypted or corrupt documents come back as
// unsupported-format rather than errors.
func (e *PDFExtractor) Extract(ctx context.Context, item domain.CandidateItem) domain.ExtractedDocument {
	doc, err := e.extract(ctx, item)
	if err != nil && e.logger != nil {
		e.logger.Debug("document extraction failed",
			"source", item.SourceID, "url", item.URL, "status", doc.Status, "error", err)
	}
	return doc
}

func (e *PDFExtractor) extract(ctx context.Context, item domain.CandidateItem) (domain.ExtractedDocument, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return domain.ExtractedDocument{Status: domain.ExtractionUnreachable}, err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.ExtractedDocument{Status: domain.ExtractionUnreachable}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExtractedDocument{Status: domain.ExtractionUnreachable},
			fmt.Errorf("unexpected status %s", resp.Status)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "pdf") &&
		!strings.Contains(contentType, "octet-stream") {
		return domain.ExtractedDocument{Status: domain.ExtractionUnsupported},
			fmt.Errorf("content type %q is not a document", contentType)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return domain.ExtractedDocument{Status: domain.ExtractionUnreachable}, err
	}
	if int64(len(payload)) > e.maxBytes {
		return domain.ExtractedDocument{Status: domain.ExtractionTooLarge},
			fmt.Errorf("document exceeds %d bytes", e.maxBytes)
	}

	text, err := e.readPDF(payload)
	if err != nil {
		return domain.ExtractedDocument{Status: domain.ExtractionUnsupported}, err
	}

	return domain.ExtractedDocument{FullText: text, Status: domain.ExtractionOK}, nil
}

func (e *PDFExtractor) readPDF(payload []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	if pages > e.maxPages {
		pages = e.maxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue // a single unreadable page should not void the rest
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		return "", fmt.Errorf("no extractable text")
	}
	return cleaned, nil
}
