// Package fetch retrieves candidate items from configured sources. Each
// fetch kind (feed, api, listing) is a strategy registered by kind; all
// strategies share one retrying HTTP client.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"RegSonar/internal/domain"
)

// NewClient builds the shared HTTP client. Transient failures (timeouts,
// connection resets, 5xx) are retried with jittered exponential backoff;
// 4xx responses come back untouched for the caller to classify.
func NewClient(timeout time.Duration, retryMax int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = retryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 8 * time.Second
	client.HTTPClient.Timeout = timeout
	return client
}

// get performs one retried GET and classifies the outcome. Errors from the
// retry client mean retries were exhausted on a transient condition; non-2xx
// responses that survive the retry policy are permanent.
func get(ctx context.Context, client *retryablehttp.Client, sourceID, url, userAgent string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{SourceID: sourceID, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{SourceID: sourceID, Transient: true, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := resp.Body
		defer body.Close()
		transient := resp.StatusCode >= 500
		return nil, &domain.FetchError{
			SourceID:  sourceID,
			Transient: transient,
			Err:       fmt.Errorf("unexpected status %s for %s", resp.Status, url),
		}
	}

	return resp, nil
}
