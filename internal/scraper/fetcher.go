package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxBodyBytes = 5 << 20

var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
}

var retryableStatuses = map[int]bool{
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
	http.StatusRequestTimeout:     true,
	http.StatusTooManyRequests:    true,
}

var errRetryableStatus = errors.New("retryable response status")

// Page is a fetched document. URL is the address after redirects.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher downloads product pages with browser-like headers, cookies and retries.
type Fetcher struct {
	client          *http.Client
	userAgent       string
	retryTimes      int
	initialInterval time.Duration
}

// NewFetcher creates a Fetcher. The timeout applies to each attempt.
func NewFetcher(userAgent string, timeout time.Duration, retryTimes int) (*Fetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Fetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		userAgent:       userAgent,
		retryTimes:      retryTimes,
		initialInterval: 500 * time.Millisecond,
	}, nil
}

// Fetch downloads rawURL. Retryable statuses and transport errors are retried with
// exponential backoff; once retries are exhausted on a retryable status the last
// response is still returned so it can be parsed. Other statuses are returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	var last *Page
	attempt := 0

	operation := func() error {
		attempt++
		page, err := f.do(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			slog.Debug("fetch attempt failed", slog.String("url", rawURL), slog.Int("attempt", attempt), slog.Any("err", err))
			return err
		}
		last = page
		if retryableStatuses[page.StatusCode] {
			slog.Debug("fetch attempt got retryable status", slog.String("url", rawURL), slog.Int("attempt", attempt), slog.Int("status", page.StatusCode))
			return errRetryableStatus
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.initialInterval
	policy.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(f.retryTimes)), ctx)

	err := backoff.Retry(operation, retry)
	if err == nil {
		return last, nil
	}
	if errors.Is(err, errRetryableStatus) && last != nil {
		return last, nil
	}
	return nil, fmt.Errorf("failed to fetch %s after %d attempt(s): %w", rawURL, attempt, err)
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
