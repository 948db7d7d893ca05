package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/iyhunko/price-tracker/internal/config"
	"github.com/iyhunko/price-tracker/internal/metrics"
)

// Scraper fetches a product page and extracts its data with the matching platform parser.
type Scraper struct {
	fetcher *Fetcher
}

// New creates a Scraper from the scraper configuration.
func New(conf config.Scraper) (*Scraper, error) {
	fetcher, err := NewFetcher(conf.UserAgent, conf.Timeout, conf.RetryTimes)
	if err != nil {
		return nil, err
	}
	return &Scraper{fetcher: fetcher}, nil
}

// Scrape fetches pageURL and parses it. The parser is chosen from the final
// address, so redirects to a known marketplace use that marketplace's selectors.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Result, error) {
	start := time.Now()

	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", page.URL, err)
	}

	platform, parser := ParserFor(page.URL)
	result := parser.Parse(doc)
	metrics.ScrapeDuration.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())

	slog.Debug("page scraped",
		slog.String("url", page.URL),
		slog.Int("status", page.StatusCode),
		slog.String("platform", string(platform)),
		slog.Bool("price_found", result.Price != nil),
	)
	return result, nil
}
