package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/cache"
	"github.com/iyhunko/price-tracker/internal/metrics"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/scraper"
	"github.com/iyhunko/price-tracker/internal/sqs"
)

const checkBatchSize = 100

// Scraper extracts product data from a product page.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*scraper.Result, error)
}

// PriceChecker refreshes product prices and raises price drop alerts.
type PriceChecker struct {
	products           repository.ProductRepository
	users              repository.UserRepository
	tx                 repository.Transactor
	scraper            Scraper
	locker             cache.Locker
	downloadDelay      time.Duration
	fallbackRecipients []string
	sleep              func(ctx context.Context, d time.Duration) error
}

// NewPriceChecker creates a PriceChecker. fallbackRecipient receives alerts when no active user exists.
func NewPriceChecker(
	products repository.ProductRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	sc Scraper,
	locker cache.Locker,
	downloadDelay time.Duration,
	fallbackRecipient string,
) *PriceChecker {
	var fallback []string
	if fallbackRecipient != "" {
		fallback = []string{fallbackRecipient}
	}
	return &PriceChecker{
		products:           products,
		users:              users,
		tx:                 tx,
		scraper:            sc,
		locker:             locker,
		downloadDelay:      downloadDelay,
		fallbackRecipients: fallback,
		sleep:              sleepCtx,
	}
}

// CheckByID checks one product under its check lock and returns the refreshed product.
func (c *PriceChecker) CheckByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	unlock, ok, err := c.locker.TryLock(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire check lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckInProgress
	}
	defer unlock()

	resource, err := c.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product, ok := resource.(*model.Product)
	if !ok {
		return nil, repository.ErrInvalidType
	}
	return c.Check(ctx, product)
}

// Check scrapes the product page and records the new price.
// When no price can be obtained the product is left untouched and ErrPriceUnavailable is returned.
func (c *PriceChecker) Check(ctx context.Context, product *model.Product) (*model.Product, error) {
	result, err := c.scraper.Scrape(ctx, product.URL)
	if err != nil {
		metrics.PriceChecks.WithLabelValues(metrics.CheckResultError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if result.Price == nil {
		metrics.PriceChecks.WithLabelValues(metrics.CheckResultUnavailable).Inc()
		return nil, ErrPriceUnavailable
	}

	newPrice := *result.Price
	var (
		drop     bool
		oldPrice *float64
	)
	// The drop rule reads the locked row, which may differ from product after a slow scrape.
	history := &model.PriceHistory{Price: newPrice}
	updated, err := c.tx.RecordPriceCheck(ctx, product.ID, history, func(current *model.Product, price float64) (*model.Event, error) {
		oldPrice = current.CurrentPrice
		drop = current.IsPriceDrop(price)
		if !drop {
			return nil, nil
		}
		next := *current
		next.CurrentPrice = &price
		msg := productMessage(sqs.ActionPriceDropped, &next)
		msg.OldPrice = oldPrice
		msg.Recipients = c.recipients(ctx)
		return newProductEvent(EventTypePriceDropped, msg)
	})
	if err != nil {
		metrics.PriceChecks.WithLabelValues(metrics.CheckResultError).Inc()
		return nil, err
	}

	metrics.PriceChecks.WithLabelValues(metrics.CheckResultUpdated).Inc()
	if drop {
		metrics.PriceDropAlerts.Inc()
		slog.Info("Price drop detected",
			slog.String("product_id", updated.ID.String()),
			slog.Float64("old_price", *oldPrice),
			slog.Float64("new_price", newPrice))
	}
	slog.Info("Updated product price",
		slog.String("product_id", updated.ID.String()),
		slog.String("name", updated.Name),
		slog.Float64("price", newPrice))

	return updated, nil
}

// CheckAll checks every active product, one at a time with a randomized pause between pages.
// Failures are logged and do not stop the run. It returns the number of updated products.
func (c *PriceChecker) CheckAll(ctx context.Context) (int, error) {
	query := repository.NewQuery().With(repository.IsActiveField, "true")
	query.Limit = checkBatchSize

	checked, updated := 0, 0
	for {
		resources, err := c.products.List(ctx, *query)
		if err != nil {
			return updated, fmt.Errorf("failed to list active products: %w", err)
		}

		for _, resource := range resources {
			product, ok := resource.(*model.Product)
			if !ok {
				continue
			}

			if checked > 0 {
				if err := c.sleep(ctx, c.jitteredDelay()); err != nil {
					return updated, err
				}
			}
			checked++

			if c.checkLocked(ctx, product) {
				updated++
			}
		}

		if len(resources) < query.Limit {
			break
		}
		last := resources[len(resources)-1].(*model.Product)
		query.Paginator = &repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt}
	}

	slog.Info("Price check run finished", slog.Int("checked", checked), slog.Int("updated", updated))
	return updated, nil
}

func (c *PriceChecker) checkLocked(ctx context.Context, product *model.Product) bool {
	unlock, ok, err := c.locker.TryLock(ctx, product.ID.String())
	if err != nil {
		metrics.PriceChecks.WithLabelValues(metrics.CheckResultError).Inc()
		slog.Error("Failed to acquire check lock", slog.String("product_id", product.ID.String()), slog.Any("err", err))
		return false
	}
	if !ok {
		metrics.PriceChecks.WithLabelValues(metrics.CheckResultSkipped).Inc()
		slog.Info("Price check skipped, already in progress", slog.String("product_id", product.ID.String()))
		return false
	}
	defer unlock()

	if _, err := c.Check(ctx, product); err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrPriceUnavailable) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Error checking price",
			slog.String("product_id", product.ID.String()),
			slog.Any("err", err))
		return false
	}
	return true
}

// recipients returns the e-mails of active users, or the fallback when there are none.
func (c *PriceChecker) recipients(ctx context.Context) []string {
	emails, err := c.users.ListActiveEmails(ctx)
	if err != nil {
		slog.Error("Failed to load alert recipients", slog.Any("err", err))
	}
	if len(emails) == 0 {
		return c.fallbackRecipients
	}
	return emails
}

// jitteredDelay returns a delay between 0.5x and 1.5x the configured download delay.
func (c *PriceChecker) jitteredDelay() time.Duration {
	if c.downloadDelay <= 0 {
		return 0
	}
	return time.Duration((0.5 + rand.Float64()) * float64(c.downloadDelay))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
