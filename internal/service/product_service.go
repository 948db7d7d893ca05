package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/cache"
	"github.com/iyhunko/price-tracker/internal/chart"
	"github.com/iyhunko/price-tracker/internal/metrics"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/scraper"
	"github.com/iyhunko/price-tracker/internal/sqs"
)

// CreateProductInput holds the fields a client submits to start tracking a page.
type CreateProductInput struct {
	Name        string
	URL         string
	TargetPrice *float64
	Platform    model.Platform
}

// UpdateProductInput holds a partial product update. Nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	TargetPrice *float64
	IsActive    *bool
}

type ProductService struct {
	products repository.ProductRepository
	history  repository.PriceHistoryRepository
	tx       repository.Transactor
	scraper  Scraper
	checker  *PriceChecker
	charts   cache.ChartCache
}

func NewProductService(
	products repository.ProductRepository,
	history repository.PriceHistoryRepository,
	tx repository.Transactor,
	sc Scraper,
	checker *PriceChecker,
	charts cache.ChartCache,
) *ProductService {
	return &ProductService{
		products: products,
		history:  history,
		tx:       tx,
		scraper:  sc,
		checker:  checker,
		charts:   charts,
	}
}

// CreateProduct scrapes the page and stores the product, its initial price and a creation event atomically.
// A failed scrape is not fatal: the product is stored with the submitted data only.
func (ps *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	_, err := ps.products.FindByURL(ctx, in.URL)
	switch {
	case err == nil:
		return nil, ErrProductExists
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	product := &model.Product{
		Name:        in.Name,
		URL:         in.URL,
		TargetPrice: in.TargetPrice,
		Platform:    in.Platform,
		IsActive:    true,
	}

	result, err := ps.scraper.Scrape(ctx, in.URL)
	if err != nil {
		slog.Warn("Failed to scrape new product", slog.String("url", in.URL), slog.Any("err", err))
	} else {
		applyScrapeResult(product, result)
	}
	product.InitMeta()

	var history *model.PriceHistory
	if product.CurrentPrice != nil {
		history = &model.PriceHistory{Price: *product.CurrentPrice}
	}

	event, err := newProductEvent(EventTypeProductCreated, productMessage(sqs.ActionCreated, product))
	if err != nil {
		return nil, err
	}

	created, err := ps.tx.CreateProductWithEvent(ctx, product, history, event)
	if err != nil {
		var uniqueErr *repository.UniqueConstraintError
		if errors.As(err, &uniqueErr) {
			return nil, ErrProductExists
		}
		return nil, err
	}

	metrics.ProductsCreated.Inc()
	slog.Info("Product created",
		slog.String("product_id", created.ID.String()),
		slog.String("url", created.URL),
		slog.Bool("price_found", created.CurrentPrice != nil))

	return created, nil
}

func applyScrapeResult(product *model.Product, result *scraper.Result) {
	if result.Name != "" {
		product.Name = result.Name
	}
	product.CurrentPrice = result.Price
	if result.ImageURL != "" {
		product.ImageURL = &result.ImageURL
	}
	if result.Description != "" {
		product.Description = &result.Description
	}
	if result.Platform != "" {
		product.Platform = result.Platform
	}
}

func (ps *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	resource, err := ps.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product, ok := resource.(*model.Product)
	if !ok {
		return nil, repository.ErrInvalidType
	}
	return product, nil
}

func (ps *ProductService) ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	resources, err := ps.products.List(ctx, query)
	if err != nil {
		return nil, err
	}

	products := make([]*model.Product, 0, len(resources))
	for _, resource := range resources {
		product, ok := resource.(*model.Product)
		if !ok {
			return nil, repository.ErrInvalidType
		}
		products = append(products, product)
	}
	return products, nil
}

// UpdateProduct applies a partial update.
func (ps *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*model.Product, error) {
	product, err := ps.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.TargetPrice != nil {
		product.TargetPrice = in.TargetPrice
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	product.Touch()

	if err := ps.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (ps *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := ps.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	event, err := newProductEvent(EventTypeProductDeleted, productMessage(sqs.ActionDeleted, product))
	if err != nil {
		return err
	}

	if err := ps.tx.DeleteProductWithEvent(ctx, product, event); err != nil {
		return err
	}

	metrics.ProductsDeleted.Inc()
	slog.Info("Product deleted", slog.String("product_id", product.ID.String()))
	return nil
}

// CheckPrice re-checks the product immediately.
func (ps *ProductService) CheckPrice(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return ps.checker.CheckByID(ctx, id)
}

// PriceHistory returns the entries of a product, newest first.
func (ps *ProductService) PriceHistory(ctx context.Context, id uuid.UUID) ([]*model.PriceHistory, error) {
	return ps.history.ListByProduct(ctx, id, false)
}

// PriceHistoryChart returns the PNG chart of the product's price history.
func (ps *ProductService) PriceHistoryChart(ctx context.Context, id uuid.UUID) ([]byte, error) {
	product, err := ps.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	key := cache.ChartKey(product.ID, product.Version())
	if data, found, err := ps.charts.Get(ctx, key); err != nil {
		slog.Warn("Failed to read chart cache", slog.String("key", key), slog.Any("err", err))
	} else if found {
		return data, nil
	}

	entries, err := ps.history.ListByProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}

	points := make([]chart.Point, 0, len(entries))
	for _, entry := range entries {
		points = append(points, chart.Point{Time: entry.Timestamp, Price: entry.Price})
	}

	data, err := chart.RenderPNG(product.Name, points)
	if err != nil {
		return nil, fmt.Errorf("failed to draw chart for product %s: %w", product.ID, err)
	}

	if err := ps.charts.Set(ctx, key, data); err != nil {
		slog.Warn("Failed to store chart in cache", slog.String("key", key), slog.Any("err", err))
	}
	return data, nil
}
