package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/scraper"
	"github.com/iyhunko/price-tracker/internal/sqs"
	"github.com/stretchr/testify/mock"
)

// MockRepository implements the generic repository.Repository methods.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockRepository) DeleteByID(ctx context.Context, resource repository.Resource) error {
	args := m.Called(ctx, resource)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Resource), args.Error(1)
}

// MockProductRepository is a mock implementation of repository.ProductRepository
type MockProductRepository struct {
	MockRepository
}

func (m *MockProductRepository) Update(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) FindByURL(ctx context.Context, url string) (*model.Product, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockPriceHistoryRepository is a mock implementation of repository.PriceHistoryRepository
type MockPriceHistoryRepository struct {
	MockRepository
}

func (m *MockPriceHistoryRepository) ListByProduct(ctx context.Context, productID uuid.UUID, ascending bool) ([]*model.PriceHistory, error) {
	args := m.Called(ctx, productID, ascending)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PriceHistory), args.Error(1)
}

func (m *MockPriceHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	MockRepository
}

func (m *MockUserRepository) ListActiveEmails(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	MockRepository
}

func (m *MockEventRepository) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	args := m.Called(ctx, eventID, status)
	return args.Error(0)
}

// MockTransactor is a mock implementation of repository.Transactor
type MockTransactor struct {
	mock.Mock
	// PriceCheckEvent is the event built by the last RecordPriceCheck call.
	PriceCheckEvent *model.Event
}

// CreateProductWithEvent returns the given product unless an error is configured.
func (m *MockTransactor) CreateProductWithEvent(ctx context.Context, product *model.Product, history *model.PriceHistory, event *model.Event) (*model.Product, error) {
	args := m.Called(ctx, product, history, event)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return product, nil
}

func (m *MockTransactor) DeleteProductWithEvent(ctx context.Context, product *model.Product, event *model.Event) error {
	args := m.Called(ctx, product, event)
	return args.Error(0)
}

// RecordPriceCheck treats the configured product as the locked row and applies the new price to a copy of it.
func (m *MockTransactor) RecordPriceCheck(ctx context.Context, productID uuid.UUID, history *model.PriceHistory, eventFor repository.PriceCheckEventFunc) (*model.Product, error) {
	args := m.Called(ctx, productID, history)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current := args.Get(0).(*model.Product)
	event, err := eventFor(current, history.Price)
	if err != nil {
		return nil, err
	}
	m.PriceCheckEvent = event

	updated := *current
	price := history.Price
	updated.CurrentPrice = &price
	updated.Touch()
	return &updated, nil
}

// MockScraper is a mock implementation of service.Scraper
type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) Scrape(ctx context.Context, pageURL string) (*scraper.Result, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scraper.Result), args.Error(1)
}

// MockPublisher is a mock implementation of service.MessagePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func ptr(v float64) *float64 { return &v }
