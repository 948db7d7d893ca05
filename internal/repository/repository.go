package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidType is returned when a resource of an unexpected type is passed to a repository.
	ErrInvalidType = errors.New("invalid resource type")
)

// Repository defines the interface for a generic repository that can manage resources.
type Repository interface {
	Create(ctx context.Context, resource Resource) (result Resource, err error)
	List(ctx context.Context, query Query) (result []Resource, err error)
	DeleteByID(ctx context.Context, resource Resource) error
	FindByID(ctx context.Context, id uuid.UUID) (result Resource, err error) // find one
}

// ProductRepository manages tracked products.
type ProductRepository interface {
	Repository
	// Update persists the user-editable fields of an existing product. The current price is left to price checks.
	Update(ctx context.Context, product *model.Product) error
	FindByURL(ctx context.Context, url string) (*model.Product, error)
}

// PriceHistoryRepository manages the append-only price observations.
type PriceHistoryRepository interface {
	Repository
	// ListByProduct returns all entries of a product, newest first unless ascending is set.
	ListByProduct(ctx context.Context, productID uuid.UUID, ascending bool) ([]*model.PriceHistory, error)
	// DeleteOlderThan removes entries observed before cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepository manages price-alert recipients.
type UserRepository interface {
	Repository
	ListActiveEmails(ctx context.Context) ([]string, error)
}

// EventRepository manages outbox events.
type EventRepository interface {
	Repository
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error
}

// PriceCheckEventFunc builds the event raised by newPrice from the product row locked for the price update.
// It returns a nil event when the new price raises none.
type PriceCheckEventFunc func(current *model.Product, newPrice float64) (*model.Event, error)

// Transactor groups writes that must commit together with their outbox event.
type Transactor interface {
	// CreateProductWithEvent inserts the product, the optional initial history entry and the event.
	CreateProductWithEvent(ctx context.Context, product *model.Product, history *model.PriceHistory, event *model.Event) (*model.Product, error)
	DeleteProductWithEvent(ctx context.Context, product *model.Product, event *model.Event) error
	// RecordPriceCheck locks the product row, sets its current price from the history entry, appends the entry
	// and writes the event eventFor builds, if any. Other product fields are left as stored.
	RecordPriceCheck(ctx context.Context, productID uuid.UUID, history *model.PriceHistory, eventFor PriceCheckEventFunc) (*model.Product, error)
}

// Resource represents a generic resource that can be managed by the repository.
type Resource interface {
	InitMeta()
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
