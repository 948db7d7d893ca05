package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
)

var _ repository.Transactor = (*TransactionalRepository)(nil)

// TransactionalRepository provides methods to work with multiple repositories in a single transaction
type TransactionalRepository struct {
	db *sql.DB
}

// NewTransactionalRepository creates a new TransactionalRepository
func NewTransactionalRepository(db *sql.DB) *TransactionalRepository {
	return &TransactionalRepository{db: db}
}

type txRepositories struct {
	products *ProductRepository
	history  *PriceHistoryRepository
	events   *EventRepository
}

func (tr *TransactionalRepository) run(ctx context.Context, fn func(repos txRepositories) error) error {
	return withTx(ctx, tr.db, func(tx *sql.Tx) error {
		return fn(txRepositories{
			products: &ProductRepository{db: tr.db, txn: tx},
			history:  &PriceHistoryRepository{db: tr.db, txn: tx},
			events:   &EventRepository{db: tr.db, txn: tx},
		})
	})
}

// CreateProductWithEvent creates a product, its optional initial price history entry and an event in a single transaction.
// The history entry is bound to the product ID assigned on insert.
func (tr *TransactionalRepository) CreateProductWithEvent(ctx context.Context, product *model.Product, history *model.PriceHistory, event *model.Event) (*model.Product, error) {
	err := tr.run(ctx, func(repos txRepositories) error {
		if _, err := repos.products.Create(ctx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		if history != nil {
			history.ProductID = product.ID
			if _, err := repos.history.Create(ctx, history); err != nil {
				return fmt.Errorf("failed to create price history: %w", err)
			}
		}

		if _, err := repos.events.Create(ctx, event); err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProductWithEvent deletes a product and creates a deletion event in a single transaction
func (tr *TransactionalRepository) DeleteProductWithEvent(ctx context.Context, product *model.Product, event *model.Event) error {
	return tr.run(ctx, func(repos txRepositories) error {
		if err := repos.products.DeleteByID(ctx, product); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		if _, err := repos.events.Create(ctx, event); err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		return nil
	})
}

// RecordPriceCheck stores the outcome of a successful price check. The product row is locked and re-read so
// that eventFor decides on its committed state, and only current_price and updated_at are written.
func (tr *TransactionalRepository) RecordPriceCheck(ctx context.Context, productID uuid.UUID, history *model.PriceHistory, eventFor repository.PriceCheckEventFunc) (*model.Product, error) {
	var updated *model.Product
	err := tr.run(ctx, func(repos txRepositories) error {
		current, err := repos.products.findForUpdate(ctx, productID)
		if err != nil {
			return fmt.Errorf("failed to lock product: %w", err)
		}

		var event *model.Event
		if eventFor != nil {
			if event, err = eventFor(current, history.Price); err != nil {
				return fmt.Errorf("failed to build event: %w", err)
			}
		}

		next := *current
		price := history.Price
		next.CurrentPrice = &price
		next.Touch()
		if err := repos.products.updatePrice(ctx, next.ID, price, *next.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		history.ProductID = next.ID
		if _, err := repos.history.Create(ctx, history); err != nil {
			return fmt.Errorf("failed to create price history: %w", err)
		}

		if event != nil {
			if _, err := repos.events.Create(ctx, event); err != nil {
				return fmt.Errorf("failed to create event: %w", err)
			}
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
