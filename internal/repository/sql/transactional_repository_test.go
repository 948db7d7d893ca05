package sql_test

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/repository/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func newEvent(eventType string) *model.Event {
	return &model.Event{
		EventType: eventType,
		EventData: json.RawMessage(`{"action":"created"}`),
		Status:    model.EventStatusPending,
	}
}

func TestTransactionalRepository_CreateProductWithEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	txRepo := sql.NewTransactionalRepository(db)
	ctx := context.Background()

	t.Run("product, initial history and event", func(t *testing.T) {
		// given
		product := &model.Product{Name: "Lamp", URL: "https://shop.example.com/lamp", CurrentPrice: price(20), Platform: model.PlatformGeneric, IsActive: true}
		history := &model.PriceHistory{Price: 20}
		event := newEvent("product.created")

		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO products").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO price_history").ExpectExec().
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 20.0, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO events").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		// when
		result, err := txRepo.CreateProductWithEvent(ctx, product, history, event)

		// then
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, result.ID)
		assert.Equal(t, result.ID, history.ProductID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without initial history", func(t *testing.T) {
		// given
		product := &model.Product{Name: "Lamp", URL: "https://shop.example.com/lamp2", IsActive: true}

		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO products").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO events").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		// when
		_, err := txRepo.CreateProductWithEvent(ctx, product, nil, newEvent("product.created"))

		// then
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on product creation failure", func(t *testing.T) {
		// given
		product := &model.Product{Name: "Lamp", URL: "https://shop.example.com/lamp3"}

		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO products").ExpectExec().WillReturnError(errors.New("insert failed"))
		mock.ExpectRollback()

		// when
		result, err := txRepo.CreateProductWithEvent(ctx, product, nil, newEvent("product.created"))

		// then
		require.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "failed to create product")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on event creation failure", func(t *testing.T) {
		// given
		product := &model.Product{Name: "Lamp", URL: "https://shop.example.com/lamp4"}

		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO products").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO events").ExpectExec().WillReturnError(errors.New("event failed"))
		mock.ExpectRollback()

		// when
		_, err := txRepo.CreateProductWithEvent(ctx, product, nil, newEvent("product.created"))

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create event")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionalRepository_DeleteProductWithEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	txRepo := sql.NewTransactionalRepository(db)
	ctx := context.Background()
	product := &model.Product{ID: uuid.New(), Name: "Lamp"}

	t.Run("successful deletion", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectPrepare("DELETE FROM products").ExpectExec().WithArgs(product.ID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectPrepare("INSERT INTO events").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, txRepo.DeleteProductWithEvent(ctx, product, newEvent("product.deleted")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback when product is missing", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectPrepare("DELETE FROM products").ExpectExec().WithArgs(product.ID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := txRepo.DeleteProductWithEvent(ctx, product, newEvent("product.deleted"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete product")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionalRepository_RecordPriceCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	txRepo := sql.NewTransactionalRepository(db)
	ctx := context.Background()

	columns := []string{"id", "name", "url", "current_price", "target_price", "platform", "is_active", "image_url", "description", "created_at", "updated_at"}
	storedRow := func(id uuid.UUID, current, target float64, active bool) *sqlmock.Rows {
		return sqlmock.NewRows(columns).
			AddRow(id.String(), "Lamp", "https://shop.example.com/lamp", current, target, "generic", active, nil, nil, time.Now(), nil)
	}
	dropEvent := func(current *model.Product, newPrice float64) (*model.Event, error) {
		if !current.IsPriceDrop(newPrice) {
			return nil, nil
		}
		return newEvent("product.price_dropped"), nil
	}

	t.Run("writes only the price of the locked row", func(t *testing.T) {
		// given
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectPrepare(regexp.QuoteMeta("FROM products WHERE id = $1 FOR UPDATE")).
			ExpectQuery().WithArgs(id).
			WillReturnRows(storedRow(id, 20, 10, false))
		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE products SET current_price = $1, updated_at = $2 WHERE id = $3")).
			ExpectExec().WithArgs(18.0, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectPrepare("INSERT INTO price_history").ExpectExec().
			WithArgs(sqlmock.AnyArg(), id, 18.0, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		// when
		updated, err := txRepo.RecordPriceCheck(ctx, id, &model.PriceHistory{Price: 18}, dropEvent)

		// then
		require.NoError(t, err)
		assert.InDelta(t, 18, *updated.CurrentPrice, 1e-9)
		assert.InDelta(t, 10, *updated.TargetPrice, 1e-9)
		assert.False(t, updated.IsActive)
		assert.NotNil(t, updated.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event is decided on the stored target", func(t *testing.T) {
		// given
		id := uuid.New()
		var seen *model.Product

		mock.ExpectBegin()
		mock.ExpectPrepare("FOR UPDATE").ExpectQuery().WithArgs(id).
			WillReturnRows(storedRow(id, 20, 16, true))
		mock.ExpectPrepare("UPDATE products").ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectPrepare("INSERT INTO price_history").ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO events").ExpectExec().
			WithArgs(sqlmock.AnyArg(), "product.price_dropped", sqlmock.AnyArg(), "pending", sqlmock.AnyArg(), nil).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		// when
		_, err := txRepo.RecordPriceCheck(ctx, id, &model.PriceHistory{Price: 15}, func(current *model.Product, newPrice float64) (*model.Event, error) {
			seen = current
			return dropEvent(current, newPrice)
		})

		// then
		require.NoError(t, err)
		assert.InDelta(t, 20, *seen.CurrentPrice, 1e-9)
		assert.InDelta(t, 16, *seen.TargetPrice, 1e-9)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		// given
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectPrepare("FOR UPDATE").ExpectQuery().WithArgs(id).WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectRollback()

		// when
		updated, err := txRepo.RecordPriceCheck(ctx, id, &model.PriceHistory{Price: 15}, dropEvent)

		// then
		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback when history insert fails", func(t *testing.T) {
		// given
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectPrepare("FOR UPDATE").ExpectQuery().WithArgs(id).WillReturnRows(storedRow(id, 20, 10, true))
		mock.ExpectPrepare("UPDATE products").ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectPrepare("INSERT INTO price_history").ExpectExec().WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		// when
		_, err := txRepo.RecordPriceCheck(ctx, id, &model.PriceHistory{Price: 15}, dropEvent)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create price history")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
