package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
)

const priceHistoryColumns = "id, product_id, price, timestamp"

var _ repository.PriceHistoryRepository = (*PriceHistoryRepository)(nil)

// PriceHistoryRepository implements the repository.PriceHistoryRepository interface.
type PriceHistoryRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewPriceHistoryRepository creates a new PriceHistoryRepository instance.
func NewPriceHistoryRepository(db *sql.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

func (r *PriceHistoryRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

// Create appends a price observation.
func (r *PriceHistoryRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	entry, ok := resource.(*model.PriceHistory)
	if !ok {
		return nil, fmt.Errorf("resource must be a *model.PriceHistory: %w", repository.ErrInvalidType)
	}

	if entry.ID == uuid.Nil {
		entry.InitMeta()
	}

	query := `INSERT INTO price_history (` + priceHistoryColumns + `) VALUES ($1, $2, $3, $4)`
	if _, err := execPrepared(ctx, r.getExecutor(), query, entry.ID, entry.ProductID, entry.Price, entry.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to insert price history: %w", err)
	}
	return entry, nil
}

// List returns entries newest first, optionally filtered by product_id.
func (r *PriceHistoryRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + priceHistoryColumns + " FROM price_history WHERE 1=1")

	var args []interface{}
	argIndex := 1

	if value, ok := query.Values[repository.ProductIDField]; ok {
		productID, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("invalid product ID format: %w", err)
		}
		queryBuilder.WriteString(fmt.Sprintf(" AND product_id = $%d", argIndex))
		args = append(args, productID)
		argIndex++
	}

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", argIndex))
	args = append(args, limit)

	entries, err := r.query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}

	resources := make([]repository.Resource, 0, len(entries))
	for _, entry := range entries {
		resources = append(resources, entry)
	}
	return resources, nil
}

// ListByProduct returns every entry of a product ordered by observation time.
func (r *PriceHistoryRepository) ListByProduct(ctx context.Context, productID uuid.UUID, ascending bool) ([]*model.PriceHistory, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	query := "SELECT " + priceHistoryColumns + " FROM price_history WHERE product_id = $1 ORDER BY timestamp " + order
	return r.query(ctx, query, productID)
}

// FindByID retrieves a single entry by ID.
func (r *PriceHistoryRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, "SELECT "+priceHistoryColumns+" FROM price_history WHERE id = $1")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var entry model.PriceHistory
	err = stmt.QueryRowContext(ctx, id).Scan(&entry.ID, &entry.ProductID, &entry.Price, &entry.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("price history entry not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	return &entry, nil
}

// DeleteByID deletes a single entry.
func (r *PriceHistoryRepository) DeleteByID(ctx context.Context, resource repository.Resource) error {
	entry, ok := resource.(*model.PriceHistory)
	if !ok {
		return fmt.Errorf("resource must be a *model.PriceHistory: %w", repository.ErrInvalidType)
	}

	rowsAffected, err := execPrepared(ctx, r.getExecutor(), `DELETE FROM price_history WHERE id = $1`, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to delete price history: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("price history entry not found: %w", repository.ErrNotFound)
	}
	return nil
}

// DeleteOlderThan removes entries observed strictly before cutoff.
func (r *PriceHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	rowsAffected, err := execPrepared(ctx, r.getExecutor(), `DELETE FROM price_history WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price history: %w", err)
	}
	return rowsAffected, nil
}

func (r *PriceHistoryRepository) query(ctx context.Context, query string, args ...interface{}) ([]*model.PriceHistory, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	entries := []*model.PriceHistory{}
	for rows.Next() {
		var entry model.PriceHistory
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.Price, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}
