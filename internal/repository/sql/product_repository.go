package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
)

const productColumns = "id, name, url, current_price, target_price, platform, is_active, image_url, description, created_at, updated_at"

var _ repository.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements the repository.ProductRepository interface for Product entities.
type ProductRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *ProductRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	product, ok := resource.(*model.Product)
	if !ok {
		return nil, fmt.Errorf("resource must be a *model.Product: %w", repository.ErrInvalidType)
	}

	// Only initialize metadata if not already set
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	query := `INSERT INTO products (` + productColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := execPrepared(ctx, r.getExecutor(), query,
		product.ID, product.Name, product.URL,
		nullFloat(product.CurrentPrice), nullFloat(product.TargetPrice),
		string(product.Platform), product.IsActive,
		nullString(product.ImageURL), nullString(product.Description),
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if uniqueErr, ok := asUniqueConstraintError(err); ok {
			return nil, uniqueErr
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	return product, nil
}

// Update persists the user-editable fields of the product. current_price is written by updatePrice only.
func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products
	          SET name = $1, target_price = $2, platform = $3, is_active = $4,
	              image_url = $5, description = $6, updated_at = $7
	          WHERE id = $8`

	rowsAffected, err := execPrepared(ctx, r.getExecutor(), query,
		product.Name, nullFloat(product.TargetPrice),
		string(product.Platform), product.IsActive,
		nullString(product.ImageURL), nullString(product.Description),
		product.UpdatedAt, product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product %s: %w", product.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *ProductRepository) updatePrice(ctx context.Context, id uuid.UUID, price float64, updatedAt time.Time) error {
	rowsAffected, err := execPrepared(ctx, r.getExecutor(),
		`UPDATE products SET current_price = $1, updated_at = $2 WHERE id = $3`, price, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update product price: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// List retrieves products from the database based on the provided query.
func (r *ProductRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + productColumns + " FROM products WHERE 1=1")

	var args []interface{}
	argIndex := 1

	// Apply query filters
	for field, value := range query.Values {
		switch field {
		case repository.IsActiveField:
			active, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid is_active filter: %w", err)
			}
			queryBuilder.WriteString(fmt.Sprintf(" AND is_active = $%d", argIndex))
			args = append(args, active)
			argIndex++
		case repository.PlatformField:
			queryBuilder.WriteString(fmt.Sprintf(" AND platform = $%d", argIndex))
			args = append(args, value)
			argIndex++
		case repository.NameField:
			queryBuilder.WriteString(fmt.Sprintf(" AND name = $%d", argIndex))
			args = append(args, value)
			argIndex++
		}
	}

	// Apply pagination
	if query.Paginator != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1))
		args = append(args, query.Paginator.LastCreatedAt, query.Paginator.LastID)
		argIndex += 2
	}

	// Order by created_at DESC, id DESC for consistent pagination
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
	args = append(args, limit)

	stmt, err := r.getExecutor().PrepareContext(ctx, queryBuilder.String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []repository.Resource
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// FindByID retrieves a single product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	product, err := r.findOne(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// FindByURL retrieves the product tracking the given page address.
func (r *ProductRepository) FindByURL(ctx context.Context, url string) (*model.Product, error) {
	return r.findOne(ctx, "SELECT "+productColumns+" FROM products WHERE url = $1", url)
}

// findForUpdate reads the product and holds its row lock until the surrounding transaction ends.
func (r *ProductRepository) findForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.findOne(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id)
}

func (r *ProductRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Product, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return product, nil
}

// DeleteByID deletes a product by ID. Its price history is removed by cascade.
func (r *ProductRepository) DeleteByID(ctx context.Context, resource repository.Resource) error {
	product, ok := resource.(*model.Product)
	if !ok {
		return fmt.Errorf("resource must be a *model.Product: %w", repository.ErrInvalidType)
	}

	rowsAffected, err := execPrepared(ctx, r.getExecutor(), `DELETE FROM products WHERE id = $1`, product.ID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("product not found: %w", repository.ErrNotFound)
	}

	return nil
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		product      model.Product
		platform     string
		currentPrice sql.NullFloat64
		targetPrice  sql.NullFloat64
		imageURL     sql.NullString
		description  sql.NullString
		updatedAt    sql.NullTime
	)
	err := row.Scan(
		&product.ID, &product.Name, &product.URL, &currentPrice, &targetPrice, &platform,
		&product.IsActive, &imageURL, &description, &product.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.Platform = model.Platform(platform)
	product.CurrentPrice = floatPtr(currentPrice)
	product.TargetPrice = floatPtr(targetPrice)
	product.ImageURL = stringPtr(imageURL)
	product.Description = stringPtr(description)
	if updatedAt.Valid {
		product.UpdatedAt = &updatedAt.Time
	}
	return &product, nil
}
