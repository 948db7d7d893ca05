package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
)

const userColumns = "id, email, is_active, created_at"

var _ repository.UserRepository = (*UserRepository)(nil)

// UserRepository implements the repository.UserRepository interface for User entities.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	user, ok := resource.(*model.User)
	if !ok {
		return nil, fmt.Errorf("resource must be a *model.User: %w", repository.ErrInvalidType)
	}

	user.InitMeta()

	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4)`

	_, err := execPrepared(ctx, r.db, query, user.ID, user.Email, user.IsActive, user.CreatedAt)
	if err != nil {
		if uniqueErr, ok := asUniqueConstraintError(err); ok {
			return nil, uniqueErr
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// List retrieves users from the database based on the provided query.
func (r *UserRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + userColumns + " FROM users WHERE 1=1")

	var args []interface{}
	argIndex := 1

	// Apply query filters
	for field, value := range query.Values {
		switch field {
		case repository.IDField:
			id, err := uuid.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("invalid ID format: %w", err)
			}
			queryBuilder.WriteString(fmt.Sprintf(" AND id = $%d", argIndex))
			args = append(args, id)
			argIndex++
		case repository.EmailField:
			queryBuilder.WriteString(fmt.Sprintf(" AND email = $%d", argIndex))
			args = append(args, value)
			argIndex++
		case repository.IsActiveField:
			active, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid is_active filter: %w", err)
			}
			queryBuilder.WriteString(fmt.Sprintf(" AND is_active = $%d", argIndex))
			args = append(args, active)
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

	stmt, err := r.db.PrepareContext(ctx, queryBuilder.String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []repository.Resource
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Email, &user.IsActive, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// ListActiveEmails returns the addresses of all active users, oldest registration first.
func (r *UserRepository) ListActiveEmails(ctx context.Context) ([]string, error) {
	stmt, err := r.db.PrepareContext(ctx, `SELECT email FROM users WHERE is_active = TRUE ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query user emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan user email: %w", err)
		}
		emails = append(emails, email)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return emails, nil
}

// FindByID retrieves a single user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	stmt, err := r.db.PrepareContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var result model.User
	err = stmt.QueryRowContext(ctx, id).Scan(&result.ID, &result.Email, &result.IsActive, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &result, nil
}

// DeleteByID deletes a user by ID.
func (r *UserRepository) DeleteByID(ctx context.Context, resource repository.Resource) error {
	user, ok := resource.(*model.User)
	if !ok {
		return fmt.Errorf("resource must be a *model.User: %w", repository.ErrInvalidType)
	}

	rowsAffected, err := execPrepared(ctx, r.db, `DELETE FROM users WHERE id = $1`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", repository.ErrNotFound)
	}

	return nil
}
