package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		mock.ExpectPrepare("INSERT INTO users").
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), "test@example.com", true, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		result, err := repo.Create(ctx, &model.User{Email: "test@example.com"})

		require.NoError(t, err)
		user := result.(*model.User)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.True(t, user.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectPrepare("INSERT INTO users").
			ExpectExec().
			WillReturnError(&pq.Error{Code: "23505", Detail: "Key (email) already exists."})

		result, err := repo.Create(ctx, &model.User{Email: "test@example.com"})

		assert.Nil(t, result)
		var uniqueErr *repository.UniqueConstraintError
		assert.True(t, errors.As(err, &uniqueErr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	userID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "email", "is_active", "created_at"}).
		AddRow(userID.String(), "test@example.com", true, time.Now())

	mock.ExpectPrepare("SELECT (.+) FROM users WHERE id").
		ExpectQuery().
		WithArgs(userID).
		WillReturnRows(rows)

	result, err := repo.FindByID(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "test@example.com", result.(*model.User).Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	query := repository.NewQuery().With(repository.EmailField, "a@example.com")
	query.Limit = 20

	mock.ExpectPrepare(regexp.QuoteMeta("FROM users WHERE 1=1 AND email = $1 ORDER BY created_at DESC, id DESC LIMIT $2")).
		ExpectQuery().
		WithArgs("a@example.com", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_active", "created_at"}).
			AddRow(uuid.NewString(), "a@example.com", true, time.Now()))

	result, err := repo.List(context.Background(), *query)

	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListActiveEmails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectPrepare("SELECT email FROM users WHERE is_active = TRUE").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@example.com").AddRow("b@example.com"))

	emails, err := repo.ListActiveEmails(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	user := &model.User{ID: uuid.New()}

	mock.ExpectPrepare(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		ExpectExec().
		WithArgs(user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByID(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAsUniqueConstraintError(t *testing.T) {
	_, ok := AsUniqueConstraintError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsUniqueConstraintError(&pq.Error{Code: "23503"})
	assert.False(t, ok, "foreign key violations are not unique violations")
}
