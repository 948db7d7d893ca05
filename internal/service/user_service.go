package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
)

// UserService manages price alert recipients.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// CreateUser registers an active recipient. E-mails are unique.
func (us *UserService) CreateUser(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{Email: strings.TrimSpace(email)}

	created, err := us.users.Create(ctx, user)
	if err != nil {
		var uniqueErr *repository.UniqueConstraintError
		if errors.As(err, &uniqueErr) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	createdUser, ok := created.(*model.User)
	if !ok {
		return nil, repository.ErrInvalidType
	}
	slog.Info("User created", slog.String("user_id", createdUser.ID.String()))
	return createdUser, nil
}

func (us *UserService) ListUsers(ctx context.Context, query repository.Query) ([]*model.User, error) {
	resources, err := us.users.List(ctx, query)
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(resources))
	for _, resource := range resources {
		user, ok := resource.(*model.User)
		if !ok {
			return nil, repository.ErrInvalidType
		}
		users = append(users, user)
	}
	return users, nil
}
