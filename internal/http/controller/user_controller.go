package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/service"
)

// UserController handles HTTP requests for price alert recipients.
type UserController struct {
	userService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{userService: userService}
}

// CreateUserRequest represents the request body for registering a recipient.
type CreateUserRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UserResponse represents the response body for a user.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func (uc *UserController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := uc.userService.CreateUser(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (uc *UserController) ListUsers(c *gin.Context) {
	query, ok := pageQuery(c)
	if !ok {
		return
	}

	users, err := uc.userService.ListUsers(c.Request.Context(), *query)
	if err != nil {
		writeError(c, err, "User not found")
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, toUserResponse(user))
	}

	if len(users) > 0 {
		last := users[len(users)-1]
		setNextPageToken(c, query, len(users), repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt})
	}

	c.JSON(http.StatusOK, response)
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: formatTime(user.CreatedAt),
	}
}
