package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/price-tracker/internal/chart"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/service"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Controller handles general HTTP requests.
type Controller struct {
	db Pinger
}

// New creates a new Controller. A nil db skips the database check in Health.
func New(db Pinger) *Controller {
	return &Controller{db: db}
}

// Root handles the HTTP GET request for the API banner.
func (con *Controller) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Price Tracker API is running!"})
}

// Health handles the HTTP GET request for the health check endpoint.
func (con *Controller) Health(c *gin.Context) {
	if con.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := con.db.PingContext(ctx); err != nil {
			slog.Error("Health check failed", slog.Any("err", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// writeError maps service and repository errors to HTTP responses.
func writeError(c *gin.Context, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage})
	case errors.Is(err, repository.ErrInvalidPageToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page token"})
	case errors.Is(err, service.ErrProductExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product with this URL already exists"})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
	case errors.Is(err, service.ErrCheckInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Price check already in progress"})
	case errors.Is(err, chart.ErrNotEnoughData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Not enough price history to draw a chart"})
	case errors.Is(err, service.ErrPriceUnavailable):
		slog.Warn("Price unavailable", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not retrieve the current price"})
	default:
		slog.Error("Request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

// pageQuery builds a repository query from the limit and token query parameters.
func pageQuery(c *gin.Context) (*repository.Query, bool) {
	var req struct {
		Limit int32  `form:"limit" binding:"omitempty,min=0"`
		Token string `form:"token"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	query := repository.NewQuery()
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		writeError(c, err, "")
		return nil, false
	}
	return query, true
}

// setNextPageToken exposes the cursor after the last item when the page is full.
func setNextPageToken(c *gin.Context, query *repository.Query, count int, last repository.Paginator) {
	if count > 0 && count >= query.Limit {
		c.Header(nextPageTokenHeader, last.Encode())
	}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
