package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/http/middleware"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/service"
)

const (
	nextPageTokenHeader    = middleware.NextPageTokenHeader
	productNotFoundMessage = "Product not found"
)

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService *service.ProductService
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService *service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// CreateProductRequest represents the request body for creating a product.
type CreateProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	URL         string   `json:"url" binding:"required,url"`
	TargetPrice *float64 `json:"target_price" binding:"omitempty,gt=0"`
	Platform    string   `json:"platform" binding:"omitempty,oneof=generic amazon ebay"`
}

// UpdateProductRequest represents a partial product update.
type UpdateProductRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	TargetPrice *float64 `json:"target_price" binding:"omitempty,gt=0"`
	IsActive    *bool    `json:"is_active"`
}

// ProductResponse represents the response body for a product.
type ProductResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	CurrentPrice *float64 `json:"current_price"`
	TargetPrice  *float64 `json:"target_price"`
	Platform     string   `json:"platform"`
	IsActive     bool     `json:"is_active"`
	ImageURL     *string  `json:"image_url"`
	Description  *string  `json:"description"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    *string  `json:"updated_at"`
}

// PriceHistoryResponse represents one price observation.
type PriceHistoryResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
}

// CheckPriceResponse represents the outcome of an immediate price check.
type CheckPriceResponse struct {
	Message      string   `json:"message"`
	CurrentPrice *float64 `json:"current_price"`
}

// CreateProduct handles the HTTP POST request for creating a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	platform := model.Platform(req.Platform)
	if platform == "" {
		platform = model.PlatformGeneric
	}

	createdProduct, err := pc.productService.CreateProduct(c.Request.Context(), service.CreateProductInput{
		Name:        req.Name,
		URL:         req.URL,
		TargetPrice: req.TargetPrice,
		Platform:    platform,
	})
	if err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	c.JSON(http.StatusCreated, toProductResponse(createdProduct))
}

// GetProduct handles the HTTP GET request for one product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := pc.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

// UpdateProduct handles the HTTP PUT request for a partial product update.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := pc.productService.UpdateProduct(c.Request.Context(), id, service.UpdateProductInput{
		Name:        req.Name,
		TargetPrice: req.TargetPrice,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by ID.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	if err := pc.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// ListProducts handles the HTTP GET request for listing products with pagination.
// Optional is_active and platform query parameters filter the list.
func (pc *ProductController) ListProducts(c *gin.Context) {
	query, ok := pageQuery(c)
	if !ok {
		return
	}
	if active := c.Query("is_active"); active != "" {
		if active != "true" && active != "false" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active must be true or false"})
			return
		}
		query.With(repository.IsActiveField, active)
	}
	if platform := c.Query("platform"); platform != "" {
		query.With(repository.PlatformField, platform)
	}

	products, err := pc.productService.ListProducts(c.Request.Context(), *query)
	if err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	productResponses := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		productResponses = append(productResponses, toProductResponse(product))
	}

	if len(products) > 0 {
		last := products[len(products)-1]
		setNextPageToken(c, query, len(products), repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt})
	}

	c.JSON(http.StatusOK, productResponses)
}

// CheckPrice handles the HTTP POST request for an immediate price check.
func (pc *ProductController) CheckPrice(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := pc.productService.CheckPrice(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	c.JSON(http.StatusOK, CheckPriceResponse{
		Message:      "Price check completed",
		CurrentPrice: product.CurrentPrice,
	})
}

// PriceHistory handles the HTTP GET request for a product's price history, newest first.
func (pc *ProductController) PriceHistory(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	entries, err := pc.productService.PriceHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	response := make([]PriceHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, PriceHistoryResponse{
			ID:        entry.ID.String(),
			ProductID: entry.ProductID.String(),
			Price:     entry.Price,
			Timestamp: formatTime(entry.Timestamp),
		})
	}

	c.JSON(http.StatusOK, response)
}

// PriceHistoryChart handles the HTTP GET request for a product's price chart image.
func (pc *ProductController) PriceHistoryChart(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	data, err := pc.productService.PriceHistoryChart(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, productNotFoundMessage)
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}

func productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return uuid.Nil, false
	}
	return id, true
}

func toProductResponse(product *model.Product) ProductResponse {
	response := ProductResponse{
		ID:           product.ID.String(),
		Name:         product.Name,
		URL:          product.URL,
		CurrentPrice: product.CurrentPrice,
		TargetPrice:  product.TargetPrice,
		Platform:     string(product.Platform),
		IsActive:     product.IsActive,
		ImageURL:     product.ImageURL,
		Description:  product.Description,
		CreatedAt:    formatTime(product.CreatedAt),
	}
	if product.UpdatedAt != nil {
		updatedAt := formatTime(*product.UpdatedAt)
		response.UpdatedAt = &updatedAt
	}
	return response
}
