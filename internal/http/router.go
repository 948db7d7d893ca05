package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/price-tracker/internal/config"
	"github.com/iyhunko/price-tracker/internal/http/controller"
	"github.com/iyhunko/price-tracker/internal/http/middleware"
)

// InitRouter registers the middleware chain and the API routes on server.
// Collection routes answer both with and without a trailing slash.
func InitRouter(conf *config.Config, server *gin.Engine, ctr *controller.Controller, productCtr *controller.ProductController, userCtr *controller.UserController) *gin.Engine {
	server.Use(middleware.Recovery())
	server.Use(middleware.Logger())
	server.Use(middleware.CORS(conf.CORS.AllowedOrigins...))

	server.GET("/", ctr.Root)
	server.GET("/health", ctr.Health)

	api := server.Group("/api/v1")

	products := api.Group("/products")
	{
		for _, root := range []string{"", "/"} {
			products.POST(root, productCtr.CreateProduct)
			products.GET(root, productCtr.ListProducts)
		}
		products.GET("/:id", productCtr.GetProduct)
		products.PUT("/:id", productCtr.UpdateProduct)
		products.DELETE("/:id", productCtr.DeleteProduct)
		products.POST("/:id/check-price", productCtr.CheckPrice)
		products.GET("/:id/price-history", productCtr.PriceHistory)
		products.GET("/:id/price-history/chart", productCtr.PriceHistoryChart)
	}

	users := api.Group("/users")
	{
		for _, root := range []string{"", "/"} {
			users.POST(root, userCtr.CreateUser)
			users.GET(root, userCtr.ListUsers)
		}
	}

	return server
}
