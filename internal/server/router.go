package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/handlers"
)

type RouterConfig struct {
	SearchHandler   *handlers.SearchHandler
	CompareHandler  *handlers.CompareHandler
	ProductHandler  *handlers.ProductHandler
	PlatformHandler *handlers.PlatformHandler
	HistoryHandler  *handlers.HistoryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Search
		api.POST("/search/text", cfg.SearchHandler.TextSearch)
		api.POST("/search/image", cfg.SearchHandler.ImageSearch)
		api.GET("/search/status/:task_id", cfg.SearchHandler.SearchStatus)
		api.GET("/search/history", cfg.HistoryHandler.RecentSearches)
		// Comparison
		api.GET("/compare", cfg.CompareHandler.Compare)
		// Products
		api.GET("/products", cfg.ProductHandler.ListProducts)
		api.GET("/products/:id", cfg.ProductHandler.GetProduct)
		api.GET("/products/:id/price-history", cfg.ProductHandler.PriceHistory)
		// Platforms
		api.GET("/platforms", cfg.PlatformHandler.ListPlatforms)
	}

	return router
}
