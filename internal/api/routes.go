package api

import (
	"github.com/bilgisen/nytrelay/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, handlers *Handlers) {
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	nytimes := app.Group("/nytimes")
	{
		nytimes.Get("/topstories", handlers.GetTopStories)
		nytimes.Get("/articlesearch",
			middleware.ValidateQuery[ArticleSearchQuery](invalidDateParams),
			handlers.SearchArticles,
		)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Endpoint not found")
	})
}
