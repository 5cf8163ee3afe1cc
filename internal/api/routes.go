package api

import (
	"github.com/bilgisen/newsfeed/internal/config"
	"github.com/bilgisen/newsfeed/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, svc ArticleService, cfg *config.Config) {
	handlers := NewHandlers(svc)
	admin := middleware.AdminOnly(cfg.AdminAPIKey)

	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)
	api.Get("/articles", middleware.ValidateQuery[ArticlesQuery](), handlers.GetArticles)

	// Mutating endpoints (protected when ADMIN_API_KEY is set)
	api.Post("/refresh", admin, handlers.Refresh)
	api.Delete("/cache", admin, handlers.ClearCache)
	api.Put("/settings/cache", admin, middleware.ValidateBody[CacheSettingsRequest](), handlers.SetCacheEnabled)

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
