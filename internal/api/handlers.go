package api

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newsfeed/internal/logger"
	"github.com/bilgisen/newsfeed/internal/middleware"
	"github.com/bilgisen/newsfeed/internal/models"
	"github.com/bilgisen/newsfeed/internal/syncer"
	"github.com/gofiber/fiber/v2"
)

const version = "1.0.0"

// ArticleService is the controller surface the HTTP API exposes.
type ArticleService interface {
	Snapshot() syncer.Snapshot
	Refresh(ctx context.Context) error
	ClearCache(ctx context.Context) error
	SetCacheEnabled(ctx context.Context, enabled bool) error
}

// ArticlesQuery pages through the current article list.
type ArticlesQuery struct {
	Offset int `query:"offset" validate:"min=0"`
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// CacheSettingsRequest is the body of PUT /settings/cache.
type CacheSettingsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type Handlers struct {
	svc ArticleService
}

func NewHandlers(svc ArticleService) *Handlers {
	return &Handlers{svc: svc}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	snap := h.svc.Snapshot()
	return c.JSON(fiber.Map{
		"status":    "ok",
		"version":   version,
		"time":      time.Now().Format(time.RFC3339),
		"phase":     snap.Phase,
		"connected": snap.ConnectivityKnown && snap.Connected,
	})
}

// GetArticles handles GET /articles
func (h *Handlers) GetArticles(c *fiber.Ctx) error {
	snap := h.svc.Snapshot()

	articles := snap.Articles
	if q, ok := c.Locals(middleware.LocalsQuery).(*ArticlesQuery); ok {
		articles = page(articles, q.Offset, q.Limit)
	}

	return c.JSON(fiber.Map{
		"articles":      articles,
		"total":         len(snap.Articles),
		"phase":         snap.Phase,
		"refreshing":    snap.Refreshing,
		"connected":     snap.ConnectivityKnown && snap.Connected,
		"offline":       snap.OfflineBanner,
		"cache_enabled": snap.CacheEnabled,
		"updated_at":    snap.UpdatedAt.Format(time.RFC3339),
	})
}

// Refresh handles POST /refresh
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	err := h.svc.Refresh(c.UserContext())
	switch {
	case errors.Is(err, syncer.ErrOffline):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Offline, refresh unavailable",
		})
	case err != nil:
		logger.Get().Error().Err(err).Msg("Error requesting refresh")
		return fiber.NewError(fiber.StatusServiceUnavailable, "Refresh could not be started")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
	})
}

// ClearCache handles DELETE /cache
func (h *Handlers) ClearCache(c *fiber.Ctx) error {
	if err := h.svc.ClearCache(c.UserContext()); err != nil {
		logger.Get().Error().Err(err).Msg("Error requesting cache clear")
		return fiber.NewError(fiber.StatusServiceUnavailable, "Cache clear could not be started")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
	})
}

// SetCacheEnabled handles PUT /settings/cache
func (h *Handlers) SetCacheEnabled(c *fiber.Ctx) error {
	req, ok := c.Locals(middleware.LocalsBody).(*CacheSettingsRequest)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.svc.SetCacheEnabled(c.UserContext(), *req.Enabled); err != nil {
		logger.Get().Error().Err(err).Bool("enabled", *req.Enabled).Msg("Error updating cache preference")
		return fiber.NewError(fiber.StatusServiceUnavailable, "Preference could not be updated")
	}

	return c.JSON(fiber.Map{
		"cache_enabled": *req.Enabled,
	})
}

func page(articles []models.DisplayArticle, offset, limit int) []models.DisplayArticle {
	if offset >= len(articles) {
		return []models.DisplayArticle{}
	}
	articles = articles[offset:]
	if limit > 0 && limit < len(articles) {
		articles = articles[:limit]
	}
	return articles
}
