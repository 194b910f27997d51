package handler

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// *sql.DB を想定
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Time     string `json:"time"`
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
}

func (h *HealthHandler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	now := time.Now().Format(time.RFC3339)
	if err := h.db.PingContext(ctx); err != nil {
		logger.FromContext(ctx).Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "error", Time: now})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "ok", Time: now})
}
