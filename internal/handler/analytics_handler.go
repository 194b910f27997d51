package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理画面のグラフ用
type AnalyticsHandler struct {
	uc *usecase.AnalyticsUsecase
}

func NewAnalyticsHandler(uc *usecase.AnalyticsUsecase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

func (h *AnalyticsHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/analytics")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.StaffOnly())

	g.GET("/dashboard", h.dashboard)
	g.GET("/ordenes-por-dia", h.ordersPerDay)
	g.GET("/productos-mas-vendidos", h.topProducts)
	g.GET("/usuarios-por-mes", h.usersPerMonth)
	g.GET("/productos-por-categoria", h.productsPerCategory)
	g.GET("/resumen", h.summary)
}

func (h *AnalyticsHandler) dashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.uc.Dashboard(c.Request().Context()))
}

func (h *AnalyticsHandler) ordersPerDay(c echo.Context) error {
	days, err := queryInt(c, "dias", 0)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.OrdersPerDay(c.Request().Context(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) topProducts(c echo.Context) error {
	limit, err := queryInt(c, "limite", 0)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.TopProducts(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) usersPerMonth(c echo.Context) error {
	months, err := queryInt(c, "meses", 0)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.UsersPerMonth(c.Request().Context(), months)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) productsPerCategory(c echo.Context) error {
	out, err := h.uc.ProductsPerCategory(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) summary(c echo.Context) error {
	out, err := h.uc.Summary(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
