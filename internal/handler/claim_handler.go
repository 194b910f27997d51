package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ClaimHandler struct {
	uc *usecase.ClaimUsecase
}

func NewClaimHandler(uc *usecase.ClaimUsecase) *ClaimHandler {
	return &ClaimHandler{uc: uc}
}

type ClaimCreateRequest struct {
	OrderID int64  `json:"ordenId" validate:"required,gt=0"`
	Message string `json:"mensaje" validate:"required"`
}

func (h *ClaimHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/reclamos")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))

	g.POST("", h.create)
	g.GET("/mios", h.listMine)
	g.GET("", h.list, middleware.StaffOnly())
}

func (h *ClaimHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ClaimCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Create(c.Request().Context(), userID, usecase.CreateClaimInput{
		OrderID: req.OrderID,
		Message: req.Message,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ClaimHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ListMine(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ClaimHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
