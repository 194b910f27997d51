package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理画面のユーザー一覧
type UserHandler struct {
	uc *usecase.UserUsecase
}

func NewUserHandler(uc *usecase.UserUsecase) *UserHandler {
	return &UserHandler{uc: uc}
}

func (h *UserHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group(
		"/usuarios",
		middleware.AuthJWT(cfg.JWTSecret),
		middleware.StaffOnly(),
	)

	g.GET("", h.list)
}

func (h *UserHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), c.QueryParam("rol"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
