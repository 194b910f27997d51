package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 住所入力用の departamento → provincia → distrito
type UbigeoHandler struct {
	uc *usecase.UbigeoUsecase
}

func NewUbigeoHandler(uc *usecase.UbigeoUsecase) *UbigeoHandler {
	return &UbigeoHandler{uc: uc}
}

func (h *UbigeoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/ubigeos")
	g.GET("/departamentos", h.departments)
	g.GET("/provincias", h.provinces)
	g.GET("/distritos", h.districts)
}

func (h *UbigeoHandler) departments(c echo.Context) error {
	out, err := h.uc.Departments(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UbigeoHandler) provinces(c echo.Context) error {
	out, err := h.uc.Provinces(c.Request().Context(), c.QueryParam("departamento"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UbigeoHandler) districts(c echo.Context) error {
	out, err := h.uc.Districts(
		c.Request().Context(),
		c.QueryParam("departamento"),
		c.QueryParam("provincia"),
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
