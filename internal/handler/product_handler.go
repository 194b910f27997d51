package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /productos と /categorias の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/productos", h.list)
	e.GET("/productos/:id", h.detail)
	e.GET("/productos/:id/recomendados", h.recommended)
	e.GET("/categorias", h.categories)
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return writeError(c, err)
	}

	// limit（default 20）
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return writeError(c, err)
	}

	categoryID, err := queryInt64Ptr(c, "categoriaId")
	if err != nil {
		return writeError(c, err)
	}

	minPrice, err := queryDecimalPtr(c, "min_price")
	if err != nil {
		return writeError(c, err)
	}
	maxPrice, err := queryDecimalPtr(c, "max_price")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:       page,
		Limit:      limit,
		Q:          c.QueryParam("q"),
		CategoryID: categoryID,
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Sort:       c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) recommended(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Recommended(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) categories(c echo.Context) error {
	out, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func queryDecimalPtr(c echo.Context, name string) (*decimal.Decimal, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &d, nil
}
