package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 商品フォーム（作成・編集共通）
type ProductRequest struct {
	Name        string          `json:"nombre" validate:"required,max=255"`
	Description string          `json:"descripcion" validate:"max=5000"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int64           `json:"stock" validate:"gte=0"`
	Colors      []string        `json:"colores"`
	Sizes       []string        `json:"tallas"`
	CategoryID  *int64          `json:"categoriaId"`
	Images      []string        `json:"imagenes"`
	IsActive    *bool           `json:"activo"` // 省略時は公開
	IsFeatured  bool            `json:"seleccionado"`
}

func (r ProductRequest) toInput() usecase.AdminProductInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return usecase.AdminProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Colors:      r.Colors,
		Sizes:       r.Sizes,
		CategoryID:  r.CategoryID,
		Images:      r.Images,
		IsActive:    active,
		IsFeatured:  r.IsFeatured,
	}
}

type CategoryRequest struct {
	Name string `json:"nombre" validate:"required,max=120"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

// 管理画面（ADMIN / EMPLOYEE）の商品・カテゴリ操作
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// 公開APIとパスを共有するのでルート単位でガードを付ける
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	staff := []echo.MiddlewareFunc{middleware.AuthJWT(cfg.JWTSecret), middleware.StaffOnly()}

	e.GET("/admin/productos", h.listProducts, staff...)
	e.POST("/productos", h.createProduct, staff...)
	e.PUT("/productos/:id", h.updateProduct, staff...)
	e.DELETE("/productos/:id", h.deleteProduct, staff...)
	e.POST("/categorias", h.createCategory, staff...)
}

func (h *AdminProductHandler) listProducts(c echo.Context) error {
	out, err := h.uc.AdminListProducts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, req.toInput()); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) createCategory(c echo.Context) error {
	var req CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	cat, err := h.uc.AdminCreateCategory(c.Request().Context(), adminID, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}
