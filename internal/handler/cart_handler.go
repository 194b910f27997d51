package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /carrito のHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64  `json:"productoId" validate:"required,gt=0"`
	Quantity  int64  `json:"cantidad" validate:"required,gte=1"`
	Size      string `json:"talla" validate:"max=50"`
	Color     string `json:"color" validate:"max=50"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"cantidad" validate:"required,gte=1"`
}

// /carrito/:userId を登録（本人のみ。判定は usecase）
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/carrito")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))

	g.GET("/:userId", h.getCart)
	g.POST("/:userId", h.addToCart)
	g.DELETE("/:userId", h.clear)
	g.PUT("/:userId/items/:id", h.updateItem)
	g.DELETE("/:userId/items/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	ownerID, err := paramID(c, "userId")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	ownerID, err := paramID(c, "userId")
	if err != nil {
		return writeError(c, err)
	}

	var req AddCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddToCart(c.Request().Context(), userID, ownerID, usecase.AddCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	ownerID, err := paramID(c, "userId")
	if err != nil {
		return writeError(c, err)
	}
	itemID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req UpdateCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateCartItem(c.Request().Context(), userID, ownerID, itemID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	ownerID, err := paramID(c, "userId")
	if err != nil {
		return writeError(c, err)
	}
	itemID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.RemoveCartItem(c.Request().Context(), userID, ownerID, itemID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	ownerID, err := paramID(c, "userId")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.ClearCart(c.Request().Context(), userID, ownerID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "cleared"})
}
