package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理画面の注文・明細
type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"estado" validate:"required"`
}

type OrderItemCreateRequest struct {
	OrderID   int64  `json:"ordenId" validate:"required,gt=0"`
	ProductID int64  `json:"productoId" validate:"required,gt=0"`
	Quantity  int64  `json:"cantidad" validate:"gte=0"`
	Size      string `json:"talla" validate:"max=50"`
	Color     string `json:"color" validate:"max=50"`
}

type OrderItemUpdateRequest struct {
	Quantity int64 `json:"cantidad" validate:"required,gte=1"`
}

// /ordenes/mias（顧客用）とパスを共有するのでルート単位でガードを付ける
func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	staff := []echo.MiddlewareFunc{middleware.AuthJWT(cfg.JWTSecret), middleware.StaffOnly()}

	e.GET("/ordenes", h.list, staff...)
	e.GET("/ordenes/:id", h.detail, staff...)
	e.PUT("/ordenes/:id/estado", h.updateStatus, staff...)
	e.DELETE("/ordenes/:id", h.delete, staff...)

	items := e.Group("/orden-items", staff...)
	items.GET("", h.listItems)
	items.POST("", h.addItem)
	items.PUT("/:id", h.updateItem)
	items.DELETE("/:id", h.deleteItem)

	// 監査ログは ADMIN のみ
	e.GET("/admin/audit-logs", h.auditLogs, middleware.AuthJWT(cfg.JWTSecret), middleware.AdminOnly())
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return writeError(c, err)
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}

	userID, err := queryInt64Ptr(c, "usuarioId")
	if err != nil {
		return writeError(c, err)
	}

	from, ok := usecase.ParseDateParam(c.QueryParam("from"))
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
	}
	to, ok := usecase.ParseDateParam(c.QueryParam("to"))
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
	}

	out, err := h.uc.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("estado"),
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Detail(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req OrderStatusUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	// ★操作したスタッフID（監査ログ用）
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.UpdateStatus(
		c.Request().Context(),
		actorID,
		orderID,
		usecase.AdminUpdateOrderStatusInput{Status: req.Status},
	); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminOrderHandler) delete(c echo.Context) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.Delete(c.Request().Context(), actorID, orderID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminOrderHandler) listItems(c echo.Context) error {
	orderID, err := queryInt64Ptr(c, "ordenId")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListItems(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) addItem(c echo.Context) error {
	var req OrderItemCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.AddItem(c.Request().Context(), actorID, usecase.AdminAddOrderItemInput{
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminOrderHandler) updateItem(c echo.Context) error {
	itemID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req OrderItemUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), actorID, itemID, usecase.AdminUpdateOrderItemInput{
		Quantity: req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) deleteItem(c echo.Context) error {
	itemID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.DeleteItem(c.Request().Context(), actorID, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}
	if limit < 1 || limit > 200 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}

	f := repository.AuditLogFilter{Limit: limit, Offset: offset}

	if f.ActorUserID, err = queryInt64Ptr(c, "actor_user_id"); err != nil {
		return writeError(c, err)
	}
	if f.ResourceID, err = queryInt64Ptr(c, "resource_id"); err != nil {
		return writeError(c, err)
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}

	var ok bool
	if f.CreatedFrom, ok = usecase.ParseDateParam(c.QueryParam("from")); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
	}
	if f.CreatedTo, ok = usecase.ParseDateParam(c.QueryParam("to")); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
	}

	out, err := h.uc.ListAuditLogs(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
