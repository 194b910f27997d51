package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// izipay の formToken 発行と決済結果の受け取り
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutItemRequest struct {
	ProductID int64  `json:"productoId" validate:"required,gt=0"`
	Quantity  int64  `json:"cantidad" validate:"required,gte=1"`
	Size      string `json:"talla" validate:"max=50"`
	Color     string `json:"color" validate:"max=50"`
}

// フロントの checkout フォームそのまま（state=departamento, city=provincia）
type FormTokenRequest struct {
	OrderID        string                `json:"orderId" validate:"max=64"`
	ShippingMethod string                `json:"shippingMethod"`
	MetodoEnvio    string                `json:"metodoEnvio"`
	Email          string                `json:"email" validate:"omitempty,email"`
	FirstName      string                `json:"firstName" validate:"max=100"`
	LastName       string                `json:"lastName" validate:"max=100"`
	Phone          string                `json:"phoneNumber" validate:"max=30"`
	Address        string                `json:"address" validate:"max=255"`
	Country        string                `json:"country" validate:"max=60"`
	State          string                `json:"state" validate:"max=100"`
	City           string                `json:"city" validate:"max=100"`
	District       string                `json:"distrito" validate:"max=100"`
	Reference      string                `json:"referencia" validate:"max=255"`
	Items          []CheckoutItemRequest `json:"items" validate:"dive"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/api/izipay")

	// ゲスト購入もあるのでトークンは任意
	g.POST("/form-token", h.formToken, middleware.OptionalAuthJWT(cfg.JWTSecret))
	g.POST("/pago-exitoso", h.paymentResult)
}

func (h *CheckoutHandler) formToken(c echo.Context) error {
	var req FormTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	// ゲストは 0
	userID, _ := getUserIDFromContext(c)

	method := req.ShippingMethod
	if method == "" {
		method = req.MetodoEnvio
	}

	items := make([]usecase.CheckoutItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CheckoutItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
		})
	}

	out, err := h.uc.CreateFormToken(c.Request().Context(), userID, usecase.CheckoutInput{
		Items:          items,
		ShippingMethod: method,
		OrderID:        req.OrderID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Country:        req.Country,
		Department:     req.State,
		Province:       req.City,
		District:       req.District,
		Address:        req.Address,
		Reference:      req.Reference,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ブラウザからの form POST（kr-answer / kr-hash / kr-hash-algorithm）
func (h *CheckoutHandler) paymentResult(c echo.Context) error {
	out, err := h.uc.HandlePaymentResult(c.Request().Context(), usecase.PaymentCallbackInput{
		Answer:        c.FormValue("kr-answer"),
		Hash:          c.FormValue("kr-hash"),
		HashAlgorithm: c.FormValue("kr-hash-algorithm"),
	})
	if err != nil && out.RedirectURL == "" {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, out.RedirectURL)
}
