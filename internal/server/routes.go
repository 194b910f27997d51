package server

import (
	"storefront/internal/config"
	"storefront/internal/handler"

	"github.com/labstack/echo/v4"
)

// 画面ごとのハンドラ
type Handlers struct {
	Health       *handler.HealthHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Ubigeo       *handler.UbigeoHandler
	Analytics    *handler.AnalyticsHandler
	Claim        *handler.ClaimHandler
	User         *handler.UserHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	h.Health.RegisterRoutes(e)

	//公開
	h.Product.RegisterRoutes(e)
	h.Ubigeo.RegisterRoutes(e)
	h.Checkout.RegisterRoutes(e, cfg)

	//ログインユーザー
	h.Order.RegisterRoutes(e, cfg)
	h.Cart.RegisterRoutes(e, cfg)
	h.Claim.RegisterRoutes(e, cfg)

	//ADMIN / EMPLOYEE
	h.AdminProduct.RegisterRoutes(e, cfg)
	h.AdminOrder.RegisterRoutes(e, cfg)
	h.Analytics.RegisterRoutes(e, cfg)
	h.User.RegisterRoutes(e, cfg)
}
