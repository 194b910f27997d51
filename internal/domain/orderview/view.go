package orderview

import (
	"time"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

const Currency = "PEN"

// 画面・APIに返す正規化済みの注文
type DisplayOrder struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"usuarioId"`

	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email"`
	Phone     string `json:"telefono"`

	Country    string `json:"pais"`
	Department string `json:"departamento"`
	Province   string `json:"provincia"`
	District   string `json:"distrito"`
	Address    string `json:"direccion"`
	Reference  string `json:"referencia"`

	ShippingMethod string `json:"metodoEnvio"`
	Status         string `json:"estado"`

	GatewayOrderID string      `json:"orderIdIzipay,omitempty"`
	TransactionID  string      `json:"transactionId,omitempty"`
	PaymentStatus  string      `json:"paymentStatus,omitempty"`
	PaymentDate    *time.Time  `json:"paymentDate,omitempty"`
	Payment        PaymentInfo `json:"pago"`

	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"envio"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"moneda"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// 生の注文＋明細＋商品（id→商品）から表示用の注文を作る。
// paymentResponse は1回だけパースして全項目で使い回す
func Normalize(o model.Order, items []model.OrderItem, products map[int64]model.Product) DisplayOrder {
	resp := ParsePaymentResponse(o.PaymentResponse)
	meta := metadataFrom(resp)
	metaItems := meta.Items()

	lines := make([]LineItem, 0, len(items))
	for _, it := range items {
		var product *model.Product
		if p, ok := products[it.ProductID]; ok {
			product = &p
		}
		lines = append(lines, resolveLineItem(it, product, metaItems))
	}

	shipping := determineShipping(o, meta)
	totals := ComputeTotals(LinesFromItems(items), shipping)

	method := resolveShippingMethod(o, meta)
	if method == "" {
		method = NotAvailable
	}

	return DisplayOrder{
		ID:             o.ID,
		UserID:         o.UserID,
		FirstName:      o.FirstName,
		LastName:       o.LastName,
		Email:          o.Email,
		Phone:          o.Phone,
		Country:        o.Country,
		Department:     o.Department,
		Province:       o.Province,
		District:       firstNonEmpty(meta.String("distrito"), o.District),
		Address:        o.Address,
		Reference:      firstNonEmpty(meta.String("referencia"), o.Reference),
		ShippingMethod: method,
		Status:         string(o.Status),
		GatewayOrderID: firstNonEmpty(meta.String("orderId", "order_id", "orderIdIzipay"), o.GatewayOrderID),
		TransactionID:  o.TransactionID,
		PaymentStatus:  o.PaymentStatus,
		PaymentDate:    o.PaymentDate,
		Payment:        normalizePayment(o, resp, meta),
		Items:          lines,
		Subtotal:       totals.Subtotal,
		Shipping:       totals.Shipping,
		Total:          totals.Total,
		Currency:       Currency,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// 一覧用。明細なしで保存済みの金額を使うが、送料は同じ規則で決める
type OrderSummary struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"usuarioId"`
	Customer       string          `json:"cliente"`
	Email          string          `json:"email"`
	Status         string          `json:"estado"`
	ShippingMethod string          `json:"metodoEnvio"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"envio"`
	Total          decimal.Decimal `json:"total"`
	Payment        string          `json:"pago"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func Summarize(o model.Order) OrderSummary {
	resp := ParsePaymentResponse(o.PaymentResponse)
	meta := metadataFrom(resp)

	shipping := determineShipping(o, meta)
	method := resolveShippingMethod(o, meta)
	if method == "" {
		method = NotAvailable
	}

	customer := firstNonEmpty(joinName(o.FirstName, o.LastName), o.Email)
	if customer == "" {
		customer = NotAvailable
	}

	return OrderSummary{
		ID:             o.ID,
		UserID:         o.UserID,
		Customer:       customer,
		Email:          o.Email,
		Status:         string(o.Status),
		ShippingMethod: method,
		Subtotal:       o.Subtotal,
		Shipping:       shipping,
		Total:          o.Subtotal.Add(shipping),
		Payment:        normalizePayment(o, resp, meta).Label,
		CreatedAt:      o.CreatedAt,
	}
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
