package orderview

import (
	"strings"

	"storefront/internal/domain/model"
)

type PaymentInfo struct {
	Brand  string `json:"marca,omitempty"`
	Last4  string `json:"ultimos4,omitempty"`
	Method string `json:"metodo,omitempty"`
	Label  string `json:"etiqueta"`
}

// 表示用の支払いラベル。カード > 支払い種別 > 汎用フィールド > N/D
func NormalizePaymentLabel(o model.Order) PaymentInfo {
	resp := ParsePaymentResponse(o.PaymentResponse)
	return normalizePayment(o, resp, metadataFrom(resp))
}

func normalizePayment(o model.Order, resp map[string]any, meta Metadata) PaymentInfo {
	tx := map[string]any(nil)
	if resp != nil {
		tx = firstTransaction(resp)
	}

	brand := firstNonEmpty(
		stringOf(dig(tx, "transactionDetails", "cardDetails", "effectiveBrand")),
		stringOf(dig(tx, "transactionDetails", "paymentMethodDetails", "effectiveBrand")),
		stringOf(dig(tx, "card", "brand")),
		stringOf(dig(resp, "card", "brand")),
	)
	last4 := lastFour(firstNonEmpty(
		stringOf(dig(tx, "transactionDetails", "cardDetails", "cardHolderPan")),
		stringOf(dig(tx, "card", "last4")),
		stringOf(dig(tx, "card", "last_digits")),
		stringOf(dig(resp, "card", "last4")),
		stringOf(dig(resp, "card", "last_digits")),
	))

	if brand != "" {
		label := brand
		if last4 != "" {
			label = brand + " • ****" + last4
		}
		return PaymentInfo{Brand: brand, Last4: last4, Label: label}
	}

	method := firstNonEmpty(
		stringOf(dig(tx, "paymentMethodType")),
		stringOf(dig(tx, "paymentMethod")),
		stringOf(dig(resp, "paymentMethodType")),
		o.PaymentMethod,
	)
	if method != "" {
		return PaymentInfo{Method: method, Label: method}
	}

	generic := firstNonEmpty(
		stringOf(dig(resp, "paymentMethod")),
		stringOf(dig(resp, "method")),
		meta.String("paymentMethod", "method"),
	)
	if generic != "" {
		return PaymentInfo{Method: generic, Label: generic}
	}
	return PaymentInfo{Label: NotAvailable}
}

// ネストしたキーを辿る。途中が文字列化JSONでも読む
func dig(obj map[string]any, path ...string) any {
	if obj == nil || len(path) == 0 {
		return nil
	}
	v, ok := obj[path[0]]
	if !ok {
		return nil
	}
	if len(path) == 1 {
		return v
	}
	return dig(asObject(v), path[1:]...)
}

// "497010XXXXXX0055" -> "0055"
func lastFour(pan string) string {
	pan = strings.TrimSpace(pan)
	if pan == "" {
		return ""
	}
	if len(pan) <= 4 {
		return pan
	}
	return pan[len(pan)-4:]
}
