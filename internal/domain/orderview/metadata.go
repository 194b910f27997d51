// Package orderview は注文の生データ（DBの列＋決済ゲートウェイの応答）から
// 画面表示用の注文を組み立てる。入力の形が崩れていてもエラーは返さず、
// 取れなかった値は NotAvailable などの既定値になる。
package orderview

import (
	"encoding/json"
	"strconv"
	"strings"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// どこからも値が取れなかったときの表示
const NotAvailable = "N/D"

// 二重・三重エンコードまで剥がす
const maxDecodeDepth = 3

// 決済トークン作成時に付けたメタデータ（決済結果にそのまま返ってくる）
type Metadata map[string]any

// paymentResponse を object として読む。読めなければ nil
func ParsePaymentResponse(raw string) map[string]any {
	return asObject(raw)
}

// transactions[0].metadata を取り出す。失敗はすべて空のMetadata
func ExtractMetadata(o model.Order) Metadata {
	return metadataFrom(ParsePaymentResponse(o.PaymentResponse))
}

func metadataFrom(resp map[string]any) Metadata {
	if resp == nil {
		return Metadata{}
	}
	if tx := firstTransaction(resp); tx != nil {
		if meta := asObject(tx["metadata"]); meta != nil {
			return Metadata(meta)
		}
	}
	if meta := asObject(resp["metadata"]); meta != nil {
		return Metadata(meta)
	}
	return Metadata{}
}

// keysの順に見て最初の空でない値
func (m Metadata) String(keys ...string) string {
	for _, k := range keys {
		if s := stringOf(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// 数値・数値文字列を decimal にする
func (m Metadata) Decimal(key string) (decimal.Decimal, bool) {
	return decimalOf(m[key])
}

// metadata.items（配列 or JSON文字列）を読む
func (m Metadata) Items() []MetadataItem {
	var list []any
	switch v := m["items"].(type) {
	case []any:
		list = v
	case string:
		decoded, ok := decodeLoose(v, 0)
		if !ok {
			return nil
		}
		arr, ok := decoded.([]any)
		if !ok {
			return nil
		}
		list = arr
	default:
		return nil
	}

	out := make([]MetadataItem, 0, len(list))
	for _, raw := range list {
		if obj, ok := raw.(map[string]any); ok {
			out = append(out, MetadataItem(obj))
		}
	}
	return out
}

// 決済時点のカート明細1行
type MetadataItem map[string]any

func (it MetadataItem) ProductID() string {
	return Metadata(it).String("productoId", "producto_id", "id")
}

// 数値として比べる（"1.0" や 1.0 も 1）。整数でなければ 0
func (it MetadataItem) ProductNumber() int64 {
	return it.Int("productoId", "producto_id", "id")
}

func (it MetadataItem) String(keys ...string) string {
	for _, k := range keys {
		v := it[k]
		//imagen は配列のこともある
		if arr, ok := v.([]any); ok {
			for _, e := range arr {
				if s := stringOf(e); s != "" {
					return s
				}
			}
			continue
		}
		if s := stringOf(v); s != "" {
			return s
		}
	}
	return ""
}

func (it MetadataItem) Decimal(keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		if d, ok := decimalOf(it[k]); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// 整数でない・読めない値は 0
func (it MetadataItem) Int(keys ...string) int64 {
	d, ok := it.Decimal(keys...)
	if !ok || !d.IsInteger() {
		return 0
	}
	return d.IntPart()
}

func findMetadataItem(items []MetadataItem, productID int64) MetadataItem {
	for _, it := range items {
		if id := it.ProductNumber(); id > 0 && id == productID {
			return it
		}
	}
	return nil
}

func firstTransaction(resp map[string]any) map[string]any {
	txs, ok := resp["transactions"].([]any)
	if !ok || len(txs) == 0 {
		return nil
	}
	return asObject(txs[0])
}

// map ならそのまま、文字列なら（エスケープを剥がしつつ）パースして map を返す
func asObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		decoded, ok := decodeLoose(t, 0)
		if !ok {
			return nil
		}
		obj, _ := decoded.(map[string]any)
		return obj
	}
	return nil
}

// 直接パース → ダメなら \" を " にして再パース。結果が文字列ならもう一段
func decodeLoose(raw string, depth int) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || depth >= maxDecodeDepth {
		return nil, false
	}

	v, ok := decodeJSON(raw)
	if !ok {
		cleaned := strings.ReplaceAll(raw, `\"`, `"`)
		if cleaned == raw {
			return nil, false
		}
		v, ok = decodeJSON(cleaned)
		if !ok {
			return nil, false
		}
	}

	if s, isString := v.(string); isString {
		return decodeLoose(s, depth+1)
	}
	return v, true
}

func decodeJSON(raw string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	//末尾にゴミがあれば失敗扱い
	if dec.More() {
		return nil, false
	}
	return v, true
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

func decimalOf(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int64:
		return decimal.NewFromInt(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}

// ネストしたパスの値を文字列で返す（無ければ空）
func StringAt(obj map[string]any, path ...string) string {
	return stringOf(dig(obj, path...))
}

// ネストしたパスの数値を decimal で返す
func DecimalAt(obj map[string]any, path ...string) (decimal.Decimal, bool) {
	return decimalOf(dig(obj, path...))
}

// transactions[0]（無ければ nil）
func FirstTransaction(resp map[string]any) map[string]any {
	if resp == nil {
		return nil
	}
	return firstTransaction(resp)
}

// paymentResponse を一度だけパースして metadata を取り出す
func MetadataOf(resp map[string]any) Metadata {
	return metadataFrom(resp)
}
