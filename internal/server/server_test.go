package server_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/domain/orderview"
	"storefront/internal/handler"
	infradb "storefront/internal/infra/db"
	"storefront/internal/infra/izipay"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/ubigeo"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	jwtSecret  = "test-secret"
	hmacKey    = "hmac-test-key"
	successURL = "https://tienda.pe/pago-exitoso"
	failureURL = "https://tienda.pe/pago-fallido"
)

const ubigeoDoc = `{"Lima":{"Lima":{"Miraflores":{},"Barranco":{}},"Huaral":{"Chancay":{}}},"Cusco":{"Urubamba":{"Machupicchu":{}}}}`

type testEnv struct {
	e  *echo.Echo
	db *gorm.DB

	// izipay に送られた CreatePayment の body
	mu            sync.Mutex
	gatewayBodies []map[string]any
}

func (env *testEnv) gatewayRequests() []map[string]any {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]map[string]any(nil), env.gatewayBodies...)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infradb.Migrate(gdb))
	env.db = gdb

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		env.mu.Lock()
		env.gatewayBodies = append(env.gatewayBodies, body)
		env.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS","answer":{"formToken":"tok-123"}}`))
	}))
	t.Cleanup(gateway.Close)

	ubigeoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ubigeoDoc))
	}))
	t.Cleanup(ubigeoSrv.Close)

	cfg := config.Config{JWTSecret: jwtSecret, FEURL: "http://localhost:3000"}

	productRepo := infraRepo.NewProductGormRepository(gdb)
	cartRepo := infraRepo.NewCartGormRepository(gdb)
	auditRepo := infraRepo.NewAuditLogGormRepository(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)

	client := izipay.NewClient(izipay.Config{
		APIURL:   gateway.URL,
		Username: "shop",
		Password: "secret",
		HMACKey:  hmacKey,
	})

	productUC := usecase.NewProductUsecase(productRepo, infraRepo.NewCategoryGormRepository(gdb), auditRepo, "https://cdn.tienda.pe")

	env.e = server.New(cfg, zap.NewNop(), server.Handlers{
		Health:       handler.NewHealthHandler(sqlDB),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Order:        handler.NewOrderHandler(usecase.NewOrderUsecase(txm)),
		AdminOrder:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm, auditRepo)),
		Cart:         handler.NewCartHandler(usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)),
		Checkout: handler.NewCheckoutHandler(usecase.NewCheckoutUsecase(productRepo, infraRepo.NewOrderGormRepository(gdb), cartRepo, cartRepo, txm, client, usecase.CheckoutConfig{
			PublicKey:  "pub-key",
			SuccessURL: successURL,
			FailureURL: failureURL,
		})),
		Ubigeo:    handler.NewUbigeoHandler(usecase.NewUbigeoUsecase(ubigeo.NewClient(ubigeoSrv.URL, 0), ubigeo.NewMemoryCache(), time.Hour)),
		Analytics: handler.NewAnalyticsHandler(usecase.NewAnalyticsUsecase(infraRepo.NewAnalyticsGormRepository(gdb))),
		Claim:     handler.NewClaimHandler(usecase.NewClaimUsecase(infraRepo.NewClaimGormRepository(gdb), infraRepo.NewOrderGormRepository(gdb))),
		User:      handler.NewUserHandler(usecase.NewUserUsecase(infraRepo.NewUserGormRepository(gdb))),
	})
	return env
}

func bearer(t *testing.T, userID int64, role model.Role) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
	})
	s, err := tok.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func (env *testEnv) do(t *testing.T, method, path string, body any, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedProduct(t *testing.T, p model.Product) model.Product {
	t.Helper()
	require.NoError(t, env.db.Create(&p).Error)
	return p
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCatalog_Public(t *testing.T) {
	env := newTestEnv(t)
	polo := env.seedProduct(t, model.Product{
		Name: "Polo básico", Price: decimal.RequireFromString("39.90"), Stock: 5,
		Colors: "negro, blanco", Sizes: "S,M", Images: model.StringList{"img/polo.jpg"}, IsActive: true,
	})
	env.seedProduct(t, model.Product{Name: "Borrador", Price: decimal.NewFromInt(10), IsActive: false})

	rec := env.do(t, http.MethodGet, "/productos", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list usecase.ProductListOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, polo.ID, list.Items[0].ID)

	rec = env.do(t, http.MethodGet, "/productos/"+strconv.FormatInt(polo.ID, 10), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view usecase.ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, []string{"negro", "blanco"}, view.Colors)
	assert.Equal(t, []string{"https://cdn.tienda.pe/img/polo.jpg"}, view.Images)

	rec = env.do(t, http.MethodGet, "/productos/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", errorOf(t, rec))

	rec = env.do(t, http.MethodGet, "/productos?min_price=x", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminProduct_CreateRequiresStaffAndValidates(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"nombre": "Casaca", "precio": "120.50", "stock": 3, "tallas": []string{"M"}}

	rec := env.do(t, http.MethodPost, "/productos", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/productos", body, bearer(t, 2, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/productos", map[string]any{"precio": "1"}, bearer(t, 1, model.RoleEmployee))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "nombre is required", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/productos", body, bearer(t, 1, model.RoleEmployee))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored model.Product
	require.NoError(t, env.db.First(&stored).Error)
	assert.Equal(t, "Casaca", stored.Name)
	assert.True(t, stored.IsActive)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("120.50")))
}

func TestAdminOrders_ItemGuardAndRecompute(t *testing.T) {
	env := newTestEnv(t)
	staff := bearer(t, 1, model.RoleAdmin)

	order := model.Order{UserID: 7, Status: model.OrderStatusPending, ShippingMethod: "olva"}
	require.NoError(t, env.db.Create(&order).Error)
	items := []model.OrderItem{
		{OrderID: order.ID, ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(30)},
		{OrderID: order.ID, ProductID: 2, Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
	}
	require.NoError(t, env.db.Create(&items).Error)

	rec := env.do(t, http.MethodGet, "/ordenes", nil, bearer(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/orden-items/"+strconv.FormatInt(items[1].ID, 10), nil, staff)
	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.OrderItemMutationOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Totals.Subtotal.Equal(decimal.NewFromInt(30)))
	assert.True(t, out.Totals.Shipping.Equal(decimal.NewFromInt(20)))
	assert.True(t, out.Totals.Total.Equal(decimal.NewFromInt(50)))

	rec = env.do(t, http.MethodDelete, "/orden-items/"+strconv.FormatInt(items[0].ID, 10), nil, staff)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "the order must keep at least one product", errorOf(t, rec))

	var stored model.Order
	require.NoError(t, env.db.First(&stored, order.ID).Error)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(50)))

	rec = env.do(t, http.MethodPut, "/ordenes/"+strconv.FormatInt(order.ID, 10)+"/estado", map[string]any{"estado": "Completado"}, staff)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/ordenes/"+strconv.FormatInt(order.ID, 10)+"/estado", map[string]any{}, staff)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "estado is required", errorOf(t, rec))

	rec = env.do(t, http.MethodGet, "/admin/audit-logs", nil, staff)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []model.AuditLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Len(t, logs, 2)
}

func TestCart_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, model.Product{Name: "Polo", Price: decimal.RequireFromString("39.90"), Stock: 3, IsActive: true})

	rec := env.do(t, http.MethodGet, "/carrito/8", nil, bearer(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/carrito/7", map[string]any{"productoId": p.ID}, bearer(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cantidad is required", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/carrito/7", map[string]any{"productoId": p.ID, "cantidad": 2}, bearer(t, 7, model.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	var cart usecase.CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Subtotal.Equal(decimal.RequireFromString("79.80")))
}

func paidAnswer(t *testing.T, productID int64) string {
	t.Helper()
	items, err := json.Marshal([]map[string]any{{
		"productoId": productID, "nombreProducto": "Polo", "precio": "39.90",
		"cantidad": 2, "talla": "M", "color": "negro",
	}})
	require.NoError(t, err)

	answer, err := json.Marshal(map[string]any{
		"orderStatus":  "PAID",
		"orderDetails": map[string]any{"orderId": "SG-20250101120000-0badcafe"},
		"customer":     map[string]any{"email": "ana@example.com"},
		"transactions": []any{map[string]any{
			"uuid":              "tx-77",
			"status":            "PAID",
			"paymentMethodType": "CARD",
			"metadata": map[string]any{
				"usuarioId":      "7",
				"orderId":        "SG-20250101120000-0badcafe",
				"shippingMethod": "olva",
				"shippingCost":   "20.00",
				"distrito":       "Miraflores",
				"items":          string(items),
			},
		}},
	})
	require.NoError(t, err)
	return string(answer)
}

func TestCheckout_FormTokenAndPaymentCallback(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, model.Product{Name: "Polo", Price: decimal.RequireFromString("39.90"), Stock: 5, IsActive: true, Sizes: "S,M", Colors: "negro"})

	// 1. formToken（ゲスト）
	rec := env.do(t, http.MethodPost, "/api/izipay/form-token", map[string]any{
		"shippingMethod": "olva",
		"email":          "ana@example.com",
		"firstName":      "Ana",
		"lastName":       "Quispe",
		"phoneNumber":    "999888777",
		"address":        "Av. Larco 123",
		"country":        "PE",
		"state":          "Lima",
		"city":           "Lima",
		"distrito":       "Miraflores",
		"items":          []map[string]any{{"productoId": p.ID, "cantidad": 2, "talla": "M"}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token usecase.FormTokenOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.Equal(t, "tok-123", token.FormToken)
	assert.Equal(t, "pub-key", token.PublicKey)
	assert.True(t, token.Amount.Equal(decimal.RequireFromString("99.80")))
	sent := env.gatewayRequests()
	require.Len(t, sent, 1)
	assert.EqualValues(t, 9980, sent[0]["amount"])
	assert.Equal(t, "PEN", sent[0]["currency"])

	// 2. 署名が違えば失敗ページ
	answer := paidAnswer(t, p.ID)
	rec = env.postForm(t, "/api/izipay/pago-exitoso", url.Values{
		"kr-answer": {answer}, "kr-hash": {"00"}, "kr-hash-algorithm": {"sha256_hmac"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, failureURL, rec.Header().Get(echo.HeaderLocation))

	// 3. 正しい署名なら注文作成。2回目は同じ注文
	form := url.Values{
		"kr-answer":         {answer},
		"kr-hash":           {hex.EncodeToString(izipay.Sign(hmacKey, answer))},
		"kr-hash-algorithm": {"sha256_hmac"},
	}
	rec = env.postForm(t, "/api/izipay/pago-exitoso", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get(echo.HeaderLocation)
	require.True(t, strings.HasPrefix(location, successURL+"?orden="), location)

	rec = env.postForm(t, "/api/izipay/pago-exitoso", form)
	assert.Equal(t, location, rec.Header().Get(echo.HeaderLocation))

	var n int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	// 支払い済みの参照ではもう払えない
	rec = env.do(t, http.MethodPost, "/api/izipay/form-token", map[string]any{
		"orderId":        "SG-20250101120000-0badcafe",
		"shippingMethod": "recojo",
		"email":          "ana@example.com",
		"firstName":      "Ana",
		"lastName":       "Quispe",
		"phoneNumber":    "999888777",
		"items":          []map[string]any{{"productoId": p.ID, "cantidad": 1, "talla": "M"}},
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "order reference already used", errorOf(t, rec))
	assert.Len(t, env.gatewayRequests(), 1)

	var stock model.Product
	require.NoError(t, env.db.First(&stock, p.ID).Error)
	assert.Equal(t, int64(3), stock.Stock)

	// 4. 購入者から見た注文
	orderID := strings.TrimPrefix(location, successURL+"?orden=")
	rec = env.do(t, http.MethodGet, "/ordenes/mias/"+orderID, nil, bearer(t, 7, model.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	var view orderview.DisplayOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.Subtotal.Equal(decimal.RequireFromString("79.80")))
	assert.True(t, view.Total.Equal(decimal.RequireFromString("99.80")))
	assert.Equal(t, "Miraflores", view.District)

	rec = env.do(t, http.MethodGet, "/ordenes/mias/"+orderID, nil, bearer(t, 8, model.RoleUser))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 5. 購入者の問い合わせ
	id, err := strconv.ParseInt(orderID, 10, 64)
	require.NoError(t, err)
	rec = env.do(t, http.MethodPost, "/reclamos", map[string]any{"ordenId": id, "mensaje": "Llegó otra talla"}, bearer(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/reclamos", nil, bearer(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckout_FormTokenValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/izipay/form-token", map[string]any{
		"shippingMethod": "olva",
		"email":          "no-es-correo",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid email", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/api/izipay/form-token", map[string]any{"shippingMethod": "olva"}, "Bearer broken")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.gatewayRequests())
}

func TestUbigeo_Cascade(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ubigeos/departamentos", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var deps []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deps))
	assert.Equal(t, []string{"Cusco", "Lima"}, deps)

	rec = env.do(t, http.MethodGet, "/ubigeos/distritos?departamento=LIMA&provincia=lima", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var districts []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &districts))
	assert.Equal(t, []string{"Barranco", "Miraflores"}, districts)

	rec = env.do(t, http.MethodGet, "/ubigeos/provincias", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "departamento is required", errorOf(t, rec))
}

func TestAnalyticsAndUsers_StaffOnly(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleUser}).Error)

	rec := env.do(t, http.MethodGet, "/analytics/dashboard", nil, bearer(t, 1, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/analytics/dashboard", nil, bearer(t, 1, model.RoleEmployee))
	require.Equal(t, http.StatusOK, rec.Code)
	var dash usecase.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Empty(t, dash.FailedSections)
	assert.Equal(t, int64(1), dash.Summary.Users)

	rec = env.do(t, http.MethodGet, "/analytics/ordenes-por-dia?dias=abc", nil, bearer(t, 1, model.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/usuarios?rol=admin", nil, bearer(t, 1, model.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	var users []model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Empty(t, users)
}
