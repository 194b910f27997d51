package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos
// =====================

// WithinTx の中で渡す repos を固定して unit テストを回す
type txManagerMock struct {
	repos *txReposMock
}

func (m *txManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m.repos)
}

type txReposMock struct {
	orders     *orderRepoMock
	orderItems *orderItemRepoMock
	carts      *cartRepoMock
	cartItems  *cartItemRepoMock
	products   *productRepoMock
	auditLogs  *auditRepoMock
}

func (r *txReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *txReposMock) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *txReposMock) Products() repo.ProductRepository     { return r.products }
func (r *txReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

func newTxMocks() (*txManagerMock, *txReposMock) {
	r := &txReposMock{
		orders:     new(orderRepoMock),
		orderItems: new(orderItemRepoMock),
		carts:      new(cartRepoMock),
		cartItems:  new(cartItemRepoMock),
		products:   new(productRepoMock),
		auditLogs:  new(auditRepoMock),
	}
	return &txManagerMock{repos: r}, r
}

// =====================
// Repository mocks
// =====================

type orderRepoMock struct{ mock.Mock }

func (m *orderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *orderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *orderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *orderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *orderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return m.Called(ctx, orderID, status).Error(0)
}

func (m *orderRepoMock) UpdateAmounts(ctx context.Context, orderID int64, a repo.OrderAmounts) error {
	return m.Called(ctx, orderID, a).Error(0)
}

func (m *orderRepoMock) Delete(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *orderRepoMock) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Order, bool, error) {
	args := m.Called(ctx, gatewayOrderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *orderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type orderItemRepoMock struct{ mock.Mock }

func (m *orderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return m.Called(ctx, orderID, items).Error(0)
}

func (m *orderItemRepoMock) Create(ctx context.Context, item model.OrderItem) (model.OrderItem, error) {
	args := m.Called(ctx, item)
	it, _ := args.Get(0).(model.OrderItem)
	return it, args.Error(1)
}

func (m *orderItemRepoMock) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	args := m.Called(ctx, itemID)
	it, _ := args.Get(0).(model.OrderItem)
	return it, args.Error(1)
}

func (m *orderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *orderItemRepoMock) List(ctx context.Context, orderID *int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *orderItemRepoMock) CountByOrderID(ctx context.Context, orderID int64) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *orderItemRepoMock) ExistsProduct(ctx context.Context, orderID int64, productID int64) (bool, error) {
	args := m.Called(ctx, orderID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *orderItemRepoMock) UpdateQuantity(ctx context.Context, itemID int64, qty int64) error {
	return m.Called(ctx, itemID, qty).Error(0)
}

func (m *orderItemRepoMock) Delete(ctx context.Context, itemID int64) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *orderItemRepoMock) DeleteByOrderID(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

type productRepoMock struct{ mock.Mock }

func (m *productRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *productRepoMock) ListAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *productRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *productRepoMock) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	args := m.Called(ctx, ids)
	ps, _ := args.Get(0).(map[int64]model.Product)
	return ps, args.Error(1)
}

func (m *productRepoMock) ListRecommended(ctx context.Context, p model.Product, limit int) ([]model.Product, error) {
	args := m.Called(ctx, p, limit)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *productRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *productRepoMock) Update(ctx context.Context, p model.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *productRepoMock) SoftDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *productRepoMock) DecrementStock(ctx context.Context, id int64, qty int64) error {
	return m.Called(ctx, id, qty).Error(0)
}

type categoryRepoMock struct{ mock.Mock }

func (m *categoryRepoMock) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.Category)
	return cs, args.Error(1)
}

func (m *categoryRepoMock) FindByID(ctx context.Context, id int64) (model.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

func (m *categoryRepoMock) Create(ctx context.Context, c model.Category) (model.Category, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(model.Category)
	return out, args.Error(1)
}

type cartRepoMock struct{ mock.Mock }

func (m *cartRepoMock) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *cartRepoMock) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *cartRepoMock) Clear(ctx context.Context, cartID int64) error {
	return m.Called(ctx, cartID).Error(0)
}

type cartItemRepoMock struct{ mock.Mock }

func (m *cartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *cartItemRepoMock) FindByKey(ctx context.Context, cartID int64, key repo.CartLineKey) (model.CartItem, error) {
	args := m.Called(ctx, cartID, key)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *cartItemRepoMock) Upsert(ctx context.Context, cartID int64, key repo.CartLineKey, addQty int64) (model.CartItem, error) {
	args := m.Called(ctx, cartID, key, addQty)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *cartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	return m.Called(ctx, cartItemID, qty).Error(0)
}

func (m *cartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	return m.Called(ctx, cartItemID).Error(0)
}

func (m *cartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

type auditRepoMock struct{ mock.Mock }

func (m *auditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *auditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type claimRepoMock struct{ mock.Mock }

func (m *claimRepoMock) Create(ctx context.Context, c model.Claim) (model.Claim, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(model.Claim)
	return out, args.Error(1)
}

func (m *claimRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Claim, error) {
	args := m.Called(ctx, userID)
	cs, _ := args.Get(0).([]model.Claim)
	return cs, args.Error(1)
}

func (m *claimRepoMock) List(ctx context.Context) ([]model.Claim, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.Claim)
	return cs, args.Error(1)
}

type analyticsRepoMock struct{ mock.Mock }

func (m *analyticsRepoMock) OrdersSince(ctx context.Context, since time.Time) ([]repo.OrderStamp, error) {
	args := m.Called(ctx, since)
	rows, _ := args.Get(0).([]repo.OrderStamp)
	return rows, args.Error(1)
}

func (m *analyticsRepoMock) TopProducts(ctx context.Context, limit int) ([]repo.ProductUnits, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]repo.ProductUnits)
	return rows, args.Error(1)
}

func (m *analyticsRepoMock) UserSignupsSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	args := m.Called(ctx, since)
	rows, _ := args.Get(0).([]time.Time)
	return rows, args.Error(1)
}

func (m *analyticsRepoMock) ProductsPerCategory(ctx context.Context) ([]repo.CategoryCount, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]repo.CategoryCount)
	return rows, args.Error(1)
}

func (m *analyticsRepoMock) Counts(ctx context.Context) (repo.CatalogCounts, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(repo.CatalogCounts)
	return c, args.Error(1)
}

type gatewayMock struct{ mock.Mock }

func (m *gatewayMock) CreateFormToken(ctx context.Context, req usecase.FormTokenRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *gatewayMock) VerifyAnswer(answer string, hash string, algorithm string) error {
	return m.Called(answer, hash, algorithm).Error(0)
}

// =====================
// Helpers
// =====================

// HTTPError のステータスとメッセージ（部分一致）を確認
func assertHTTPError(t *testing.T, err error, status int, wantSubstr string) {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "not an HTTPError: %v", err)
	assert.Equal(t, status, he.Status)
	assert.True(t, strings.Contains(he.Message, wantSubstr), "message=%q want contains %q", he.Message, wantSubstr)
}
