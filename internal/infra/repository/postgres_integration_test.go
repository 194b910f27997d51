//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	infradb "storefront/internal/infra/db"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 本物の Postgres（pgx ドライバ）で動かす
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gdb, err := infradb.Connect(dsn, gormlogger.Default.LogMode(gormlogger.Silent))
	require.NoError(t, err)
	require.NoError(t, infradb.Migrate(gdb))
	return gdb
}

func TestPostgres_Repositories(t *testing.T) {
	gdb := newPostgresDB(t)
	ctx := context.Background()

	t.Run("duplicate category is ErrDuplicate", func(t *testing.T) {
		cats := NewCategoryGormRepository(gdb)
		_, err := cats.Create(ctx, model.Category{Name: "Polos"})
		require.NoError(t, err)

		_, err = cats.Create(ctx, model.Category{Name: "Polos"})
		assert.ErrorIs(t, err, repo.ErrDuplicate)
	})

	t.Run("conditional stock decrement", func(t *testing.T) {
		p := seedProduct(t, gdb, model.Product{Name: "Casaca", Stock: 2, IsActive: true})
		products := NewProductGormRepository(gdb)

		require.NoError(t, products.DecrementStock(ctx, p.ID, 2))
		assert.ErrorIs(t, products.DecrementStock(ctx, p.ID, 1), repo.ErrInsufficientStock)

		got, err := products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Stock)
	})

	t.Run("payment order lookup and amounts in one tx", func(t *testing.T) {
		txm := NewTxManagerGorm(gdb)

		var orderID int64
		err := txm.WithinTx(ctx, func(r repo.TxRepos) error {
			id, err := r.Orders().Create(ctx, model.Order{
				UserID:         3,
				Status:         model.OrderStatusPending,
				GatewayOrderID: "SG-20250101120000-abcdef12",
				ShippingMethod: "olva",
			})
			if err != nil {
				return err
			}
			orderID = id
			return r.OrderItems().CreateBulk(ctx, id, []model.OrderItem{
				{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("39.90")},
			})
		})
		require.NoError(t, err)

		orders := NewOrderGormRepository(gdb)
		o, found, err := orders.FindByGatewayOrderID(ctx, "SG-20250101120000-abcdef12")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, orderID, o.ID)

		require.NoError(t, orders.UpdateAmounts(ctx, orderID, repo.OrderAmounts{
			Subtotal:     decimal.RequireFromString("79.80"),
			ShippingCost: decimal.NewFromInt(20),
			Total:        decimal.RequireFromString("99.80"),
		}))
		o, err = orders.FindByID(ctx, orderID)
		require.NoError(t, err)
		assert.True(t, o.Total.Equal(decimal.RequireFromString("99.80")))
	})

	t.Run("top products on postgres", func(t *testing.T) {
		rows, err := NewAnalyticsGormRepository(gdb).TopProducts(ctx, 5)
		require.NoError(t, err)
		require.NotEmpty(t, rows)
		assert.Equal(t, int64(1), rows[0].ProductID)
		assert.Equal(t, int64(2), rows[0].Units)
	})

	t.Run("duplicate gateway order id is ErrDuplicate", func(t *testing.T) {
		orders := NewOrderGormRepository(gdb)

		_, err := orders.Create(ctx, model.Order{UserID: 4, Status: model.OrderStatusPending, GatewayOrderID: "SG-DUP"})
		require.NoError(t, err)
		_, err = orders.Create(ctx, model.Order{UserID: 4, Status: model.OrderStatusPending, GatewayOrderID: "SG-DUP"})
		assert.ErrorIs(t, err, repo.ErrDuplicate)
	})

	t.Run("concurrent item deletes keep one item", func(t *testing.T) {
		p := seedProduct(t, gdb, model.Product{Name: "Gorro", Stock: 5, IsActive: true})
		o := seedOrder(t, gdb, model.Order{UserID: 5, ShippingMethod: "olva"})
		items := []model.OrderItem{
			{OrderID: o.ID, ProductID: p.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(30)},
			{OrderID: o.ID, ProductID: p.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(40)},
		}
		require.NoError(t, gdb.Create(&items).Error)

		uc := usecase.NewAdminOrderUsecase(NewTxManagerGorm(gdb), NewAuditLogGormRepository(gdb))

		var wg sync.WaitGroup
		errs := make([]error, len(items))
		for i, it := range items {
			wg.Add(1)
			go func(i int, itemID int64) {
				defer wg.Done()
				_, errs[i] = uc.DeleteItem(ctx, 1, itemID)
			}(i, it.ID)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				failed++
				he, ok := usecase.AsHTTPError(err)
				require.True(t, ok)
				assert.Equal(t, 409, he.Status)
			}
		}
		assert.Equal(t, 1, failed)

		n, err := NewOrderItemGormRepository(gdb).CountByOrderID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
