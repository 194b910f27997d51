package repository

import (
	"testing"

	"storefront/internal/domain/model"
	infradb "storefront/internal/infra/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlite(メモリ) に全テーブルを作る。接続は1本に固定（:memory: は接続ごとに別DBになる）
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(infradb.Models()...))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, p model.Product) model.Product {
	t.Helper()
	if p.Price.IsZero() {
		p.Price = decimal.NewFromInt(50)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedOrder(t *testing.T, db *gorm.DB, o model.Order) model.Order {
	t.Helper()
	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}
