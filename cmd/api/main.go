package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/izipay"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/ubigeo"
	"storefront/internal/logger"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	//.env は任意（リポジトリ直下 or 1つ上）
	config.LoadEnvFile(".env", "../.env")

	cfg, err := config.Load()
	if err != nil {
		// ロガー設定前なので仮のロガーで出す
		logger.New(logger.Config{}).Fatal("invalid config", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = log.Sync() }()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), logger.NewGormLogger(log, logger.GormLevel(cfg.LogLevel)))
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("db migrate failed", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("db handle failed", zap.Error(err))
	}
	defer func() { _ = sqlDB.Close() }()

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	claimRepo := infraRepo.NewClaimGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	analyticsRepo := infraRepo.NewAnalyticsGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//外部サービス
	gateway := izipay.NewClient(izipay.Config{
		APIURL:   cfg.Izipay.APIURL,
		Username: cfg.Izipay.Username,
		Password: cfg.Izipay.Password,
		HMACKey:  cfg.Izipay.HMACKey,
	})
	ubigeoCache, closeCache := newUbigeoCache(cfg, log)
	defer closeCache()

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, auditRepo, cfg.AssetBaseURL)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txm)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, auditRepo)
	checkoutUC := usecase.NewCheckoutUsecase(productRepo, orderRepo, cartRepo, cartRepo, txm, gateway, usecase.CheckoutConfig{
		PublicKey:  cfg.Izipay.PublicKey,
		SuccessURL: cfg.Izipay.SuccessURL,
		FailureURL: cfg.Izipay.FailureURL,
	})
	ubigeoUC := usecase.NewUbigeoUsecase(ubigeo.NewClient(cfg.UbigeoURL, 0), ubigeoCache, cfg.UbigeoTTL)
	analyticsUC := usecase.NewAnalyticsUsecase(analyticsRepo)
	claimUC := usecase.NewClaimUsecase(claimRepo, orderRepo)
	userUC := usecase.NewUserUsecase(userRepo)

	//Handler生成
	e := server.New(cfg, log, server.Handlers{
		Health:       handler.NewHealthHandler(sqlDB),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Cart:         handler.NewCartHandler(cartUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Ubigeo:       handler.NewUbigeoHandler(ubigeoUC),
		Analytics:    handler.NewAnalyticsHandler(analyticsUC),
		Claim:        handler.NewClaimHandler(claimUC),
		User:         handler.NewUserHandler(userUC),
	})

	//Server起動（SIGINT / SIGTERM で停止）
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, e, cfg.Addr(), log); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}

// REDIS_ADDR があり疎通できれば Redis、それ以外はメモリ
func newUbigeoCache(cfg config.Config, log *zap.Logger) (usecase.UbigeoCache, func()) {
	if cfg.RedisAddr == "" {
		return ubigeo.NewMemoryCache(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, using memory cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return ubigeo.NewMemoryCache(), func() {}
	}

	log.Info("ubigeo cache on redis", zap.String("addr", cfg.RedisAddr))
	return ubigeo.NewRedisCache(client, ""), func() { _ = client.Close() }
}
