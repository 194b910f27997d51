package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/logger"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultAnalyticsDays   = 30
	defaultAnalyticsMonths = 12
	defaultTopProducts     = 5
	uncategorizedName      = "Sin categoría"
)

// ペルーは夏時間なし
var limaTZ = time.FixedZone("PET", -5*60*60)

type DailyOrders struct {
	Date    string          `json:"fecha"`
	Orders  int64           `json:"ordenes"`
	Revenue decimal.Decimal `json:"ingresos"`
}

type TopProduct struct {
	ProductID int64  `json:"productoId"`
	Name      string `json:"nombre"`
	Units     int64  `json:"unidades"`
}

type MonthlyUsers struct {
	Month string `json:"mes"` // "2024-3"
	Users int64  `json:"usuarios"`
}

type CategoryProducts struct {
	CategoryID *int64 `json:"categoriaId"`
	Name       string `json:"nombre"`
	Products   int64  `json:"productos"`
}

type AnalyticsSummary struct {
	Products   int64 `json:"productos"`
	Categories int64 `json:"categorias"`
	Orders     int64 `json:"ordenes"`
	Users      int64 `json:"usuarios"`
}

type Dashboard struct {
	OrdersPerDay   []DailyOrders      `json:"ordenesPorDia"`
	TopProducts    []TopProduct       `json:"productosMasVendidos"`
	UsersPerMonth  []MonthlyUsers     `json:"usuariosPorMes"`
	PerCategory    []CategoryProducts `json:"productosPorCategoria"`
	Summary        AnalyticsSummary   `json:"resumen"`
	FailedSections []string           `json:"seccionesConError,omitempty"`
}

type AnalyticsUsecase struct {
	repo repo.AnalyticsRepository
	now  func() time.Time
}

func NewAnalyticsUsecase(r repo.AnalyticsRepository) *AnalyticsUsecase {
	return &AnalyticsUsecase{repo: r, now: time.Now}
}

// 直近 days 日。注文のない日も 0 で埋める
func (u *AnalyticsUsecase) OrdersPerDay(ctx context.Context, days int) ([]DailyOrders, error) {
	if days == 0 {
		days = defaultAnalyticsDays
	}
	if days < 1 || days > 366 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid days")
	}

	today := truncateDay(u.now().In(limaTZ))
	first := today.AddDate(0, 0, -(days - 1))

	stamps, err := u.repo.OrdersSince(ctx, first)
	if err != nil {
		return nil, dbError(ctx, "analytics.orders_since", err)
	}

	out := make([]DailyOrders, 0, days)
	index := make(map[string]int, days)
	for d := first; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		index[key] = len(out)
		out = append(out, DailyOrders{Date: key, Revenue: decimal.Zero})
	}
	for _, s := range stamps {
		i, ok := index[s.CreatedAt.In(limaTZ).Format("2006-01-02")]
		if !ok {
			continue
		}
		out[i].Orders++
		out[i].Revenue = out[i].Revenue.Add(s.Total)
	}
	return out, nil
}

// 名前が取れない商品は "Producto <id>"
func (u *AnalyticsUsecase) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit == 0 {
		limit = defaultTopProducts
	}
	if limit < 1 || limit > 50 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	rows, err := u.repo.TopProducts(ctx, limit)
	if err != nil {
		return nil, dbError(ctx, "analytics.top_products", err)
	}

	out := make([]TopProduct, 0, len(rows))
	for _, r := range rows {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("Producto %d", r.ProductID)
		}
		out = append(out, TopProduct{ProductID: r.ProductID, Name: name, Units: r.Units})
	}
	return out, nil
}

// 月ごとの登録数。キーは "YYYY-M"（月はゼロ埋めしない）
func (u *AnalyticsUsecase) UsersPerMonth(ctx context.Context, months int) ([]MonthlyUsers, error) {
	if months == 0 {
		months = defaultAnalyticsMonths
	}
	if months < 1 || months > 60 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid months")
	}

	now := u.now().In(limaTZ)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, limaTZ)
	first := current.AddDate(0, -(months - 1), 0)

	stamps, err := u.repo.UserSignupsSince(ctx, first)
	if err != nil {
		return nil, dbError(ctx, "analytics.user_signups", err)
	}

	out := make([]MonthlyUsers, 0, months)
	index := make(map[string]int, months)
	for m := first; !m.After(current); m = m.AddDate(0, 1, 0) {
		key := monthKey(m)
		index[key] = len(out)
		out = append(out, MonthlyUsers{Month: key})
	}
	for _, s := range stamps {
		if i, ok := index[monthKey(s.In(limaTZ))]; ok {
			out[i].Users++
		}
	}
	return out, nil
}

func (u *AnalyticsUsecase) ProductsPerCategory(ctx context.Context) ([]CategoryProducts, error) {
	rows, err := u.repo.ProductsPerCategory(ctx)
	if err != nil {
		return nil, dbError(ctx, "analytics.products_per_category", err)
	}

	out := make([]CategoryProducts, 0, len(rows))
	for _, r := range rows {
		name := r.Name
		if r.CategoryID == nil || name == "" {
			name = uncategorizedName
		}
		out = append(out, CategoryProducts{CategoryID: r.CategoryID, Name: name, Products: r.Count})
	}
	return out, nil
}

func (u *AnalyticsUsecase) Summary(ctx context.Context) (AnalyticsSummary, error) {
	c, err := u.repo.Counts(ctx)
	if err != nil {
		return AnalyticsSummary{}, dbError(ctx, "analytics.counts", err)
	}
	return AnalyticsSummary{
		Products:   c.Products,
		Categories: c.Categories,
		Orders:     c.Orders,
		Users:      c.Users,
	}, nil
}

// 各セクションを並行で読む。失敗したセクションは空で返し、他は止めない
func (u *AnalyticsUsecase) Dashboard(ctx context.Context) Dashboard {
	out := Dashboard{
		OrdersPerDay:  []DailyOrders{},
		TopProducts:   []TopProduct{},
		UsersPerMonth: []MonthlyUsers{},
		PerCategory:   []CategoryProducts{},
	}
	names := [...]string{"ordenesPorDia", "productosMasVendidos", "usuariosPorMes", "productosPorCategoria", "resumen"}
	var failed [len(names)]bool

	// セクションの失敗で他を止めたくないので WithContext は使わない
	var g errgroup.Group
	section := func(i int, fn func(ctx context.Context) error) {
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				failed[i] = true
				logger.FromContext(ctx).Warn("analytics section failed",
					zap.String("section", names[i]),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	section(0, func(ctx context.Context) error {
		v, err := u.OrdersPerDay(ctx, defaultAnalyticsDays)
		if err == nil {
			out.OrdersPerDay = v
		}
		return err
	})
	section(1, func(ctx context.Context) error {
		v, err := u.TopProducts(ctx, defaultTopProducts)
		if err == nil {
			out.TopProducts = v
		}
		return err
	})
	section(2, func(ctx context.Context) error {
		v, err := u.UsersPerMonth(ctx, defaultAnalyticsMonths)
		if err == nil {
			out.UsersPerMonth = v
		}
		return err
	})
	section(3, func(ctx context.Context) error {
		v, err := u.ProductsPerCategory(ctx)
		if err == nil {
			out.PerCategory = v
		}
		return err
	})
	section(4, func(ctx context.Context) error {
		v, err := u.Summary(ctx)
		if err == nil {
			out.Summary = v
		}
		return err
	})

	// 失敗は failed に記録済み
	_ = g.Wait()

	for i, f := range failed {
		if f {
			out.FailedSections = append(out.FailedSections, names[i])
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func monthKey(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))
}
