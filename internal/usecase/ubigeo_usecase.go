package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"

	"storefront/internal/domain/model"
	"storefront/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 外部のubigeo一覧
type UbigeoSource interface {
	Fetch(ctx context.Context) ([]model.Ubigeo, error)
}

// 取得済みの一覧をTTL付きで持つ
type UbigeoCache interface {
	Get(ctx context.Context) ([]model.Ubigeo, bool, error)
	Set(ctx context.Context, rows []model.Ubigeo, ttl time.Duration) error
}

const defaultUbigeoTTL = 24 * time.Hour

type UbigeoUsecase struct {
	source UbigeoSource
	cache  UbigeoCache
	ttl    time.Duration
}

func NewUbigeoUsecase(source UbigeoSource, cache UbigeoCache, ttl time.Duration) *UbigeoUsecase {
	if ttl <= 0 {
		ttl = defaultUbigeoTTL
	}
	return &UbigeoUsecase{source: source, cache: cache, ttl: ttl}
}

func (u *UbigeoUsecase) Departments(ctx context.Context) ([]string, error) {
	rows := u.load(ctx)
	return distinctSorted(rows, func(r model.Ubigeo) (string, bool) {
		return r.Department, true
	}), nil
}

func (u *UbigeoUsecase) Provinces(ctx context.Context, department string) ([]string, error) {
	dep := foldKey(department)
	if dep == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "departamento is required")
	}

	rows := u.load(ctx)
	return distinctSorted(rows, func(r model.Ubigeo) (string, bool) {
		return r.Province, foldKey(r.Department) == dep
	}), nil
}

func (u *UbigeoUsecase) Districts(ctx context.Context, department string, province string) ([]string, error) {
	dep, prov := foldKey(department), foldKey(province)
	if dep == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "departamento is required")
	}
	if prov == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "provincia is required")
	}

	rows := u.load(ctx)
	return distinctSorted(rows, func(r model.Ubigeo) (string, bool) {
		return r.District, foldKey(r.Department) == dep && foldKey(r.Province) == prov
	}), nil
}

// キャッシュ→取得元の順。取れなければ空（ログだけ残す）
func (u *UbigeoUsecase) load(ctx context.Context) []model.Ubigeo {
	log := logger.FromContext(ctx)

	if u.cache != nil {
		rows, ok, err := u.cache.Get(ctx)
		if err != nil {
			log.Warn("ubigeo cache read failed", zap.Error(err))
		}
		if ok {
			return rows
		}
	}

	rows, err := u.source.Fetch(ctx)
	if err != nil {
		log.Warn("ubigeo fetch failed", zap.Error(err))
		return []model.Ubigeo{}
	}

	if u.cache != nil && len(rows) > 0 {
		if err := u.cache.Set(ctx, rows, u.ttl); err != nil {
			log.Warn("ubigeo cache write failed", zap.Error(err))
		}
	}
	return rows
}

// 比較用キー（大文字小文字・アクセントを無視）
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return cases.Fold().String(out)
}

// 表記は最初に出てきたものを使い、スペイン語順に並べる
func distinctSorted(rows []model.Ubigeo, pick func(model.Ubigeo) (string, bool)) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		v, ok := pick(r)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		k := foldKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	collate.New(language.Spanish, collate.IgnoreCase).SortStrings(out)
	return out
}
