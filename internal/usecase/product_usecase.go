package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

const recommendedLimit = 4

type ProductUsecase struct {
	productRepo  repo.ProductRepository
	categoryRepo repo.CategoryRepository
	auditRepo    repo.AuditLogRepository
	assetBaseURL string
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	categoryRepo repo.CategoryRepository,
	auditRepo repo.AuditLogRepository,
	assetBaseURL string,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		auditRepo:    auditRepo,
		assetBaseURL: strings.TrimRight(assetBaseURL, "/"),
	}
}

// GET /productosの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

// 画面用の商品（選択肢は配列、画像は絶対URL）
type ProductView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int64           `json:"stock"`
	InStock     bool            `json:"disponible"`
	Colors      []string        `json:"colores"`
	Sizes       []string        `json:"tallas"`
	CategoryID  *int64          `json:"categoriaId,omitempty"`
	Images      []string        `json:"imagenes"`
	IsFeatured  bool            `json:"seleccionado"`
	IsActive    bool            `json:"activo"`
}

type ProductListOutput struct {
	Items []ProductView `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, dbError(ctx, "products.list_public", err)
	}

	return ProductListOutput{
		Items: u.views(items),
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductView, error) {
	p, err := u.findActive(ctx, productID)
	if err != nil {
		return ProductView{}, err
	}
	return u.view(p), nil
}

// 同じカテゴリ優先で最大4件
func (u *ProductUsecase) Recommended(ctx context.Context, productID int64) ([]ProductView, error) {
	p, err := u.findActive(ctx, productID)
	if err != nil {
		return []ProductView{}, err
	}

	recs, err := u.productRepo.ListRecommended(ctx, p, recommendedLimit)
	if err != nil {
		return []ProductView{}, dbError(ctx, "products.recommended", err)
	}
	return u.views(recs), nil
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	cs, err := u.categoryRepo.List(ctx)
	if err != nil {
		return []model.Category{}, dbError(ctx, "categories.list", err)
	}
	return cs, nil
}

// 管理画面の一覧（非公開も含む）
func (u *ProductUsecase) AdminListProducts(ctx context.Context) ([]ProductView, error) {
	ps, err := u.productRepo.ListAll(ctx)
	if err != nil {
		return []ProductView{}, dbError(ctx, "products.list_all", err)
	}
	return u.views(ps), nil
}

type AdminProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int64
	Colors      []string
	Sizes       []string
	CategoryID  *int64
	Images      []string
	IsActive    bool
	IsFeatured  bool
}

func (in AdminProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.Stock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	return nil
}

func (in AdminProductInput) toModel() model.Product {
	return model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Colors:      joinOptions(in.Colors),
		Sizes:       joinOptions(in.Sizes),
		CategoryID:  in.CategoryID,
		Images:      model.StringList(trimAll(in.Images)),
		IsActive:    in.IsActive,
		IsFeatured:  in.IsFeatured,
	}
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (int64, error) {
	if adminUserID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return 0, err
	}
	if err := u.checkCategory(ctx, in.CategoryID); err != nil {
		return 0, err
	}

	p, err := u.productRepo.Create(ctx, in.toModel())
	if err != nil {
		return 0, dbError(ctx, "products.create", err)
	}
	return p.ID, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := in.validate(); err != nil {
		return err
	}
	if err := u.checkCategory(ctx, in.CategoryID); err != nil {
		return err
	}

	//変更前（監査ログ用）
	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return dbError(ctx, "products.find", err)
	}

	p := in.toModel()
	p.ID = productID
	if err := u.productRepo.Update(ctx, p); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return dbError(ctx, "products.update", err)
	}

	//「誰が」「何を」「どの対象に」「どう変えたか」を残す
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateProduct,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   auditJSON(map[string]any{"precio": before.Price, "stock": before.Stock, "activo": before.IsActive}),
		AfterJSON:    auditJSON(map[string]any{"precio": p.Price, "stock": p.Stock, "activo": p.IsActive}),
	}); err != nil {
		return dbError(ctx, "audit_logs.create", err)
	}
	return nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return dbError(ctx, "products.delete", err)
	}
	return nil
}

func (u *ProductUsecase) AdminCreateCategory(ctx context.Context, adminUserID int64, name string) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "nombre required")
	}

	c, err := u.categoryRepo.Create(ctx, model.Category{Name: name})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, NewHTTPError(http.StatusConflict, "category already exists")
	}
	if err != nil {
		return model.Category{}, dbError(ctx, "categories.create", err)
	}
	return c, nil
}

func (u *ProductUsecase) findActive(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, dbError(ctx, "products.find", err)
	}

	//非公開は存在しない扱い
	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

func (u *ProductUsecase) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := u.categoryRepo.FindByID(ctx, *id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusBadRequest, "invalid categoriaId")
	}
	if err != nil {
		return dbError(ctx, "categories.find", err)
	}
	return nil
}

func (u *ProductUsecase) view(p model.Product) ProductView {
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, AssetURL(u.assetBaseURL, img))
		}
	}
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.Stock > 0,
		Colors:      p.ColorOptions(),
		Sizes:       p.SizeOptions(),
		CategoryID:  p.CategoryID,
		Images:      images,
		IsFeatured:  p.IsFeatured,
		IsActive:    p.IsActive,
	}
}

func (u *ProductUsecase) views(ps []model.Product) []ProductView {
	out := make([]ProductView, 0, len(ps))
	for _, p := range ps {
		out = append(out, u.view(p))
	}
	return out
}

// 相対パスだけ base を付ける（http(s)/data URL はそのまま）
func AssetURL(base string, path string) string {
	lower := strings.ToLower(path)
	if base == "" ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func joinOptions(opts []string) string {
	return strings.Join(trimAll(opts), ",")
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
