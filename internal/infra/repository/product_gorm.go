package repository

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 公開商品のみを、検索/カテゴリ/価格帯/ソート/ページング付きで返す。
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	// 公開（activo=true）かつ、削除されていないものだけ
	tx = tx.Where("activo = ?", true)

	// q は商品名と説明を対象（大文字小文字は無視）
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(nombre) LIKE ? OR LOWER(descripcion) LIKE ?", like, like)
	}

	if q.CategoryID != nil {
		tx = tx.Where("categoria_id = ?", *q.CategoryID)
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("precio >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("precio <= ?", *q.MaxPrice)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	//sort
	switch q.Sort {
	case "price_asc":
		tx = tx.Order("precio asc").Order("id asc")
	case "price_desc":
		tx = tx.Order("precio desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	offset := (q.Page - 1) * q.Limit
	if err := tx.Offset(offset).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

func (r *ProductGormRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Order("id desc").Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return model.Product{}, translateError(err)
	}
	return p, nil
}

// 注文明細の表示用にまとめて引く（削除済みも含める）
func (r *ProductGormRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	out := make(map[int64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&products).Error; err != nil {
		return out, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// 同じカテゴリの公開商品を優先し、足りなければ新しい順で埋める
func (r *ProductGormRepository) ListRecommended(ctx context.Context, p model.Product, limit int) ([]model.Product, error) {
	out := []model.Product{}

	if p.CategoryID != nil {
		var same []model.Product
		if err := r.db.WithContext(ctx).
			Where("activo = ? AND id <> ? AND categoria_id = ?", true, p.ID, *p.CategoryID).
			Order("seleccionado desc").Order("id desc").
			Limit(limit).
			Find(&same).Error; err != nil {
			return out, err
		}
		out = append(out, same...)
	}

	if len(out) >= limit {
		return out, nil
	}

	exclude := []int64{p.ID}
	for _, s := range out {
		exclude = append(exclude, s.ID)
	}

	var rest []model.Product
	if err := r.db.WithContext(ctx).
		Where("activo = ? AND id NOT IN ?", true, exclude).
		Order("seleccionado desc").Order("created_at desc").Order("id desc").
		Limit(limit - len(out)).
		Find(&rest).Error; err != nil {
		return out, err
	}
	return append(out, rest...), nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, translateError(err)
	}
	return p, nil
}

// 商品の更新
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"nombre":       p.Name,
		"descripcion":  p.Description,
		"precio":       p.Price,
		"stock":        p.Stock,
		"color":        p.Colors,
		"talla":        p.Sizes,
		"categoria_id": p.CategoryID,
		"imagen":       p.Images,
		"activo":       p.IsActive,
		"seleccionado": p.IsFeatured,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品削除
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// stock >= qty のときだけ減らす（条件付きUPDATEで売り越しを防ぐ）
func (r *ProductGormRepository) DecrementStock(ctx context.Context, id int64, qty int64) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrInsufficientStock
	}
	return nil
}

type CategoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

func (r *CategoryGormRepository) List(ctx context.Context) ([]model.Category, error) {
	var cs []model.Category
	if err := r.db.WithContext(ctx).Order("nombre asc").Find(&cs).Error; err != nil {
		return []model.Category{}, err
	}
	return cs, nil
}

func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Category{}, translateError(err)
	}
	return c, nil
}

func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, translateError(err)
	}
	return c, nil
}
