package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//同時に作られても usuario_id の一意制約で1件に収まる
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "usuario_id"}},
			DoNothing: true,
		}).Create(&model.Cart{UserID: userID}).Error; err != nil {
			return err
		}
		return tx.Where("usuario_id = ?", userID).First(&cart).Error
	})
	if err != nil {
		return model.Cart{}, translateError(err)
	}
	return cart, nil
}

// ユーザーのカートを取得
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("usuario_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translateError(err)
	}
	return cart, nil
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Where("carrito_id = ?", cartID).Delete(&model.CartItem{}).Error
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("carrito_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

func (r *CartGormRepository) FindByKey(ctx context.Context, cartID int64, key repo.CartLineKey) (model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("carrito_id = ? AND producto_id = ? AND talla = ? AND color = ?", cartID, key.ProductID, key.Size, key.Color).
		First(&item).Error
	if err != nil {
		return model.CartItem{}, translateError(err)
	}
	return item, nil
}

// 同一商品・サイズ・色は数量加算
func (r *CartGormRepository) Upsert(ctx context.Context, cartID int64, key repo.CartLineKey, addQty int64) (model.CartItem, error) {
	if addQty <= 0 {
		return model.CartItem{}, errors.New("invalid quantity")
	}

	var out model.CartItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem
		err := tx.
			Where("carrito_id = ? AND producto_id = ? AND talla = ? AND color = ?", cartID, key.ProductID, key.Size, key.Color).
			First(&item).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			res := tx.Model(&model.CartItem{}).
				Where("id = ?", item.ID).
				Update("cantidad", gorm.Expr("cantidad + ?", addQty))
			if res.Error != nil {
				return res.Error
			}
			return tx.First(&out, item.ID).Error
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		out = model.CartItem{
			CartID:    cartID,
			ProductID: key.ProductID,
			Quantity:  addQty,
			Size:      key.Size,
			Color:     key.Color,
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		return model.CartItem{}, translateError(err)
	}
	return out, nil
}

// 明細の数量を更新
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("cantidad", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を取得
func (r *CartGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error
	if err != nil {
		return model.CartItem{}, translateError(err)
	}
	return item, nil
}
