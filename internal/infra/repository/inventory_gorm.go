package repository

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫を持つ行（バリエーション指定ならバリエーション）
func (r *InventoryGormRepository) stockRow(ctx context.Context, key repo.StockKey) *gorm.DB {
	if key.VariantID != nil {
		return r.db.WithContext(ctx).
			Model(&model.Variant{}).
			Where("id = ? AND product_id = ?", *key.VariantID, key.ProductID)
	}
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", key.ProductID)
}

// 在庫が足りるときだけ減らす
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, key repo.StockKey, qty int64) (bool, error) {
	res := r.stockRow(ctx, key).
		Where("stock_quantity >= ?", qty).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"sold_quantity":  gorm.Expr("sold_quantity + ?", qty),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル・返品）。sold_quantity は累計なので戻さない。
// 販売終了（論理削除）した商品にも戻す
func (r *InventoryGormRepository) IncreaseStock(ctx context.Context, key repo.StockKey, qty int64) error {
	res := r.stockRow(ctx, key).
		Unscoped().
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 増減履歴作成
func (r *InventoryGormRepository) CreateMovements(ctx context.Context, movements []model.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&movements).Error
}
