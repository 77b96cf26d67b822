package repository

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReturnOrderGormRepository struct {
	db *gorm.DB
}

func NewReturnOrderGormRepository(db *gorm.DB) *ReturnOrderGormRepository {
	return &ReturnOrderGormRepository{db: db}
}

// 1明細1件（order_item_id unique）
func (r *ReturnOrderGormRepository) Create(ctx context.Context, ro model.ReturnOrder) (model.ReturnOrder, error) {
	if err := r.db.WithContext(ctx).Omit("OrderItem").Create(&ro).Error; err != nil {
		if isUniqueViolation(err) {
			return model.ReturnOrder{}, repo.ErrDuplicate
		}
		return model.ReturnOrder{}, err
	}
	return ro, nil
}

// 返品行 → 明細行の順でロック
func (r *ReturnOrderGormRepository) FindByIDForUpdate(ctx context.Context, returnID int64) (model.ReturnOrder, error) {
	var ro model.ReturnOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", returnID).
		First(&ro).Error
	if isNotFound(err) {
		return model.ReturnOrder{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ReturnOrder{}, err
	}

	var it model.OrderItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ro.OrderItemID).
		First(&it).Error; err != nil {
		if isNotFound(err) {
			return model.ReturnOrder{}, repo.ErrNotFound
		}
		return model.ReturnOrder{}, err
	}
	ro.OrderItem = &it
	return ro, nil
}

func (r *ReturnOrderGormRepository) UpdateStatus(ctx context.Context, returnID int64, status model.ReturnStatus) error {
	res := r.db.WithContext(ctx).Model(&model.ReturnOrder{}).
		Where("id = ?", returnID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ReturnOrderGormRepository) List(ctx context.Context, f repo.ReturnListFilter) ([]model.ReturnOrder, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}

	q := r.db.WithContext(ctx).Model(&model.ReturnOrder{})

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	//セラーは自分の明細への返品だけ
	if f.SellerID != nil {
		q = q.Where("order_item_id IN (?)",
			r.db.Model(&model.OrderItem{}).Select("id").Where("seller_id = ?", *f.SellerID))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.ReturnOrder{}, 0, err
	}

	var list []model.ReturnOrder
	offset := (f.Page - 1) * f.Limit
	if err := q.
		Preload("OrderItem").
		Order("created_at desc").Order("id desc").
		Limit(f.Limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return []model.ReturnOrder{}, 0, err
	}
	return list, total, nil
}
