package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 購入者は表示に必要な列だけ
func preloadBuyer(db *gorm.DB) *gorm.DB {
	return db.Select("id", "email", "first_name", "last_name")
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// 明細も一緒に作る
func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		if isUniqueViolation(err) {
			if violatedConstraint(err) == orderIdempotencyConstraint {
				return model.Order{}, repo.ErrIdempotencyKeyTaken
			}
			return model.Order{}, repo.ErrDuplicate
		}
		return model.Order{}, err
	}
	return order, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Preload("User", preloadBuyer).
		Where("id = ?", orderID).
		First(&o).Error
	if isNotFound(err) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 注文行 → 明細行の順でロック
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if isNotFound(err) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}

	var items []model.OrderItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return model.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error

	if isNotFound(err) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	//購入者本人
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	//セラーは自分の商品を含む注文だけ
	items := func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }
	if f.SellerID != nil {
		sellerID := *f.SellerID
		q = q.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.seller_id = ?)", sellerID)
		items = func(db *gorm.DB) *gorm.DB { return db.Where("seller_id = ?", sellerID).Order("id asc") }
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var list []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.
		Preload("Items", items).
		Preload("User", preloadBuyer).
		Order("created_at desc").Order("id desc").
		Limit(f.Limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return list, total, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus, at time.Time, notes *string) error {
	values := map[string]interface{}{"status": status}
	if col := status.TimestampColumn(); col != "" {
		values[col] = at
	}
	if notes != nil {
		values["notes"] = *notes
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(values)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
