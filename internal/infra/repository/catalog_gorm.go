package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogGormRepository struct {
	db *gorm.DB
}

// DI
func NewCatalogGormRepository(db *gorm.DB) *CatalogGormRepository {
	return &CatalogGormRepository{db: db}
}

// 在庫を持つ行（商品 or バリエーション）をロックして、価格・在庫・有効なセールを返す
func (r *CatalogGormRepository) LockSnapshot(ctx context.Context, key repo.StockKey, now time.Time) (repo.CatalogSnapshot, error) {
	db := r.db.WithContext(ctx)

	var p model.Product
	pq := db
	if key.VariantID == nil {
		pq = pq.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := pq.Where("id = ?", key.ProductID).First(&p).Error; err != nil {
		if isNotFound(err) {
			return repo.CatalogSnapshot{}, repo.ErrNotFound
		}
		return repo.CatalogSnapshot{}, err
	}

	snap := repo.CatalogSnapshot{
		ProductID:     p.ID,
		Name:          p.Name,
		SellerID:      p.SellerID,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
	}

	//バリエーション指定なら価格と在庫はバリエーション側
	if key.VariantID != nil {
		var v model.Variant
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND product_id = ?", *key.VariantID, key.ProductID).
			First(&v).Error
		if err != nil {
			if isNotFound(err) {
				return repo.CatalogSnapshot{}, repo.ErrNotFound
			}
			return repo.CatalogSnapshot{}, err
		}
		vid := v.ID
		snap.VariantID = &vid
		snap.Name = p.Name + " - " + v.Name
		snap.Price = v.Price
		snap.StockQuantity = v.StockQuantity
	}

	offers, err := r.activeOffers(db, key, now)
	if err != nil {
		return repo.CatalogSnapshot{}, err
	}
	snap.Offers = offers

	return snap, nil
}

// 紐付けテーブル経由の有効なセールだけ
func (r *CatalogGormRepository) activeOffers(db *gorm.DB, key repo.StockKey, now time.Time) ([]model.Offer, error) {
	byProduct := db.Model(&model.OfferProduct{}).Select("offer_id").Where("product_id = ?", key.ProductID)

	q := db.Model(&model.Offer{}).
		Where("status = ? AND start_date <= ? AND end_date >= ?", model.OfferStatusActive, now, now)

	if key.VariantID != nil {
		byVariant := db.Model(&model.OfferVariant{}).Select("offer_id").Where("variant_id = ?", *key.VariantID)
		q = q.Where("id IN (?) OR id IN (?)", byProduct, byVariant)
	} else {
		q = q.Where("id IN (?)", byProduct)
	}

	var offers []model.Offer
	if err := q.Order("id asc").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}
