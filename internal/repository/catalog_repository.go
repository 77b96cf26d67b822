package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 在庫を持つ単位（バリエーション指定ならバリエーション、無ければ商品）
type StockKey struct {
	ProductID int64
	VariantID *int64
}

// 注文確定時点の商品の読み取り結果
type CatalogSnapshot struct {
	ProductID int64
	VariantID *int64
	Name      string
	SellerID  int64
	// バリエーション指定ならバリエーションの価格
	Price         decimal.Decimal
	StockQuantity int64
	// 商品とバリエーションに紐づく、now 時点で有効なセール
	Offers []model.Offer
}

func (s CatalogSnapshot) Key() StockKey {
	return StockKey{ProductID: s.ProductID, VariantID: s.VariantID}
}

type CatalogRepository interface {
	// 在庫行を FOR UPDATE で読む。商品が無い・バリエーションが商品に属さないなら ErrNotFound
	LockSnapshot(ctx context.Context, key StockKey, now time.Time) (CatalogSnapshot, error)
}
