package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
)

// 注文一覧の条件。UserID/SellerID でスコープを絞る（両方 nil なら全件）
type OrderListFilter struct {
	Page     int
	Limit    int
	Status   string
	UserID   *int64
	SellerID *int64
	From     *time.Time
	To       *time.Time
}

type OrderRepository interface {
	// 明細もまとめて作成
	Create(ctx context.Context, order model.Order) (model.Order, error)

	// 明細・購入者付き
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 注文行をロックして取得（明細付き）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)

	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)

	// ステータスと対応する時刻を更新。notes が nil なら据え置き
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus, at time.Time, notes *string) error
}
