package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type ReturnListFilter struct {
	Page     int
	Limit    int
	Status   string
	UserID   *int64
	SellerID *int64
}

type ReturnOrderRepository interface {
	// 同じ明細に2件目は ErrDuplicate
	Create(ctx context.Context, r model.ReturnOrder) (model.ReturnOrder, error)
	// 行ロックして取得（明細付き）
	FindByIDForUpdate(ctx context.Context, returnID int64) (model.ReturnOrder, error)
	UpdateStatus(ctx context.Context, returnID int64, status model.ReturnStatus) error
	List(ctx context.Context, f ReturnListFilter) ([]model.ReturnOrder, int64, error)
}
