package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算（売上数は加算）
	DecreaseStockIfEnough(ctx context.Context, key StockKey, qty int64) (bool, error)

	// 在庫戻し（キャンセル・返品）
	IncreaseStock(ctx context.Context, key StockKey, qty int64) error

	// 増減履歴作成
	CreateMovements(ctx context.Context, movements []model.StockMovement) error
}
