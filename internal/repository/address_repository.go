package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 住所(Address)を取得する窓口。住所の登録・編集は別サービス。
type AddressRepository interface {
	//住所IDから住所を1件取得（無ければ ErrNotFound）
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
}
