package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type CouponRepository interface {
	// コードで1件取得し行ロック（無ければ ErrNotFound）
	FindByCodeForUpdate(ctx context.Context, code string) (model.Coupon, error)

	// このユーザーが使用済みか
	HasUsage(ctx context.Context, couponID, userID int64) (bool, error)

	// 上限内のときだけ used_count を +1（超えるなら false）
	IncrementUsedCount(ctx context.Context, couponID int64) (bool, error)

	// 使用記録。同じユーザー2回目は ErrDuplicate
	CreateUsage(ctx context.Context, usage model.CouponUsage) error
}
