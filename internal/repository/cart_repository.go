package repository

import "context"

type CartRepository interface {
	// 注文確定時にユーザーのカートを空にする
	ClearByUserID(ctx context.Context, userID int64) error
}
