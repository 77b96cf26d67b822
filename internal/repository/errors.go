package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")
	// 同じ冪等キーの注文が先に作られた
	ErrIdempotencyKeyTaken = errors.New("idempotency key taken")
)
