package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
)

type OrderItemRepository interface {
	FindByIDForUpdate(ctx context.Context, itemID int64) (model.OrderItem, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	UpdateStatus(ctx context.Context, itemIDs []int64, status model.OrderItemStatus, at time.Time) error
}
