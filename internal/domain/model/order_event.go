package model

import "time"

type OrderEventType string

const (
	EventOrderCreated       OrderEventType = "order.created"
	EventOrderStatusChanged OrderEventType = "order.status_changed"
	EventOrderCancelled     OrderEventType = "order.cancelled"
	EventReturnUpdated      OrderEventType = "return.updated"
)

// コミット後に外部へ流す通知
type OrderEvent struct {
	Type        OrderEventType `json:"type"`
	OrderID     int64          `json:"order_id"`
	OrderNumber string         `json:"order_number,omitempty"`
	UserID      int64          `json:"user_id"`
	Status      string         `json:"status"`
	ReturnID    *int64         `json:"return_id,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
