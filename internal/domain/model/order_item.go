package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItemStatus string

const (
	OrderItemStatusPending    OrderItemStatus = "pending"
	OrderItemStatusProcessing OrderItemStatus = "processing"
	OrderItemStatusPickup     OrderItemStatus = "pickup"
	OrderItemStatusShipped    OrderItemStatus = "shipped"
	OrderItemStatusDelivered  OrderItemStatus = "delivered"
	OrderItemStatusCancelled  OrderItemStatus = "cancelled"
	OrderItemStatusReturned   OrderItemStatus = "returned"
)

func (s OrderItemStatus) Valid() bool {
	switch s {
	case OrderItemStatusPending, OrderItemStatusProcessing, OrderItemStatusPickup,
		OrderItemStatusShipped, OrderItemStatusDelivered, OrderItemStatusCancelled,
		OrderItemStatusReturned:
		return true
	}
	return false
}

func (s OrderItemStatus) TimestampColumn() string {
	switch s {
	case OrderItemStatusProcessing:
		return "processing_at"
	case OrderItemStatusPickup:
		return "pickup_at"
	case OrderItemStatusShipped:
		return "shipped_at"
	case OrderItemStatusDelivered:
		return "delivered_at"
	case OrderItemStatusCancelled:
		return "cancelled_at"
	case OrderItemStatusReturned:
		return "returned_at"
	}
	return ""
}

// 注文明細。価格は購入時点のスナップショット。
// SellerID も購入時点の商品の出品者を固定で持つ。
type OrderItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64           `gorm:"not null;index" json:"order_id"`
	ProductID    int64           `gorm:"not null;index" json:"product_id"`
	VariantID    *int64          `gorm:"index" json:"variant_id,omitempty"`
	SellerID     int64           `gorm:"not null;index" json:"seller_id"`
	ProductName  string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Total        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status       OrderItemStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IsReviewed   bool            `gorm:"not null;default:false" json:"is_reviewed"`
	ProcessingAt *time.Time      `json:"processing_at,omitempty"`
	PickupAt     *time.Time      `json:"pickup_at,omitempty"`
	ShippedAt    *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	ReturnedAt   *time.Time      `json:"returned_at,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
