package model

import "time"

// 在庫の増減理由
type StockReason string

const (
	StockReasonOrderPlaced    StockReason = "order_placed"
	StockReasonOrderCancelled StockReason = "order_cancelled"
	StockReasonItemCancelled  StockReason = "item_cancelled"
	StockReasonReturnAccepted StockReason = "return_accepted"
)

// 在庫増減の履歴。Delta は減算ならマイナス。
type StockMovement struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64       `gorm:"not null;index" json:"product_id"`
	VariantID *int64      `gorm:"index" json:"variant_id,omitempty"`
	OrderID   *int64      `gorm:"index" json:"order_id,omitempty"`
	Delta     int64       `gorm:"not null" json:"delta"`
	Reason    StockReason `gorm:"type:varchar(50);not null" json:"reason"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
}
