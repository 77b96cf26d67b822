package model

import (
	"time"

	"github.com/lib/pq"
)

type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
	ReturnStatusRejected ReturnStatus = "rejected"
	ReturnStatusReturned ReturnStatus = "returned"
)

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusRejected, ReturnStatusReturned:
		return true
	}
	return false
}

// RestoresStock は在庫を戻すべき遷移か（pending から approved/returned の1回だけ）
func (s ReturnStatus) RestoresStock(to ReturnStatus) bool {
	return s == ReturnStatusPending && (to == ReturnStatusApproved || to == ReturnStatusReturned)
}

// 明細単位の返品申請。1明細につき1件。
type ReturnOrder struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64          `gorm:"not null;index" json:"order_id"`
	OrderItemID int64          `gorm:"not null;uniqueIndex" json:"order_item_id"`
	UserID      int64          `gorm:"not null;index" json:"user_id"`
	Reason      string         `gorm:"type:text;not null" json:"reason"`
	Images      pq.StringArray `gorm:"type:text[]" json:"images"`
	Status      ReturnStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`

	OrderItem *OrderItem `gorm:"foreignKey:OrderItemID" json:"order_item,omitempty"`
}
