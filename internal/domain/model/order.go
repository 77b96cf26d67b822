package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	// 注文単位では到達しない（返品は明細単位）
	OrderStatusReturned OrderStatus = "returned"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// TimestampColumn はステータスに対応する時刻カラム（無ければ空）
func (s OrderStatus) TimestampColumn() string {
	switch s {
	case OrderStatusProcessing:
		return "processing_at"
	case OrderStatusShipped:
		return "shipped_at"
	case OrderStatusDelivered:
		return "delivered_at"
	case OrderStatusCancelled:
		return "cancelled_at"
	}
	return ""
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentStripe         PaymentMethod = "stripe"
	PaymentSSLCommerz     PaymentMethod = "sslcommerz"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCashOnDelivery, PaymentStripe, PaymentSSLCommerz:
		return true
	}
	return false
}

type Order struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber       string          `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_number"`
	UserID            int64           `gorm:"not null;index" json:"user_id"`
	DeliveryAddressID int64           `gorm:"not null" json:"delivery_address_id"`
	PickupAddressID   int64           `gorm:"not null" json:"pickup_address_id"`
	PaymentMethod     PaymentMethod   `gorm:"type:varchar(30);not null" json:"payment_method"`
	SubTotal          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"sub_total"`
	DiscountAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	ShippingFee       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_fee"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	CouponID          *int64          `gorm:"index" json:"coupon_id,omitempty"`
	Notes             string          `gorm:"type:text" json:"notes"`
	Status            OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	IdempotencyKey    *string         `gorm:"type:varchar(255)" json:"-"`
	ProcessingAt      *time.Time      `json:"processing_at,omitempty"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`

	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// HasSellerItem はセラーの商品を1つでも含むか
func (o Order) HasSellerItem(sellerID int64) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}

// FindItem は注文内の明細を探す
func (o Order) FindItem(itemID int64) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return OrderItem{}, false
}
