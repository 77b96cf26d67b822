package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 割引の種類（率 or 固定額）
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "active"
	OfferStatusInactive OfferStatus = "inactive"
	OfferStatusDraft    OfferStatus = "draft"
)

// 表示用の区分。適用対象は紐付けテーブルで決まる。
type OfferType string

const (
	OfferTypeAll     OfferType = "all"
	OfferTypeProduct OfferType = "product"
	OfferTypeVariant OfferType = "variant"
)

// セラーの期間限定セール
type Offer struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID      *int64          `gorm:"index" json:"seller_id,omitempty"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	OfferType     OfferType       `gorm:"type:varchar(20);not null;default:'product'" json:"offer_type"`
	DiscountType  DiscountType    `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	Status        OfferStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	StartDate     time.Time       `gorm:"not null" json:"start_date"`
	EndDate       time.Time       `gorm:"not null" json:"end_date"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// ActiveAt は start <= now <= end かつ active
func (o Offer) ActiveAt(now time.Time) bool {
	if o.Status != OfferStatusActive {
		return false
	}
	return !now.Before(o.StartDate) && !now.After(o.EndDate)
}

// 商品とセールの紐付け
type OfferProduct struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	OfferID   int64 `gorm:"not null;uniqueIndex:ux_offer_products"`
	ProductID int64 `gorm:"not null;uniqueIndex:ux_offer_products;index"`
}

// バリエーションとセールの紐付け
type OfferVariant struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	OfferID   int64 `gorm:"not null;uniqueIndex:ux_offer_variants"`
	VariantID int64 `gorm:"not null;uniqueIndex:ux_offer_variants;index"`
}

// クーポン。UsageLimit が nil なら無制限。
type Coupon struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Description   string          `gorm:"type:text" json:"description"`
	SellerID      *int64          `gorm:"index" json:"seller_id,omitempty"`
	DiscountType  DiscountType    `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	UsageLimit    *int64          `json:"usage_limit,omitempty"`
	UsedCount     int64           `gorm:"not null;default:0" json:"used_count"`
	StartDate     time.Time       `gorm:"not null" json:"start_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"` //nil は無期限
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`

	//対象の絞り込みは保存のみ（注文時には評価しない）
	Products []Product `gorm:"many2many:coupon_products" json:"-"`
	Variants []Variant `gorm:"many2many:coupon_variants" json:"-"`
}

// 1ユーザー1回まで (coupon_id, user_id) unique
type CouponUsage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID  int64     `gorm:"not null;uniqueIndex:ux_coupon_usages_coupon_user" json:"coupon_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_coupon_usages_coupon_user" json:"user_id"`
	OrderID   *int64    `gorm:"index" json:"order_id,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
