package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID      int64           `gorm:"not null;index" json:"seller_id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	StockQuantity int64           `gorm:"not null;default:0" json:"stock_quantity"`
	SoldQuantity  int64           `gorm:"not null;default:0" json:"sold_quantity"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// バリエーション。価格と在庫は商品とは別に持つ。
type Variant struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID     int64           `gorm:"not null;index" json:"product_id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU           string          `gorm:"type:varchar(100)" json:"sku"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	StockQuantity int64           `gorm:"not null;default:0" json:"stock_quantity"`
	SoldQuantity  int64           `gorm:"not null;default:0" json:"sold_quantity"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
