// Package pricing は割引の計算だけを持つ（DBに触らない）。
package pricing

import (
	"errors"
	"time"

	"marketplace/internal/domain/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var (
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrCouponLimitReached = errors.New("coupon usage limit reached")
)

// Discount は base に対する割引額（率なら base*v/100、固定なら v）
func Discount(base decimal.Decimal, t model.DiscountType, value decimal.Decimal) decimal.Decimal {
	if t == model.DiscountPercentage {
		return base.Mul(value).Div(hundred)
	}
	return value
}

// 1明細の単価の内訳
type LinePrice struct {
	Base     decimal.Decimal
	Discount decimal.Decimal
	Unit     decimal.Decimal
	OfferID  *int64
}

// BestOffer は割引額が最大のセールを選ぶ。同額なら ID の小さい方。
func BestOffer(base decimal.Decimal, offers []model.Offer) (model.Offer, decimal.Decimal, bool) {
	var (
		best     model.Offer
		bestDisc decimal.Decimal
		found    bool
	)
	for _, o := range offers {
		d := Discount(base, o.DiscountType, o.DiscountValue)
		switch {
		case !found, d.GreaterThan(bestDisc):
		case d.Equal(bestDisc) && o.ID < best.ID:
		default:
			continue
		}
		best, bestDisc, found = o, d, true
	}
	return best, bestDisc, found
}

// UnitPrice は max(0, base - discount) を2桁に丸める
func UnitPrice(base, discount decimal.Decimal) decimal.Decimal {
	p := base.Sub(discount)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p.Round(2)
}

// ResolveLine はセール適用後の単価を決める。offers は有効なものだけ渡す。
func ResolveLine(base decimal.Decimal, offers []model.Offer) LinePrice {
	lp := LinePrice{Base: base, Discount: decimal.Zero, Unit: base.Round(2)}
	o, d, ok := BestOffer(base, offers)
	if !ok {
		return lp
	}
	id := o.ID
	lp.Discount = d
	lp.Unit = UnitPrice(base, d)
	lp.OfferID = &id
	return lp
}

// CheckCoupon は期間と利用上限を見る（コード存在と1人1回は呼び出し側）
func CheckCoupon(c model.Coupon, now time.Time) error {
	if now.Before(c.StartDate) {
		return ErrCouponExpired
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrCouponLimitReached
	}
	return nil
}

// CouponDiscount は min(割引額, subtotal)。マイナスにはしない。
func CouponDiscount(subtotal decimal.Decimal, c model.Coupon) decimal.Decimal {
	d := Discount(subtotal, c.DiscountType, c.DiscountValue)
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
