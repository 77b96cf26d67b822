package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/domain/pricing"
	repo "marketplace/internal/repository"
	"marketplace/internal/telemetry"
	"marketplace/internal/validator"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("usecase/order")

// コミット後のイベント通知
type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent)
}

type OrderSettings struct {
	ShippingFee decimal.Decimal
	Timeout     time.Duration
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	publisher EventPublisher
	clock     Clock
	numbers   OrderNumberGenerator
	settings  OrderSettings
}

func NewOrderUsecase(tx repo.TransactionManager, publisher EventPublisher, clock Clock, numbers OrderNumberGenerator, settings OrderSettings) *OrderUsecase {
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	return &OrderUsecase{tx: tx, publisher: publisher, clock: clock, numbers: numbers, settings: settings}
}

type CreateOrderItemInput struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

type CreateOrderInput struct {
	DeliveryAddressID int64
	PickupAddressID   int64
	PaymentMethod     string
	Items             []CreateOrderItemInput
	CouponCode        string
	Notes             string
	IdempotencyKey    string
}

const (
	maxOrderLines   = 100
	maxLineQuantity = 10000
)

func (in *CreateOrderInput) normalize() error {
	in.CouponCode = strings.TrimSpace(in.CouponCode)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	in.Notes = strings.TrimSpace(in.Notes)

	if in.DeliveryAddressID <= 0 {
		return newError(CodeValidation, "invalid delivery_address_id")
	}
	if in.PickupAddressID <= 0 {
		return newError(CodeValidation, "invalid pickup_address_id")
	}
	if !model.PaymentMethod(in.PaymentMethod).Valid() {
		return newError(CodeValidation, "invalid payment_method")
	}
	if len(in.Items) == 0 {
		return newError(CodeValidation, "items must not be empty")
	}
	if len(in.Items) > maxOrderLines {
		return newError(CodeValidation, "too many items")
	}
	for i, it := range in.Items {
		if it.ProductID <= 0 {
			return newError(CodeValidation, "items[%d]: invalid product_id", i)
		}
		if it.VariantID != nil && *it.VariantID <= 0 {
			return newError(CodeValidation, "items[%d]: invalid variant_id", i)
		}
		if it.Quantity < 1 || it.Quantity > maxLineQuantity {
			return newError(CodeValidation, "items[%d]: quantity must be between 1 and %d", i, maxLineQuantity)
		}
	}
	if in.CouponCode != "" && !validator.IsCouponCode(in.CouponCode) {
		return newError(CodeValidation, "invalid coupon_code")
	}
	if len(in.Notes) > 1000 {
		return newError(CodeValidation, "notes too long")
	}
	if in.IdempotencyKey != "" && !validator.IsIdempotencyKey(in.IdempotencyKey) {
		return newError(CodeValidation, "invalid idempotency key")
	}
	return nil
}

// CreateOrder は在庫引当・割引・クーポン・注文作成・カート削除を1トランザクションで行う。
// どこかで失敗したら何も残らない。
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, ErrUnauthorized
	}
	if err := in.normalize(); err != nil {
		return model.Order{}, err
	}

	ctx, span := tracer.Start(ctx, "CreateOrder")
	defer span.End()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, u.settings.Timeout)
	defer cancel()

	now := u.clock.Now()

	var (
		out       model.Order
		replayed  bool
		movements []model.StockMovement
	)

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if in.IdempotencyKey != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
			if err != nil {
				return dbError(err)
			}
			if found {
				out = existing
				replayed = true
				return nil
			}
		}

		if err := checkAddresses(ctx, r, userID, in.DeliveryAddressID, in.PickupAddressID); err != nil {
			return err
		}

		lines, subtotal, err := reserveLines(ctx, r, userID, in.Items, now)
		if err != nil {
			return err
		}

		discount := decimal.Zero
		var couponID *int64
		if in.CouponCode != "" {
			c, d, err := applyCoupon(ctx, r, userID, in.CouponCode, subtotal, now)
			if err != nil {
				return err
			}
			id := c.ID
			couponID = &id
			discount = d
		}

		shipping := u.settings.ShippingFee
		order := model.Order{
			OrderNumber:       u.numbers.Next(now),
			UserID:            userID,
			DeliveryAddressID: in.DeliveryAddressID,
			PickupAddressID:   in.PickupAddressID,
			PaymentMethod:     model.PaymentMethod(in.PaymentMethod),
			SubTotal:          subtotal,
			DiscountAmount:    discount,
			ShippingFee:       shipping,
			TotalAmount:       subtotal.Sub(discount).Add(shipping),
			CouponID:          couponID,
			Notes:             in.Notes,
			Status:            model.OrderStatusPending,
			Items:             lines,
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			order.IdempotencyKey = &key
		}

		// 注文作成
		created, err := r.Orders().Create(ctx, order)
		switch {
		case errors.Is(err, repo.ErrIdempotencyKeyTaken):
			return newError(CodeConflict, "order was submitted concurrently, retry with the same key")
		case errors.Is(err, repo.ErrDuplicate):
			// 注文番号の衝突
			return newError(CodeConflict, "order could not be placed, please retry")
		case err != nil:
			return dbError(err)
		}

		if couponID != nil {
			orderID := created.ID
			err := r.Coupons().CreateUsage(ctx, model.CouponUsage{CouponID: *couponID, UserID: userID, OrderID: &orderID})
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrCouponAlreadyUsed
			}
			if err != nil {
				return dbError(err)
			}
		}

		//在庫履歴
		movements = make([]model.StockMovement, 0, len(created.Items))
		for _, it := range created.Items {
			orderID := created.ID
			movements = append(movements, model.StockMovement{
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				OrderID:   &orderID,
				Delta:     -it.Quantity,
				Reason:    model.StockReasonOrderPlaced,
			})
		}
		if err := r.Inventory().CreateMovements(ctx, movements); err != nil {
			return dbError(err)
		}

		//カートを空にする
		if err := r.Carts().ClearByUserID(ctx, userID); err != nil {
			return dbError(err)
		}

		out = created
		return nil
	})

	telemetry.CheckoutDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.CheckoutsTotal.WithLabelValues(string(codeOf(err))).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Order{}, err
	}
	span.SetAttributes(
		attribute.Int64("order.id", out.ID),
		attribute.Bool("order.replayed", replayed),
	)
	if replayed {
		telemetry.CheckoutsTotal.WithLabelValues("replayed").Inc()
		return out, nil
	}

	telemetry.CheckoutsTotal.WithLabelValues("ok").Inc()
	recordStock(movements)
	u.publisher.Publish(ctx, model.OrderEvent{
		Type:        model.EventOrderCreated,
		OrderID:     out.ID,
		OrderNumber: out.OrderNumber,
		UserID:      out.UserID,
		Status:      string(out.Status),
		OccurredAt:  now,
	})
	return out, nil
}

// 配送先は本人の有効な住所、集荷先は有効な住所
func checkAddresses(ctx context.Context, r repo.TxRepos, userID, deliveryID, pickupID int64) error {
	delivery, err := r.Addresses().FindByID(ctx, deliveryID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return dbError(err)
	}
	if err != nil || delivery.UserID != userID || !delivery.Status {
		return newError(CodeAddressInvalid, "Delivery address not found or does not belong to you")
	}

	pickup, err := r.Addresses().FindByID(ctx, pickupID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return dbError(err)
	}
	if err != nil || !pickup.Status {
		return newError(CodeAddressInvalid, "Pickup address not found")
	}
	return nil
}

// reserveLines は行ロック順に在庫を引き当て、購入時点の単価で明細を作る（明細は入力順）
func reserveLines(ctx context.Context, r repo.TxRepos, userID int64, in []CreateOrderItemInput, now time.Time) ([]model.OrderItem, decimal.Decimal, error) {
	lines := make([]model.OrderItem, len(in))
	subtotal := decimal.Zero

	for _, idx := range lockOrder(in) {
		it := in[idx]
		key := repo.StockKey{ProductID: it.ProductID, VariantID: it.VariantID}

		snap, err := r.Catalog().LockSnapshot(ctx, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			if it.VariantID != nil {
				return nil, decimal.Zero, newError(CodeNotFound, "product %d variant %d not found", it.ProductID, *it.VariantID)
			}
			return nil, decimal.Zero, newError(CodeNotFound, "product %d not found", it.ProductID)
		}
		if err != nil {
			return nil, decimal.Zero, dbError(err)
		}

		if snap.SellerID == userID {
			return nil, decimal.Zero, ErrSelfPurchase
		}

		if snap.StockQuantity < it.Quantity {
			return nil, decimal.Zero, newError(CodeInsufficientStock, "insufficient stock for %s", snap.Name)
		}
		//在庫減算（足りないなら false）
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, key, it.Quantity)
		if err != nil {
			return nil, decimal.Zero, dbError(err)
		}
		if !ok {
			return nil, decimal.Zero, newError(CodeInsufficientStock, "insufficient stock for %s", snap.Name)
		}

		//スナップショット
		price := pricing.ResolveLine(snap.Price, snap.Offers)
		total := price.Unit.Mul(decimal.NewFromInt(it.Quantity))
		lines[idx] = model.OrderItem{
			ProductID:   snap.ProductID,
			VariantID:   snap.VariantID,
			SellerID:    snap.SellerID,
			ProductName: snap.Name,
			Quantity:    it.Quantity,
			Price:       price.Unit,
			Total:       total,
			Status:      model.OrderItemStatusPending,
		}
		subtotal = subtotal.Add(total)
	}
	return lines, subtotal, nil
}

// applyCoupon は存在・期間・上限・1人1回を確認して使用数を加算する
func applyCoupon(ctx context.Context, r repo.TxRepos, userID int64, code string, subtotal decimal.Decimal, now time.Time) (model.Coupon, decimal.Decimal, error) {
	c, err := r.Coupons().FindByCodeForUpdate(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Coupon{}, decimal.Zero, ErrCouponInvalid
	}
	if err != nil {
		return model.Coupon{}, decimal.Zero, dbError(err)
	}

	switch err := pricing.CheckCoupon(c, now); {
	case errors.Is(err, pricing.ErrCouponExpired):
		return model.Coupon{}, decimal.Zero, ErrCouponExpired
	case errors.Is(err, pricing.ErrCouponLimitReached):
		return model.Coupon{}, decimal.Zero, ErrCouponLimitReached
	}

	used, err := r.Coupons().HasUsage(ctx, c.ID, userID)
	if err != nil {
		return model.Coupon{}, decimal.Zero, dbError(err)
	}
	if used {
		return model.Coupon{}, decimal.Zero, ErrCouponAlreadyUsed
	}

	ok, err := r.Coupons().IncrementUsedCount(ctx, c.ID)
	if err != nil {
		return model.Coupon{}, decimal.Zero, dbError(err)
	}
	if !ok {
		return model.Coupon{}, decimal.Zero, ErrCouponLimitReached
	}

	return c, pricing.CouponDiscount(subtotal, c), nil
}

func codeOf(err error) ErrorCode {
	if he, ok := AsHTTPError(err); ok {
		return he.Code
	}
	return CodeInternal
}
