package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var checkoutNow = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

const (
	buyerID  int64 = 1
	sellerID int64 = 50
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrderUC(tx *TxManagerMock, pub *PublisherMock) *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(tx, pub, fixedClock{t: checkoutNow}, fixedNumbers{n: "ORD-TEST-00001"}, usecase.OrderSettings{
		ShippingFee: dec("50"),
		Timeout:     time.Second,
	})
}

func baseInput() usecase.CreateOrderInput {
	return usecase.CreateOrderInput{
		DeliveryAddressID: 11,
		PickupAddressID:   12,
		PaymentMethod:     "cash_on_delivery",
		Items: []usecase.CreateOrderItemInput{
			{ProductID: 5, Quantity: 2},
			{ProductID: 2, VariantID: i64(9), Quantity: 1},
		},
	}
}

func expectAddresses(r *TxReposMock) {
	r.addresses.On("FindByID", mock.Anything, int64(11)).Return(model.Address{ID: 11, UserID: buyerID, Status: true}, nil)
	r.addresses.On("FindByID", mock.Anything, int64(12)).Return(model.Address{ID: 12, UserID: 99, Status: true}, nil)
}

func expectCatalog(r *TxReposMock) {
	r.catalog.On("LockSnapshot", mock.Anything, repo.StockKey{ProductID: 2, VariantID: i64(9)}, checkoutNow).
		Return(repo.CatalogSnapshot{
			ProductID: 2, VariantID: i64(9), Name: "Shirt - L", SellerID: sellerID,
			Price: dec("30.50"), StockQuantity: 4,
		}, nil)
	r.catalog.On("LockSnapshot", mock.Anything, repo.StockKey{ProductID: 5}, checkoutNow).
		Return(repo.CatalogSnapshot{
			ProductID: 5, Name: "Mug", SellerID: sellerID,
			Price: dec("100"), StockQuantity: 10,
			Offers: []model.Offer{
				{ID: 1, DiscountType: model.DiscountPercentage, DiscountValue: dec("10"), Status: model.OfferStatusActive},
				{ID: 2, DiscountType: model.DiscountFixed, DiscountValue: dec("20"), Status: model.OfferStatusActive},
			},
		}, nil)
}

func TestOrderUsecase_CreateOrder_Success(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)
	pub := new(PublisherMock)

	in := baseInput()
	in.CouponCode = " SAVE10 "

	expectAddresses(r)
	expectCatalog(r)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 2, VariantID: i64(9)}, int64(1)).Return(true, nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 5}, int64(2)).Return(true, nil)

	r.coupons.On("FindByCodeForUpdate", mock.Anything, "SAVE10").Return(model.Coupon{
		ID: 3, Code: "SAVE10", DiscountType: model.DiscountPercentage, DiscountValue: dec("10"),
		StartDate: checkoutNow.Add(-time.Hour), EndDate: timePtr(checkoutNow.Add(time.Hour)),
	}, nil)
	r.coupons.On("HasUsage", mock.Anything, int64(3), buyerID).Return(false, nil)
	r.coupons.On("IncrementUsedCount", mock.Anything, int64(3)).Return(true, nil)
	r.coupons.On("CreateUsage", mock.Anything, model.CouponUsage{CouponID: 3, UserID: buyerID, OrderID: i64(700)}).Return(nil)

	var saved model.Order
	r.orders.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(model.Order) }).
		Return(func(_ context.Context, o model.Order) model.Order {
			o.ID = 700
			for i := range o.Items {
				o.Items[i].ID = int64(900 + i)
				o.Items[i].OrderID = 700
			}
			return o
		}, nil)

	r.inventory.On("CreateMovements", mock.Anything, mock.MatchedBy(func(ms []model.StockMovement) bool {
		return len(ms) == 2 && ms[0].Delta == -2 && ms[1].Delta == -1 && *ms[0].OrderID == 700
	})).Return(nil)
	r.carts.On("ClearByUserID", mock.Anything, buyerID).Return(nil)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.OrderEvent) bool {
		return ev.Type == model.EventOrderCreated && ev.OrderID == 700
	})).Return()

	out, err := newOrderUC(tx, pub).CreateOrder(context.Background(), buyerID, in)
	require.NoError(t, err)

	// 100 → best offer fixed 20 → 80 x2 = 160, variant 30.50
	assert.Equal(t, "190.50", saved.SubTotal.StringFixed(2))
	assert.Equal(t, "19.05", saved.DiscountAmount.StringFixed(2))
	assert.Equal(t, "50.00", saved.ShippingFee.StringFixed(2))
	assert.Equal(t, "221.45", saved.TotalAmount.StringFixed(2))
	assert.Equal(t, model.OrderStatusPending, saved.Status)
	assert.Equal(t, "ORD-TEST-00001", saved.OrderNumber)
	assert.Equal(t, int64(3), *saved.CouponID)
	assert.Nil(t, saved.IdempotencyKey)

	// 明細は入力順
	require.Len(t, saved.Items, 2)
	assert.Equal(t, int64(5), saved.Items[0].ProductID)
	assert.Equal(t, "80.00", saved.Items[0].Price.StringFixed(2))
	assert.Equal(t, "160.00", saved.Items[0].Total.StringFixed(2))
	assert.Equal(t, int64(2), saved.Items[1].ProductID)
	assert.Equal(t, sellerID, saved.Items[1].SellerID)

	// ロックは商品ID順
	require.Len(t, r.catalog.Calls, 2)
	assert.Equal(t, int64(2), r.catalog.Calls[0].Arguments.Get(1).(repo.StockKey).ProductID)
	assert.Equal(t, int64(5), r.catalog.Calls[1].Arguments.Get(1).(repo.StockKey).ProductID)

	assert.Equal(t, int64(700), out.ID)
	r.assertAll(t)
	pub.AssertExpectations(t)
}

func TestOrderUsecase_CreateOrder_BestOfferOnSubtotal(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)
	pub := new(PublisherMock)

	in := baseInput()
	in.Items = []usecase.CreateOrderItemInput{{ProductID: 5, Quantity: 1}}

	expectAddresses(r)
	expectCatalog(r)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 5}, int64(1)).Return(true, nil)

	var saved model.Order
	r.orders.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(model.Order) }).
		Return(model.Order{ID: 1, Items: []model.OrderItem{{ProductID: 5, Quantity: 1}}}, nil)
	r.inventory.On("CreateMovements", mock.Anything, mock.Anything).Return(nil)
	r.carts.On("ClearByUserID", mock.Anything, buyerID).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	_, err := newOrderUC(tx, pub).CreateOrder(context.Background(), buyerID, in)
	require.NoError(t, err)

	assert.Equal(t, "80.00", saved.SubTotal.StringFixed(2))
	assert.True(t, saved.DiscountAmount.IsZero())
	assert.Equal(t, "130.00", saved.TotalAmount.StringFixed(2))
}

func TestOrderUsecase_CreateOrder_SelfPurchase(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	in := baseInput()
	in.Items = []usecase.CreateOrderItemInput{{ProductID: 5, Quantity: 1}}

	r.addresses.On("FindByID", mock.Anything, int64(11)).Return(model.Address{ID: 11, UserID: sellerID, Status: true}, nil)
	r.addresses.On("FindByID", mock.Anything, int64(12)).Return(model.Address{ID: 12, Status: true}, nil)
	expectCatalog(r)

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), sellerID, in)

	assert.ErrorIs(t, err, usecase.ErrSelfPurchase)
	r.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_CreateOrder_InsufficientStock(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	in := baseInput()
	in.Items = []usecase.CreateOrderItemInput{
		{ProductID: 2, VariantID: i64(9), Quantity: 1},
		{ProductID: 5, Quantity: 11},
	}

	expectAddresses(r)
	expectCatalog(r)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 2, VariantID: i64(9)}, int64(1)).Return(true, nil)

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, in)

	assert.ErrorIs(t, err, usecase.ErrInsufficientStock)
	assertErrContains(t, err, "Mug")
	r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	r.carts.AssertNotCalled(t, "ClearByUserID", mock.Anything, mock.Anything)
}

func TestOrderUsecase_CreateOrder_ConditionalDecrementLost(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	in := baseInput()
	in.Items = []usecase.CreateOrderItemInput{{ProductID: 5, Quantity: 3}}

	expectAddresses(r)
	expectCatalog(r)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 5}, int64(3)).Return(false, nil)

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, in)

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 409, he.Status)
	assert.Equal(t, usecase.CodeInsufficientStock, he.Code)
}

func TestOrderUsecase_CreateOrder_ProductNotFound(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	in := baseInput()
	in.Items = []usecase.CreateOrderItemInput{{ProductID: 77, Quantity: 1}}

	expectAddresses(r)
	r.catalog.On("LockSnapshot", mock.Anything, repo.StockKey{ProductID: 77}, checkoutNow).Return(repo.CatalogSnapshot{}, repo.ErrNotFound)

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, in)

	assert.ErrorIs(t, err, usecase.ErrNotFound)
	assertErrContains(t, err, "product 77 not found")
}

func TestOrderUsecase_CreateOrder_DeliveryAddressOfAnotherUser(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	r.addresses.On("FindByID", mock.Anything, int64(11)).Return(model.Address{ID: 11, UserID: 2, Status: true}, nil)

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, baseInput())

	assert.ErrorIs(t, err, usecase.ErrAddressInvalid)
	he, _ := usecase.AsHTTPError(err)
	assert.Equal(t, 404, he.Status)
	r.catalog.AssertNotCalled(t, "LockSnapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_CreateOrder_InactivePickupAddress(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	r.addresses.On("FindByID", mock.Anything, int64(11)).Return(model.Address{ID: 11, UserID: buyerID, Status: true}, nil)
	r.addresses.On("FindByID", mock.Anything, int64(12)).Return(model.Address{ID: 12, Status: false}, nil)

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, baseInput())

	assert.ErrorIs(t, err, usecase.ErrAddressInvalid)
	assertErrContains(t, err, "Pickup address")
}

func TestOrderUsecase_CreateOrder_CouponFailures(t *testing.T) {
	valid := model.Coupon{
		ID: 3, Code: "C", DiscountType: model.DiscountFixed, DiscountValue: dec("5"),
		StartDate: checkoutNow.Add(-time.Hour), EndDate: timePtr(checkoutNow.Add(time.Hour)),
	}
	expired := valid
	expired.EndDate = timePtr(checkoutNow.Add(-time.Minute))
	exhausted := valid
	exhausted.UsageLimit = i64(2)
	exhausted.UsedCount = 2

	tests := []struct {
		name  string
		setup func(r *TxReposMock)
		want  error
	}{
		{
			name: "unknown code",
			setup: func(r *TxReposMock) {
				r.coupons.On("FindByCodeForUpdate", mock.Anything, "C").Return(model.Coupon{}, repo.ErrNotFound)
			},
			want: usecase.ErrCouponInvalid,
		},
		{
			name: "expired",
			setup: func(r *TxReposMock) {
				r.coupons.On("FindByCodeForUpdate", mock.Anything, "C").Return(expired, nil)
			},
			want: usecase.ErrCouponExpired,
		},
		{
			name: "limit reached",
			setup: func(r *TxReposMock) {
				r.coupons.On("FindByCodeForUpdate", mock.Anything, "C").Return(exhausted, nil)
			},
			want: usecase.ErrCouponLimitReached,
		},
		{
			name: "already used",
			setup: func(r *TxReposMock) {
				r.coupons.On("FindByCodeForUpdate", mock.Anything, "C").Return(valid, nil)
				r.coupons.On("HasUsage", mock.Anything, int64(3), buyerID).Return(true, nil)
			},
			want: usecase.ErrCouponAlreadyUsed,
		},
		{
			name: "limit lost to concurrent order",
			setup: func(r *TxReposMock) {
				r.coupons.On("FindByCodeForUpdate", mock.Anything, "C").Return(valid, nil)
				r.coupons.On("HasUsage", mock.Anything, int64(3), buyerID).Return(false, nil)
				r.coupons.On("IncrementUsedCount", mock.Anything, int64(3)).Return(false, nil)
			},
			want: usecase.ErrCouponLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTxRepos()
			tx := newTx(r)

			in := baseInput()
			in.Items = []usecase.CreateOrderItemInput{{ProductID: 5, Quantity: 1}}
			in.CouponCode = "C"

			expectAddresses(r)
			expectCatalog(r)
			r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 5}, int64(1)).Return(true, nil)
			tt.setup(r)

			_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, in)

			assert.ErrorIs(t, err, tt.want)
			he, ok := usecase.AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, 400, he.Status)
			r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderUsecase_CreateOrder_CouponUsageRace(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	in := baseInput()
	in.Items = []usecase.CreateOrderItemInput{{ProductID: 5, Quantity: 1}}
	in.CouponCode = "C"

	expectAddresses(r)
	expectCatalog(r)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 5}, int64(1)).Return(true, nil)
	r.coupons.On("FindByCodeForUpdate", mock.Anything, "C").Return(model.Coupon{
		ID: 3, DiscountType: model.DiscountFixed, DiscountValue: dec("5"),
		StartDate: checkoutNow.Add(-time.Hour), EndDate: timePtr(checkoutNow.Add(time.Hour)),
	}, nil)
	r.coupons.On("HasUsage", mock.Anything, int64(3), buyerID).Return(false, nil)
	r.coupons.On("IncrementUsedCount", mock.Anything, int64(3)).Return(true, nil)
	r.orders.On("Create", mock.Anything, mock.Anything).Return(model.Order{ID: 8}, nil)
	r.coupons.On("CreateUsage", mock.Anything, mock.Anything).Return(repo.ErrDuplicate)

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, in)

	assert.ErrorIs(t, err, usecase.ErrCouponAlreadyUsed)
	r.carts.AssertNotCalled(t, "ClearByUserID", mock.Anything, mock.Anything)
}

func TestOrderUsecase_CreateOrder_IdempotentReplay(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)
	pub := new(PublisherMock)

	in := baseInput()
	in.IdempotencyKey = "abc"

	existing := model.Order{ID: 42, UserID: buyerID, Status: model.OrderStatusPending}
	r.orders.On("FindByIdempotencyKey", mock.Anything, buyerID, "abc").Return(existing, true, nil)

	out, err := newOrderUC(tx, pub).CreateOrder(context.Background(), buyerID, in)

	require.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)
	r.catalog.AssertNotCalled(t, "LockSnapshot", mock.Anything, mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderUsecase_CreateOrder_UniqueViolationOnCreate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		repoErr error
		want    string
	}{
		{"same idempotency key", "abc", repo.ErrIdempotencyKeyTaken, "order was submitted concurrently, retry with the same key"},
		{"order number collision", "", repo.ErrDuplicate, "order could not be placed, please retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTxRepos()
			tx := newTx(r)

			in := baseInput()
			in.Items = []usecase.CreateOrderItemInput{{ProductID: 5, Quantity: 1}}
			in.IdempotencyKey = tt.key

			if tt.key != "" {
				r.orders.On("FindByIdempotencyKey", mock.Anything, buyerID, tt.key).Return(model.Order{}, false, nil)
			}
			expectAddresses(r)
			expectCatalog(r)
			r.inventory.On("DecreaseStockIfEnough", mock.Anything, repo.StockKey{ProductID: 5}, int64(1)).Return(true, nil)
			r.orders.On("Create", mock.Anything, mock.Anything).Return(model.Order{}, tt.repoErr)

			_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, in)

			assert.ErrorIs(t, err, usecase.ErrConflict)
			he, ok := usecase.AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, 409, he.Status)
			assert.Equal(t, tt.want, he.Message)
			r.carts.AssertNotCalled(t, "ClearByUserID", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderUsecase_CreateOrder_DBErrorIsInternal(t *testing.T) {
	r := newTxRepos()
	tx := newTx(r)

	r.addresses.On("FindByID", mock.Anything, int64(11)).Return(model.Address{}, errors.New("conn reset"))

	_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, baseInput())

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 500, he.Status)
	assert.Equal(t, "db error", he.Message)
}

func TestOrderUsecase_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *usecase.CreateOrderInput)
		want   string
	}{
		{"payment method", func(in *usecase.CreateOrderInput) { in.PaymentMethod = "bitcoin" }, "invalid payment_method"},
		{"no items", func(in *usecase.CreateOrderInput) { in.Items = nil }, "items must not be empty"},
		{"zero quantity", func(in *usecase.CreateOrderInput) { in.Items[0].Quantity = 0 }, "quantity"},
		{"delivery address", func(in *usecase.CreateOrderInput) { in.DeliveryAddressID = 0 }, "delivery_address_id"},
		{"coupon code", func(in *usecase.CreateOrderInput) { in.CouponCode = "SAVE 10" }, "invalid coupon_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := new(TxManagerMock)
			in := baseInput()
			tt.mutate(&in)

			_, err := newOrderUC(tx, new(PublisherMock)).CreateOrder(context.Background(), buyerID, in)

			assert.ErrorIs(t, err, usecase.ErrValidation)
			assertErrContains(t, err, tt.want)
			tx.AssertNotCalled(t, "WithinTx", mock.Anything)
		})
	}
}
