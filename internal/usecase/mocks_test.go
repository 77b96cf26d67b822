package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	returns    *ReturnRepoMock
	catalog    *CatalogRepoMock
	inventory  *InventoryRepoMock
	coupons    *CouponRepoMock
	addresses  *AddressRepoMock
	carts      *CartRepoMock
	auditLogs  *AuditRepoMock
}

func newTxRepos() *TxReposMock {
	return &TxReposMock{
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		returns:    new(ReturnRepoMock),
		catalog:    new(CatalogRepoMock),
		inventory:  new(InventoryRepoMock),
		coupons:    new(CouponRepoMock),
		addresses:  new(AddressRepoMock),
		carts:      new(CartRepoMock),
		auditLogs:  new(AuditRepoMock),
	}
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) Returns() repo.ReturnOrderRepository  { return r.returns }
func (r *TxReposMock) Catalog() repo.CatalogRepository      { return r.catalog }
func (r *TxReposMock) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *TxReposMock) Coupons() repo.CouponRepository       { return r.coupons }
func (r *TxReposMock) Addresses() repo.AddressRepository    { return r.addresses }
func (r *TxReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

func (r *TxReposMock) assertAll(t *testing.T) {
	t.Helper()
	r.orders.AssertExpectations(t)
	r.orderItems.AssertExpectations(t)
	r.returns.AssertExpectations(t)
	r.catalog.AssertExpectations(t)
	r.inventory.AssertExpectations(t)
	r.coupons.AssertExpectations(t)
	r.addresses.AssertExpectations(t)
	r.carts.AssertExpectations(t)
	r.auditLogs.AssertExpectations(t)
}

func newTx(r *TxReposMock) *TxManagerMock {
	tx := &TxManagerMock{Repos: r}
	tx.On("WithinTx", mock.Anything).Return(nil)
	return tx
}

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	// 採番結果を返したいテストは関数を渡す
	if fn, ok := args.Get(0).(func(context.Context, model.Order) model.Order); ok {
		return fn(ctx, order), args.Error(1)
	}
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus, at time.Time, notes *string) error {
	args := m.Called(ctx, orderID, status, at, notes)
	return args.Error(0)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) FindByIDForUpdate(ctx context.Context, itemID int64) (model.OrderItem, error) {
	args := m.Called(ctx, itemID)
	it, _ := args.Get(0).(model.OrderItem)
	return it, args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) UpdateStatus(ctx context.Context, itemIDs []int64, status model.OrderItemStatus, at time.Time) error {
	args := m.Called(ctx, itemIDs, status, at)
	return args.Error(0)
}

type ReturnRepoMock struct{ mock.Mock }

func (m *ReturnRepoMock) Create(ctx context.Context, r model.ReturnOrder) (model.ReturnOrder, error) {
	args := m.Called(ctx, r)
	ro, _ := args.Get(0).(model.ReturnOrder)
	return ro, args.Error(1)
}

func (m *ReturnRepoMock) FindByIDForUpdate(ctx context.Context, returnID int64) (model.ReturnOrder, error) {
	args := m.Called(ctx, returnID)
	ro, _ := args.Get(0).(model.ReturnOrder)
	return ro, args.Error(1)
}

func (m *ReturnRepoMock) UpdateStatus(ctx context.Context, returnID int64, status model.ReturnStatus) error {
	args := m.Called(ctx, returnID, status)
	return args.Error(0)
}

func (m *ReturnRepoMock) List(ctx context.Context, f repo.ReturnListFilter) ([]model.ReturnOrder, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.ReturnOrder)
	return list, args.Get(1).(int64), args.Error(2)
}

type CatalogRepoMock struct{ mock.Mock }

func (m *CatalogRepoMock) LockSnapshot(ctx context.Context, key repo.StockKey, now time.Time) (repo.CatalogSnapshot, error) {
	args := m.Called(ctx, key, now)
	s, _ := args.Get(0).(repo.CatalogSnapshot)
	return s, args.Error(1)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, key repo.StockKey, qty int64) (bool, error) {
	args := m.Called(ctx, key, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) IncreaseStock(ctx context.Context, key repo.StockKey, qty int64) error {
	args := m.Called(ctx, key, qty)
	return args.Error(0)
}

func (m *InventoryRepoMock) CreateMovements(ctx context.Context, movements []model.StockMovement) error {
	args := m.Called(ctx, movements)
	return args.Error(0)
}

type CouponRepoMock struct{ mock.Mock }

func (m *CouponRepoMock) FindByCodeForUpdate(ctx context.Context, code string) (model.Coupon, error) {
	args := m.Called(ctx, code)
	c, _ := args.Get(0).(model.Coupon)
	return c, args.Error(1)
}

func (m *CouponRepoMock) HasUsage(ctx context.Context, couponID, userID int64) (bool, error) {
	args := m.Called(ctx, couponID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *CouponRepoMock) IncrementUsedCount(ctx context.Context, couponID int64) (bool, error) {
	args := m.Called(ctx, couponID)
	return args.Bool(0), args.Error(1)
}

func (m *CouponRepoMock) CreateUsage(ctx context.Context, usage model.CouponUsage) error {
	args := m.Called(ctx, usage)
	return args.Error(0)
}

type AddressRepoMock struct{ mock.Mock }

func (m *AddressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) ClearByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// 固定時計・採番・イベント
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedNumbers struct{ n string }

func (g fixedNumbers) Next(time.Time) string { return g.n }

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, ev model.OrderEvent) {
	m.Called(ctx, ev)
}

// =====================
// Helper
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func i64(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }
