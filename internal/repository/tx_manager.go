package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Returns() ReturnOrderRepository
	Catalog() CatalogRepository
	Inventory() InventoryRepository
	Coupons() CouponRepository
	Addresses() AddressRepository
	Carts() CartRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
