package usecase

import (
	"context"
	"errors"
	"sort"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/telemetry"
)

func stockKeyOf(it model.OrderItem) repo.StockKey {
	return repo.StockKey{ProductID: it.ProductID, VariantID: it.VariantID}
}

// ロックを取る順番（商品ID → バリエーションID、バリエーション無しが先）
func lockOrder(items []CreateOrderItemInput) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		x, y := items[idx[a]], items[idx[b]]
		if x.ProductID != y.ProductID {
			return x.ProductID < y.ProductID
		}
		if x.VariantID == nil || y.VariantID == nil {
			return x.VariantID == nil && y.VariantID != nil
		}
		return *x.VariantID < *y.VariantID
	})
	return idx
}

// releaseItems は明細の数量を在庫へ戻し、履歴を残す
func releaseItems(ctx context.Context, r repo.TxRepos, orderID int64, items []model.OrderItem, reason model.StockReason) ([]model.StockMovement, error) {
	movements := make([]model.StockMovement, 0, len(items))
	for _, it := range items {
		if err := r.Inventory().IncreaseStock(ctx, stockKeyOf(it), it.Quantity); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, newError(CodeNotFound, "stock row for product %d not found", it.ProductID)
			}
			return nil, dbError(err)
		}
		oid := orderID
		movements = append(movements, model.StockMovement{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			OrderID:   &oid,
			Delta:     it.Quantity,
			Reason:    reason,
		})
	}
	if err := r.Inventory().CreateMovements(ctx, movements); err != nil {
		return nil, dbError(err)
	}
	return movements, nil
}

// コミット後にだけ数える
func recordStock(movements []model.StockMovement) {
	for _, m := range movements {
		n := m.Delta
		if n < 0 {
			n = -n
		}
		telemetry.StockUnitsTotal.WithLabelValues(string(m.Reason)).Add(float64(n))
	}
}

func itemIDs(items []model.OrderItem) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// 注文全体を取り消すときに戻す明細。出荷済みが1つでもあれば取り消せない
func cancellableItems(o model.Order) ([]model.OrderItem, error) {
	out := make([]model.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		if it.Status == model.OrderItemStatusCancelled {
			continue
		}
		if !model.OrderItemTransitions.Allows(it.Status, model.OrderItemStatusCancelled) {
			return nil, newError(CodeInvalidState, "order item %d is already %s", it.ID, it.Status)
		}
		out = append(out, it)
	}
	return out, nil
}
