package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
)

type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	// RFC3339（空なら絞り込まない）
	From string
	To   string
}

type OrderListOutput struct {
	Items []model.Order
	Total int64
	Page  int
	Limit int
}

// page 未指定は1、limit 未指定は10（最大100）
func pageParams(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 10
	}
	if page < 1 {
		return 0, 0, newError(CodeValidation, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return 0, 0, newError(CodeValidation, "invalid limit")
	}
	return page, limit, nil
}

// ListOrders はロールごとに見える注文だけ返す（新しい順）
func (u *OrderUsecase) ListOrders(ctx context.Context, actor Actor, in ListOrdersInput) (OrderListOutput, error) {
	page, limit, err := pageParams(in.Page, in.Limit)
	if err != nil {
		return OrderListOutput{}, err
	}
	status := strings.TrimSpace(in.Status)
	if status != "" && !model.OrderStatus(status).Valid() {
		return OrderListOutput{}, newError(CodeValidation, "invalid status")
	}

	f := repo.OrderListFilter{Page: page, Limit: limit, Status: status}
	if strings.TrimSpace(in.From) != "" {
		t, ok := parseDateTimeRFC3339(in.From)
		if !ok {
			return OrderListOutput{}, newError(CodeValidation, "invalid from")
		}
		f.From = t
	}
	if strings.TrimSpace(in.To) != "" {
		t, ok := parseDateTimeRFC3339(in.To)
		if !ok {
			return OrderListOutput{}, newError(CodeValidation, "invalid to")
		}
		f.To = t
	}

	switch actor.Role {
	case model.RoleUser:
		f.UserID = &actor.ID
	case model.RoleSeller:
		f.SellerID = &actor.ID
	case model.RoleAdmin:
	default:
		return OrderListOutput{}, ErrPermissionDenied
	}

	var out OrderListOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return dbError(err)
		}
		out = OrderListOutput{Items: orders, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// 期間パラメータは RFC3339
func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	return &t, true
}

// GetOrder は本人・管理者・明細を持つセラーだけ見られる
func (u *OrderUsecase) GetOrder(ctx context.Context, actor Actor, orderID int64) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, newError(CodeValidation, "invalid id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return newError(CodeNotFound, "order not found")
		}
		if err != nil {
			return dbError(err)
		}
		if !canViewOrder(actor, o) {
			return ErrPermissionDenied
		}
		o.Items = visibleItems(actor, o)
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// OrderHistory は注文と（見える）明細のステータス変更履歴を古い順に返す
func (u *OrderUsecase) OrderHistory(ctx context.Context, actor Actor, orderID int64) ([]model.AuditLog, error) {
	if orderID <= 0 {
		return nil, newError(CodeValidation, "invalid id")
	}

	var out []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return newError(CodeNotFound, "order not found")
		}
		if err != nil {
			return dbError(err)
		}
		if !canViewOrder(actor, o) {
			return ErrPermissionDenied
		}

		orderRes := model.AuditResourceOrder
		logs, err := r.AuditLogs().List(ctx, repo.AuditLogFilter{
			ResourceType: &orderRes,
			ResourceIDs:  []int64{o.ID},
			Limit:        200,
		})
		if err != nil {
			return dbError(err)
		}

		if items := visibleItems(actor, o); len(items) > 0 {
			itemRes := model.AuditResourceOrderItem
			itemLogs, err := r.AuditLogs().List(ctx, repo.AuditLogFilter{
				ResourceType: &itemRes,
				ResourceIDs:  itemIDs(items),
				Limit:        200,
			})
			if err != nil {
				return dbError(err)
			}
			logs = append(logs, itemLogs...)
		}

		sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
		out = logs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
