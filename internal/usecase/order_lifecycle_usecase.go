package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/telemetry"
	"marketplace/internal/validator"
)

// 注文・明細・返品のステータス変更
type LifecycleUsecase struct {
	tx        repo.TransactionManager
	publisher EventPublisher
	clock     Clock
	timeout   time.Duration
}

func NewLifecycleUsecase(tx repo.TransactionManager, publisher EventPublisher, clock Clock, timeout time.Duration) *LifecycleUsecase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LifecycleUsecase{tx: tx, publisher: publisher, clock: clock, timeout: timeout}
}

// ★監査ログ（変更前後をJSONで）
func writeAudit(ctx context.Context, r repo.TxRepos, actor Actor, action model.AuditAction, res model.AuditResourceType, id int64, before, after map[string]string, now time.Time) error {
	b, err := json.Marshal(before)
	if err != nil {
		return dbError(err)
	}
	a, err := json.Marshal(after)
	if err != nil {
		return dbError(err)
	}
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.ID,
		ActorRole:    actor.Role,
		Action:       action,
		ResourceType: res,
		ResourceID:   id,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    now,
	}); err != nil {
		return dbError(err)
	}
	return nil
}

func loadOrderForUpdate(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, newError(CodeNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, dbError(err)
	}
	return o, nil
}

func reloadOrder(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, dbError(err)
	}
	return o, nil
}

// cancelOrderTx は明細を取り消して在庫を戻し、注文を cancelled にする
func cancelOrderTx(ctx context.Context, r repo.TxRepos, o model.Order, notes *string, now time.Time) ([]model.StockMovement, error) {
	items, err := cancellableItems(o)
	if err != nil {
		return nil, err
	}
	movements, err := releaseItems(ctx, r, o.ID, items, model.StockReasonOrderCancelled)
	if err != nil {
		return nil, err
	}
	if err := r.OrderItems().UpdateStatus(ctx, itemIDs(items), model.OrderItemStatusCancelled, now); err != nil {
		return nil, dbError(err)
	}
	if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusCancelled, now, notes); err != nil {
		return nil, dbError(err)
	}
	return movements, nil
}

// UpdateOrderStatus は管理者か、注文に自分の商品を含むセラーが行う
func (u *LifecycleUsecase) UpdateOrderStatus(ctx context.Context, actor Actor, orderID int64, status string) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, newError(CodeValidation, "invalid id")
	}
	next := model.OrderStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return model.Order{}, newError(CodeValidation, "invalid status")
	}

	ctx, span := tracer.Start(ctx, "UpdateOrderStatus")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	now := u.clock.Now()

	var (
		out       model.Order
		movements []model.StockMovement
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrderForUpdate(ctx, r, orderID)
		if err != nil {
			return err
		}
		if !canActOnOrder(actor, o) {
			return ErrPermissionDenied
		}
		if !model.OrderTransitions.Allows(o.Status, next) {
			return newError(CodeInvalidState, "cannot change order status from %s to %s", o.Status, next)
		}

		// cancelled のときだけ在庫戻し
		if next == model.OrderStatusCancelled {
			movements, err = cancelOrderTx(ctx, r, o, nil, now)
			if err != nil {
				return err
			}
		} else if err := r.Orders().UpdateStatus(ctx, o.ID, next, now, nil); err != nil {
			return dbError(err)
		}

		if err := writeAudit(ctx, r, actor, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, o.ID,
			map[string]string{"status": string(o.Status)},
			map[string]string{"status": string(next)}, now); err != nil {
			return err
		}

		out, err = reloadOrder(ctx, r, o.ID)
		return err
	})
	if err != nil {
		return model.Order{}, err
	}

	recordStock(movements)
	telemetry.StatusTransitionsTotal.WithLabelValues("order", string(next)).Inc()
	evType := model.EventOrderStatusChanged
	if next == model.OrderStatusCancelled {
		evType = model.EventOrderCancelled
	}
	u.publisher.Publish(ctx, model.OrderEvent{
		Type:        evType,
		OrderID:     out.ID,
		OrderNumber: out.OrderNumber,
		UserID:      out.UserID,
		Status:      string(out.Status),
		OccurredAt:  now,
	})
	return out, nil
}

// UpdateOrderItemStatus は明細単位の進行。returned は返品フローだけが付ける
func (u *LifecycleUsecase) UpdateOrderItemStatus(ctx context.Context, actor Actor, itemID int64, status string) (model.OrderItem, error) {
	if itemID <= 0 {
		return model.OrderItem{}, newError(CodeValidation, "invalid id")
	}
	next := model.OrderItemStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return model.OrderItem{}, newError(CodeValidation, "invalid status")
	}

	ctx, span := tracer.Start(ctx, "UpdateOrderItemStatus")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	now := u.clock.Now()

	var (
		out       model.OrderItem
		movements []model.StockMovement
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := r.OrderItems().FindByIDForUpdate(ctx, itemID)
		if errors.Is(err, repo.ErrNotFound) {
			return newError(CodeNotFound, "order item not found")
		}
		if err != nil {
			return dbError(err)
		}
		if !canActOnItem(actor, it) {
			return ErrPermissionDenied
		}
		if !model.OrderItemTransitions.Allows(it.Status, next) {
			return newError(CodeInvalidState, "cannot change item status from %s to %s", it.Status, next)
		}

		if next == model.OrderItemStatusCancelled {
			movements, err = releaseItems(ctx, r, it.OrderID, []model.OrderItem{it}, model.StockReasonItemCancelled)
			if err != nil {
				return err
			}
		}
		if err := r.OrderItems().UpdateStatus(ctx, []int64{it.ID}, next, now); err != nil {
			return dbError(err)
		}

		if err := writeAudit(ctx, r, actor, model.AuditActionUpdateOrderItemStatus, model.AuditResourceOrderItem, it.ID,
			map[string]string{"status": string(it.Status)},
			map[string]string{"status": string(next)}, now); err != nil {
			return err
		}

		out, err = r.OrderItems().FindByIDForUpdate(ctx, it.ID)
		if err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return model.OrderItem{}, err
	}

	recordStock(movements)
	telemetry.StatusTransitionsTotal.WithLabelValues("order_item", string(next)).Inc()
	return out, nil
}

// CancelOrder は購入者本人が pending の注文だけ取り消せる
func (u *LifecycleUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64, reason string) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, ErrUnauthorized
	}
	if orderID <= 0 {
		return model.Order{}, newError(CodeValidation, "invalid id")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return model.Order{}, newError(CodeValidation, "reason too long")
	}

	ctx, span := tracer.Start(ctx, "CancelOrder")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	now := u.clock.Now()

	var (
		out       model.Order
		movements []model.StockMovement
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrderForUpdate(ctx, r, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrPermissionDenied
		}
		if o.Status != model.OrderStatusPending {
			return newError(CodeInvalidState, "only pending orders can be cancelled")
		}

		var notes *string
		if reason != "" {
			n := strings.TrimSpace(fmt.Sprintf("%s\nCancellation reason: %s", o.Notes, reason))
			notes = &n
		}

		movements, err = cancelOrderTx(ctx, r, o, notes, now)
		if err != nil {
			return err
		}

		if err := writeAudit(ctx, r, Actor{ID: userID, Role: model.RoleUser}, model.AuditActionCancelOrder, model.AuditResourceOrder, o.ID,
			map[string]string{"status": string(o.Status)},
			map[string]string{"status": string(model.OrderStatusCancelled), "reason": reason}, now); err != nil {
			return err
		}

		out, err = reloadOrder(ctx, r, o.ID)
		return err
	})
	if err != nil {
		return model.Order{}, err
	}

	recordStock(movements)
	telemetry.StatusTransitionsTotal.WithLabelValues("order", string(model.OrderStatusCancelled)).Inc()
	u.publisher.Publish(ctx, model.OrderEvent{
		Type:        model.EventOrderCancelled,
		OrderID:     out.ID,
		OrderNumber: out.OrderNumber,
		UserID:      out.UserID,
		Status:      string(out.Status),
		OccurredAt:  now,
	})
	return out, nil
}

type ReturnRequestInput struct {
	OrderItemID int64
	Reason      string
	Images      []string
}

func (in *ReturnRequestInput) normalize() error {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.OrderItemID <= 0 {
		return newError(CodeValidation, "invalid order_item_id")
	}
	if in.Reason == "" {
		return newError(CodeValidation, "reason is required")
	}
	if len(in.Reason) > 2000 {
		return newError(CodeValidation, "reason too long")
	}
	if len(in.Images) > 10 {
		return newError(CodeValidation, "too many images")
	}
	for i, img := range in.Images {
		if !validator.IsImageURL(img) {
			return newError(CodeValidation, "images[%d]: invalid url", i)
		}
		in.Images[i] = strings.TrimSpace(img)
	}
	return nil
}

// ReturnOrder は配達済み注文の明細1つに返品申請を作る（在庫は承認時に戻す）
func (u *LifecycleUsecase) ReturnOrder(ctx context.Context, userID int64, orderID int64, in ReturnRequestInput) (model.ReturnOrder, error) {
	if userID <= 0 {
		return model.ReturnOrder{}, ErrUnauthorized
	}
	if orderID <= 0 {
		return model.ReturnOrder{}, newError(CodeValidation, "invalid id")
	}
	if err := in.normalize(); err != nil {
		return model.ReturnOrder{}, err
	}

	ctx, span := tracer.Start(ctx, "ReturnOrder")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	now := u.clock.Now()

	var out model.ReturnOrder
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrderForUpdate(ctx, r, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrPermissionDenied
		}
		if o.Status != model.OrderStatusDelivered {
			return newError(CodeInvalidState, "only delivered orders can be returned")
		}
		it, ok := o.FindItem(in.OrderItemID)
		if !ok {
			return newError(CodeNotFound, "order item %d not found in this order", in.OrderItemID)
		}
		if it.Status == model.OrderItemStatusCancelled || it.Status == model.OrderItemStatusReturned {
			return newError(CodeInvalidState, "order item is %s", it.Status)
		}

		created, err := r.Returns().Create(ctx, model.ReturnOrder{
			OrderID:     o.ID,
			OrderItemID: it.ID,
			UserID:      userID,
			Reason:      in.Reason,
			Images:      in.Images,
			Status:      model.ReturnStatusPending,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return newError(CodeInvalidState, "a return has already been requested for this item")
		}
		if err != nil {
			return dbError(err)
		}

		if err := writeAudit(ctx, r, Actor{ID: userID, Role: model.RoleUser}, model.AuditActionRequestReturn, model.AuditResourceReturn, created.ID,
			map[string]string{},
			map[string]string{"status": string(created.Status), "order_item_id": fmt.Sprint(it.ID)}, now); err != nil {
			return err
		}

		created.OrderItem = &it
		out = created
		return nil
	})
	if err != nil {
		return model.ReturnOrder{}, err
	}

	u.publishReturn(ctx, out, now)
	return out, nil
}

// UpdateReturnStatus は pending から approved/returned に進んだときに1回だけ在庫を戻す
func (u *LifecycleUsecase) UpdateReturnStatus(ctx context.Context, actor Actor, returnID int64, status string) (model.ReturnOrder, error) {
	if returnID <= 0 {
		return model.ReturnOrder{}, newError(CodeValidation, "invalid id")
	}
	next := model.ReturnStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return model.ReturnOrder{}, newError(CodeValidation, "invalid status")
	}

	ctx, span := tracer.Start(ctx, "UpdateReturnStatus")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	now := u.clock.Now()

	var (
		out       model.ReturnOrder
		movements []model.StockMovement
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ro, err := r.Returns().FindByIDForUpdate(ctx, returnID)
		if errors.Is(err, repo.ErrNotFound) {
			return newError(CodeNotFound, "return not found")
		}
		if err != nil {
			return dbError(err)
		}
		if ro.OrderItem == nil || !canActOnItem(actor, *ro.OrderItem) {
			return ErrPermissionDenied
		}
		if !model.ReturnTransitions.Allows(ro.Status, next) {
			return newError(CodeInvalidState, "cannot change return status from %s to %s", ro.Status, next)
		}

		item := *ro.OrderItem
		if ro.Status.RestoresStock(next) {
			movements, err = releaseItems(ctx, r, ro.OrderID, []model.OrderItem{item}, model.StockReasonReturnAccepted)
			if err != nil {
				return err
			}
			if err := r.OrderItems().UpdateStatus(ctx, []int64{item.ID}, model.OrderItemStatusReturned, now); err != nil {
				return dbError(err)
			}
			item.Status = model.OrderItemStatusReturned
			item.ReturnedAt = &now
		}

		if err := r.Returns().UpdateStatus(ctx, ro.ID, next); err != nil {
			return dbError(err)
		}

		if err := writeAudit(ctx, r, actor, model.AuditActionUpdateReturnStatus, model.AuditResourceReturn, ro.ID,
			map[string]string{"status": string(ro.Status)},
			map[string]string{"status": string(next)}, now); err != nil {
			return err
		}

		ro.Status = next
		ro.OrderItem = &item
		out = ro
		return nil
	})
	if err != nil {
		return model.ReturnOrder{}, err
	}

	recordStock(movements)
	telemetry.StatusTransitionsTotal.WithLabelValues("return", string(next)).Inc()
	u.publishReturn(ctx, out, now)
	return out, nil
}

func (u *LifecycleUsecase) publishReturn(ctx context.Context, ro model.ReturnOrder, now time.Time) {
	id := ro.ID
	u.publisher.Publish(ctx, model.OrderEvent{
		Type:       model.EventReturnUpdated,
		OrderID:    ro.OrderID,
		UserID:     ro.UserID,
		Status:     string(ro.Status),
		ReturnID:   &id,
		OccurredAt: now,
	})
}

type ListReturnsInput struct {
	Page   int
	Limit  int
	Status string
}

type ReturnListOutput struct {
	Items []model.ReturnOrder
	Total int64
	Page  int
	Limit int
}

// ListReturns: 購入者は自分の申請、セラーは自分の明細への申請、管理者は全件
func (u *LifecycleUsecase) ListReturns(ctx context.Context, actor Actor, in ListReturnsInput) (ReturnListOutput, error) {
	page, limit, err := pageParams(in.Page, in.Limit)
	if err != nil {
		return ReturnListOutput{}, err
	}
	status := strings.TrimSpace(in.Status)
	if status != "" && !model.ReturnStatus(status).Valid() {
		return ReturnListOutput{}, newError(CodeValidation, "invalid status")
	}

	f := repo.ReturnListFilter{Page: page, Limit: limit, Status: status}
	switch actor.Role {
	case model.RoleUser:
		f.UserID = &actor.ID
	case model.RoleSeller:
		f.SellerID = &actor.ID
	case model.RoleAdmin:
	default:
		return ReturnListOutput{}, ErrPermissionDenied
	}

	var out ReturnListOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, total, err := r.Returns().List(ctx, f)
		if err != nil {
			return dbError(err)
		}
		out = ReturnListOutput{Items: list, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ReturnListOutput{}, err
	}
	return out, nil
}
