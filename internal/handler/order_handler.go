package handler

import (
	"context"
	"net/http"

	"marketplace/internal/domain/model"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, in usecase.CreateOrderInput) (model.Order, error)
	ListOrders(ctx context.Context, actor usecase.Actor, in usecase.ListOrdersInput) (usecase.OrderListOutput, error)
	GetOrder(ctx context.Context, actor usecase.Actor, orderID int64) (model.Order, error)
	OrderHistory(ctx context.Context, actor usecase.Actor, orderID int64) ([]model.AuditLog, error)
}

// 購入者向けの取消・返品申請
type BuyerLifecycleService interface {
	CancelOrder(ctx context.Context, userID int64, orderID int64, reason string) (model.Order, error)
	ReturnOrder(ctx context.Context, userID int64, orderID int64, in usecase.ReturnRequestInput) (model.ReturnOrder, error)
}

type OrderHandler struct {
	orders    OrderService
	lifecycle BuyerLifecycleService
}

func NewOrderHandler(orders OrderService, lifecycle BuyerLifecycleService) *OrderHandler {
	return &OrderHandler{orders: orders, lifecycle: lifecycle}
}

type OrderItemRequest struct {
	ProductID int64  `json:"productId"`
	VariantID *int64 `json:"variantId"`
	Quantity  int64  `json:"quantity"`
}

type OrderCreateRequest struct {
	DeliveryAddressID int64              `json:"deliveryAddressId"`
	PickupAddressID   int64              `json:"pickupAddressId"`
	PaymentMethod     string             `json:"paymentMethod"`
	Items             []OrderItemRequest `json:"items"`
	CouponCode        string             `json:"couponCode"`
	Notes             string             `json:"notes"`
}

type OrderCancelRequest struct {
	Reason string `json:"reason"`
}

type ReturnCreateRequest struct {
	OrderItemID int64    `json:"orderItemId"`
	Reason      string   `json:"reason"`
	Images      []string `json:"images"`
}

// 認証は呼び出し側（server）で付ける
func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.GET("/:id/history", h.history)
	g.POST("/:id/cancel", h.cancel)
	g.POST("/:id/return", h.requestReturn)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid body"})
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("Idempotency-Key")
	if idemKey == "" {
		idemKey = c.Request().Header.Get("X-Idempotency-Key")
	}

	items := make([]usecase.CreateOrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CreateOrderItemInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}

	out, err := h.orders.CreateOrder(c.Request().Context(), actor.ID, usecase.CreateOrderInput{
		DeliveryAddressID: req.DeliveryAddressID,
		PickupAddressID:   req.PickupAddressID,
		PaymentMethod:     req.PaymentMethod,
		Items:             items,
		CouponCode:        req.CouponCode,
		Notes:             req.Notes,
		IdempotencyKey:    idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}
	page, limit, ok := parsePage(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid page or limit"})
	}

	out, err := h.orders.ListOrders(c.Request().Context(), actor, usecase.ListOrdersInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ListResponse{
		Status: "success",
		Data:   out.Items,
		Total:  out.Total,
		Page:   out.Page,
		Limit:  out.Limit,
	})
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid id"})
	}

	out, err := h.orders.GetOrder(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *OrderHandler) history(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid id"})
	}

	out, err := h.orders.OrderHistory(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid id"})
	}

	var req OrderCancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid body"})
	}

	out, err := h.lifecycle.CancelOrder(c.Request().Context(), actor.ID, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *OrderHandler) requestReturn(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid id"})
	}

	var req ReturnCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid body"})
	}

	out, err := h.lifecycle.ReturnOrder(c.Request().Context(), actor.ID, id, usecase.ReturnRequestInput{
		OrderItemID: req.OrderItemID,
		Reason:      req.Reason,
		Images:      req.Images,
	})
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}
