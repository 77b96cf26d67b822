package handler

import (
	"context"
	"net/http"

	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// セラー・管理者が進めるステータス変更
type FulfillmentService interface {
	UpdateOrderStatus(ctx context.Context, actor usecase.Actor, orderID int64, status string) (model.Order, error)
	UpdateOrderItemStatus(ctx context.Context, actor usecase.Actor, itemID int64, status string) (model.OrderItem, error)
	UpdateReturnStatus(ctx context.Context, actor usecase.Actor, returnID int64, status string) (model.ReturnOrder, error)
	ListReturns(ctx context.Context, actor usecase.Actor, in usecase.ListReturnsInput) (usecase.ReturnListOutput, error)
}

type FulfillmentHandler struct {
	uc FulfillmentService
}

func NewFulfillmentHandler(uc FulfillmentService) *FulfillmentHandler {
	return &FulfillmentHandler{uc: uc}
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *FulfillmentHandler) RegisterRoutes(g *echo.Group) {
	staff := middleware.RoleGuard(model.RoleAdmin, model.RoleSeller)

	// 返品一覧は購入者も自分の分を見られる
	g.GET("/returns/all", h.listReturns)

	g.PATCH("/:id", h.updateOrderStatus, staff)
	g.PATCH("/items/:id/status", h.updateItemStatus, staff)
	g.PATCH("/returns/:id/status", h.updateReturnStatus, staff)
}

func (h *FulfillmentHandler) updateOrderStatus(c echo.Context) error {
	actor, id, req, ok, err := h.statusRequest(c)
	if !ok {
		return err
	}

	out, err := h.uc.UpdateOrderStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *FulfillmentHandler) updateItemStatus(c echo.Context) error {
	actor, id, req, ok, err := h.statusRequest(c)
	if !ok {
		return err
	}

	out, err := h.uc.UpdateOrderItemStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *FulfillmentHandler) updateReturnStatus(c echo.Context) error {
	actor, id, req, ok, err := h.statusRequest(c)
	if !ok {
		return err
	}

	out, err := h.uc.UpdateReturnStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

// 共通: actor・:id・{status} を取り出す。ok=false ならレスポンス済み
func (h *FulfillmentHandler) statusRequest(c echo.Context) (usecase.Actor, int64, StatusUpdateRequest, bool, error) {
	var req StatusUpdateRequest

	actor, ok := getActorFromContext(c)
	if !ok {
		return actor, 0, req, false, c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return actor, 0, req, false, c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid id"})
	}
	if err := c.Bind(&req); err != nil {
		return actor, 0, req, false, c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid body"})
	}
	return actor, id, req, true, nil
}

func (h *FulfillmentHandler) listReturns(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
	}
	page, limit, ok := parsePage(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid page or limit"})
	}

	out, err := h.uc.ListReturns(c.Request().Context(), actor, usecase.ListReturnsInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
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
