package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderTransitions(t *testing.T) {
	assert.True(t, OrderTransitions.Allows(OrderStatusPending, OrderStatusProcessing))
	assert.True(t, OrderTransitions.Allows(OrderStatusPending, OrderStatusCancelled))
	assert.True(t, OrderTransitions.Allows(OrderStatusProcessing, OrderStatusCancelled))
	assert.True(t, OrderTransitions.Allows(OrderStatusShipped, OrderStatusDelivered))

	assert.False(t, OrderTransitions.Allows(OrderStatusPending, OrderStatusPending))
	assert.False(t, OrderTransitions.Allows(OrderStatusShipped, OrderStatusCancelled))
	assert.False(t, OrderTransitions.Allows(OrderStatusDelivered, OrderStatusPending))
	assert.False(t, OrderTransitions.Allows(OrderStatusCancelled, OrderStatusProcessing))
	assert.False(t, OrderTransitions.Allows(OrderStatusDelivered, OrderStatusReturned))
}

func TestOrderItemTransitions_ReturnedIsNotManual(t *testing.T) {
	assert.True(t, OrderItemTransitions.Allows(OrderItemStatusPending, OrderItemStatusPickup))
	assert.True(t, OrderItemTransitions.Allows(OrderItemStatusPickup, OrderItemStatusDelivered))
	assert.False(t, OrderItemTransitions.Allows(OrderItemStatusDelivered, OrderItemStatusReturned))
	assert.False(t, OrderItemTransitions.Allows(OrderItemStatusShipped, OrderItemStatusCancelled))
}

func TestReturnTransitions(t *testing.T) {
	assert.True(t, ReturnTransitions.Allows(ReturnStatusPending, ReturnStatusApproved))
	assert.True(t, ReturnTransitions.Allows(ReturnStatusPending, ReturnStatusRejected))
	assert.True(t, ReturnTransitions.Allows(ReturnStatusApproved, ReturnStatusReturned))
	assert.False(t, ReturnTransitions.Allows(ReturnStatusRejected, ReturnStatusApproved))
	assert.False(t, ReturnTransitions.Allows(ReturnStatusApproved, ReturnStatusApproved))

	assert.True(t, ReturnStatusPending.RestoresStock(ReturnStatusApproved))
	assert.True(t, ReturnStatusPending.RestoresStock(ReturnStatusReturned))
	assert.False(t, ReturnStatusApproved.RestoresStock(ReturnStatusReturned))
	assert.False(t, ReturnStatusPending.RestoresStock(ReturnStatusRejected))
}

func TestOffer_ActiveAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	o := Offer{
		Status:    OfferStatusActive,
		StartDate: now.Add(-time.Hour),
		EndDate:   now,
	}
	assert.True(t, o.ActiveAt(now))
	assert.False(t, o.ActiveAt(now.Add(time.Second)))
	assert.False(t, o.ActiveAt(now.Add(-2*time.Hour)))

	o.Status = OfferStatusDraft
	assert.False(t, o.ActiveAt(now))
}

func TestOrder_HasSellerItem(t *testing.T) {
	o := Order{Items: []OrderItem{{ID: 1, SellerID: 7}, {ID: 2, SellerID: 9}}}
	assert.True(t, o.HasSellerItem(9))
	assert.False(t, o.HasSellerItem(3))

	it, ok := o.FindItem(2)
	assert.True(t, ok)
	assert.Equal(t, int64(9), it.SellerID)
	_, ok = o.FindItem(5)
	assert.False(t, ok)
}
