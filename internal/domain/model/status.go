package model

// 状態遷移表。from -> 許可される to の一覧。
type Transitions[S comparable] map[S][]S

// Allows は from から to へ遷移できるか（同じ状態への遷移は不可）
func (t Transitions[S]) Allows(from, to S) bool {
	if from == to {
		return false
	}
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

var OrderTransitions = Transitions[OrderStatus]{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// returned は返品フローだけが付ける
var OrderItemTransitions = Transitions[OrderItemStatus]{
	OrderItemStatusPending:    {OrderItemStatusProcessing, OrderItemStatusPickup, OrderItemStatusCancelled},
	OrderItemStatusProcessing: {OrderItemStatusPickup, OrderItemStatusShipped, OrderItemStatusCancelled},
	OrderItemStatusPickup:     {OrderItemStatusShipped, OrderItemStatusDelivered},
	OrderItemStatusShipped:    {OrderItemStatusDelivered},
}

var ReturnTransitions = Transitions[ReturnStatus]{
	ReturnStatusPending:  {ReturnStatusApproved, ReturnStatusRejected, ReturnStatusReturned},
	ReturnStatusApproved: {ReturnStatusReturned},
}
