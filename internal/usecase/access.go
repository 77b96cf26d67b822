package usecase

import "marketplace/internal/domain/model"

// 操作するユーザー（JWT から取り出したもの）
type Actor struct {
	ID   int64
	Role model.Role
}

func (a Actor) IsAdmin() bool  { return a.Role == model.RoleAdmin }
func (a Actor) IsSeller() bool { return a.Role == model.RoleSeller }

// canViewOrder: 購入者本人、管理者、明細を1つでも持つセラー
func canViewOrder(a Actor, o model.Order) bool {
	if a.IsAdmin() || o.UserID == a.ID {
		return true
	}
	return a.IsSeller() && o.HasSellerItem(a.ID)
}

// canActOnOrder: 管理者、または自分の商品を含む注文のセラー
func canActOnOrder(a Actor, o model.Order) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsSeller() && o.HasSellerItem(a.ID)
}

// canActOnItem: 管理者、またはその明細のセラー
func canActOnItem(a Actor, it model.OrderItem) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsSeller() && it.SellerID == a.ID
}

// セラーには自分の明細だけ見せる
func visibleItems(a Actor, o model.Order) []model.OrderItem {
	if !a.IsSeller() || o.UserID == a.ID {
		return o.Items
	}
	out := make([]model.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		if it.SellerID == a.ID {
			out = append(out, it)
		}
	}
	return out
}
