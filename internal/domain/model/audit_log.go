package model

import "time"

// 注文・明細・返品のステータス変更など。
type AuditAction string

const (
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//明細ステータスを更新した操作。
	AuditActionUpdateOrderItemStatus AuditAction = "UPDATE_ORDER_ITEM_STATUS"
	//購入者によるキャンセル。
	AuditActionCancelOrder AuditAction = "CANCEL_ORDER"
	//返品申請。
	AuditActionRequestReturn AuditAction = "REQUEST_RETURN"
	//返品ステータスの更新。
	AuditActionUpdateReturnStatus AuditAction = "UPDATE_RETURN_STATUS"
)

// 何に対する操作か
type AuditResourceType string

const (
	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"

	//注文明細に対する操作。
	AuditResourceOrderItem AuditResourceType = "order_item"

	//返品に対する操作。
	AuditResourceReturn AuditResourceType = "return_order"
)

// 監査ログ（ステータス変更の履歴）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	//IDは監査ログの主キー
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	//操作時のロール（user / seller / admin）。
	ActorRole Role `gorm:"type:varchar(20);not null" json:"actor_role"`

	//Actionは操作の種類（UPDATE_ORDER_STATUS / CANCEL_ORDER など）。
	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	//対象の種類（order / order_item / return_order）。
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//対象のID。
	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//変更前。JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//変更後。JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	//作成時刻
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
