package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once checkout commits an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderStatusChangedEvent mirrors a row appended to the status history.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	OldStatus   enums.OrderStatus `json:"old_status"`
	NewStatus   enums.OrderStatus `json:"new_status"`
	Note        string            `json:"note,omitempty"`
	ChangedBy   *uuid.UUID        `json:"changed_by,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderPaymentStatusChangedEvent is emitted when payment_status moves.
type OrderPaymentStatusChangedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	OldStatus   enums.PaymentStatus `json:"old_status"`
	NewStatus   enums.PaymentStatus `json:"new_status"`
	ChangedAt   time.Time           `json:"changed_at"`
}

// OrderItemsChangedEvent is emitted after a line is added to or removed from
// an order and totals were recomputed.
type OrderItemsChangedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Action      string          `json:"action"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Total       decimal.Decimal `json:"total"`
}

const (
	OrderItemsActionAdded   = "added"
	OrderItemsActionRemoved = "removed"
)

// CartMergedEvent is emitted when an anonymous cart is folded into a user cart.
type CartMergedEvent struct {
	SourceCartID uuid.UUID `json:"source_cart_id"`
	TargetCartID uuid.UUID `json:"target_cart_id"`
	UserID       uuid.UUID `json:"user_id"`
	ItemsMerged  int       `json:"items_merged"`
}
