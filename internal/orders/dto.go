package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilter narrows order listings. A nil UserID lists every customer's
// orders. Search matches order number, customer email and the shipping name.
type ListFilter struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Search        string
	Ordering      Ordering
}

// OrderSummary is the list representation of an order.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	ItemCount     int                 `json:"item_count"`
	ShipTo        string              `json:"full_shipping_address"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList is a cursor-paginated page of orders.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderItemDTO is an order line as exposed over the API.
type OrderItemDTO struct {
	ID          uuid.UUID              `json:"id"`
	ProductID   uuid.UUID              `json:"product_id"`
	ProductName string                 `json:"product_name"`
	ProductSKU  string                 `json:"product_sku"`
	ProductData models.ProductSnapshot `json:"product_data"`
	Quantity    int                    `json:"quantity"`
	UnitPrice   decimal.Decimal        `json:"unit_price"`
	TotalPrice  decimal.Decimal        `json:"total_price"`
	CreatedAt   time.Time              `json:"created_at"`
}

// HistoryEntryDTO is one row of the status ledger.
type HistoryEntryDTO struct {
	ID        uuid.UUID          `json:"id"`
	OldStatus *enums.OrderStatus `json:"old_status"`
	NewStatus enums.OrderStatus  `json:"new_status"`
	Note      *string            `json:"notes,omitempty"`
	ActorID   *uuid.UUID         `json:"changed_by,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// OrderDetail is the full representation of an order.
type OrderDetail struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	CustomerEmail string  `json:"customer_email"`
	CustomerPhone *string `json:"customer_phone,omitempty"`

	ShippingAddress     types.Address `json:"shipping_address"`
	BillingAddress      types.Address `json:"billing_address"`
	FullShippingAddress string        `json:"full_shipping_address"`
	FullBillingAddress  string        `json:"full_billing_address"`
	ShippingMethodID    *uuid.UUID    `json:"shipping_method_id,omitempty"`

	PaymentMethod   *string `json:"payment_method,omitempty"`
	TransactionID   *string `json:"transaction_id,omitempty"`
	TrackingNumber  *string `json:"tracking_number,omitempty"`
	ShippingCarrier *string `json:"shipping_carrier,omitempty"`
	CustomerNotes   *string `json:"customer_notes,omitempty"`
	AdminNotes      *string `json:"admin_notes,omitempty"`

	Items          []OrderItemDTO    `json:"items"`
	ItemCount      int               `json:"item_count"`
	StatusHistory  []HistoryEntryDTO `json:"status_history,omitempty"`
	CanBeCancelled bool              `json:"can_be_cancelled"`
	CanBeRefunded  bool              `json:"can_be_refunded"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Stats aggregates order counts and paid revenue.
type Stats struct {
	TotalOrders     int64           `json:"total_orders"`
	PendingOrders   int64           `json:"pending_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	CancelledOrders int64           `json:"cancelled_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

// AddItemInput adds units of a product to an editable order.
type AddItemInput struct {
	OrderID   uuid.UUID
	OwnerID   *uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	ActorID   *uuid.UUID
}

// RemoveItemInput deletes a line from an editable order.
type RemoveItemInput struct {
	OrderID uuid.UUID
	OwnerID *uuid.UUID
	ItemID  uuid.UUID
	ActorID *uuid.UUID
}

// TransitionInput moves an order to a new status.
type TransitionInput struct {
	OrderID uuid.UUID
	OwnerID *uuid.UUID
	Status  enums.OrderStatus
	ActorID *uuid.UUID
	Note    string
}

// PaymentTransitionInput records a payment status change. When Status is set
// the order status moves in the same transaction.
type PaymentTransitionInput struct {
	OrderID       uuid.UUID
	PaymentStatus enums.PaymentStatus
	Status        *enums.OrderStatus
	ActorID       *uuid.UUID
	TransactionID *string
	Note          string
}

// CancelInput is a customer-initiated cancellation.
type CancelInput struct {
	OrderID uuid.UUID
	OwnerID *uuid.UUID
	ActorID *uuid.UUID
}

// ShipInput marks an order shipped with tracking details.
type ShipInput struct {
	OrderID        uuid.UUID
	TrackingNumber string
	Carrier        string
	ActorID        *uuid.UUID
}

// UpdateInput edits staff-managed order fields. Nil fields are left alone and
// blank strings clear the column.
type UpdateInput struct {
	OrderID         uuid.UUID
	TrackingNumber  *string
	ShippingCarrier *string
	AdminNotes      *string
	ActorID         *uuid.UUID
}

// ToDetail maps the order, its lines and optional history to the API shape.
func ToDetail(order *models.Order, items []models.OrderItem, history []models.OrderStatusHistory) *OrderDetail {
	detail := &OrderDetail{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		UserID:              order.UserID,
		Status:              order.Status,
		PaymentStatus:       order.PaymentStatus,
		Subtotal:            order.Subtotal,
		TaxAmount:           order.TaxAmount,
		ShippingCost:        order.ShippingCost,
		DiscountAmount:      order.DiscountAmount,
		TotalAmount:         order.TotalAmount,
		CustomerEmail:       order.CustomerEmail,
		CustomerPhone:       order.CustomerPhone,
		ShippingAddress:     order.ShippingAddress,
		BillingAddress:      order.BillingAddress,
		FullShippingAddress: order.ShippingAddress.Full(),
		FullBillingAddress:  order.BillingAddress.Full(),
		ShippingMethodID:    order.ShippingMethodID,
		PaymentMethod:       order.PaymentMethod,
		TransactionID:       order.TransactionID,
		TrackingNumber:      order.TrackingNumber,
		ShippingCarrier:     order.ShippingCarrier,
		CustomerNotes:       order.CustomerNotes,
		AdminNotes:          order.AdminNotes,
		Items:               make([]OrderItemDTO, 0, len(items)),
		ItemCount:           len(items),
		CanBeCancelled:      CanBeCancelled(order),
		CanBeRefunded:       CanBeRefunded(order),
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
		PaidAt:              order.PaidAt,
		ShippedAt:           order.ShippedAt,
		DeliveredAt:         order.DeliveredAt,
		CancelledAt:         order.CancelledAt,
	}
	for _, item := range items {
		detail.Items = append(detail.Items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			ProductData: item.ProductData,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
			CreatedAt:   item.CreatedAt,
		})
	}
	if len(history) > 0 {
		detail.StatusHistory = HistoryFromModels(history)
	}
	return detail
}

// HistoryFromModels maps ledger rows to DTOs preserving order.
func HistoryFromModels(rows []models.OrderStatusHistory) []HistoryEntryDTO {
	out := make([]HistoryEntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryEntryDTO{
			ID:        row.ID,
			OldStatus: row.OldStatus,
			NewStatus: row.NewStatus,
			Note:      row.Note,
			ActorID:   row.ActorID,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}
