package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var forwardEdges = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {enums.OrderStatusRefunded},
}

// CanTransition reports whether an order in status from may move to status to.
// A paid order may additionally be refunded from any live status.
func CanTransition(from, to enums.OrderStatus, payment enums.PaymentStatus) bool {
	if from == to || !to.IsValid() {
		return false
	}
	for _, next := range forwardEdges[from] {
		if next == to {
			return true
		}
	}
	if to == enums.OrderStatusRefunded && payment == enums.PaymentStatusPaid {
		return from != enums.OrderStatusCancelled && from != enums.OrderStatusRefunded
	}
	return false
}

// CanBeCancelled reports whether the order has not shipped yet.
func CanBeCancelled(order *models.Order) bool {
	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusProcessing:
		return true
	}
	return false
}

// CanBeRefunded reports whether the order is paid and still live.
func CanBeRefunded(order *models.Order) bool {
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return false
	}
	return order.Status != enums.OrderStatusCancelled && order.Status != enums.OrderStatusRefunded
}

// releasesStock reports whether moving from status from to status to hands
// the reserved units back to the catalog. Refunds only restock orders that
// never left the warehouse.
func releasesStock(from, to enums.OrderStatus) bool {
	switch to {
	case enums.OrderStatusCancelled:
		return true
	case enums.OrderStatusRefunded:
		return CanBeCancelled(&models.Order{Status: from})
	}
	return false
}

// itemsEditable reports whether lines may still be added or removed.
func itemsEditable(order *models.Order) bool {
	return order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusConfirmed
}

// statusUpdates returns the column changes for entering status. Lifecycle
// timestamps are only ever set once.
func statusUpdates(order *models.Order, status enums.OrderStatus, now time.Time) map[string]any {
	updates := map[string]any{"status": status, "updated_at": now}
	switch status {
	case enums.OrderStatusShipped:
		if order.ShippedAt == nil {
			updates["shipped_at"] = now
		}
	case enums.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			updates["delivered_at"] = now
		}
	case enums.OrderStatusCancelled:
		if order.CancelledAt == nil {
			updates["cancelled_at"] = now
		}
	}
	return updates
}

// paymentUpdates returns the column changes for entering payment status.
func paymentUpdates(order *models.Order, status enums.PaymentStatus, now time.Time) map[string]any {
	updates := map[string]any{"payment_status": status, "updated_at": now}
	if status == enums.PaymentStatusPaid && order.PaidAt == nil {
		updates["paid_at"] = now
	}
	return updates
}
