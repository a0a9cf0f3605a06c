package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/history"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	noteCancelledByUser = "Order cancelled by user"
	noteShippedFormat   = "Order shipped with %s. Tracking: %s"
)

// Service exposes the order engine.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, ownerID *uuid.UUID) (*OrderDetail, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderList, error)
	Stats(ctx context.Context, ownerID *uuid.UUID) (*Stats, error)
	History(ctx context.Context, orderID uuid.UUID, ownerID *uuid.UUID) ([]HistoryEntryDTO, error)
	AddItem(ctx context.Context, input AddItemInput) (*OrderDetail, error)
	RemoveItem(ctx context.Context, input RemoveItemInput) (*OrderDetail, error)
	TransitionStatus(ctx context.Context, input TransitionInput) (*OrderDetail, error)
	TransitionPaymentStatus(ctx context.Context, input PaymentTransitionInput) (*OrderDetail, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderDetail, error)
	MarkShipped(ctx context.Context, input ShipInput) (*OrderDetail, error)
	RecalculateTotals(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	Update(ctx context.Context, input UpdateInput) (*OrderDetail, error)
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Products catalog.ProductRepository
	History  history.Ledger
	Tx       txRunner
	Events   outbox.Emitter
	Logger   *logger.Logger
	Metrics  OrderMetrics
}

type service struct {
	repo     Repository
	products catalog.ProductRepository
	history  history.Ledger
	tx       txRunner
	events   outbox.Emitter
	logg     *logger.Logger
	metrics  OrderMetrics
	now      func() time.Time
}

type noopMetrics struct{}

func (noopMetrics) IncTransition(string, string) {}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		history:  params.History,
		tx:       params.Tx,
		events:   params.Events,
		logg:     params.Logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, ownerID *uuid.UUID) (*OrderDetail, error) {
	order, err := loadOrder(ctx, s.repo, orderID, ownerID, false)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, s.repo, s.history, order, true)
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderList, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if filter.PaymentStatus != nil && !filter.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}
	if utf8.RuneCountInString(filter.Search) > maxSearchLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search term too long")
	}
	if filter.Ordering == "" {
		filter.Ordering = DefaultOrdering
	}
	if _, err := ParseOrdering(string(filter.Ordering)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ordering")
	}
	list, err := s.repo.List(ctx, filter, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list orders")
	}
	return list, nil
}

func (s *service) Stats(ctx context.Context, ownerID *uuid.UUID) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order stats")
	}
	return stats, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID, ownerID *uuid.UUID) ([]HistoryEntryDTO, error) {
	if _, err := loadOrder(ctx, s.repo, orderID, ownerID, false); err != nil {
		return nil, err
	}
	rows, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order history")
	}
	return HistoryFromModels(rows), nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*OrderDetail, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		order, err := loadOrder(ctx, repo, input.OrderID, input.OwnerID, true)
		if err != nil {
			return err
		}
		if !itemsEditable(order) {
			return invalidState(order, "items can only change while the order is pending or confirmed")
		}

		product, err := products.FindByID(ctx, input.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load product")
		}
		if !product.IsPublished() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		reserved, err := products.Reserve(ctx, product.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to reserve stock")
		}
		if !reserved {
			return OutOfStock(product, input.Quantity)
		}

		existing, err := repo.FindItemByProduct(ctx, order.ID, product.ID)
		switch {
		case err == nil:
			existing.Quantity += input.Quantity
			if err := repo.SaveItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update order item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line := SnapshotItem(order.ID, product, input.Quantity)
			if err := repo.CreateItems(ctx, []models.OrderItem{line}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create order item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order item")
		}

		totals, err := Recalculate(ctx, repo, order, s.now())
		if err != nil {
			return err
		}
		if err := s.emitItemsChanged(ctx, tx, order, payloads.OrderItemsActionAdded, product.ID, input.Quantity, totals, input.ActorID); err != nil {
			return err
		}
		detail, err = s.detail(ctx, repo, nil, order, false)
		return err
	})
	return detail, err
}

func (s *service) RemoveItem(ctx context.Context, input RemoveItemInput) (*OrderDetail, error) {
	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := loadOrder(ctx, repo, input.OrderID, input.OwnerID, true)
		if err != nil {
			return err
		}
		if !itemsEditable(order) {
			return invalidState(order, "items can only change while the order is pending or confirmed")
		}

		item, err := repo.FindItem(ctx, order.ID, input.ItemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order item")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to delete order item")
		}
		if err := s.products.WithTx(tx).Release(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to release stock")
		}

		totals, err := Recalculate(ctx, repo, order, s.now())
		if err != nil {
			return err
		}
		if err := s.emitItemsChanged(ctx, tx, order, payloads.OrderItemsActionRemoved, item.ProductID, item.Quantity, totals, input.ActorID); err != nil {
			return err
		}
		detail, err = s.detail(ctx, repo, nil, order, false)
		return err
	})
	return detail, err
}

func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*OrderDetail, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	var (
		detail *OrderDetail
		from   enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID, input.OwnerID, true)
		if err != nil {
			return err
		}
		from = order.Status
		if err := s.transition(ctx, tx, order, input.Status, input.ActorID, input.Note); err != nil {
			return err
		}
		detail, err = s.detail(ctx, repo, nil, order, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, detail, from, input.ActorID)
	return detail, nil
}

func (s *service) TransitionPaymentStatus(ctx context.Context, input PaymentTransitionInput) (*OrderDetail, error) {
	if !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	var (
		detail *OrderDetail
		from   enums.OrderStatus
		moved  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID, nil, true)
		if err != nil {
			return err
		}
		from = order.Status

		now := s.now()
		previous := order.PaymentStatus
		updates := paymentUpdates(order, input.PaymentStatus, now)
		if input.TransactionID != nil {
			updates["transaction_id"] = strings.TrimSpace(*input.TransactionID)
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update payment status")
		}
		order.PaymentStatus = input.PaymentStatus
		if paidAt, ok := updates["paid_at"].(time.Time); ok {
			order.PaidAt = &paidAt
		}
		if input.TransactionID != nil {
			txID := strings.TrimSpace(*input.TransactionID)
			order.TransactionID = &txID
		}

		if previous != input.PaymentStatus {
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaymentStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(input.ActorID),
				Data: payloads.OrderPaymentStatusChangedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					OldStatus:   previous,
					NewStatus:   input.PaymentStatus,
					ChangedAt:   now,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to queue payment event")
			}
		}

		if input.Status != nil && *input.Status != order.Status {
			if err := s.transition(ctx, tx, order, *input.Status, input.ActorID, input.Note); err != nil {
				return err
			}
			moved = true
		}
		detail, err = s.detail(ctx, repo, nil, order, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	if moved {
		s.logTransition(ctx, detail, from, input.ActorID)
	}
	return detail, nil
}

// Cancel lets a customer cancel an order that has not shipped yet.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderDetail, error) {
	return s.TransitionStatus(ctx, TransitionInput{
		OrderID: input.OrderID,
		OwnerID: input.OwnerID,
		Status:  enums.OrderStatusCancelled,
		ActorID: input.ActorID,
		Note:    noteCancelledByUser,
	})
}

// MarkShipped records tracking details and moves the order to shipped.
func (s *service) MarkShipped(ctx context.Context, input ShipInput) (*OrderDetail, error) {
	tracking := strings.TrimSpace(input.TrackingNumber)
	carrier := strings.TrimSpace(input.Carrier)
	if tracking == "" || carrier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number and carrier are required")
	}

	var (
		detail *OrderDetail
		from   enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID, nil, true)
		if err != nil {
			return err
		}
		from = order.Status
		if !CanTransition(order.Status, enums.OrderStatusShipped, order.PaymentStatus) {
			return invalidTransition(order.Status, enums.OrderStatusShipped)
		}
		if err := repo.Update(ctx, order.ID, map[string]any{
			"tracking_number":  tracking,
			"shipping_carrier": carrier,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store tracking details")
		}
		order.TrackingNumber = &tracking
		order.ShippingCarrier = &carrier

		note := fmt.Sprintf(noteShippedFormat, carrier, tracking)
		if err := s.transition(ctx, tx, order, enums.OrderStatusShipped, input.ActorID, note); err != nil {
			return err
		}
		detail, err = s.detail(ctx, repo, nil, order, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, detail, from, input.ActorID)
	return detail, nil
}

// Update writes staff-managed fields. Status changes go through
// TransitionStatus so the ledger stays complete.
func (s *service) Update(ctx context.Context, input UpdateInput) (*OrderDetail, error) {
	updates := map[string]any{}
	for column, value := range map[string]*string{
		"tracking_number":  input.TrackingNumber,
		"shipping_carrier": input.ShippingCarrier,
		"admin_notes":      input.AdminNotes,
	} {
		if value == nil {
			continue
		}
		if v := strings.TrimSpace(*value); v != "" {
			updates[column] = v
		} else {
			updates[column] = nil
		}
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID, nil, true)
		if err != nil {
			return err
		}
		updates["updated_at"] = s.now()
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update order")
		}
		order, err = loadOrder(ctx, repo, order.ID, nil, false)
		if err != nil {
			return err
		}
		detail, err = s.detail(ctx, repo, nil, order, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(updates))
	for column := range updates {
		if column != "updated_at" {
			fields = append(fields, column)
		}
	}
	sort.Strings(fields)
	logFields := map[string]any{"order_number": detail.OrderNumber, "fields": fields}
	if input.ActorID != nil {
		logFields["actor_id"] = input.ActorID.String()
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, detail.ID.String()), logFields), "order updated")
	return detail, nil
}

func (s *service) RecalculateTotals(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID, nil, true)
		if err != nil {
			return err
		}
		if _, err := Recalculate(ctx, repo, order, s.now()); err != nil {
			return err
		}
		detail, err = s.detail(ctx, repo, nil, order, false)
		return err
	})
	return detail, err
}

// transition moves a locked order to status to inside tx: it applies the
// timestamp side effects, releases stock for unshipped exits, appends the ledger
// row and queues the status event.
func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actorID *uuid.UUID, note string) error {
	from := order.Status
	if !CanTransition(from, to, order.PaymentStatus) {
		return invalidTransition(from, to)
	}

	now := s.now()
	updates := statusUpdates(order, to, now)
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update order status")
	}
	order.Status = to
	order.UpdatedAt = now
	if _, ok := updates["shipped_at"]; ok {
		order.ShippedAt = &now
	}
	if _, ok := updates["delivered_at"]; ok {
		order.DeliveredAt = &now
	}
	if _, ok := updates["cancelled_at"]; ok {
		order.CancelledAt = &now
	}

	if releasesStock(from, to) {
		if err := s.releaseStock(ctx, tx, order.ID); err != nil {
			return err
		}
	}

	if _, err := s.history.WithTx(tx).Append(ctx, history.Entry{
		OrderID:   order.ID,
		OldStatus: &from,
		NewStatus: to,
		Note:      note,
		ActorID:   actorID,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to append status history")
	}

	if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actorID),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			OldStatus:   from,
			NewStatus:   to,
			Note:        note,
			ChangedBy:   actorID,
			ChangedAt:   now,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to queue status event")
	}
	return nil
}

func (s *service) releaseStock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	items, err := s.repo.WithTx(tx).ListItems(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order items")
	}
	products := s.products.WithTx(tx)
	for _, item := range items {
		if err := products.Release(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to release stock")
		}
	}
	return nil
}

func (s *service) emitItemsChanged(ctx context.Context, tx *gorm.DB, order *models.Order, action string, productID uuid.UUID, qty int, totals Totals, actorID *uuid.UUID) error {
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderItemsChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actorID),
		Data: payloads.OrderItemsChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Action:      action,
			ProductID:   productID,
			Quantity:    qty,
			Subtotal:    totals.Subtotal,
			Total:       totals.TotalAmount,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to queue items event")
	}
	return nil
}

func (s *service) detail(ctx context.Context, repo Repository, ledger history.Ledger, order *models.Order, withHistory bool) (*OrderDetail, error) {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order items")
	}
	var rows []models.OrderStatusHistory
	if withHistory && ledger != nil {
		rows, err = ledger.ListByOrder(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order history")
		}
	}
	return ToDetail(order, items, rows), nil
}

func (s *service) logTransition(ctx context.Context, detail *OrderDetail, from enums.OrderStatus, actorID *uuid.UUID) {
	s.metrics.IncTransition(string(from), string(detail.Status))
	logCtx := s.logg.WithOrderID(ctx, detail.ID.String())
	fields := map[string]any{
		"order_number": detail.OrderNumber,
		"from_status":  from,
		"to_status":    detail.Status,
	}
	if actorID != nil {
		fields["actor_id"] = actorID.String()
	}
	s.logg.Info(s.logg.WithFields(logCtx, fields), "order status transitioned")
}

// Recalculate recomputes and persists the totals of order from its current lines.
func Recalculate(ctx context.Context, repo Repository, order *models.Order, now time.Time) (Totals, error) {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order items")
	}
	totals := ComputeTotals(order, items)
	updates := totals.columns()
	updates["updated_at"] = now
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to persist order totals")
	}
	totals.Apply(order)
	order.UpdatedAt = now
	return totals, nil
}

// SnapshotItem freezes the product's identity and current price onto a new line.
func SnapshotItem(orderID uuid.UUID, product *models.Product, qty int) models.OrderItem {
	item := models.OrderItem{
		OrderID:     orderID,
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		ProductData: models.ProductSnapshot{
			Name:        product.Name,
			Slug:        product.Slug,
			Description: product.ShortDescription,
			Image:       product.ImageURL,
			Brand:       product.Brand,
			Category:    product.Category,
		},
		Quantity:  qty,
		UnitPrice: product.Price,
	}
	item.Reprice()
	return item
}

// OutOfStock builds the error returned when a reservation cannot be satisfied.
func OutOfStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("insufficient stock for %s", product.Name)).
		WithDetails(map[string]any{
			"product_id": product.ID,
			"requested":  requested,
		})
}

func loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID, ownerID *uuid.UUID, lock bool) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	if lock {
		order, err = repo.LockByID(ctx, orderID)
	} else {
		order, err = repo.FindByID(ctx, orderID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order")
	}
	if ownerID != nil && order.UserID != *ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func invalidState(order *models.Order, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, message).
		WithDetails(map[string]any{"status": order.Status})
}

func actorRef(actorID *uuid.UUID) *outbox.ActorRef {
	if actorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actorID}
}
