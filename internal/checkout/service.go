// Package checkout converts a signed-in shopper's cart into an order in a
// single transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/history"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	noteOrderCreated      = "Order created"
	orderNumberConstraint = "ux_orders_order_number"
	defaultMaxAttempts    = 5
	defaultCurrency       = "USD"
)

var errEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")

// CreateOrderInput carries the checkout form.
type CreateOrderInput struct {
	UserID                uuid.UUID
	ShippingAddress       *types.Address
	BillingAddress        *types.Address
	BillingSameAsShipping bool
	ShippingMethodID      *uuid.UUID
	CustomerPhone         *string
	CustomerNotes         *string
	PaymentMethod         *string
}

// Service executes checkout orchestration.
type Service interface {
	CreateOrderFromCart(ctx context.Context, input CreateOrderInput) (*orders.OrderDetail, error)
}

// Metrics receives checkout outcomes.
type Metrics interface {
	ObserveCheckout(outcome string, took time.Duration)
	IncNumberCollision()
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Tx          txRunner
	Users       users.UserRepository
	Carts       cart.CartRepository
	Products    catalog.ProductRepository
	Shipping    catalog.ShippingRepository
	Orders      orders.Repository
	History     history.Ledger
	Events      outbox.Emitter
	Numbers     orders.NumberGenerator
	MaxAttempts int
	Metrics     Metrics
	Logger      *logger.Logger
}

type service struct {
	tx          txRunner
	users       users.UserRepository
	carts       cart.CartRepository
	products    catalog.ProductRepository
	shipping    catalog.ShippingRepository
	orders      orders.Repository
	history     history.Ledger
	events      outbox.Emitter
	numbers     orders.NumberGenerator
	maxAttempts int
	metrics     Metrics
	logg        *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Shipping == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history ledger required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("order number generator required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	var m Metrics = params.Metrics
	if m == nil {
		m = (*metrics.OrderMetrics)(nil)
	}
	return &service{
		tx:          params.Tx,
		users:       params.Users,
		carts:       params.Carts,
		products:    params.Products,
		shipping:    params.Shipping,
		orders:      params.Orders,
		history:     params.History,
		events:      params.Events,
		numbers:     params.Numbers,
		maxAttempts: maxAttempts,
		metrics:     m,
		logg:        params.Logger,
	}, nil
}

func (s *service) CreateOrderFromCart(ctx context.Context, input CreateOrderInput) (*orders.OrderDetail, error) {
	started := time.Now()
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var detail *orders.OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		detail, err = s.createOrder(ctx, tx, input)
		return err
	})
	s.metrics.ObserveCheckout(outcomeOf(err), time.Since(started))
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, input.UserID.String()), detail.ID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"order_number": detail.OrderNumber,
		"item_count":   detail.ItemCount,
		"total_amount": detail.TotalAmount.StringFixed(2),
	}), "order created from cart")
	return detail, nil
}

func (s *service) createOrder(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*orders.OrderDetail, error) {
	usersRepo := s.users.WithTx(tx)
	cartRepo := s.carts.WithTx(tx)
	products := s.products.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)

	user, err := usersRepo.FindByID(ctx, input.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load user")
	}

	shipTo, billTo, err := s.resolveAddresses(ctx, usersRepo, input)
	if err != nil {
		return nil, err
	}

	record, err := cartRepo.LockByUser(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errEmptyCart
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock cart")
	}
	lines, err := cartRepo.ListItems(ctx, record.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart items")
	}
	if len(lines) == 0 {
		return nil, errEmptyCart
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	catalogRows, err := products.LockByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock products")
	}
	for _, line := range lines {
		product, ok := catalogRows[line.ProductID]
		if !ok || !product.IsPublished() {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
	}

	shippingCost := decimal.Zero
	if input.ShippingMethodID != nil {
		method, err := s.shipping.WithTx(tx).FindActive(ctx, *input.ShippingMethodID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping method not found")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load shipping method")
		}
		shippingCost = method.Price
	}

	now := time.Now().UTC()
	order := &models.Order{
		UserID:           user.ID,
		Status:           enums.OrderStatusPending,
		PaymentStatus:    enums.PaymentStatusPending,
		Subtotal:         decimal.Zero,
		TaxAmount:        decimal.Zero,
		ShippingCost:     shippingCost,
		DiscountAmount:   decimal.Zero,
		TotalAmount:      decimal.Zero,
		CustomerEmail:    user.Email,
		CustomerPhone:    firstNonEmpty(input.CustomerPhone, user.Phone),
		ShippingAddress:  shipTo,
		BillingAddress:   billTo,
		ShippingMethodID: input.ShippingMethodID,
		PaymentMethod:    trimmed(input.PaymentMethod),
		CustomerNotes:    trimmed(input.CustomerNotes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.insertWithNumber(ctx, tx, ordersRepo, order); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		product := catalogRows[line.ProductID]
		items = append(items, orders.SnapshotItem(order.ID, &product, line.Quantity))
	}
	if err := ordersRepo.CreateItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create order items")
	}

	for _, line := range lines {
		reserved, err := products.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to reserve stock")
		}
		if !reserved {
			product := catalogRows[line.ProductID]
			return nil, orders.OutOfStock(&product, line.Quantity)
		}
	}

	totals, err := orders.Recalculate(ctx, ordersRepo, order, now)
	if err != nil {
		return nil, err
	}

	entry, err := s.history.WithTx(tx).Append(ctx, history.Entry{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusPending,
		Note:      noteOrderCreated,
		ActorID:   &user.ID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to append status history")
	}

	lineIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		lineIDs = append(lineIDs, line.ID)
	}
	if _, err := cartRepo.DeleteItemsByID(ctx, record.ID, lineIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear cart")
	}

	if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: user.ID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      user.ID,
			ItemCount:   len(items),
			Subtotal:    totals.Subtotal,
			Total:       totals.TotalAmount,
			Currency:    defaultCurrency,
			CreatedAt:   order.CreatedAt,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to queue order event")
	}

	saved, err := ordersRepo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order items")
	}
	return orders.ToDetail(order, saved, []models.OrderStatusHistory{*entry}), nil
}

// insertWithNumber inserts order under a fresh number, retrying inside a
// savepoint when the number collides with an existing order.
func (s *service) insertWithNumber(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to generate order number")
		}
		order.OrderNumber = number

		savepoint := fmt.Sprintf("order_number_%d", attempt)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create savepoint")
		}
		err = repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !isNumberCollision(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create order")
		}
		if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "failed to roll back savepoint")
		}
		s.metrics.IncNumberCollision()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_number": number,
			"attempt":      attempt,
		}), "order number collision")
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number").
		WithDetails(map[string]any{"attempts": s.maxAttempts})
}

func (s *service) resolveAddresses(ctx context.Context, repo users.UserRepository, input CreateOrderInput) (types.Address, types.Address, error) {
	defaults, err := users.LoadDefaultAddresses(ctx, repo, input.UserID)
	if err != nil {
		return types.Address{}, types.Address{}, err
	}

	shipping := input.ShippingAddress
	if shipping == nil {
		shipping = defaults.Shipping
	}
	if shipping == nil {
		return types.Address{}, types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	shipTo := shipping.Normalize()
	if err := shipTo.Validate(); err != nil {
		return types.Address{}, types.Address{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	if input.BillingSameAsShipping {
		return shipTo, shipTo, nil
	}
	billing := input.BillingAddress
	if billing == nil {
		billing = defaults.Billing
	}
	if billing == nil {
		return types.Address{}, types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "billing address required")
	}
	billTo := billing.Normalize()
	if err := billTo.Validate(); err != nil {
		return types.Address{}, types.Address{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing address")
	}
	return shipTo, billTo, nil
}

// isNumberCollision matches the named postgres index and sqlite's column form.
func isNumberCollision(err error) bool {
	return db.IsUniqueViolation(err, orderNumberConstraint) || db.IsUniqueViolation(err, "orders.order_number")
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, errEmptyCart):
		return metrics.OutcomeEmptyCart
	case pkgerrors.Is(err, pkgerrors.CodeOutOfStock):
		return metrics.OutcomeOutOfStock
	case pkgerrors.Is(err, pkgerrors.CodeValidation), pkgerrors.Is(err, pkgerrors.CodeNotFound):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if out := trimmed(v); out != nil {
			return out
		}
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
