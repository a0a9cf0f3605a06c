package checkout

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/history"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/testdb"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	collisions int
}

func (m *stubMetrics) ObserveCheckout(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *stubMetrics) IncNumberCollision() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collisions++
}

// sequence hands out the given numbers in order, repeating the last one.
func sequence(numbers ...string) orders.NumberGenerator {
	var (
		mu   sync.Mutex
		next int
	)
	return orders.NumberGeneratorFunc(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n := numbers[next]
		if next < len(numbers)-1 {
			next++
		}
		return n, nil
	})
}

type harness struct {
	db      *gorm.DB
	svc     Service
	carts   *cart.Repository
	outbox  *outbox.Repository
	metrics *stubMetrics
}

func newHarness(t *testing.T, numbers orders.NumberGenerator, maxAttempts int) harness {
	t.Helper()
	conn := testdb.Open(t)
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	if numbers == nil {
		var err error
		numbers, err = orders.NewNumberGenerator("ORD", 10)
		require.NoError(t, err)
	}
	outboxRepo := outbox.NewRepository(conn)
	carts := cart.NewRepository(conn)
	m := &stubMetrics{}
	svc, err := NewService(ServiceParams{
		Tx:          db.Wrap(conn),
		Users:       users.NewRepository(conn),
		Carts:       carts,
		Products:    catalog.NewRepository(conn),
		Shipping:    catalog.NewShippingRepository(conn),
		Orders:      orders.NewRepository(conn),
		History:     history.NewRepository(conn),
		Events:      outbox.NewService(outboxRepo, logg),
		Numbers:     numbers,
		MaxAttempts: maxAttempts,
		Metrics:     m,
		Logger:      logg,
	})
	require.NoError(t, err)
	return harness{db: conn, svc: svc, carts: carts, outbox: outboxRepo, metrics: m}
}

func (h harness) fillCart(t *testing.T, userID uuid.UUID, lines map[*models.Product]int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	record := &models.Cart{UserID: &userID}
	require.NoError(t, h.carts.Create(ctx, record))
	record, err := h.carts.FindByUser(ctx, userID)
	require.NoError(t, err)
	for product, qty := range lines {
		require.NoError(t, h.carts.UpsertItem(ctx, record.ID, product.ID, qty))
	}
	return record.ID
}

func (h harness) cartSize(t *testing.T, cartID uuid.UUID) int {
	t.Helper()
	items, err := h.carts.ListItems(context.Background(), cartID)
	require.NoError(t, err)
	return len(items)
}

func (h harness) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, h.db.First(&product, "id = ?", productID).Error)
	return product.Quantity
}

func (h harness) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func shipTo(city string) *types.Address {
	addr := testdb.Address(city)
	return &addr
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestCreateOrderFromCart(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()

	user := testdb.SeedUser(t, h.db)
	lamp := testdb.SeedProduct(t, h.db, "Lamp", "19.99", testdb.WithStock(5))
	poster := testdb.SeedProduct(t, h.db, "Poster", "4.50", testdb.Untracked())
	method := testdb.SeedShippingMethod(t, h.db, "Ground", "7.25")
	cartID := h.fillCart(t, user.ID, map[*models.Product]int{lamp: 2, poster: 3})

	notes := "  leave at door "
	detail, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{
		UserID:                user.ID,
		ShippingAddress:       shipTo("Austin"),
		BillingSameAsShipping: true,
		ShippingMethodID:      &method.ID,
		CustomerNotes:         &notes,
	})
	require.NoError(t, err)

	require.Regexp(t, `^ORD[0-9]{10}$`, detail.OrderNumber)
	require.Equal(t, enums.OrderStatusPending, detail.Status)
	require.Equal(t, enums.PaymentStatusPending, detail.PaymentStatus)
	require.Equal(t, user.Email, detail.CustomerEmail)
	require.Equal(t, "leave at door", *detail.CustomerNotes)
	require.Equal(t, detail.ShippingAddress, detail.BillingAddress)
	require.Equal(t, 2, detail.ItemCount)
	require.True(t, decimal.RequireFromString("53.48").Equal(detail.Subtotal), detail.Subtotal.String())
	require.True(t, decimal.RequireFromString("7.25").Equal(detail.ShippingCost))
	require.True(t, decimal.RequireFromString("60.73").Equal(detail.TotalAmount), detail.TotalAmount.String())

	require.Len(t, detail.StatusHistory, 1)
	require.Nil(t, detail.StatusHistory[0].OldStatus)
	require.Equal(t, "Order created", *detail.StatusHistory[0].Note)
	require.Equal(t, user.ID, *detail.StatusHistory[0].ActorID)

	require.Equal(t, 3, h.stock(t, lamp.ID))
	require.Equal(t, 0, h.stock(t, poster.ID))
	require.Equal(t, 0, h.cartSize(t, cartID))

	events, err := h.outbox.ListByAggregate(ctx, detail.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventOrderCreated, events[0].EventType)
	assert.Equal(t, []string{metrics.OutcomeSuccess}, h.metrics.outcomes)
}

func TestEmptyCartCreatesNothing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.db)

	_, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
	requireCode(t, err, pkgerrors.CodeValidation)

	h.fillCart(t, user.ID, nil)
	_, err = h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
	requireCode(t, err, pkgerrors.CodeValidation)

	require.Zero(t, h.orderCount(t))
	assert.Equal(t, []string{metrics.OutcomeEmptyCart, metrics.OutcomeEmptyCart}, h.metrics.outcomes)
}

func TestUnknownUser(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	_, err := h.svc.CreateOrderFromCart(context.Background(), CreateOrderInput{UserID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddressResolution(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.db)
	lamp := testdb.SeedProduct(t, h.db, "Lamp", "10.00")
	h.fillCart(t, user.ID, map[*models.Product]int{lamp: 1})

	_, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin")})
	requireCode(t, err, pkgerrors.CodeValidation)

	for kind, city := range map[enums.AddressKind]string{enums.AddressKindShipping: "Dallas", enums.AddressKindBilling: "Houston"} {
		require.NoError(t, h.db.Create(&models.UserAddress{UserID: user.ID, Kind: kind, IsDefault: true, Address: testdb.Address(city)}).Error)
	}

	detail, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin")})
	require.NoError(t, err)
	require.Equal(t, "Austin", detail.ShippingAddress.City)
	require.Equal(t, "Houston", detail.BillingAddress.City)
	require.Contains(t, detail.FullShippingAddress, "Austin")
}

func TestProfileDefaultsFillMissingAddresses(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.db)
	lamp := testdb.SeedProduct(t, h.db, "Lamp", "10.00")
	h.fillCart(t, user.ID, map[*models.Product]int{lamp: 1})
	require.NoError(t, h.db.Create(&models.UserAddress{UserID: user.ID, Kind: enums.AddressKindShipping, IsDefault: true, Address: testdb.Address("Dallas")}).Error)

	detail, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, BillingSameAsShipping: true})
	require.NoError(t, err)
	require.Equal(t, "Dallas", detail.ShippingAddress.City)
	require.Equal(t, "Dallas", detail.BillingAddress.City)
}

func TestUnavailableProductOrShippingMethod(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.db)
	lamp := testdb.SeedProduct(t, h.db, "Lamp", "10.00")
	cartID := h.fillCart(t, user.ID, map[*models.Product]int{lamp: 1})

	missing := uuid.New()
	_, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true, ShippingMethodID: &missing})
	requireCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, h.db.Model(&models.Product{}).Where("id = ?", lamp.ID).Update("status", enums.ProductStatusArchived).Error)
	_, err = h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
	requireCode(t, err, pkgerrors.CodeNotFound)

	require.Zero(t, h.orderCount(t))
	require.Equal(t, 1, h.cartSize(t, cartID))
}

func TestOutOfStockRollsBackEverything(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.db)
	plenty := testdb.SeedProduct(t, h.db, "Plenty", "1.00", testdb.WithStock(10))
	scarce := testdb.SeedProduct(t, h.db, "Scarce", "1.00", testdb.WithStock(1))
	cartID := h.fillCart(t, user.ID, map[*models.Product]int{plenty: 4, scarce: 2})

	_, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
	requireCode(t, err, pkgerrors.CodeOutOfStock)

	require.Zero(t, h.orderCount(t))
	require.Equal(t, 10, h.stock(t, plenty.ID))
	require.Equal(t, 1, h.stock(t, scarce.ID))
	require.Equal(t, 2, h.cartSize(t, cartID))
	assert.Equal(t, []string{metrics.OutcomeOutOfStock}, h.metrics.outcomes)
}

func TestConcurrentCheckoutsForLastUnit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()
	last := testdb.SeedProduct(t, h.db, "Last", "9.00", testdb.WithStock(1))

	shoppers := []*models.User{testdb.SeedUser(t, h.db), testdb.SeedUser(t, h.db)}
	for _, u := range shoppers {
		h.fillCart(t, u.ID, map[*models.Product]int{last: 1})
	}

	errs := make([]error, len(shoppers))
	var wg sync.WaitGroup
	for i, u := range shoppers {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: userID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
		}(i, u.ID)
	}
	wg.Wait()

	succeeded, outOfStock := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.Is(err, pkgerrors.CodeOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, outOfStock)
	require.Equal(t, 0, h.stock(t, last.ID))
	require.EqualValues(t, 1, h.orderCount(t))
}

func TestOrderSnapshotIgnoresLaterCatalogChanges(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, 0)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.db)
	lamp := testdb.SeedProduct(t, h.db, "Lamp", "12.00")
	h.fillCart(t, user.ID, map[*models.Product]int{lamp: 1})

	detail, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
	require.NoError(t, err)

	require.NoError(t, h.db.Model(&models.Product{}).Where("id = ?", lamp.ID).
		Updates(map[string]any{"price": "30.00", "name": "Deluxe Lamp"}).Error)

	items, err := orders.NewRepository(h.db).ListItems(ctx, detail.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Lamp", items[0].ProductName)
	require.Equal(t, lamp.SKU, items[0].ProductSKU)
	require.Equal(t, "Lamp", items[0].ProductData.Name)
	require.True(t, decimal.RequireFromString("12.00").Equal(items[0].UnitPrice))
	require.True(t, decimal.RequireFromString("12.00").Equal(items[0].TotalPrice))
}

func TestOrderNumberCollisionRetries(t *testing.T) {
	t.Parallel()
	h := newHarness(t, sequence("ORD0000000001", "ORD0000000001", "ORD0000000002"), 5)
	ctx := context.Background()
	lamp := testdb.SeedProduct(t, h.db, "Lamp", "5.00")

	var numbers []string
	for i := 0; i < 2; i++ {
		user := testdb.SeedUser(t, h.db)
		h.fillCart(t, user.ID, map[*models.Product]int{lamp: 1})
		detail, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: user.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
		require.NoError(t, err)
		numbers = append(numbers, detail.OrderNumber)
	}
	require.Equal(t, []string{"ORD0000000001", "ORD0000000002"}, numbers)
	require.Equal(t, 1, h.metrics.collisions)
}

func TestOrderNumberExhaustionIsInternal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, sequence("ORD0000000001"), 3)
	ctx := context.Background()
	lamp := testdb.SeedProduct(t, h.db, "Lamp", "5.00", testdb.WithStock(10))

	first := testdb.SeedUser(t, h.db)
	h.fillCart(t, first.ID, map[*models.Product]int{lamp: 1})
	_, err := h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: first.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
	require.NoError(t, err)

	second := testdb.SeedUser(t, h.db)
	cartID := h.fillCart(t, second.ID, map[*models.Product]int{lamp: 2})
	_, err = h.svc.CreateOrderFromCart(ctx, CreateOrderInput{UserID: second.ID, ShippingAddress: shipTo("Austin"), BillingSameAsShipping: true})
	requireCode(t, err, pkgerrors.CodeInternal)

	require.Equal(t, 3, h.metrics.collisions)
	require.EqualValues(t, 1, h.orderCount(t))
	require.Equal(t, 9, h.stock(t, lamp.ID))
	require.Equal(t, 1, h.cartSize(t, cartID))
}
