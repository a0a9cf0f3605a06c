// Package testdb opens isolated sqlite databases carrying the storefront
// schema for repository and service tests.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const schema = `
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  is_staff BOOLEAN NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE user_addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  is_default BOOLEAN NOT NULL DEFAULT 0,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  address_line1 TEXT NOT NULL,
  address_line2 TEXT,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  country TEXT NOT NULL,
  zip_code TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX ux_user_addresses_default ON user_addresses (user_id, kind) WHERE is_default = 1;
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  sku TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  short_description TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  track_quantity BOOLEAN NOT NULL DEFAULT 1,
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  status TEXT NOT NULL DEFAULT 'draft',
  image_url TEXT,
  brand TEXT,
  category TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE shipping_methods (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  estimated_days_min INTEGER NOT NULL,
  estimated_days_max INTEGER NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT UNIQUE,
  session_key TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK ((user_id IS NULL) <> (session_key IS NULL))
);
CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal TEXT NOT NULL,
  tax_amount TEXT NOT NULL,
  shipping_cost TEXT NOT NULL,
  discount_amount TEXT NOT NULL,
  total_amount NUMERIC NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT,
  shipping_first_name TEXT NOT NULL,
  shipping_last_name TEXT NOT NULL,
  shipping_address_line1 TEXT NOT NULL,
  shipping_address_line2 TEXT,
  shipping_city TEXT NOT NULL,
  shipping_state TEXT NOT NULL,
  shipping_country TEXT NOT NULL,
  shipping_zip_code TEXT NOT NULL,
  billing_first_name TEXT NOT NULL,
  billing_last_name TEXT NOT NULL,
  billing_address_line1 TEXT NOT NULL,
  billing_address_line2 TEXT,
  billing_city TEXT NOT NULL,
  billing_state TEXT NOT NULL,
  billing_country TEXT NOT NULL,
  billing_zip_code TEXT NOT NULL,
  shipping_method_id TEXT,
  payment_method TEXT,
  transaction_id TEXT,
  tracking_number TEXT,
  shipping_carrier TEXT,
  customer_notes TEXT,
  admin_notes TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME
);
CREATE UNIQUE INDEX ux_orders_order_number ON orders (order_number);
CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id),
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_sku TEXT NOT NULL,
  product_data TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price TEXT NOT NULL,
  total_price TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id),
  old_status TEXT,
  new_status TEXT NOT NULL,
  note TEXT,
  actor_id TEXT,
  created_at DATETIME
);
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);
`

// Open returns a fresh in-memory database with the full schema applied.
// The pool is capped at one connection so concurrent transactions queue
// behind each other instead of failing on sqlite table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storefront_%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return conn
}

// ProductOption customises a seeded product.
type ProductOption func(*models.Product)

func WithStock(qty int) ProductOption {
	return func(p *models.Product) {
		p.TrackQuantity = true
		p.Quantity = qty
	}
}

func Untracked() ProductOption {
	return func(p *models.Product) {
		p.TrackQuantity = false
		p.Quantity = 0
	}
}

func WithStatus(status enums.ProductStatus) ProductOption {
	return func(p *models.Product) {
		p.Status = status
	}
}

// SeedProduct inserts a published, stock-tracked product.
func SeedProduct(t testing.TB, db *gorm.DB, name, price string, opts ...ProductOption) *models.Product {
	t.Helper()
	suffix := uuid.NewString()[:8]
	brand := "Acme"
	category := "Gadgets"
	product := &models.Product{
		Name:          name,
		Slug:          strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + suffix,
		SKU:           "SKU-" + suffix,
		Description:   name + " description",
		Price:         decimal.RequireFromString(price),
		TrackQuantity: true,
		Quantity:      100,
		Status:        enums.ProductStatusPublished,
		Brand:         &brand,
		Category:      &category,
	}
	for _, opt := range opts {
		opt(product)
	}
	// gorm skips zero-valued fields that carry defaults on insert and then
	// reads the column defaults back into the struct.
	tracked, qty := product.TrackQuantity, product.Quantity
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := db.Model(product).Updates(map[string]any{
		"track_quantity": tracked,
		"quantity":       qty,
	}).Error; err != nil {
		t.Fatalf("seed product stock: %v", err)
	}
	product.TrackQuantity, product.Quantity = tracked, qty
	return product
}

// SeedUser inserts an active customer.
func SeedUser(t testing.TB, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("shopper_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedShippingMethod inserts an active shipping method.
func SeedShippingMethod(t testing.TB, db *gorm.DB, name, price string) *models.ShippingMethod {
	t.Helper()
	method := &models.ShippingMethod{
		Name:             name,
		Price:            decimal.RequireFromString(price),
		EstimatedDaysMin: 2,
		EstimatedDaysMax: 5,
		IsActive:         true,
	}
	if err := db.Create(method).Error; err != nil {
		t.Fatalf("seed shipping method: %v", err)
	}
	return method
}

// Address returns a complete address fixture.
func Address(city string) types.Address {
	return types.Address{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Line1:     "1 Analytical Way",
		City:      city,
		State:     "TX",
		Country:   "US",
		ZipCode:   "78701",
	}
}
