package migrate_test

import (
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	source := migrate.Embedded()
	matches, err := fs.Glob(source, "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := fs.ReadFile(source, matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func requireStatements(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEmbeddedMigrationsLintClean(t *testing.T) {
	if err := migrate.Lint(migrate.Embedded()); err != nil {
		t.Fatalf("lint: %v", err)
	}
}

func TestEmbeddedMatchesSourceDir(t *testing.T) {
	onDisk, err := fs.Glob(os.DirFS("migrations"), "*.sql")
	if err != nil {
		t.Fatalf("glob source dir: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if strings.Join(onDisk, ",") != strings.Join(embedded, ",") {
		t.Fatalf("embedded set %v differs from %v", embedded, onDisk)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")
	requireStatements(t, content,
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"CHECK (status IN ('pending', 'confirmed', 'processing', 'shipped', 'delivered', 'cancelled', 'refunded'))",
		"CHECK (payment_status IN ('pending', 'paid', 'failed', 'refunded'))",
		"CREATE TABLE IF NOT EXISTS order_items",
		"product_data jsonb NOT NULL",
		"CHECK (quantity >= 1)",
		"CREATE TABLE IF NOT EXISTS order_status_history",
		"DROP TABLE IF EXISTS order_status_history",
		"DROP TABLE IF EXISTS orders",
	)
}

func TestCartsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_carts")
	requireStatements(t, content,
		"CHECK ((user_id IS NULL) <> (session_key IS NULL))",
		"FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE",
		"ux_cart_items_cart_product ON cart_items (cart_id, product_id)",
		"DROP TABLE IF EXISTS cart_items",
	)
}

func TestCatalogMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "create_catalog")
	requireStatements(t, content,
		"CHECK (quantity >= 0)",
		"CHECK (status IN ('draft', 'published', 'archived'))",
		"CREATE TABLE IF NOT EXISTS shipping_methods",
	)
}

func TestUsersMigrationHasSingleDefaultAddress(t *testing.T) {
	content := readMigration(t, "create_users")
	requireStatements(t, content,
		"ux_user_addresses_default",
		"WHERE is_default",
		"CHECK (kind IN ('shipping', 'billing'))",
	)
}
