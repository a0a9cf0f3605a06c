package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/testdb"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReserveDecrementsTrackedStock(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	product := testdb.SeedProduct(t, db, "Widget", "9.99", testdb.WithStock(3))

	ok, err := repo.Reserve(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reserve(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only one unit remains")

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Quantity)
}

func TestReserveUntrackedAlwaysSucceeds(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	product := testdb.SeedProduct(t, db, "Ebook", "4.00", testdb.Untracked())

	ok, err := repo.Reserve(context.Background(), product.ID, 500)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Quantity)
}

func TestReserveUnknownProduct(t *testing.T) {
	db := testdb.Open(t)
	ok, err := NewRepository(db).Reserve(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReserveNeverGoesNegativeUnderContention(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	product := testdb.SeedProduct(t, db, "Last Unit", "19.00", testdb.WithStock(5))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Reserve(context.Background(), product.ID, 1)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
	reloaded, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Quantity)
}

func TestReleaseRestocks(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	product := testdb.SeedProduct(t, db, "Widget", "9.99", testdb.WithStock(1))

	require.NoError(t, repo.Release(context.Background(), product.ID, 4))
	reloaded, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Quantity)
}

func TestLockByIDsInsideTransaction(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	a := testdb.SeedProduct(t, db, "A", "1.00")
	b := testdb.SeedProduct(t, db, "B", "2.00")

	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.WithTx(tx).LockByIDs(context.Background(), []uuid.UUID{b.ID, a.ID, b.ID, uuid.New()})
		if err != nil {
			return err
		}
		assert.Len(t, rows, 2)
		assert.Equal(t, "A", rows[a.ID].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestShippingMethodsListOnlyActive(t *testing.T) {
	db := testdb.Open(t)
	active := testdb.SeedShippingMethod(t, db, "Standard", "5.00")
	retired := testdb.SeedShippingMethod(t, db, "Pony Express", "50.00")
	require.NoError(t, db.Model(&models.ShippingMethod{}).Where("id = ?", retired.ID).Update("is_active", false).Error)

	svc, err := NewService(NewShippingRepository(db))
	require.NoError(t, err)
	methods, err := svc.ListShippingMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, active.ID, methods[0].ID)
	assert.Equal(t, "2-5 days", methods[0].DeliveryEstimate)

	_, err = NewShippingRepository(db).FindActive(context.Background(), retired.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
