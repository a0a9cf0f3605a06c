package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/testdb"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/stretchr/testify/require"
)

func TestCartCleanupJobDeletesStaleAnonymousCartsInBatches(t *testing.T) {
	conn := testdb.Open(t)
	ctx := context.Background()
	repo := cart.NewRepository(conn)
	product := testdb.SeedProduct(t, conn, "Widget", "1.00")
	now := time.Now().UTC()

	seed := func(session string, touched time.Time) *models.Cart {
		record := &models.Cart{SessionKey: &session}
		require.NoError(t, repo.Create(ctx, record))
		require.NoError(t, repo.UpsertItem(ctx, record.ID, product.ID, 1))
		require.NoError(t, conn.Model(&models.Cart{}).Where("id = ?", record.ID).UpdateColumn("updated_at", touched).Error)
		return record
	}
	for i := 0; i < 5; i++ {
		seed(fmt.Sprintf("stale-%d", i), now.Add(-10*24*time.Hour))
	}
	fresh := seed("fresh", now.Add(-time.Hour))

	user := testdb.SeedUser(t, conn)
	owned := &models.Cart{UserID: &user.ID}
	require.NoError(t, repo.Create(ctx, owned))
	require.NoError(t, conn.Model(&models.Cart{}).Where("id = ?", owned.ID).UpdateColumn("updated_at", now.Add(-90*24*time.Hour)).Error)

	job, err := NewCartCleanupJob(CartCleanupJobParams{
		Logger:     quietLogger(),
		DB:         db.Wrap(conn),
		Repository: repo,
		TTL:        7 * 24 * time.Hour,
		BatchSize:  2,
	})
	require.NoError(t, err)
	require.Equal(t, "anonymous-cart-cleanup", job.Name())
	require.NoError(t, job.Run(ctx))

	var remaining []models.Cart
	require.NoError(t, conn.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := []any{remaining[0].ID, remaining[1].ID}
	require.ElementsMatch(t, []any{fresh.ID, owned.ID}, ids)

	var items int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&items).Error)
	require.EqualValues(t, 1, items)
}

func TestCartCleanupJobRequiresDependencies(t *testing.T) {
	if _, err := NewCartCleanupJob(CartCleanupJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected error")
	}
}
