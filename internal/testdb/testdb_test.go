package testdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func TestSeedProductKeepsZeroValuedStock(t *testing.T) {
	db := Open(t)

	cases := []struct {
		name    string
		opts    []ProductOption
		tracked bool
		qty     int
	}{
		{name: "default", tracked: true, qty: 100},
		{name: "untracked", opts: []ProductOption{Untracked()}, tracked: false, qty: 0},
		{name: "sold out", opts: []ProductOption{WithStock(0)}, tracked: true, qty: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seeded := SeedProduct(t, db, "Widget", "5.00", tc.opts...)
			require.Equal(t, tc.tracked, seeded.TrackQuantity)
			require.Equal(t, tc.qty, seeded.Quantity)

			var stored models.Product
			require.NoError(t, db.First(&stored, "id = ?", seeded.ID).Error)
			require.Equal(t, tc.tracked, stored.TrackQuantity)
			require.Equal(t, tc.qty, stored.Quantity)
		})
	}
}
