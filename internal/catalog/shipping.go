package catalog

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShippingRepository reads configured shipping methods.
type ShippingRepository interface {
	WithTx(tx *gorm.DB) ShippingRepository
	ListActive(ctx context.Context) ([]models.ShippingMethod, error)
	FindActive(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error)
}

type shippingRepository struct {
	db *gorm.DB
}

// NewShippingRepository constructs a shipping method repository.
func NewShippingRepository(db *gorm.DB) ShippingRepository {
	return &shippingRepository{db: db}
}

func (r *shippingRepository) WithTx(tx *gorm.DB) ShippingRepository {
	if tx == nil {
		return r
	}
	return &shippingRepository{db: tx}
}

func (r *shippingRepository) ListActive(ctx context.Context) ([]models.ShippingMethod, error) {
	var rows []models.ShippingMethod
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price ASC").
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *shippingRepository) FindActive(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error) {
	var row models.ShippingMethod
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
