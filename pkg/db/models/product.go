package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is the catalog entry referenced by carts and orders.
type Product struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string              `gorm:"column:name;not null"`
	Slug             string              `gorm:"column:slug;not null;uniqueIndex"`
	SKU              string              `gorm:"column:sku;not null;uniqueIndex"`
	Description      string              `gorm:"column:description;not null;default:''"`
	ShortDescription string              `gorm:"column:short_description;not null;default:''"`
	Price            decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	TrackQuantity    bool                `gorm:"column:track_quantity;not null;default:true"`
	Quantity         int                 `gorm:"column:quantity;not null;default:0"`
	Status           enums.ProductStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	ImageURL         *string             `gorm:"column:image_url"`
	Brand            *string             `gorm:"column:brand"`
	Category         *string             `gorm:"column:category"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsPublished reports whether shoppers may purchase the product.
func (p Product) IsPublished() bool {
	return p.Status.Purchasable()
}

// HasStock reports whether qty units can be sold.
func (p Product) HasStock(qty int) bool {
	if !p.TrackQuantity {
		return true
	}
	return p.Quantity >= qty
}
