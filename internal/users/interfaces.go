package users

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the persistence surface of the user directory.
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.UserAddress, error)
	FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.UserAddress, error)
	FindDefaultAddress(ctx context.Context, userID uuid.UUID, kind enums.AddressKind) (*models.UserAddress, error)
	CreateAddress(ctx context.Context, row *models.UserAddress) error
	ClearDefault(ctx context.Context, userID uuid.UUID, kind enums.AddressKind) error
	MarkDefault(ctx context.Context, addressID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
