package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	IsStaff      bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		IsActive:     true,
		IsStaff:      c.IsStaff,
	}
}

// AddressDTO is a profile address.
type AddressDTO struct {
	ID          uuid.UUID         `json:"id"`
	Kind        enums.AddressKind `json:"kind"`
	IsDefault   bool              `json:"is_default"`
	Address     types.Address     `json:"address"`
	FullAddress string            `json:"full_address"`
	CreatedAt   time.Time         `json:"created_at"`
}

func AddressFromModel(a models.UserAddress) AddressDTO {
	return AddressDTO{
		ID:          a.ID,
		Kind:        a.Kind,
		IsDefault:   a.IsDefault,
		Address:     a.Address,
		FullAddress: a.Address.Full(),
		CreatedAt:   a.CreatedAt,
	}
}

// AddAddressInput creates a profile address.
type AddAddressInput struct {
	Kind      enums.AddressKind `json:"kind" validate:"required,oneof=shipping billing"`
	IsDefault bool              `json:"is_default"`
	Address   types.Address     `json:"address" validate:"required"`
}

// DefaultAddresses carries the profile fallbacks used at checkout.
type DefaultAddresses struct {
	Shipping *types.Address
	Billing  *types.Address
}
