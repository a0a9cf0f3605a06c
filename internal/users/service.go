package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the user directory operations consumed by the API.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	AddAddress(ctx context.Context, userID uuid.UUID, input AddAddressInput) (*AddressDTO, error)
	SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) (*AddressDTO, error)
}

type service struct {
	repo UserRepository
	tx   txRunner
}

// NewService builds the user directory service.
func NewService(repo UserRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	rows, err := s.repo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, AddressFromModel(row))
	}
	return out, nil
}

func (s *service) AddAddress(ctx context.Context, userID uuid.UUID, input AddAddressInput) (*AddressDTO, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid address kind")
	}
	addr := input.Address.Normalize()
	if err := addr.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address")
	}

	row := &models.UserAddress{
		UserID:  userID,
		Kind:    input.Kind,
		Address: addr,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateAddress(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		if !input.IsDefault {
			return nil
		}
		return setDefault(ctx, repo, row)
	})
	if err != nil {
		return nil, err
	}
	dto := AddressFromModel(*row)
	return &dto, nil
}

func (s *service) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) (*AddressDTO, error) {
	var row *models.UserAddress
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindAddress(ctx, userID, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
		row = found
		return setDefault(ctx, repo, row)
	})
	if err != nil {
		return nil, err
	}
	dto := AddressFromModel(*row)
	return &dto, nil
}

// setDefault clears the current default for the address kind and flags row,
// inside the caller's transaction.
func setDefault(ctx context.Context, repo UserRepository, row *models.UserAddress) error {
	if err := repo.ClearDefault(ctx, row.UserID, row.Kind); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
	}
	if err := repo.MarkDefault(ctx, row.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark default address")
	}
	row.IsDefault = true
	return nil
}

// LoadDefaultAddresses returns the profile default shipping and billing
// addresses, leaving either nil when the user has none.
func LoadDefaultAddresses(ctx context.Context, repo UserRepository, userID uuid.UUID) (DefaultAddresses, error) {
	var out DefaultAddresses
	for _, kind := range []enums.AddressKind{enums.AddressKindShipping, enums.AddressKindBilling} {
		row, err := repo.FindDefaultAddress(ctx, userID, kind)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return DefaultAddresses{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default address")
		}
		addr := row.Address
		if kind == enums.AddressKindShipping {
			out.Shipping = &addr
		} else {
			out.Billing = &addr
		}
	}
	return out, nil
}
