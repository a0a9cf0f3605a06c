package catalog

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingMethodDTO is the public shape of a shipping option.
type ShippingMethodDTO struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	EstimatedDaysMin int             `json:"estimated_days_min"`
	EstimatedDaysMax int             `json:"estimated_days_max"`
	DeliveryEstimate string          `json:"delivery_estimate"`
}

func shippingMethodFromModel(m models.ShippingMethod) ShippingMethodDTO {
	estimate := fmt.Sprintf("%d-%d days", m.EstimatedDaysMin, m.EstimatedDaysMax)
	if m.EstimatedDaysMin == m.EstimatedDaysMax {
		estimate = fmt.Sprintf("%d days", m.EstimatedDaysMin)
	}
	return ShippingMethodDTO{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		Price:            m.Price,
		EstimatedDaysMin: m.EstimatedDaysMin,
		EstimatedDaysMax: m.EstimatedDaysMax,
		DeliveryEstimate: estimate,
	}
}

// Service exposes read-only catalog lookups to the API.
type Service interface {
	ListShippingMethods(ctx context.Context) ([]ShippingMethodDTO, error)
}

type service struct {
	shipping ShippingRepository
}

func NewService(shipping ShippingRepository) (Service, error) {
	if shipping == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	return &service{shipping: shipping}, nil
}

func (s *service) ListShippingMethods(ctx context.Context) ([]ShippingMethodDTO, error) {
	rows, err := s.shipping.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping methods")
	}
	out := make([]ShippingMethodDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, shippingMethodFromModel(row))
	}
	return out, nil
}
