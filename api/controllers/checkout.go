package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const maxCustomerNotes = 2000

type checkoutRequest struct {
	ShippingAddress       *types.Address `json:"shipping_address" validate:"omitempty"`
	BillingAddress        *types.Address `json:"billing_address" validate:"omitempty"`
	BillingSameAsShipping bool           `json:"billing_same_as_shipping"`
	ShippingMethodID      *uuid.UUID     `json:"shipping_method_id"`
	CustomerPhone         *string        `json:"customer_phone" validate:"omitempty,max=20"`
	CustomerNotes         *string        `json:"customer_notes"`
	PaymentMethod         *string        `json:"payment_method" validate:"omitempty,max=50"`
}

// Checkout converts the caller's cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.CustomerNotes != nil {
			notes := validators.CleanText(*payload.CustomerNotes, maxCustomerNotes)
			payload.CustomerNotes = &notes
		}

		order, err := svc.CreateOrderFromCart(r.Context(), checkoutsvc.CreateOrderInput{
			UserID:                userID,
			ShippingAddress:       payload.ShippingAddress,
			BillingAddress:        payload.BillingAddress,
			BillingSameAsShipping: payload.BillingSameAsShipping,
			ShippingMethodID:      payload.ShippingMethodID,
			CustomerPhone:         payload.CustomerPhone,
			CustomerNotes:         payload.CustomerNotes,
			PaymentMethod:         payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
