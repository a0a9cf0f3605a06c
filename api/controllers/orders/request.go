package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/validators"
	ordersvc "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	orderIDParam = "orderId"
	itemIDParam  = "itemId"
	maxNoteLen   = 1000
	maxSearchLen = 100
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

type paymentStatusRequest struct {
	PaymentStatus string  `json:"payment_status" validate:"required"`
	Status        *string `json:"status"`
	TransactionID *string `json:"transaction_id" validate:"omitempty,max=100"`
	Note          string  `json:"note"`
}

type updateRequest struct {
	TrackingNumber  *string `json:"tracking_number" validate:"omitempty,max=100"`
	ShippingCarrier *string `json:"shipping_carrier" validate:"omitempty,max=50"`
	AdminNotes      *string `json:"admin_notes"`
}

type shipRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
	Carrier        string `json:"carrier" validate:"required,max=50"`
}

func parseOrderStatus(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").WithDetails(map[string]any{"field": "status"})
	}
	return status, nil
}

func parsePaymentStatus(raw string) (enums.PaymentStatus, error) {
	status, err := enums.ParsePaymentStatus(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status").WithDetails(map[string]any{"field": "payment_status"})
	}
	return status, nil
}

// parseListQuery reads limit, cursor, ordering, search and the optional status
// filters.
func parseListQuery(r *http.Request) (ordersvc.ListFilter, pagination.Params, error) {
	var filter ordersvc.ListFilter
	limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return filter, pagination.Params{}, err
	}
	if raw := validators.QueryString(r, "status"); raw != "" {
		status, err := parseOrderStatus(raw)
		if err != nil {
			return filter, pagination.Params{}, err
		}
		filter.Status = &status
	}
	if raw := validators.QueryString(r, "payment_status"); raw != "" {
		status, err := parsePaymentStatus(raw)
		if err != nil {
			return filter, pagination.Params{}, err
		}
		filter.PaymentStatus = &status
	}
	ordering, err := ordersvc.ParseOrdering(validators.QueryString(r, "ordering"))
	if err != nil {
		return filter, pagination.Params{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ordering").WithDetails(map[string]any{"field": "ordering"})
	}
	filter.Ordering = ordering
	filter.Search = validators.CleanText(validators.QueryString(r, "search"), maxSearchLen)
	return filter, pagination.Params{Limit: limit, Cursor: validators.QueryString(r, "cursor")}, nil
}

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable")
}
