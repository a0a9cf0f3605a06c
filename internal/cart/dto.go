package cart

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Owner identifies whose cart is addressed: an authenticated user or an
// anonymous session. Exactly one must be set.
type Owner struct {
	UserID     *uuid.UUID
	SessionKey string
}

// UserOwner builds an Owner for an authenticated user.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// SessionOwner builds an Owner for an anonymous session.
func SessionOwner(sessionKey string) Owner {
	return Owner{SessionKey: sessionKey}
}

func (o Owner) validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := strings.TrimSpace(o.SessionKey) != ""
	switch {
	case hasUser && hasSession:
		return pkgerrors.New(pkgerrors.CodeConflict, "cart owner must be a user or a session, not both")
	case !hasUser && !hasSession:
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	return nil
}

func (o Owner) model() *models.Cart {
	if o.UserID != nil {
		id := *o.UserID
		return &models.Cart{UserID: &id}
	}
	key := strings.TrimSpace(o.SessionKey)
	return &models.Cart{SessionKey: &key}
}

// CartLine is a cart item priced from the live catalog.
type CartLine struct {
	ItemID    uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"product_name"`
	SKU       string          `json:"product_sku"`
	Slug      string          `json:"product_slug"`
	ImageURL  *string         `json:"product_image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"total_price"`
	Available bool            `json:"is_available"`
	InStock   bool            `json:"in_stock"`
	AddedAt   time.Time       `json:"added_at"`
}

// CartView is the read model returned by every cart operation.
type CartView struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	SessionKey *string         `json:"session_key,omitempty"`
	Items      []CartLine      `json:"items"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// IsEmpty reports whether the cart holds no lines.
func (v *CartView) IsEmpty() bool {
	return v == nil || len(v.Items) == 0
}

func emptyView() *CartView {
	return &CartView{Items: []CartLine{}, Subtotal: decimal.Zero, Total: decimal.Zero}
}

// buildView prices each line from the catalog. Lines whose product vanished
// or was unpublished stay visible but contribute nothing to the totals.
func buildView(cart *models.Cart, items []models.CartItem, products map[uuid.UUID]models.Product) *CartView {
	view := emptyView()
	view.ID = cart.ID
	view.UserID = cart.UserID
	view.SessionKey = cart.SessionKey
	view.CreatedAt = cart.CreatedAt
	view.UpdatedAt = cart.UpdatedAt

	for _, item := range items {
		line := CartLine{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: decimal.Zero,
			LineTotal: decimal.Zero,
			AddedAt:   item.CreatedAt,
		}
		if product, ok := products[item.ProductID]; ok {
			line.Name = product.Name
			line.SKU = product.SKU
			line.Slug = product.Slug
			line.ImageURL = product.ImageURL
			line.Available = product.IsPublished()
			line.InStock = product.HasStock(item.Quantity)
			if line.Available {
				line.UnitPrice = product.Price
				line.LineTotal = product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			}
		}
		view.Items = append(view.Items, line)
		view.TotalItems += item.Quantity
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	view.Total = view.Subtotal
	return view
}

// AddItemRequest is the payload accepted when adding a product to a cart.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// UpdateItemRequest is the payload accepted when changing a line quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// MergeRequest carries the anonymous session to fold into the caller's cart.
type MergeRequest struct {
	SessionKey string `json:"session_key" validate:"required"`
}
