package cart

import (
	"context"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// resolveOwner prefers the authenticated user and falls back to the X-Session-Key header.
func resolveOwner(ctx context.Context) (cartsvc.Owner, error) {
	if middleware.UserIDFromContext(ctx) != "" {
		userID, err := middleware.RequireUserID(ctx)
		if err != nil {
			return cartsvc.Owner{}, err
		}
		return cartsvc.UserOwner(userID), nil
	}
	if key := middleware.CartSessionKeyFromContext(ctx); key != "" {
		return cartsvc.SessionOwner(key), nil
	}
	return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "authentication or X-Session-Key header required")
}
