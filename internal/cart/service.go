package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the cart engine.
type Service interface {
	GetOrCreate(ctx context.Context, owner Owner) (*CartView, error)
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartView, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, owner Owner) (*CartView, error)
	Delete(ctx context.Context, owner Owner) error
	MergeIntoUserCart(ctx context.Context, sessionKey string, userID uuid.UUID) (*CartView, error)
	Totals(ctx context.Context, owner Owner) (*CartView, error)
}

type service struct {
	repo     CartRepository
	products catalog.ProductRepository
	tx       txRunner
	events   outbox.Emitter
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products catalog.ProductRepository, tx txRunner, events outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		products: products,
		tx:       tx,
		events:   events,
		logg:     logg,
	}, nil
}

func (s *service) GetOrCreate(ctx context.Context, owner Owner) (*CartView, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := getOrCreate(ctx, repo, owner, false)
		if err != nil {
			return err
		}
		view, err = s.loadView(ctx, repo, s.products.WithTx(tx), cart)
		return err
	})
	return view, err
}

func (s *service) AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartView, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		product, err := findPurchasable(ctx, products, productID)
		if err != nil {
			return err
		}
		cart, err := getOrCreate(ctx, repo, owner, true)
		if err != nil {
			return err
		}

		existing, err := findItem(ctx, repo, cart.ID, productID)
		if err != nil {
			return err
		}
		lineQty := quantity
		if existing != nil {
			lineQty += existing.Quantity
		}
		if !product.HasStock(lineQty) {
			return outOfStock(product, lineQty)
		}

		if err := repo.UpsertItem(ctx, cart.ID, productID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add cart item")
		}
		if err := repo.Touch(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to touch cart")
		}
		view, err = s.loadView(ctx, repo, products, cart)
		return err
	})
	return view, err
}

func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartView, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var view *CartView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		cart, err := findCart(ctx, repo, owner, false)
		if err != nil {
			return err
		}
		if cart == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		item, err := findItem(ctx, repo, cart.ID, productID)
		if err != nil {
			return err
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		product, err := products.FindByID(ctx, productID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load product")
		}
		if product != nil && !product.HasStock(quantity) {
			return outOfStock(product, quantity)
		}

		if err := repo.SetItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update cart item")
		}
		if err := repo.Touch(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to touch cart")
		}
		view, err = s.loadView(ctx, repo, products, cart)
		return err
	})
	return view, err
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*CartView, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}

	view := emptyView()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := findCart(ctx, repo, owner, false)
		if err != nil || cart == nil {
			return err
		}
		removed, err := repo.DeleteItem(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to remove cart item")
		}
		if removed > 0 {
			if err := repo.Touch(ctx, cart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to touch cart")
			}
		}
		view, err = s.loadView(ctx, repo, s.products.WithTx(tx), cart)
		return err
	})
	return view, err
}

func (s *service) Clear(ctx context.Context, owner Owner) (*CartView, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}

	view := emptyView()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := findCart(ctx, repo, owner, true)
		if err != nil || cart == nil {
			return err
		}
		if _, err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear cart")
		}
		if err := repo.Touch(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to touch cart")
		}
		view = buildView(cart, nil, nil)
		return nil
	})
	return view, err
}

func (s *service) Delete(ctx context.Context, owner Owner) error {
	if err := owner.validate(); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := findCart(ctx, repo, owner, true)
		if err != nil || cart == nil {
			return err
		}
		if err := repo.Delete(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to delete cart")
		}
		return nil
	})
}

// MergeIntoUserCart folds the anonymous session cart into the user's cart and
// deletes the session cart. Quantities for products present in both carts are
// summed.
func (s *service) MergeIntoUserCart(ctx context.Context, sessionKey string, userID uuid.UUID) (*CartView, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session key is required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var (
		view   *CartView
		merged int
		source uuid.UUID
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		// The user cart is locked before the session cart so a concurrent
		// checkout cannot clear lines this merge is moving in.
		userCart, err := getOrCreate(ctx, repo, UserOwner(userID), true)
		if err != nil {
			return err
		}

		anon, err := findCart(ctx, repo, SessionOwner(sessionKey), true)
		if err != nil {
			return err
		}
		if anon == nil {
			view, err = s.loadView(ctx, repo, products, userCart)
			return err
		}
		source = anon.ID

		anonItems, err := repo.ListItems(ctx, anon.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load session cart items")
		}
		for _, item := range anonItems {
			existing, err := findItem(ctx, repo, userCart.ID, item.ProductID)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := repo.SetItemQuantity(ctx, existing.ID, existing.Quantity+item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to merge cart item")
				}
				if err := repo.DeleteItemByID(ctx, item.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to drop merged cart item")
				}
				continue
			}
			if err := repo.MoveItem(ctx, item.ID, userCart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to move cart item")
			}
		}
		merged = len(anonItems)

		if err := repo.Delete(ctx, anon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to delete session cart")
		}
		if err := repo.Touch(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to touch cart")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartMerged,
			AggregateType: enums.AggregateCart,
			AggregateID:   userCart.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.CartMergedEvent{
				SourceCartID: anon.ID,
				TargetCartID: userCart.ID,
				UserID:       userID,
				ItemsMerged:  merged,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to queue cart merged event")
		}

		view, err = s.loadView(ctx, repo, products, userCart)
		return err
	})
	if err != nil {
		return nil, err
	}

	if source != uuid.Nil {
		logCtx := s.logg.WithCartID(ctx, view.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"source_cart_id": source.String(),
			"items_merged":   merged,
		})
		s.logg.Info(logCtx, "cart merged")
	}
	return view, nil
}

// Totals prices the owner's cart without creating one.
func (s *service) Totals(ctx context.Context, owner Owner) (*CartView, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	cart, err := findCart(ctx, s.repo, owner, false)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return emptyView(), nil
	}
	return s.loadView(ctx, s.repo, s.products, cart)
}

func (s *service) loadView(ctx context.Context, repo CartRepository, products catalog.ProductRepository, cart *models.Cart) (*CartView, error) {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart items")
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	catalogRows, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart products")
	}
	return buildView(cart, items, catalogRows), nil
}

func getOrCreate(ctx context.Context, repo CartRepository, owner Owner, lock bool) (*models.Cart, error) {
	cart, err := findCart(ctx, repo, owner, lock)
	if err != nil || cart != nil {
		return cart, err
	}
	if err := repo.Create(ctx, owner.model()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create cart")
	}
	cart, err = findCart(ctx, repo, owner, lock)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart vanished after create")
	}
	return cart, nil
}

// findCart returns nil without error when the owner has no cart.
func findCart(ctx context.Context, repo CartRepository, owner Owner, lock bool) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)
	switch {
	case owner.UserID != nil && lock:
		cart, err = repo.LockByUser(ctx, *owner.UserID)
	case owner.UserID != nil:
		cart, err = repo.FindByUser(ctx, *owner.UserID)
	case lock:
		cart, err = repo.LockBySession(ctx, strings.TrimSpace(owner.SessionKey))
	default:
		cart, err = repo.FindBySession(ctx, strings.TrimSpace(owner.SessionKey))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart")
	}
	return cart, nil
}

func findItem(ctx context.Context, repo CartRepository, cartID, productID uuid.UUID) (*models.CartItem, error) {
	item, err := repo.FindItem(ctx, cartID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart item")
	}
	return item, nil
}

func findPurchasable(ctx context.Context, products catalog.ProductRepository, productID uuid.UUID) (*models.Product, error) {
	product, err := products.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load product")
	}
	if !product.IsPublished() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func outOfStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("only %d units of %s available", product.Quantity, product.Name)).
		WithDetails(map[string]any{
			"product_id": product.ID,
			"requested":  requested,
			"available":  product.Quantity,
		})
}
