package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/auth"
	pricing "github.com/moda-commerce/moda-backend/pkg/checkout"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

type AddItemInput struct {
	ItemID            uuid.UUID               `json:"itemId" validate:"required"`
	SizeID            uuid.UUID               `json:"sizeId" validate:"required"`
	Quantity          int                     `json:"quantity" validate:"required,gt=0,lte=99"`
	FulfillmentMethod enums.FulfillmentMethod `json:"fulfillmentMethod" validate:"required,oneof=SHIP PICKUP"`
	PickupBranchID    *uuid.UUID              `json:"pickupBranchId,omitempty"`
}

// Service manages the caller's open cart. Carts are only editable while PENDING.
type Service interface {
	GetCart(ctx context.Context, principal auth.Principal) (*models.Cart, error)
	AddItem(ctx context.Context, principal auth.Principal, input AddItemInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, principal auth.Principal, cartItemID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo  CartRepository
	stock availabilityChecker
}

func NewService(repo CartRepository, stock availabilityChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock service required")
	}
	return &service{repo: repo, stock: stock}, nil
}

func (s *service) GetCart(ctx context.Context, principal auth.Principal) (*models.Cart, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindOpenByUser(ctx, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart != nil {
		return cart, nil
	}
	cart = &models.Cart{UserID: principal.UserID, State: enums.CartStatePending}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	cart.Items = []models.CartItem{}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, principal auth.Principal, input AddItemInput) (*models.Cart, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.FulfillmentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment method")
	}
	if input.FulfillmentMethod == enums.FulfillmentPickup && input.PickupBranchID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup branch required for pickup")
	}

	cart, err := s.editableCart(ctx, principal)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindCatalogItem(ctx, input.ItemID)
	if err != nil {
		return nil, notFoundOr(err, "catalog item not found")
	}
	size, err := s.repo.FindSize(ctx, input.SizeID)
	if err != nil {
		return nil, notFoundOr(err, "size not found")
	}
	if size.ItemID != item.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size does not belong to item")
	}
	if err := s.stock.ValidateAvailability(ctx, nil, size.ID, demandFor(cart.Items, size.ID, input.Quantity)); err != nil {
		return nil, err
	}

	line := &models.CartItem{
		CartID:            cart.ID,
		ItemID:            item.ID,
		SizeID:            size.ID,
		Quantity:          input.Quantity,
		TotalPrice:        item.Price * int64(input.Quantity),
		FulfillmentMethod: input.FulfillmentMethod,
	}
	if input.FulfillmentMethod == enums.FulfillmentPickup {
		branch, err := s.repo.FindBranch(ctx, *input.PickupBranchID)
		if err != nil {
			return nil, notFoundOr(err, "pickup branch not found")
		}
		held, err := s.stock.BranchQuantity(ctx, branch.ID, size.ID)
		if err != nil {
			return nil, err
		}
		line.PickupBranchID = &branch.ID
		line.RequiresTransfer = held < input.Quantity
		if !line.RequiresTransfer {
			line.SourceBranchID = &branch.ID
		}
	}

	if err := s.repo.AddItem(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return s.reload(ctx, cart.ID)
}

// demandFor is the cart's total need of sizeID once qty more is added.
func demandFor(items []models.CartItem, sizeID uuid.UUID, qty int) int {
	lines := make([]pricing.Line, 0, len(items)+1)
	for _, it := range items {
		lines = append(lines, pricing.Line{ItemID: it.ItemID, SizeID: it.SizeID, Quantity: it.Quantity})
	}
	lines = append(lines, pricing.Line{SizeID: sizeID, Quantity: qty})
	for _, d := range pricing.DemandBySize(lines) {
		if d.SizeID == sizeID {
			return d.Quantity
		}
	}
	return qty
}

func (s *service) RemoveItem(ctx context.Context, principal auth.Principal, cartItemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.editableCart(ctx, principal)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.DeleteItem(ctx, cart.ID, cartItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.reload(ctx, cart.ID)
}

func (s *service) editableCart(ctx context.Context, principal auth.Principal) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, principal)
	if err != nil {
		return nil, err
	}
	if cart.State != enums.CartStatePending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is being checked out").
			WithDetails(map[string]any{"cartId": cart.ID.String(), "state": cart.State})
	}
	return cart, nil
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
	}
	return cart, nil
}

func requireUser(principal auth.Principal) error {
	if principal.UserID == uuid.Nil || !principal.Valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
