package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/inventory"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/outbox/payloads"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
	"github.com/moda-commerce/moda-backend/pkg/types"
)

const maxImages = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type CreateListingInput struct {
	ItemID      uuid.UUID              `json:"itemId" validate:"required"`
	SizeID      uuid.UUID              `json:"sizeId" validate:"required"`
	Price       int64                  `json:"price" validate:"required,gt=0"`
	Condition   enums.ListingCondition `json:"condition" validate:"required,oneof=NEW LIKE_NEW GOOD FAIR"`
	Description *string                `json:"description,omitempty" validate:"omitempty,max=2000"`
	Images      []string               `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
}

// Service manages C2C listings. Each listing holds one unit taken out of
// the seller's personal inventory until it is sold or cancelled.
type Service interface {
	CreateListing(ctx context.Context, principal auth.Principal, input CreateListingInput) (*models.Listing, error)
	CancelListing(ctx context.Context, principal auth.Principal, listingID uuid.UUID) (*models.Listing, error)
	DeactivateListing(ctx context.Context, principal auth.Principal, listingID uuid.UUID) (*models.Listing, error)
	ActivateListing(ctx context.Context, principal auth.Principal, listingID uuid.UUID) (*models.Listing, error)
	GetListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	ListActive(ctx context.Context, params pagination.Params) (*types.PageResult[models.Listing], error)
	ListMine(ctx context.Context, principal auth.Principal) ([]models.Listing, error)

	// Reserve, Release and MarkSold run inside the caller's trade transaction.
	Reserve(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, tradeID uuid.UUID) (*models.Listing, error)
	Release(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, tradeID uuid.UUID) (*models.Listing, error)
	MarkSold(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, tradeID uuid.UUID) (*models.Listing, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory inventory.Service
	outbox    outbox.Emitter
}

func NewService(repo Repository, tx txRunner, inv inventory.Service, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, inventory: inv, outbox: emitter}, nil
}

func (s *service) CreateListing(ctx context.Context, principal auth.Principal, input CreateListingInput) (*models.Listing, error) {
	if principal.UserID == uuid.Nil || !principal.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Price <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition")
	}
	if len(input.Images) > maxImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images", maxImages))
	}

	listing := &models.Listing{
		SellerID:    principal.UserID,
		ItemID:      input.ItemID,
		SizeID:      input.SizeID,
		Price:       input.Price,
		Condition:   input.Condition,
		Description: trimmed(input.Description),
		Images:      input.Images,
		Status:      enums.ListingActive,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		size, err := repo.FindSize(ctx, input.SizeID)
		if err != nil {
			return notFoundOr(err, "size not found", "load size")
		}
		if size.ItemID != input.ItemID {
			return pkgerrors.New(pkgerrors.CodeValidation, "size does not belong to item")
		}
		if err := s.inventory.WithTx(tx).RemoveFromInventory(ctx, inventory.RemoveInput{
			UserID:   principal.UserID,
			ItemID:   input.ItemID,
			SizeID:   input.SizeID,
			Quantity: 1,
		}); err != nil {
			return err
		}
		if err := repo.Create(ctx, listing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create listing")
		}
		return s.emit(ctx, tx, listing, "", nil)
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *service) CancelListing(ctx context.Context, principal auth.Principal, listingID uuid.UUID) (*models.Listing, error) {
	return s.ownerTransition(ctx, principal, listingID,
		[]enums.ListingStatus{enums.ListingActive, enums.ListingInactive}, enums.ListingCancelled,
		func(tx *gorm.DB, listing *models.Listing) error {
			return s.inventory.WithTx(tx).AddToInventory(ctx, inventory.AddInput{
				UserID:    listing.SellerID,
				ItemID:    listing.ItemID,
				SizeID:    listing.SizeID,
				Quantity:  1,
				Source:    enums.InventorySourceListingReturn,
				SourceRef: inventory.ListingRef(listing.ID),
			})
		})
}

func (s *service) DeactivateListing(ctx context.Context, principal auth.Principal, listingID uuid.UUID) (*models.Listing, error) {
	return s.ownerTransition(ctx, principal, listingID, []enums.ListingStatus{enums.ListingActive}, enums.ListingInactive, nil)
}

func (s *service) ActivateListing(ctx context.Context, principal auth.Principal, listingID uuid.UUID) (*models.Listing, error) {
	return s.ownerTransition(ctx, principal, listingID, []enums.ListingStatus{enums.ListingInactive}, enums.ListingActive, nil)
}

func (s *service) ownerTransition(
	ctx context.Context,
	principal auth.Principal,
	listingID uuid.UUID,
	from []enums.ListingStatus,
	to enums.ListingStatus,
	after func(tx *gorm.DB, listing *models.Listing) error,
) (*models.Listing, error) {
	var out *models.Listing
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindForUpdate(ctx, listingID)
		if err != nil {
			return notFoundOr(err, "listing not found", "load listing")
		}
		if listing.SellerID != principal.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can change this listing")
		}
		prev := listing.Status
		moved, err := repo.Transition(ctx, listing.ID, from, to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing")
		}
		if !moved {
			return invalidTransition(listing.Status, to)
		}
		listing.Status = to
		if after != nil {
			if err := after(tx, listing); err != nil {
				return err
			}
		}
		if err := s.emit(ctx, tx, listing, prev, nil); err != nil {
			return err
		}
		out = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) GetListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFoundOr(err, "listing not found", "load listing")
	}
	return listing, nil
}

func (s *service) ListActive(ctx context.Context, params pagination.Params) (*types.PageResult[models.Listing], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListActive(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}
	items, next := pagination.Trim(rows, params.Limit, func(l models.Listing) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	return &types.PageResult[models.Listing]{Items: items, NextCursor: next}, nil
}

func (s *service) ListMine(ctx context.Context, principal auth.Principal) ([]models.Listing, error) {
	rows, err := s.repo.ListBySeller(ctx, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}
	return rows, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, listingID, tradeID uuid.UUID) (*models.Listing, error) {
	return s.systemTransition(ctx, tx, listingID, tradeID, enums.ListingActive, enums.ListingReserved)
}

func (s *service) Release(ctx context.Context, tx *gorm.DB, listingID, tradeID uuid.UUID) (*models.Listing, error) {
	return s.systemTransition(ctx, tx, listingID, tradeID, enums.ListingReserved, enums.ListingActive)
}

func (s *service) MarkSold(ctx context.Context, tx *gorm.DB, listingID, tradeID uuid.UUID) (*models.Listing, error) {
	return s.systemTransition(ctx, tx, listingID, tradeID, enums.ListingReserved, enums.ListingSold)
}

func (s *service) systemTransition(ctx context.Context, tx *gorm.DB, listingID, tradeID uuid.UUID, from, to enums.ListingStatus) (*models.Listing, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing transition requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	moved, err := repo.Transition(ctx, listingID, []enums.ListingStatus{from}, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing")
	}
	listing, err := repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFoundOr(err, "listing not found", "load listing")
	}
	if !moved {
		return nil, invalidTransition(listing.Status, to)
	}
	if err := s.emit(ctx, tx, listing, from, &tradeID); err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, listing *models.Listing, from enums.ListingStatus, tradeID *uuid.UUID) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventListingStatusChanged,
		AggregateType: enums.AggregateListing,
		AggregateID:   listing.ID,
		Data: payloads.ListingStatusChangedEvent{
			ListingID: listing.ID,
			SellerID:  listing.SellerID,
			From:      from,
			To:        listing.Status,
			TradeID:   tradeID,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit listing status")
	}
	return nil
}

func invalidTransition(current, target enums.ListingStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("listing cannot move from %s to %s", current, target)).
		WithDetails(map[string]any{"currentStatus": current, "targetStatus": target})
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
