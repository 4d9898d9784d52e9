package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type AddInput struct {
	UserID    uuid.UUID
	ItemID    uuid.UUID
	SizeID    uuid.UUID
	Quantity  int
	Source    enums.InventorySource
	SourceRef *string
}

type RemoveInput struct {
	UserID   uuid.UUID
	ItemID   uuid.UUID
	SizeID   uuid.UUID
	Quantity int
}

// Service is the personal inventory ledger. WithTx returns a service whose
// operations run inside the caller's transaction.
type Service interface {
	WithTx(tx *gorm.DB) Service
	AddToInventory(ctx context.Context, input AddInput) error
	RemoveFromInventory(ctx context.Context, input RemoveInput) error
	CheckInventory(ctx context.Context, userID, itemID, sizeID uuid.UUID) (int, error)
	GetUserInventory(ctx context.Context, userID uuid.UUID) ([]Holding, error)
	GetInventoryItem(ctx context.Context, userID, itemID, sizeID uuid.UUID) (*Holding, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	bound bool
}

func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), tx: s.tx, bound: true}
}

func (s *service) inTx(ctx context.Context, fn func(repo Repository) error) error {
	if s.bound {
		return fn(s.repo)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx))
	})
}

func (s *service) AddToInventory(ctx context.Context, input AddInput) error {
	if err := validateKey(input.UserID, input.ItemID, input.SizeID, input.Quantity); err != nil {
		return err
	}
	if !input.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory source")
	}
	lot := &models.UserInventory{
		UserID:    input.UserID,
		ItemID:    input.ItemID,
		SizeID:    input.SizeID,
		SourceRef: input.SourceRef,
		Quantity:  input.Quantity,
		Source:    input.Source,
	}
	if err := s.repo.UpsertLot(ctx, lot); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit inventory")
	}
	return nil
}

// RemoveFromInventory consumes the oldest lots first and deletes lots it empties.
func (s *service) RemoveFromInventory(ctx context.Context, input RemoveInput) error {
	if err := validateKey(input.UserID, input.ItemID, input.SizeID, input.Quantity); err != nil {
		return err
	}
	return s.inTx(ctx, func(repo Repository) error {
		lots, err := repo.LotsFIFO(ctx, input.UserID, input.ItemID, input.SizeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory lots")
		}
		available := 0
		for _, lot := range lots {
			available += lot.Quantity
		}
		if available < input.Quantity {
			return insufficientInventory(available, input.Quantity)
		}

		remaining := input.Quantity
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			var ok bool
			if lot.Quantity <= remaining {
				ok, err = repo.DeleteLot(ctx, lot.ID, lot.Quantity)
				remaining -= lot.Quantity
			} else {
				ok, err = repo.ReduceLot(ctx, lot.ID, remaining)
				remaining = 0
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume inventory lot")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "inventory changed concurrently").
					WithDetails(map[string]any{"lotId": lot.ID.String()})
			}
		}
		return nil
	})
}

func (s *service) CheckInventory(ctx context.Context, userID, itemID, sizeID uuid.UUID) (int, error) {
	total, err := s.repo.Sum(ctx, userID, itemID, sizeID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum inventory")
	}
	return total, nil
}

func (s *service) GetUserInventory(ctx context.Context, userID uuid.UUID) ([]Holding, error) {
	rows, err := s.repo.Holdings(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory")
	}
	if rows == nil {
		rows = []Holding{}
	}
	return rows, nil
}

func (s *service) GetInventoryItem(ctx context.Context, userID, itemID, sizeID uuid.UUID) (*Holding, error) {
	rows, err := s.GetUserInventory(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ItemID == itemID && rows[i].SizeID == sizeID {
			return &rows[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
}

func validateKey(userID, itemID, sizeID uuid.UUID, qty int) error {
	if userID == uuid.Nil || itemID == uuid.Nil || sizeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory key incomplete")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func insufficientInventory(available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory,
		fmt.Sprintf("Available: %d, Requested: %d", available, requested)).
		WithDetails(map[string]any{
			"available": available,
			"requested": requested,
			"shortfall": requested - available,
		})
}

// SourceRef helpers keep lot references uniform across callers.
func TransactionDetailRef(id uuid.UUID) *string { return ref("txd:" + id.String()) }
func TradeRef(id uuid.UUID) *string             { return ref("trade:" + id.String()) }
func ListingRef(id uuid.UUID) *string           { return ref("listing:" + id.String()) }

func ref(s string) *string { return &s }
