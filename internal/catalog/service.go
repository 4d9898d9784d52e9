package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
	"github.com/moda-commerce/moda-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type SizeInput struct {
	Label         string `json:"label" validate:"required,max=32"`
	TotalQuantity int    `json:"totalQuantity" validate:"gte=0"`
}

type CreateItemInput struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Description *string     `json:"description,omitempty"`
	Price       int64       `json:"price" validate:"gt=0"`
	Sizes       []SizeInput `json:"sizes" validate:"required,min=1,dive"`
}

type Service interface {
	CreateItem(ctx context.Context, principal auth.Principal, input CreateItemInput) (*models.CatalogItem, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error)
	ListItems(ctx context.Context, params pagination.Params) (*types.PageResult[models.CatalogItem], error)
	// ReplaceSizes deletes every size of the item and inserts sizes in one
	// transaction. It refuses once stock exists because stock rows are never deleted.
	ReplaceSizes(ctx context.Context, principal auth.Principal, itemID uuid.UUID, sizes []SizeInput) (*models.CatalogItem, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateItem(ctx context.Context, principal auth.Principal, input CreateItemInput) (*models.CatalogItem, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || input.Price <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and positive price required")
	}
	if err := validateSizes(input.Sizes); err != nil {
		return nil, err
	}

	item := &models.CatalogItem{Name: name, Description: input.Description, Price: input.Price}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create item")
		}
		sizes := buildSizes(item.ID, input.Sizes)
		if err := repo.CreateSizes(ctx, sizes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create sizes")
		}
		item.Sizes = sizes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, params pagination.Params) (*types.PageResult[models.CatalogItem], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListItems(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	items, next := pagination.Trim(rows, params.Limit, func(item models.CatalogItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	return &types.PageResult[models.CatalogItem]{Items: items, NextCursor: next}, nil
}

func (s *service) ReplaceSizes(ctx context.Context, principal auth.Principal, itemID uuid.UUID, sizes []SizeInput) (*models.CatalogItem, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if err := validateSizes(sizes); err != nil {
		return nil, err
	}

	var out *models.CatalogItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindItem(ctx, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
		}
		stocked, err := repo.CountStockForItem(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count stock")
		}
		if stocked > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sizes already hold branch stock").
				WithDetails(map[string]any{"itemId": itemID.String(), "stockRows": stocked})
		}
		if err := repo.DeleteSizes(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete sizes")
		}
		if err := repo.CreateSizes(ctx, buildSizes(itemID, sizes)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create sizes")
		}
		out, err = repo.FindItem(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateSizes(sizes []SizeInput) error {
	if len(sizes) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one size required")
	}
	seen := make(map[string]bool, len(sizes))
	for _, sz := range sizes {
		label := strings.TrimSpace(sz.Label)
		if label == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "size label required")
		}
		if sz.TotalQuantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "total quantity must not be negative").
				WithDetails(map[string]any{"label": label})
		}
		if seen[label] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate size label").
				WithDetails(map[string]any{"label": label})
		}
		seen[label] = true
	}
	return nil
}

func buildSizes(itemID uuid.UUID, in []SizeInput) []models.Size {
	out := make([]models.Size, 0, len(in))
	for _, sz := range in {
		out = append(out, models.Size{
			ItemID:        itemID,
			Label:         strings.TrimSpace(sz.Label),
			TotalQuantity: sz.TotalQuantity,
		})
	}
	return out
}
