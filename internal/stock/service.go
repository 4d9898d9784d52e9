package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/logger"
)

var tracer = otel.Tracer("github.com/moda-commerce/moda-backend/internal/stock")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type allocationRecorder interface {
	ObserveAllocation(outcome string, duration time.Duration)
}

// Part is the quantity taken from one branch.
type Part struct {
	BranchID uuid.UUID `json:"branchId"`
	StockID  uuid.UUID `json:"stockId"`
	Quantity int       `json:"quantity"`
}

// Allocation is the branch split of one size decrement.
type Allocation struct {
	SizeID    uuid.UUID `json:"sizeId"`
	Requested int       `json:"requested"`
	Parts     []Part    `json:"parts"`
	Complete  bool      `json:"complete"`
}

type SizeQuantity struct {
	Label    string `json:"label" validate:"required,max=32"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type AddToBranchInput struct {
	ItemID     uuid.UUID      `json:"itemId" validate:"required"`
	BranchCode string         `json:"branchCode" validate:"required"`
	Sizes      []SizeQuantity `json:"sizes" validate:"required,min=1,dive"`
}

// SizeTransfer reports where the units added to a branch came from.
type SizeTransfer struct {
	Label           string `json:"label"`
	SizeID          string `json:"sizeId"`
	Quantity        int    `json:"quantity"`
	FromWarehouse   int    `json:"fromWarehouse"`
	FromUnallocated int    `json:"fromUnallocated"`
	BranchQuantity  int    `json:"branchQuantity"`
}

type AddToBranchResult struct {
	ItemID   uuid.UUID      `json:"itemId"`
	BranchID uuid.UUID      `json:"branchId"`
	Sizes    []SizeTransfer `json:"sizes"`
}

// Service owns the branch stock ledger. The per-size invariant
// sum(stock.quantity) <= size.total_quantity holds after every call.
type Service interface {
	// ValidateAvailability checks the network-wide sum for a size. tx may be
	// nil for the advisory pre-check outside any transaction.
	ValidateAvailability(ctx context.Context, tx *gorm.DB, sizeID uuid.UUID, qty int) error
	AllocateAndDecrement(ctx context.Context, tx *gorm.DB, sizeID uuid.UUID, qty int) (*Allocation, error)
	AddToBranch(ctx context.Context, principal auth.Principal, input AddToBranchInput) (*AddToBranchResult, error)
	ListForSize(ctx context.Context, sizeID uuid.UUID) ([]models.Stock, error)
	BranchQuantity(ctx context.Context, branchID, sizeID uuid.UUID) (int, error)
}

type Options struct {
	// PessimisticLocking reads candidate rows FOR UPDATE before decrementing.
	PessimisticLocking bool
	Metrics            allocationRecorder
	Logger             *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	lockRows bool
	metrics  allocationRecorder
	logg     *logger.Logger
}

func NewService(repo Repository, tx txRunner, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		lockRows: opts.PessimisticLocking,
		metrics:  opts.Metrics,
		logg:     opts.Logger,
	}, nil
}

func (s *service) ValidateAvailability(ctx context.Context, tx *gorm.DB, sizeID uuid.UUID, qty int) error {
	if sizeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "size id required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	available, err := s.repo.WithTx(tx).SumForSize(ctx, sizeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum stock")
	}
	if available < qty {
		return insufficientStock(sizeID, available, qty)
	}
	return nil
}

func (s *service) AllocateAndDecrement(ctx context.Context, tx *gorm.DB, sizeID uuid.UUID, qty int) (alloc *Allocation, err error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "allocation requires a transaction")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	ctx, span := tracer.Start(ctx, "stock.AllocateAndDecrement")
	span.SetAttributes(attribute.String("size_id", sizeID.String()), attribute.Int("requested", qty))
	started := time.Now()
	defer func() {
		outcome := "allocated"
		if err != nil {
			outcome = allocationOutcome(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		if s.metrics != nil {
			s.metrics.ObserveAllocation(outcome, time.Since(started))
		}
		span.End()
	}()

	repo := s.repo.WithTx(tx)
	rows, err := repo.Candidates(ctx, sizeID, s.lockRows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock rows")
	}
	available := 0
	for _, row := range rows {
		available += row.Quantity
	}
	if available < qty {
		return nil, insufficientStock(sizeID, available, qty)
	}

	alloc = &Allocation{SizeID: sizeID, Requested: qty}
	remaining := qty
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		take := min(remaining, row.Quantity)
		ok, err := repo.ConditionalDecrement(ctx, row.ID, take)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStockDepleted, "stock changed during allocation").
				WithDetails(map[string]any{
					"sizeId":   sizeID.String(),
					"branchId": row.BranchID.String(),
				})
		}
		alloc.Parts = append(alloc.Parts, Part{BranchID: row.BranchID, StockID: row.ID, Quantity: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil, insufficientStock(sizeID, qty-remaining, qty)
	}
	alloc.Complete = true
	return alloc, nil
}

func (s *service) AddToBranch(ctx context.Context, principal auth.Principal, input AddToBranchInput) (*AddToBranchResult, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	code := strings.TrimSpace(input.BranchCode)
	if input.ItemID == uuid.Nil || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id and branch code required")
	}
	if len(input.Sizes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one size required")
	}
	seen := map[string]bool{}
	for _, sz := range input.Sizes {
		if sz.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"label": sz.Label})
		}
		if seen[sz.Label] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate size label").
				WithDetails(map[string]any{"label": sz.Label})
		}
		seen[sz.Label] = true
	}

	var result *AddToBranchResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.FindBranchByCode(ctx, code)
		if err != nil {
			return notFoundOr(err, "branch not found", "load branch")
		}
		if _, err := repo.FindItem(ctx, input.ItemID); err != nil {
			return notFoundOr(err, "catalog item not found", "load item")
		}
		warehouse, err := repo.Warehouse(ctx)
		if err != nil {
			return notFoundOr(err, "online warehouse not configured", "load warehouse")
		}

		result = &AddToBranchResult{ItemID: input.ItemID, BranchID: target.ID}
		for _, sz := range input.Sizes {
			transfer, err := s.addSize(ctx, repo, target, warehouse, input.ItemID, sz)
			if err != nil {
				return err
			}
			result.Sizes = append(result.Sizes, *transfer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_id":   input.ItemID.String(),
			"branch_id": result.BranchID.String(),
			"sizes":     len(result.Sizes),
		})
		s.logg.Info(logCtx, "stock added to branch")
	}
	return result, nil
}

// addSize moves units into target: first out of the online warehouse, then
// from the quantity not yet placed in any branch.
func (s *service) addSize(ctx context.Context, repo Repository, target, warehouse *models.Branch, itemID uuid.UUID, sz SizeQuantity) (*SizeTransfer, error) {
	size, err := repo.FindSizeByLabel(ctx, itemID, sz.Label)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("size %q not found", sz.Label), "load size")
	}
	placed, err := repo.SumForSize(ctx, size.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum stock")
	}
	unallocated := max(size.TotalQuantity-placed, 0)

	var warehouseRow *models.Stock
	warehouseQty := 0
	if target.ID != warehouse.ID {
		warehouseRow, err = repo.FindStock(ctx, warehouse.ID, size.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouse stock")
		}
		if warehouseRow != nil {
			warehouseQty = warehouseRow.Quantity
		}
	}

	available := warehouseQty + unallocated
	if sz.Quantity > available {
		return nil, pkgerrors.New(pkgerrors.CodeExceedsTotalQuantity,
			fmt.Sprintf("size %s: requested %d exceeds available %d", sz.Label, sz.Quantity, available)).
			WithDetails(map[string]any{
				"label":     sz.Label,
				"requested": sz.Quantity,
				"available": available,
			})
	}

	fromWarehouse := min(sz.Quantity, warehouseQty)
	if fromWarehouse > 0 {
		ok, err := repo.ConditionalDecrement(ctx, warehouseRow.ID, fromWarehouse)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement warehouse stock")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStockDepleted, "warehouse stock changed during transfer").
				WithDetails(map[string]any{"label": sz.Label})
		}
	}
	if err := repo.Increment(ctx, target.ID, size.ID, sz.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert branch stock")
	}
	row, err := repo.FindStock(ctx, target.ID, size.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload branch stock")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch stock missing after upsert").
			WithDetails(map[string]any{"branchId": target.ID.String(), "label": sz.Label})
	}

	return &SizeTransfer{
		Label:           sz.Label,
		SizeID:          size.ID.String(),
		Quantity:        sz.Quantity,
		FromWarehouse:   fromWarehouse,
		FromUnallocated: sz.Quantity - fromWarehouse,
		BranchQuantity:  row.Quantity,
	}, nil
}

func (s *service) ListForSize(ctx context.Context, sizeID uuid.UUID) ([]models.Stock, error) {
	if _, err := s.repo.FindSize(ctx, sizeID); err != nil {
		return nil, notFoundOr(err, "size not found", "load size")
	}
	rows, err := s.repo.ListForSize(ctx, sizeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock")
	}
	return rows, nil
}

func (s *service) BranchQuantity(ctx context.Context, branchID, sizeID uuid.UUID) (int, error) {
	row, err := s.repo.FindStock(ctx, branchID, sizeID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load branch stock")
	}
	if row == nil {
		return 0, nil
	}
	return row.Quantity, nil
}

func insufficientStock(sizeID uuid.UUID, available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("Total available: %d, Requested: %d", available, requested)).
		WithDetails(map[string]any{
			"sizeId":    sizeID.String(),
			"available": available,
			"requested": requested,
			"shortfall": requested - available,
		})
}

func allocationOutcome(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeInsufficientStock:
			return "insufficient"
		case pkgerrors.CodeStockDepleted:
			return "depleted"
		}
	}
	return "error"
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}
