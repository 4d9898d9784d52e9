// Package reputation keeps the per-role trade aggregates shown on a user's
// profile. Every recompute re-reads the underlying trades and reviews.
package reputation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Summary carries both sides of a user's reputation.
type Summary struct {
	UserID uuid.UUID         `json:"userId"`
	Seller models.Reputation `json:"seller"`
	Buyer  models.Reputation `json:"buyer"`
}

type Service interface {
	Recompute(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role enums.TradeRole) (*models.Reputation, error)
	Get(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reputation repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Recompute(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role enums.TradeRole) (*models.Reputation, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trade role")
	}
	repo := s.repo.WithTx(tx)

	completed, err := repo.CountTrades(ctx, userID, role, enums.TradeCompleted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count completed trades")
	}
	disputed := 0
	if role == enums.RoleSeller {
		disputed, err = repo.CountTrades(ctx, userID, role, enums.TradeDisputed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count disputed trades")
		}
	}
	sum, count, err := repo.RatingTotals(ctx, userID, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum ratings")
	}

	total := completed + disputed
	rep := &models.Reputation{
		UserID:          userID,
		Role:            role,
		TotalTrades:     total,
		CompletedTrades: completed,
		DisputedTrades:  disputed,
		AverageRating:   ratio(sum, count, decimal.NewFromInt(1)),
		CompletionRate:  ratio(int64(completed), int64(total), hundred),
		DisputeRate:     ratio(int64(disputed), int64(total), hundred),
	}
	if err := repo.Upsert(ctx, rep); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save reputation")
	}
	return rep, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	rows, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reputation")
	}
	out := &Summary{
		UserID: userID,
		Seller: empty(userID, enums.RoleSeller),
		Buyer:  empty(userID, enums.RoleBuyer),
	}
	for _, row := range rows {
		switch row.Role {
		case enums.RoleSeller:
			out.Seller = row
		case enums.RoleBuyer:
			out.Buyer = row
		}
	}
	return out, nil
}

// ratio returns num/den*scale rounded to two places, or zero when den is zero.
func ratio(num, den int64, scale decimal.Decimal) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).Mul(scale).Div(decimal.NewFromInt(den)).Round(2)
}

func empty(userID uuid.UUID, role enums.TradeRole) models.Reputation {
	return models.Reputation{
		UserID:         userID,
		Role:           role,
		AverageRating:  decimal.Zero,
		CompletionRate: decimal.Zero,
		DisputeRate:    decimal.Zero,
	}
}
