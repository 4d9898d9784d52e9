package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
)

// CartRepository defines the persistence surface required by the cart and
// checkout services.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	AddItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)
	// TransitionState moves the cart only if it is still in from.
	TransitionState(ctx context.Context, id uuid.UUID, from, to enums.CartState) (bool, error)
	FindCatalogItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error)
	FindSize(ctx context.Context, sizeID uuid.UUID) (*models.Size, error)
	FindBranch(ctx context.Context, branchID uuid.UUID) (*models.Branch, error)
}

type availabilityChecker interface {
	ValidateAvailability(ctx context.Context, tx *gorm.DB, sizeID uuid.UUID, qty int) error
	BranchQuantity(ctx context.Context, branchID, sizeID uuid.UUID) (int, error)
}
