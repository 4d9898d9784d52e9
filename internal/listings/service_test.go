package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/inventory"
	"github.com/moda-commerce/moda-backend/internal/testdb"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
)

type fixture struct {
	conn   *gorm.DB
	svc    Service
	inv    inventory.Service
	seller auth.Principal
	item   models.CatalogItem
	size   models.Size
}

func newFixture(t *testing.T, held int) fixture {
	t.Helper()
	conn := testdb.Open(t)
	client := db.FromConn(conn)

	inv, err := inventory.NewService(inventory.NewRepository(conn), client)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, inv, outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)

	item, sizes := testdb.Item(t, conn, 250_000, map[string]int{"M": 10})
	seller := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	if held > 0 {
		require.NoError(t, inv.AddToInventory(context.Background(), inventory.AddInput{
			UserID:   seller.UserID,
			ItemID:   item.ID,
			SizeID:   sizes["M"].ID,
			Quantity: held,
			Source:   enums.InventorySourcePurchase,
		}))
	}
	return fixture{conn: conn, svc: svc, inv: inv, seller: seller, item: item, size: sizes["M"]}
}

func (f fixture) create(t *testing.T) *models.Listing {
	t.Helper()
	listing, err := f.svc.CreateListing(context.Background(), f.seller, CreateListingInput{
		ItemID:    f.item.ID,
		SizeID:    f.size.ID,
		Price:     180_000,
		Condition: enums.ConditionLikeNew,
		Images:    []string{"https://cdn.test/a.jpg"},
	})
	require.NoError(t, err)
	return listing
}

func (f fixture) held(t *testing.T) int {
	t.Helper()
	qty, err := f.inv.CheckInventory(context.Background(), f.seller.UserID, f.item.ID, f.size.ID)
	require.NoError(t, err)
	return qty
}

func countEvents(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventListingStatusChanged).Count(&n).Error)
	return n
}

func TestCreateListingTakesUnitFromInventory(t *testing.T) {
	f := newFixture(t, 2)

	listing := f.create(t)

	require.Equal(t, enums.ListingActive, listing.Status)
	require.Equal(t, f.seller.UserID, listing.SellerID)
	require.Equal(t, 1, f.held(t))
	require.EqualValues(t, 1, countEvents(t, f.conn))
}

func TestCreateListingWithoutInventory(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.CreateListing(context.Background(), f.seller, CreateListingInput{
		ItemID:    f.item.ID,
		SizeID:    f.size.ID,
		Price:     180_000,
		Condition: enums.ConditionGood,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientInventory, pkgerrors.As(err).Code())

	var n int64
	require.NoError(t, f.conn.Model(&models.Listing{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestCreateListingRejectsForeignSize(t *testing.T) {
	f := newFixture(t, 1)
	_, otherSizes := testdb.Item(t, f.conn, 10_000, map[string]int{"S": 1})

	_, err := f.svc.CreateListing(context.Background(), f.seller, CreateListingInput{
		ItemID:    f.item.ID,
		SizeID:    otherSizes["S"].ID,
		Price:     10_000,
		Condition: enums.ConditionNew,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	require.Equal(t, 1, f.held(t))
}

func TestCreateListingValidatesInput(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.CreateListing(context.Background(), f.seller, CreateListingInput{
		ItemID:    f.item.ID,
		SizeID:    f.size.ID,
		Price:     0,
		Condition: enums.ConditionNew,
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.CreateListing(context.Background(), auth.Principal{}, CreateListingInput{})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestCancelListingReturnsUnit(t *testing.T) {
	f := newFixture(t, 1)
	listing := f.create(t)
	require.Equal(t, 0, f.held(t))

	cancelled, err := f.svc.CancelListing(context.Background(), f.seller, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingCancelled, cancelled.Status)
	require.Equal(t, 1, f.held(t))

	var lot models.UserInventory
	require.NoError(t, f.conn.Where("source = ?", enums.InventorySourceListingReturn).First(&lot).Error)
	require.NotNil(t, lot.SourceRef)
	require.Equal(t, *inventory.ListingRef(listing.ID), *lot.SourceRef)

	_, err = f.svc.CancelListing(context.Background(), f.seller, listing.ID)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())
	require.Equal(t, 1, f.held(t))
}

func TestListingChangesRequireSeller(t *testing.T) {
	f := newFixture(t, 1)
	listing := f.create(t)
	stranger := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	_, err := f.svc.CancelListing(context.Background(), stranger, listing.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = f.svc.DeactivateListing(context.Background(), stranger, listing.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = f.svc.CancelListing(context.Background(), f.seller, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeactivateAndActivate(t *testing.T) {
	f := newFixture(t, 1)
	listing := f.create(t)
	ctx := context.Background()

	got, err := f.svc.DeactivateListing(ctx, f.seller, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingInactive, got.Status)

	page, err := f.svc.ListActive(ctx, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	_, err = f.svc.DeactivateListing(ctx, f.seller, listing.ID)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())

	got, err = f.svc.ActivateListing(ctx, f.seller, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingActive, got.Status)
}

func TestReserveReleaseAndSell(t *testing.T) {
	f := newFixture(t, 1)
	listing := f.create(t)
	client := db.FromConn(f.conn)
	ctx := context.Background()
	tradeID := uuid.New()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		reserved, err := f.svc.Reserve(ctx, tx, listing.ID, tradeID)
		if err != nil {
			return err
		}
		require.Equal(t, enums.ListingReserved, reserved.Status)
		return nil
	}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.Reserve(ctx, tx, listing.ID, uuid.New())
		return err
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.Equal(t, pkgerrors.CodeInvalidTransition, typed.Code())
	require.Equal(t, enums.ListingReserved, typed.Details().(map[string]any)["currentStatus"])

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.Release(ctx, tx, listing.ID, tradeID)
		return err
	}))
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := f.svc.Reserve(ctx, tx, listing.ID, tradeID); err != nil {
			return err
		}
		_, err := f.svc.MarkSold(ctx, tx, listing.ID, tradeID)
		return err
	}))

	got, err := f.svc.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingSold, got.Status)

	_, err = f.svc.CancelListing(ctx, f.seller, listing.ID)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())
}

func TestListActivePaginates(t *testing.T) {
	f := newFixture(t, 3)
	for i := 0; i < 3; i++ {
		f.create(t)
	}
	ctx := context.Background()

	first, err := f.svc.ListActive(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.ListActive(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, l := range append(first.Items, second.Items...) {
		require.False(t, seen[l.ID], "listing returned twice")
		seen[l.ID] = true
	}

	mine, err := f.svc.ListMine(ctx, f.seller)
	require.NoError(t, err)
	require.Len(t, mine, 3)
}
