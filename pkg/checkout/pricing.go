// Package checkout holds the pure pricing and grouping rules shared by the
// checkout service and its HTTP surface.
package checkout

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

// Line is the priced part of a cart line.
type Line struct {
	ItemID     uuid.UUID
	SizeID     uuid.UUID
	Quantity   int
	TotalPrice int64
}

// SizeDemand is the total quantity a cart needs of one size.
type SizeDemand struct {
	SizeID   uuid.UUID
	Quantity int
}

// DemandBySize sums quantities per size, ordered by size id so concurrent
// checkouts touch stock rows in the same order.
func DemandBySize(lines []Line) []SizeDemand {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		totals[l.SizeID] += l.Quantity
	}
	out := make([]SizeDemand, 0, len(totals))
	for sizeID, qty := range totals {
		out = append(out, SizeDemand{SizeID: sizeID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SizeID.String() < out[j].SizeID.String()
	})
	return out
}

// PayableAmount is the cart subtotal minus redeemed points.
func PayableAmount(lines []Line, pointsUsed, pointValue int64) (int64, error) {
	if pointsUsed < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "points used cannot be negative")
	}
	var subtotal int64
	for _, l := range lines {
		subtotal += l.TotalPrice
	}
	if pointsUsed > 0 && pointValue < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "point value cannot be negative")
	}
	// compare by division so huge point counts cannot overflow the product
	if pointValue > 0 && pointsUsed > subtotal/pointValue {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "points exceed cart total").
			WithDetails(map[string]any{"subtotal": subtotal, "pointsUsed": pointsUsed, "pointValue": pointValue})
	}
	amount := subtotal - pointsUsed*pointValue
	if amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "payable amount must be positive")
	}
	return amount, nil
}

// ValidateAmount rejects a client amount that differs from the server total.
func ValidateAmount(expected, given int64) error {
	if expected == given {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("amount mismatch: expected %d, got %d", expected, given)).
		WithDetails(map[string]any{"expected": expected, "given": given})
}
