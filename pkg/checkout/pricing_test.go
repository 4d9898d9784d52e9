package checkout

import (
	"math"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

func TestDemandBySizeAggregates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := DemandBySize([]Line{
		{SizeID: a, Quantity: 2},
		{SizeID: b, Quantity: 1},
		{SizeID: a, Quantity: 3},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 sizes, got %d", len(got))
	}
	for _, d := range got {
		switch d.SizeID {
		case a:
			if d.Quantity != 5 {
				t.Fatalf("expected 5 for size a, got %d", d.Quantity)
			}
		case b:
			if d.Quantity != 1 {
				t.Fatalf("expected 1 for size b, got %d", d.Quantity)
			}
		}
	}
	if got[0].SizeID.String() > got[1].SizeID.String() {
		t.Fatalf("expected sizes ordered by id")
	}
}

func TestPayableAmount(t *testing.T) {
	lines := []Line{{TotalPrice: 200_000}, {TotalPrice: 100_000}}

	amount, err := PayableAmount(lines, 10, 1_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 290_000 {
		t.Fatalf("expected 290000, got %d", amount)
	}

	if _, err := PayableAmount(lines, 301, 1_000); err == nil {
		t.Fatalf("expected points over total to fail")
	}
	if _, err := PayableAmount(lines, -1, 1_000); err == nil {
		t.Fatalf("expected negative points to fail")
	}
}

func TestPayableAmountRejectsOverflowingPoints(t *testing.T) {
	lines := []Line{{TotalPrice: 300_000}}
	// math.MaxInt64/1000+1 points would wrap negative if multiplied
	_, err := PayableAmount(lines, math.MaxInt64/1_000+1, 1_000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := PayableAmount(lines, math.MaxInt64, math.MaxInt64); err == nil {
		t.Fatalf("expected overflow-sized points to fail")
	}
	amount, err := PayableAmount(lines, 299, 1_000)
	if err != nil || amount != 1_000 {
		t.Fatalf("expected 1000 left to pay, got %d %v", amount, err)
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(10, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := ValidateAmount(10, 9)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
