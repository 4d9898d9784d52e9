package enums

import "slices"

// CartState tracks a cart through checkout.
type CartState string

const (
	CartStatePending    CartState = "PENDING"
	CartStateProcessing CartState = "PROCESSING"
	CartStateCompleted  CartState = "COMPLETED"
)

var validCartStates = []CartState{
	CartStatePending,
	CartStateProcessing,
	CartStateCompleted,
}

func (c CartState) String() string {
	return string(c)
}

func (c CartState) IsValid() bool { return slices.Contains(validCartStates, c) }

func ParseCartState(value string) (CartState, error) {
	return parseEnum(validCartStates, value, "cart state")
}
