package enums

import "slices"

type ShippingState string

const (
	ShippingOrdered   ShippingState = "ORDERED"
	ShippingInTransit ShippingState = "SHIPPING"
	ShippingComplete  ShippingState = "COMPLETE"
)

var validShippingStates = []ShippingState{
	ShippingOrdered,
	ShippingInTransit,
	ShippingComplete,
}

func (s ShippingState) String() string {
	return string(s)
}

func (s ShippingState) IsValid() bool { return slices.Contains(validShippingStates, s) }
